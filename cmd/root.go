// Package cmd provides the command-line interface for rvsim.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rvsim",
	Short: "rvsim is a cycle-level simulator of a 5-stage RV64 core.",
	Long: `rvsim runs statically linked RV64 ELF programs on a cycle-level ` +
		`model of an in-order pipeline with split instruction and data ` +
		`caches sharing one AXI memory port.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
