package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rvsim/benchmarks"
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Run the built-in microbenchmarks.",
	Long: "`bench` runs the microbenchmarks on the timing core and prints " +
		"their cycle counts. `--format` selects text, csv or json output.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		format, _ := cmd.Flags().GetString("format")
		quick, _ := cmd.Flags().GetBool("quick")

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}

		harnessConfig := benchmarks.DefaultConfig()
		harnessConfig.Core = cfg
		harnessConfig.Output = cmd.OutOrStdout()
		if cfg.MaxCycles > 0 {
			harnessConfig.MaxCycles = cfg.MaxCycles
		}

		harness := benchmarks.NewHarness(harnessConfig)
		if quick {
			harness.AddBenchmarks(benchmarks.GetCoreBenchmarks())
		} else {
			harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
		}

		results, err := harness.RunAll()
		if err != nil {
			return err
		}

		switch format {
		case "text":
			harness.PrintResults(results)
		case "csv":
			harness.PrintCSV(results)
		case "json":
			return harness.PrintJSON(results)
		default:
			return fmt.Errorf("unknown format %q", format)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)
	benchCmd.Flags().String("config", "", "Path to a core configuration JSON file")
	benchCmd.Flags().String("format", "text", "Output format: text, csv or json")
	benchCmd.Flags().Bool("quick", false, "Run only the three core benchmarks")
}
