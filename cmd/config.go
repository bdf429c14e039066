package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rvsim/timing/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print or save a core configuration.",
	Long: "`config` prints the default configuration as JSON. " +
		"`config --from [file]` validates a configuration file and prints it " +
		"with every default filled in. `--out [file]` writes the result to " +
		"a file instead.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, _ := cmd.Flags().GetString("from")
		out, _ := cmd.Flags().GetString("out")

		cfg, err := loadConfig(from)
		if err != nil {
			return err
		}

		if out != "" {
			return cfg.SaveConfig(out)
		}

		data, err := cfg.JSON()
		if err != nil {
			return err
		}

		_, err = cmd.OutOrStdout().Write(data)

		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().String("from", "", "Configuration file to start from")
	configCmd.Flags().String("out", "", "Write the configuration to this file")
}

// loadConfig reads and validates the configuration at path. An empty path
// gives the default configuration.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}
