package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zpam/trecprep/pkg/config"
	"github.com/zpam/trecprep/pkg/corpus"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
	Long:  `Generate and validate trecprep configuration files`,
	// Config files are handled by the subcommands themselves.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

var configGenCmd = &cobra.Command{
	Use:   "generate [config-file]",
	Short: "Generate default configuration file",
	Long:  `Generate a configuration file holding every option at its default value`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := "trecprep.yaml"
		if len(args) > 0 {
			configPath = args[0]
		}

		if _, err := os.Stat(configPath); err == nil {
			overwrite, _ := cmd.Flags().GetBool("force")
			if !overwrite {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
			}
		}

		if err := config.DefaultConfig().SaveConfig(configPath); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		fmt.Printf("✅ Configuration file generated: %s\n", configPath)
		fmt.Printf("📝 Point the dataset roots at your TREC corpora\n")
		fmt.Printf("🚀 Use 'trecprep extract --config %s' to start\n", configPath)
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate a configuration file and check that every dataset index loads`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := args[0]

		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("❌ Configuration validation failed: %w", err)
		}
		fmt.Printf("✅ Configuration is valid: %s\n", configPath)

		warnings := validateConfigLogic(loaded)
		if len(warnings) > 0 {
			fmt.Printf("\n⚠️  Warnings:\n")
			for _, warning := range warnings {
				fmt.Printf("  - %s\n", warning)
			}
		}

		fmt.Printf("\n📊 Configuration Summary:\n")
		fmt.Printf("  Datasets: %d\n", len(loaded.Datasets))
		fmt.Printf("  Workers: %d\n", loaded.Extract.Workers)
		fmt.Printf("  Vocabulary backend: %s\n", loaded.Vocabulary.Backend)
		fmt.Printf("  Features: %d (%s sink)\n", loaded.Features.FeatureCount, loaded.Features.Sink)
		fmt.Printf("  Train ratio: %.2f\n", loaded.Training.TrainRatio)
		return nil
	},
}

// validateConfigLogic reports settings that are valid but likely mistakes.
func validateConfigLogic(c *config.Config) []string {
	var warnings []string

	for _, dc := range c.Datasets {
		if _, err := corpus.Open(dc.Options()); err != nil {
			warnings = append(warnings, err.Error())
		}
	}
	if c.Extract.Workers > 64 {
		warnings = append(warnings, "High worker count; extraction is mostly disk bound")
	}
	if c.Extract.CorpusLimit >= 0 || c.Extract.TargetLimit >= 0 {
		warnings = append(warnings, "Corpus or target limits are set; only part of the data will be extracted")
	}
	if c.Features.FeatureCount > 10000 {
		warnings = append(warnings, "Very wide dataframe; rows will be large")
	}
	if c.Training.TrainRatio < 0.5 {
		warnings = append(warnings, "Less than half the rows are used for training")
	}
	return warnings
}

func init() {
	configGenCmd.Flags().BoolP("force", "f", false, "Overwrite existing config file")

	configCmd.AddCommand(configGenCmd)
	configCmd.AddCommand(configValidateCmd)
}
