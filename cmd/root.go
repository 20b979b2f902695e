package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zpam/trecprep/pkg/config"
	"github.com/zpam/trecprep/pkg/learning"
	"github.com/zpam/trecprep/pkg/logger"
)

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "trecprep",
	Short: "trecprep - TREC spam corpus preparation",
	Long: `trecprep turns the TREC public spam corpora into training data.

It walks each dataset's spam index, extracts a stemmed word table from every
message body, builds a corpus-wide vocabulary and projects the cached tables
onto the most frequent terms to produce a fixed-width dataframe.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
		logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (defaults plus TRECPREP_* environment when empty)")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(dataframeCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(normalizeCmd)
	rootCmd.AddCommand(vocabCmd)
	rootCmd.AddCommand(configCmd)
}

// openVocabularyStore returns the configured vocabulary backend.
func openVocabularyStore(ctx context.Context) (learning.VocabularyStore, error) {
	switch cfg.Vocabulary.Backend {
	case "redis":
		store, err := learning.NewRedisVocabulary(ctx, &cfg.Vocabulary.Redis)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return store, nil
	default:
		return learning.NewFileVocabulary(cfg.Vocabulary.Path), nil
	}
}
