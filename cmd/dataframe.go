package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zpam/trecprep/pkg/features"
)

var (
	dataframeFeatures  int
	dataframeOutputDir string
	dataframeSink      string
	dataframeForce     bool
)

var dataframeCmd = &cobra.Command{
	Use:   "dataframe",
	Short: "Project cached word tables onto the top vocabulary terms",
	Long: `Load the top N vocabulary terms and turn every cached word table into a
fixed-width count vector, sorted by document id.

The csv sink writes trec-df-<N> to the output directory and refuses to
overwrite an existing file unless --force is given. The postgres sink
loads the rows into the configured table, truncating it with --force.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("features") {
			cfg.Features.FeatureCount = dataframeFeatures
		}
		if cmd.Flags().Changed("output-dir") {
			cfg.Features.OutputDir = dataframeOutputDir
		}
		if cmd.Flags().Changed("sink") {
			cfg.Features.Sink = dataframeSink
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx := cmd.Context()

		store, err := openVocabularyStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		var sink features.Sink
		var destination string
		switch cfg.Features.Sink {
		case "postgres":
			pg, err := features.NewPostgresSink(ctx, cfg.Features.Postgres, dataframeForce)
			if err != nil {
				return err
			}
			sink, destination = pg, "postgres table "+cfg.Features.Postgres.Table
		default:
			csvSink, err := features.NewCSVSink(features.DataframePath(cfg.Features.OutputDir, cfg.Features.FeatureCount), dataframeForce)
			if err != nil {
				return err
			}
			sink, destination = csvSink, csvSink.Path()
		}

		fmt.Printf("🧮 Dataframe Generation\n")
		fmt.Printf("═══════════════════════════════════════\n")
		fmt.Printf("📁 Cache: %s\n", cfg.Extract.CacheDir)
		fmt.Printf("🔢 Features: %d\n", cfg.Features.FeatureCount)
		fmt.Printf("💾 Output: %s\n\n", destination)

		start := time.Now()
		rows, err := features.Generate(ctx, cfg.Extract.CacheDir, store, cfg.Features.FeatureCount, sink,
			func(done, total int, v features.Vector) {
				if done%1000 == 0 || done == total {
					fmt.Printf("📚 Projected %d/%d tables...\n", done, total)
				}
			})
		if closeErr := sink.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return fmt.Errorf("dataframe generation failed: %w", err)
		}

		fmt.Printf("\n🎉 Dataframe Complete!\n")
		fmt.Printf("📊 Rows: %d\n", rows)
		fmt.Printf("⏱️  Time taken: %v\n", time.Since(start))
		return nil
	},
}

func init() {
	dataframeCmd.Flags().IntVarP(&dataframeFeatures, "features", "n", 1000, "Number of vocabulary terms per row (overrides config)")
	dataframeCmd.Flags().StringVarP(&dataframeOutputDir, "output-dir", "o", "", "Directory for the csv dataframe (overrides config)")
	dataframeCmd.Flags().StringVar(&dataframeSink, "sink", "", "Output sink: csv or postgres (overrides config)")
	dataframeCmd.Flags().BoolVarP(&dataframeForce, "force", "f", false, "Overwrite an existing dataframe")
}
