package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/zpam/trecprep/pkg/corpus"
)

var (
	normalizeTargetDir string
	normalizeForce     bool
	normalizeVerbose   bool
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Copy all datasets into one flat, uniformly named directory",
	Long: `Copy every indexed message of every configured dataset into a single
directory, named <zero-padded id>.<spam|ham> with one running counter
across all datasets.

A non-empty target directory is refused unless --force is given, in which
case it is wiped first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("target-dir") {
			cfg.Normalize.TargetDir = normalizeTargetDir
		}

		datasets, err := cfg.OpenDatasets()
		if err != nil {
			return err
		}
		if err := corpus.PrepareTargetDir(cfg.Normalize.TargetDir, normalizeForce); err != nil {
			return fmt.Errorf("%w (use --force to wipe it)", err)
		}

		fmt.Printf("🗂️  Corpus Normalization\n")
		fmt.Printf("═══════════════════════════════════════\n")
		fmt.Printf("📁 Target: %s\n\n", cfg.Normalize.TargetDir)

		start := time.Now()
		perDataset := make(map[string]int, len(datasets))
		count, err := corpus.Normalize(datasets, cfg.Normalize.TargetDir, cfg.Normalize.IDWidth,
			func(ds *corpus.Dataset, t corpus.Target, name string) {
				perDataset[ds.Name]++
				if normalizeVerbose {
					fmt.Printf("📄 %s -> %s\n", t.Path, name)
				}
			})
		if err != nil {
			return fmt.Errorf("normalization failed after %d files: %w", count, err)
		}

		fmt.Printf("🎉 Normalization Complete!\n")
		for _, ds := range datasets {
			fmt.Printf("   %-12s %d files\n", ds.Name, perDataset[ds.Name])
		}
		fmt.Printf("📊 Total: %d files\n", count)
		fmt.Printf("⏱️  Time taken: %v\n", time.Since(start))
		return nil
	},
}

func init() {
	normalizeCmd.Flags().StringVarP(&normalizeTargetDir, "target-dir", "t", "", "Output directory (overrides config)")
	normalizeCmd.Flags().BoolVarP(&normalizeForce, "force", "f", false, "Wipe a non-empty target directory")
	normalizeCmd.Flags().BoolVarP(&normalizeVerbose, "verbose", "v", false, "Print every copied file")
}
