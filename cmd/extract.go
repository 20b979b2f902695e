package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/zpam/trecprep/pkg/learning"
	"github.com/zpam/trecprep/pkg/metrics"
	"github.com/zpam/trecprep/pkg/pipeline"
	"github.com/zpam/trecprep/pkg/plugins"
)

var (
	extractWorkers     int
	extractCacheDir    string
	extractCorpusLimit int
	extractTargetLimit int
	extractProfile     bool
	extractSenders     int
	extractVerbose     bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract word tables and the vocabulary from the datasets",
	Long: `Walk every configured dataset, extract each message body, cache its
stemmed word table and aggregate the corpus-wide vocabulary.

Messages that cannot be read, parsed or that have an empty body are logged
and skipped. The ranked vocabulary is saved to the configured backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("workers") {
			cfg.Extract.Workers = extractWorkers
		}
		if cmd.Flags().Changed("cache-dir") {
			cfg.Extract.CacheDir = extractCacheDir
		}
		if cmd.Flags().Changed("corpus-limit") {
			cfg.Extract.CorpusLimit = extractCorpusLimit
		}
		if cmd.Flags().Changed("target-limit") {
			cfg.Extract.TargetLimit = extractTargetLimit
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		datasets, err := cfg.OpenDatasets()
		if err != nil {
			return err
		}

		store, err := openVocabularyStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		var m *metrics.Metrics
		if cfg.Metrics.Enabled {
			m = metrics.New()
			shutdown := m.StartServer(cfg.Metrics.Port)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(shutdownCtx); err != nil {
					slog.Warn("metrics server shutdown failed", "error", err)
				}
			}()
		}

		opts := pipeline.Options{
			CacheDir:      cfg.Extract.CacheDir,
			Workers:       cfg.Extract.Workers,
			MinBodyLength: cfg.Extract.MinBodyLength,
			Limits:        cfg.Extract.Limits(),
			ReplyMarker:   cfg.Extract.ReplyMarker,
			Store:         store,
		}

		var luaFilter *plugins.LuaTermFilter
		if lc := cfg.Plugins.LuaTermFilter; lc.Enabled {
			luaFilter, err = plugins.LoadTermFilter(lc.Script, lc.MaxVMs)
			if err != nil {
				return fmt.Errorf("failed to load lua term filter: %w", err)
			}
			defer luaFilter.Close()
			opts.Filter = luaFilter
			meta := luaFilter.Metadata()
			fmt.Printf("🧩 Lua term filter: %s v%s\n", meta.Name, meta.Version)
		}

		if extractVerbose {
			opts.OnDocument = func(r pipeline.Report) {
				if r.Outcome == metrics.OutcomeOK {
					fmt.Printf("📄 %d %s (%d terms)\n", r.ID, r.Target.Path, r.Terms)
				} else {
					fmt.Printf("⚠️  %d %s: %s\n", r.ID, r.Target.Path, r.Outcome)
				}
			}
		}

		fmt.Printf("📚 TREC Extraction\n")
		fmt.Printf("═══════════════════════════════════════\n")
		for _, ds := range datasets {
			fmt.Printf("📁 %s (%s): %d indexed, %d spam\n", ds.Name, ds.Layout, ds.Index.Entries(), ds.Index.SpamCount())
		}
		fmt.Printf("💾 Cache: %s\n", cfg.Extract.CacheDir)
		fmt.Printf("⚙️  Workers: %d\n\n", cfg.Extract.Workers)

		extractor := pipeline.NewExtractor(opts, m)
		summary, err := extractor.Run(ctx, datasets)
		if err != nil {
			return fmt.Errorf("extraction failed: %w", err)
		}

		fmt.Printf("\n🎉 Extraction Complete!\n")
		fmt.Printf("📊 Documents: %d (%d cached, %d excluded)\n", summary.Documents, summary.OK, summary.Excluded())
		fmt.Printf("   unparseable: %d, empty: %d, unreadable: %d\n", summary.Unparseable, summary.Empty, summary.ReadErrors)
		for _, ds := range datasets {
			c := summary.Datasets[ds.Name]
			fmt.Printf("   %-12s %d/%d\n", ds.Name, c.OK, c.Documents)
		}
		fmt.Printf("🔤 Vocabulary: %d terms\n", summary.Vocabulary.Len())
		if fv, ok := store.(*learning.FileVocabulary); ok {
			fmt.Printf("💾 Vocabulary saved to: %s\n", fv.Path())
		} else {
			fmt.Printf("💾 Vocabulary saved to redis (%s)\n", cfg.Vocabulary.Redis.KeyPrefix)
		}
		fmt.Printf("⏱️  Time taken: %v\n", summary.Elapsed)
		if summary.Elapsed > 0 {
			fmt.Printf("📈 Rate: %.0f documents/second\n", float64(summary.Documents)/summary.Elapsed.Seconds())
		}
		if luaFilter != nil && luaFilter.Errors() > 0 {
			fmt.Printf("⚠️  Lua filter errors: %d\n", luaFilter.Errors())
		}

		if extractSenders > 0 {
			fmt.Printf("\n📮 Top sender domains\n")
			for _, s := range extractor.Senders().TopDomains(extractSenders) {
				fmt.Printf("   %-30s %5d messages, %5.1f%% spam\n", s.Domain, s.Total(), s.SpamRatio()*100)
			}
		}
		if extractProfile {
			fmt.Println()
			extractor.Profiler().PrintReport(os.Stdout)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().IntVarP(&extractWorkers, "workers", "w", 4, "Number of extraction workers (overrides config)")
	extractCmd.Flags().StringVar(&extractCacheDir, "cache-dir", "", "Directory for cached word tables (overrides config)")
	extractCmd.Flags().IntVar(&extractCorpusLimit, "corpus-limit", -1, "Corpora to visit per nested dataset, -1 for all (0 skips flat datasets)")
	extractCmd.Flags().IntVar(&extractTargetLimit, "target-limit", -1, "Targets to visit per corpus, -1 for all")
	extractCmd.Flags().BoolVar(&extractProfile, "profile", false, "Print per-stage timings")
	extractCmd.Flags().IntVar(&extractSenders, "senders", 0, "Print the top N sender domains")
	extractCmd.Flags().BoolVarP(&extractVerbose, "verbose", "v", false, "Print every document")
}
