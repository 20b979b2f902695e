package cmd

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/zpam/trecprep/pkg/classifier"
	"github.com/zpam/trecprep/pkg/features"
)

var (
	trainInput    string
	trainFeatures int
	trainRatio    float64
	trainEpochs   int
	trainLambda   float64
	trainSeed     uint64
	trainExplain  int
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train and evaluate a linear SVM on a dataframe",
	Long: `Read a csv dataframe, train a linear SVM on the first train_ratio rows
and report its accuracy on the remaining rows.

Rows keep their document order; nothing is shuffled. Training is
deterministic for a given seed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("features") {
			cfg.Features.FeatureCount = trainFeatures
		}
		if cmd.Flags().Changed("ratio") {
			cfg.Training.TrainRatio = trainRatio
		}
		if cmd.Flags().Changed("epochs") {
			cfg.Training.Epochs = trainEpochs
		}
		if cmd.Flags().Changed("lambda") {
			cfg.Training.Lambda = trainLambda
		}
		if cmd.Flags().Changed("seed") {
			cfg.Training.Seed = trainSeed
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		input := trainInput
		if input == "" {
			input = features.DataframePath(cfg.Features.OutputDir, cfg.Features.FeatureCount)
		}

		vectors, err := features.ReadCSV(input, cfg.Features.FeatureCount)
		if err != nil {
			return err
		}
		train, test := classifier.Split(vectors, cfg.Training.TrainRatio)

		fmt.Printf("🧠 Linear SVM Training\n")
		fmt.Printf("═══════════════════════════════════════\n")
		fmt.Printf("📁 Dataframe: %s\n", input)
		fmt.Printf("📊 Rows: %d (train %d, test %d)\n", len(vectors), len(train), len(test))
		fmt.Printf("⚙️  Epochs: %d, lambda: %g, seed: %d\n\n", cfg.Training.Epochs, cfg.Training.Lambda, cfg.Training.Seed)

		start := time.Now()
		model := classifier.NewLinearSVM(cfg.Training.Config)
		if err := model.Fit(train); err != nil {
			return fmt.Errorf("training failed: %w", err)
		}
		duration := time.Since(start)

		trainAcc, err := model.Accuracy(train)
		if err != nil {
			return err
		}
		testAcc, err := model.Accuracy(test)
		if err != nil {
			return fmt.Errorf("evaluation failed: %w", err)
		}

		fmt.Printf("🎉 Training Complete!\n")
		fmt.Printf("⏱️  Time taken: %v\n", duration)
		fmt.Printf("🎯 Train accuracy: %.4f\n", trainAcc)
		fmt.Printf("🎯 Test accuracy:  %.4f\n", testAcc)

		if trainExplain > 0 {
			return printTopWeights(cmd, model, trainExplain)
		}
		return nil
	},
}

// printTopWeights lists the vocabulary terms with the largest absolute
// weights. Feature i is the i-th ranked vocabulary term.
func printTopWeights(cmd *cobra.Command, model *classifier.LinearSVM, n int) error {
	store, err := openVocabularyStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	terms, err := store.Load(cmd.Context(), cfg.Features.FeatureCount)
	if err != nil {
		return err
	}

	weights := model.Weights()
	weights = weights[:len(weights)-1]
	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(math.Abs(weights[b]), math.Abs(weights[a]))
	})

	fmt.Printf("\n🔍 Most influential terms (positive = spam)\n")
	for _, i := range order[:min(n, len(order))] {
		term := "?"
		if i < len(terms) {
			term = terms[i]
		}
		fmt.Printf("   %-20s %+.4f\n", term, weights[i])
	}
	return nil
}

func init() {
	trainCmd.Flags().StringVarP(&trainInput, "input", "i", "", "Dataframe csv (default: trec-df-<N> in the output directory)")
	trainCmd.Flags().IntVarP(&trainFeatures, "features", "n", 1000, "Feature columns per row (overrides config)")
	trainCmd.Flags().Float64Var(&trainRatio, "ratio", 0.75, "Fraction of rows used for training (overrides config)")
	trainCmd.Flags().IntVar(&trainEpochs, "epochs", 20, "Training epochs (overrides config)")
	trainCmd.Flags().Float64Var(&trainLambda, "lambda", 1e-4, "Regularization strength (overrides config)")
	trainCmd.Flags().Uint64Var(&trainSeed, "seed", 1, "Random seed (overrides config)")
	trainCmd.Flags().IntVar(&trainExplain, "explain", 0, "Print the N terms with the largest weights")
}
