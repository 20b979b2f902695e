package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/zpam/trecprep/pkg/learning"
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Inspect the saved vocabulary",
}

var vocabTopCmd = &cobra.Command{
	Use:   "top [N]",
	Short: "Print the N most frequent terms",
	Long: `Print the N most frequent terms of the saved vocabulary in rank order.
The redis backend also reports each term's corpus-wide count.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n := 20
		if len(args) > 0 {
			parsed, err := strconv.Atoi(args[0])
			if err != nil || parsed < 1 {
				return fmt.Errorf("invalid term count: %s", args[0])
			}
			n = parsed
		}
		ctx := cmd.Context()

		store, err := openVocabularyStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		if rv, ok := store.(*learning.RedisVocabulary); ok {
			total, err := rv.Len(ctx)
			if err != nil {
				return err
			}
			counts, err := rv.TopCounts(ctx, n)
			if err != nil {
				return err
			}
			fmt.Printf("🔤 Vocabulary: %d terms\n", total)
			for i, tc := range counts {
				fmt.Printf("%5d  %-20s %d\n", i+1, tc.Term, tc.Count)
			}
			return nil
		}

		terms, err := store.Load(ctx, n)
		if err != nil {
			return err
		}
		if len(terms) == 0 {
			return fmt.Errorf("vocabulary is empty, run extract first")
		}
		for i, term := range terms {
			fmt.Printf("%5d  %s\n", i+1, term)
		}
		return nil
	},
}

func init() {
	vocabCmd.AddCommand(vocabTopCmd)
}
