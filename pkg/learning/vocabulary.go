package learning

import (
	"slices"
)

// TermCount is one ranked vocabulary entry.
type TermCount struct {
	Term  string
	Count int
}

// Vocabulary aggregates term counts across documents. It is not safe for
// concurrent use; the extraction pipeline folds into it from a single
// goroutine.
type Vocabulary struct {
	counts map[string]int
	order  []string // first-encounter order, used to break ties
}

// NewVocabulary creates an empty vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{counts: make(map[string]int)}
}

// Merge folds a document table into the vocabulary. Counts are added,
// never overwritten.
func (v *Vocabulary) Merge(table *WordTable) {
	table.Each(func(term string, count int) {
		if _, ok := v.counts[term]; !ok {
			v.order = append(v.order, term)
		}
		v.counts[term] += count
	})
}

// Count returns the aggregate count of term.
func (v *Vocabulary) Count(term string) int {
	return v.counts[term]
}

// Len returns the number of distinct terms.
func (v *Vocabulary) Len() int {
	return len(v.order)
}

// Ranked returns every term sorted by descending count. Equal counts keep
// their first-encounter order.
func (v *Vocabulary) Ranked() []TermCount {
	ranked := make([]TermCount, len(v.order))
	for i, term := range v.order {
		ranked[i] = TermCount{Term: term, Count: v.counts[term]}
	}
	slices.SortStableFunc(ranked, func(a, b TermCount) int {
		return b.Count - a.Count
	})
	return ranked
}

// Top returns the n highest ranked terms, or all of them when n <= 0.
func (v *Vocabulary) Top(n int) []string {
	return Terms(v.Ranked(), n)
}

// Terms extracts up to n terms from a ranked list (all when n <= 0).
func Terms(ranked []TermCount, n int) []string {
	if n <= 0 || n > len(ranked) {
		n = len(ranked)
	}
	out := make([]string, n)
	for i := range out {
		out[i] = ranked[i].Term
	}
	return out
}
