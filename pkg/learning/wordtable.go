package learning

import (
	"strings"
	"unicode"

	"github.com/reiver/go-porterstemmer"
)

// defaultStopWords is the fixed English stopword set applied before stemming.
var defaultStopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
	"i": {}, "you": {}, "we": {}, "me": {}, "my": {}, "your": {},
	"our": {}, "she": {}, "her": {}, "him": {}, "his": {}, "them": {},
	"been": {}, "am": {}, "there": {}, "than": {}, "then": {},
}

// TermFilter rewrites or drops stemmed terms before they are counted.
// Returning false drops the term.
type TermFilter interface {
	Filter(term string) (string, bool)
}

// WordTable holds the per-document term counts.
type WordTable struct {
	counts map[string]int
	terms  []string // first-occurrence order
	total  int
}

// NewWordTable creates an empty table.
func NewWordTable() *WordTable {
	return &WordTable{counts: make(map[string]int)}
}

// Add increments term by n. Non-positive n is ignored.
func (wt *WordTable) Add(term string, n int) {
	if n <= 0 || term == "" {
		return
	}
	if _, ok := wt.counts[term]; !ok {
		wt.terms = append(wt.terms, term)
	}
	wt.counts[term] += n
	wt.total += n
}

// Count returns the occurrences of term, 0 if absent.
func (wt *WordTable) Count(term string) int {
	return wt.counts[term]
}

// Frequency returns count(term) / total token count.
func (wt *WordTable) Frequency(term string) float64 {
	if wt.total == 0 {
		return 0
	}
	return float64(wt.counts[term]) / float64(wt.total)
}

// Total returns the number of tokens counted.
func (wt *WordTable) Total() int {
	return wt.total
}

// Len returns the number of distinct terms.
func (wt *WordTable) Len() int {
	return len(wt.terms)
}

// Terms returns the distinct terms in first-occurrence order.
func (wt *WordTable) Terms() []string {
	out := make([]string, len(wt.terms))
	copy(out, wt.terms)
	return out
}

// Each calls fn for every term in first-occurrence order.
func (wt *WordTable) Each(fn func(term string, count int)) {
	for _, term := range wt.terms {
		fn(term, wt.counts[term])
	}
}

// Tokenizer turns body text into WordTables.
type Tokenizer struct {
	stopWords map[string]struct{}
	filter    TermFilter
}

// NewTokenizer creates a tokenizer with the default stopword set. filter
// may be nil.
func NewTokenizer(filter TermFilter) *Tokenizer {
	return &Tokenizer{stopWords: defaultStopWords, filter: filter}
}

// Build lowercases text, deletes punctuation, symbols, digits and control
// characters, splits on whitespace, drops stopwords and stems the rest.
// Control characters are deleted rather than replaced, so words separated
// only by a line break are joined.
func (tk *Tokenizer) Build(text string) *WordTable {
	table := NewWordTable()

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsDigit(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.ToLower(text))

	for _, word := range strings.Fields(cleaned) {
		if _, stop := tk.stopWords[word]; stop {
			continue
		}
		term := stem(word)
		if term == "" {
			continue
		}
		if tk.filter != nil {
			var keep bool
			if term, keep = tk.filter.Filter(term); !keep || term == "" {
				continue
			}
			// Cache tables are whitespace separated.
			if strings.IndexFunc(term, unicode.IsSpace) >= 0 {
				continue
			}
		}
		table.Add(term, 1)
	}
	return table
}

// stem keeps word unchanged when the stemmer panics, as it does on words
// starting with "eed".
func stem(word string) (term string) {
	defer func() {
		if recover() != nil {
			term = word
		}
	}()
	return porterstemmer.StemString(word)
}

// BuildWordTable tokenizes text with the default tokenizer.
func BuildWordTable(text string) *WordTable {
	return NewTokenizer(nil).Build(text)
}
