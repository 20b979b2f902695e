package corpus

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"
)

// Target is one message file produced by a walk.
type Target struct {
	Corpus string
	Path   string
	ID     Identity
	IsSpam bool
}

// Limits bounds a walk. A nil field means unbounded.
type Limits struct {
	// Corpora caps the number of corpus directories visited.
	Corpora *int
	// Targets caps the targets visited in each corpus.
	Targets *int
}

// Limit returns a pointer to n for use in Limits.
func Limit(n int) *int {
	return &n
}

// Unbounded visits every target.
var Unbounded = Limits{}

// Walker enumerates the targets of one dataset layout. Every call to Walk
// returns a fresh sequence. A non-nil error ends the sequence.
type Walker interface {
	Walk(limits Limits) iter.Seq2[Target, error]
}

// NestedWalker walks data/<corpus>/<target> layouts (trec05p-1, trec06p).
type NestedWalker struct {
	dataDir  string
	index    *SpamIndex
	identity IdentityParser
}

// NewNestedWalker creates a walker over dataDir backed by index.
func NewNestedWalker(dataDir string, index *SpamIndex) *NestedWalker {
	return &NestedWalker{dataDir: dataDir, index: index, identity: NestedIdentity}
}

// Walk yields every target of every corpus directory.
func (w *NestedWalker) Walk(limits Limits) iter.Seq2[Target, error] {
	return func(yield func(Target, error) bool) {
		corpora, err := os.ReadDir(w.dataDir)
		if err != nil {
			yield(Target{}, fmt.Errorf("reading data directory: %w", err))
			return
		}

		corpusBudget := budget(limits.Corpora)
		for _, corpusEntry := range corpora {
			if !corpusEntry.IsDir() {
				continue
			}
			if !take(&corpusBudget) {
				return
			}

			corpusDir := filepath.Join(w.dataDir, corpusEntry.Name())
			targets, err := os.ReadDir(corpusDir)
			if err != nil {
				yield(Target{}, fmt.Errorf("reading corpus %s: %w", corpusDir, err))
				return
			}

			targetBudget := budget(limits.Targets)
			for _, targetEntry := range targets {
				if targetEntry.IsDir() {
					continue
				}
				if !take(&targetBudget) {
					break
				}

				target, err := resolve(w.index, w.identity, corpusDir, filepath.Join(corpusDir, targetEntry.Name()))
				if !yield(target, err) || err != nil {
					return
				}
			}
		}
	}
}

// FlatWalker walks data/<name>.<target> layouts (trec07p).
type FlatWalker struct {
	dataDir  string
	index    *SpamIndex
	identity IdentityParser
}

// NewFlatWalker creates a walker over dataDir backed by index.
func NewFlatWalker(dataDir string, index *SpamIndex) *FlatWalker {
	return &FlatWalker{dataDir: dataDir, index: index, identity: FlatIdentity}
}

// Walk yields every file in the data directory. A corpus limit of zero
// disables the walk entirely; any other corpus limit is ignored.
func (w *FlatWalker) Walk(limits Limits) iter.Seq2[Target, error] {
	return func(yield func(Target, error) bool) {
		if limits.Corpora != nil && *limits.Corpora <= 0 {
			return
		}

		entries, err := os.ReadDir(w.dataDir)
		if err != nil {
			yield(Target{}, fmt.Errorf("reading data directory: %w", err))
			return
		}

		remaining := budget(limits.Targets)
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if !take(&remaining) {
				return
			}

			target, err := resolve(w.index, w.identity, w.dataDir, filepath.Join(w.dataDir, entry.Name()))
			if !yield(target, err) || err != nil {
				return
			}
		}
	}
}

// budget converts a limit into a countdown; -1 never runs out.
func budget(limit *int) int {
	if limit == nil {
		return -1
	}
	if *limit < 0 {
		return 0
	}
	return *limit
}

func take(remaining *int) bool {
	switch {
	case *remaining < 0:
		return true
	case *remaining == 0:
		return false
	}
	*remaining--
	return true
}

func resolve(index *SpamIndex, identity IdentityParser, corpusDir, path string) (Target, error) {
	id, err := identity(filepath.ToSlash(path))
	if err != nil {
		return Target{}, fmt.Errorf("%w: %s: %v", ErrUnindexedTarget, path, err)
	}
	isSpam, err := index.Lookup(id)
	if err != nil {
		return Target{}, fmt.Errorf("%s: %w", path, err)
	}
	return Target{Corpus: corpusDir, Path: path, ID: id, IsSpam: isSpam}, nil
}

var (
	_ Walker = (*NestedWalker)(nil)
	_ Walker = (*FlatWalker)(nil)
)
