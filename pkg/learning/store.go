package learning

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// VocabularyStore persists a ranked vocabulary and reads back its head.
type VocabularyStore interface {
	// Save replaces the stored vocabulary with ranked, most frequent first.
	Save(ctx context.Context, ranked []TermCount) error
	// Load returns the n most frequent terms, or all of them when n <= 0.
	Load(ctx context.Context, n int) ([]string, error)
	Close() error
}

// FileVocabulary stores the vocabulary as a text file with one term per
// line, most frequent first.
type FileVocabulary struct {
	path string
}

// NewFileVocabulary creates a file-backed store at path.
func NewFileVocabulary(path string) *FileVocabulary {
	return &FileVocabulary{path: path}
}

// Path returns the file location.
func (fv *FileVocabulary) Path() string {
	return fv.path
}

// Save writes the vocabulary file, creating its directory if needed.
func (fv *FileVocabulary) Save(_ context.Context, ranked []TermCount) error {
	if err := os.MkdirAll(filepath.Dir(fv.path), 0755); err != nil {
		return fmt.Errorf("failed to create vocabulary directory: %w", err)
	}

	file, err := os.Create(fv.path)
	if err != nil {
		return fmt.Errorf("failed to create vocabulary file: %w", err)
	}

	w := bufio.NewWriter(file)
	for _, tc := range ranked {
		w.WriteString(tc.Term)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return fmt.Errorf("failed to write vocabulary file: %w", err)
	}
	return file.Close()
}

// Load reads up to n terms from the head of the file.
func (fv *FileVocabulary) Load(_ context.Context, n int) ([]string, error) {
	file, err := os.Open(fv.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary file: %w", err)
	}
	defer file.Close()

	var terms []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		term := strings.TrimSpace(scanner.Text())
		if term == "" {
			continue
		}
		terms = append(terms, term)
		if n > 0 && len(terms) == n {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file: %w", err)
	}
	return terms, nil
}

// Close is a no-op for file stores.
func (fv *FileVocabulary) Close() error {
	return nil
}

var _ VocabularyStore = (*FileVocabulary)(nil)
