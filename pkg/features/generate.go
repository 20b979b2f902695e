package features

import (
	"context"
	"fmt"

	"github.com/zpam/trecprep/pkg/learning"
)

// Build projects every cache table in cacheDir onto the vocabulary and
// returns the vectors sorted by document id. progress, if non-nil, is
// called after each table.
func Build(ctx context.Context, cacheDir string, vocabulary []string, featureCount int, progress func(done, total int, v Vector)) ([]Vector, error) {
	tables, err := learning.ListTables(cacheDir)
	if err != nil {
		return nil, err
	}

	projector := NewProjector(vocabulary, featureCount)
	vectors := make([]Vector, 0, len(tables))
	for i, tf := range tables {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		table, err := learning.ReadTable(tf.Path)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", tf.DocumentID, err)
		}
		v := projector.Project(table, tf.DocumentID, tf.IsSpam)
		vectors = append(vectors, v)
		if progress != nil {
			progress(i+1, len(tables), v)
		}
	}

	SortByDocument(vectors)
	return vectors, nil
}

// Generate loads the top featureCount vocabulary terms from store, builds
// the dataframe from cacheDir and hands it to sink. It returns the number
// of rows written.
func Generate(ctx context.Context, cacheDir string, store learning.VocabularyStore, featureCount int, sink Sink, progress func(done, total int, v Vector)) (int, error) {
	vocabulary, err := store.Load(ctx, featureCount)
	if err != nil {
		return 0, err
	}
	if len(vocabulary) == 0 {
		return 0, fmt.Errorf("vocabulary is empty, run extract first")
	}

	vectors, err := Build(ctx, cacheDir, vocabulary, featureCount, progress)
	if err != nil {
		return 0, err
	}
	if err := sink.Write(ctx, vectors); err != nil {
		return 0, err
	}
	return len(vectors), nil
}
