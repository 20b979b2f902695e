// Package features turns per-document term tables into fixed-width feature
// vectors over the top-N vocabulary, and writes them out as a dataframe.
package features

import (
	"cmp"
	"slices"
)

// Counter is the per-document term table a Projector reads.
type Counter interface {
	Each(fn func(term string, count int))
}

// Vector is one dataframe row.
type Vector struct {
	Values     []int
	DocumentID int
	IsSpam     bool
}

// Projector maps document tables onto a fixed vocabulary.
type Projector struct {
	rank         map[string]int
	featureCount int
}

// NewProjector precomputes the term→rank map for the first featureCount
// vocabulary terms. A vocabulary shorter than featureCount leaves the tail
// of every vector at zero.
func NewProjector(vocabulary []string, featureCount int) *Projector {
	if featureCount < 0 {
		featureCount = 0
	}
	rank := make(map[string]int, min(len(vocabulary), featureCount))
	for i, term := range vocabulary {
		if i >= featureCount {
			break
		}
		if _, dup := rank[term]; !dup {
			rank[term] = i
		}
	}
	return &Projector{rank: rank, featureCount: featureCount}
}

// FeatureCount returns the vector width.
func (p *Projector) FeatureCount() int {
	return p.featureCount
}

// Project returns the document's counts for each vocabulary rank. The
// result always has exactly FeatureCount values.
func (p *Projector) Project(table Counter, documentID int, isSpam bool) Vector {
	values := make([]int, p.featureCount)
	table.Each(func(term string, count int) {
		if i, ok := p.rank[term]; ok {
			values[i] = count
		}
	})
	return Vector{Values: values, DocumentID: documentID, IsSpam: isSpam}
}

// SortByDocument orders vectors by ascending document id.
func SortByDocument(vectors []Vector) {
	slices.SortStableFunc(vectors, func(a, b Vector) int {
		return cmp.Compare(a.DocumentID, b.DocumentID)
	})
}
