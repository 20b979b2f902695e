package corpus

import (
	"fmt"
	"iter"
	"path/filepath"
)

// Layout names a supported dataset directory layout.
type Layout string

const (
	// LayoutNested is data/<corpus>/<target> with "../data/<c>/<t>" index paths.
	LayoutNested Layout = "nested"
	// LayoutFlat is data/<name>.<target> with "../data/<name>.<t>" index paths.
	LayoutFlat Layout = "flat"
)

// Options describes where a dataset lives on disk.
type Options struct {
	Name      string
	Root      string
	Layout    Layout
	IndexPath string // relative to Root
	DataPath  string // relative to Root
}

// Dataset is a loaded dataset handle. It is read-only after Open.
type Dataset struct {
	Name   string
	Root   string
	Layout Layout
	Index  *SpamIndex
	walker Walker
}

// Open loads the dataset's spam index and prepares its walker.
func Open(opts Options) (*Dataset, error) {
	indexPath := opts.IndexPath
	if indexPath == "" {
		indexPath = "full/index"
	}
	dataPath := opts.DataPath
	if dataPath == "" {
		dataPath = "data"
	}

	var parse IdentityParser
	switch opts.Layout {
	case LayoutNested:
		parse = NestedIdentity
	case LayoutFlat:
		parse = FlatIdentity
	default:
		return nil, fmt.Errorf("dataset %s: unknown layout %q", opts.Name, opts.Layout)
	}

	index, err := LoadIndexFile(filepath.Join(opts.Root, indexPath), parse)
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", opts.Name, err)
	}

	ds := &Dataset{
		Name:   opts.Name,
		Root:   opts.Root,
		Layout: opts.Layout,
		Index:  index,
	}

	dataDir := filepath.Join(opts.Root, dataPath)
	if opts.Layout == LayoutNested {
		ds.walker = NewNestedWalker(dataDir, index)
	} else {
		ds.walker = NewFlatWalker(dataDir, index)
	}
	return ds, nil
}

// Walk enumerates the dataset's targets.
func (d *Dataset) Walk(limits Limits) iter.Seq2[Target, error] {
	return d.walker.Walk(limits)
}
