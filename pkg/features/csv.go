package features

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrDataframeExists is returned when a CSV dataframe would be overwritten
// without force.
var ErrDataframeExists = errors.New("dataframe already exists")

// Sink receives the sorted dataframe rows.
type Sink interface {
	Write(ctx context.Context, vectors []Vector) error
	Close() error
}

// DataframePath returns "<dir>/trec-df-<featureCount>".
func DataframePath(dir string, featureCount int) string {
	return filepath.Join(dir, fmt.Sprintf("trec-df-%d", featureCount))
}

// CSVSink writes rows as "v0,...,vN-1,<id>,<True|False>" without a header.
type CSVSink struct {
	path string
	file *os.File
	buf  *bufio.Writer
	w    *csv.Writer
}

// NewCSVSink creates the dataframe file. An existing file is an error
// unless force is set.
func NewCSVSink(path string, force bool) (*CSVSink, error) {
	if _, err := os.Stat(path); err == nil && !force {
		return nil, fmt.Errorf("%w: %s", ErrDataframeExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataframe: %w", err)
	}
	buf := bufio.NewWriter(file)
	return &CSVSink{path: path, file: file, buf: buf, w: csv.NewWriter(buf)}, nil
}

// Path returns the dataframe location.
func (s *CSVSink) Path() string {
	return s.path
}

// Write appends rows in the given order.
func (s *CSVSink) Write(ctx context.Context, vectors []Vector) error {
	for _, v := range vectors {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.w.Write(formatRow(v)); err != nil {
			return fmt.Errorf("failed to write row %d: %w", v.DocumentID, err)
		}
	}
	s.w.Flush()
	return s.w.Error()
}

// Close flushes and closes the file.
func (s *CSVSink) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.file.Close()
		return err
	}
	if err := s.buf.Flush(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

func formatRow(v Vector) []string {
	row := make([]string, 0, len(v.Values)+2)
	for _, n := range v.Values {
		row = append(row, strconv.Itoa(n))
	}
	label := "False"
	if v.IsSpam {
		label = "True"
	}
	return append(row, strconv.Itoa(v.DocumentID), label)
}

// ReadCSV loads a dataframe written by CSVSink. Every row must hold
// featureCount values followed by the document id and label.
func ReadCSV(path string, featureCount int) ([]Vector, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataframe: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(bufio.NewReader(file))
	r.FieldsPerRecord = featureCount + 2
	r.ReuseRecord = true

	var vectors []Vector
	for row := 1; ; row++ {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return vectors, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read dataframe: %w", err)
		}

		v := Vector{Values: make([]int, featureCount)}
		for i := 0; i < featureCount; i++ {
			if v.Values[i], err = strconv.Atoi(strings.TrimSpace(record[i])); err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", row, i, err)
			}
		}
		if v.DocumentID, err = strconv.Atoi(strings.TrimSpace(record[featureCount])); err != nil {
			return nil, fmt.Errorf("row %d: bad document id: %w", row, err)
		}
		v.IsSpam = strings.TrimSpace(record[featureCount+1]) == "True"
		vectors = append(vectors, v)
	}
}

var _ Sink = (*CSVSink)(nil)
