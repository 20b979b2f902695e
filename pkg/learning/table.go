package learning

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// TableExt is the file extension of per-document cache tables.
const TableExt = "table"

// ErrNotTable is returned for file names that are not cache tables.
var ErrNotTable = errors.New("not a cache table name")

// TableFile describes one cache table on disk.
type TableFile struct {
	Path       string
	DocumentID int
	IsSpam     bool
}

// TableName returns "<id>.<spam|ham>.table".
func TableName(id int, isSpam bool) string {
	label := "ham"
	if isSpam {
		label = "spam"
	}
	return fmt.Sprintf("%d.%s.%s", id, label, TableExt)
}

// ParseTableName decodes the document id and label from a cache table
// file name.
func ParseTableName(name string) (int, bool, error) {
	parts := strings.Split(filepath.Base(name), ".")
	if len(parts) != 3 || parts[2] != TableExt {
		return 0, false, fmt.Errorf("%w: %s", ErrNotTable, name)
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil || id < 0 {
		return 0, false, fmt.Errorf("%w: bad document id in %s", ErrNotTable, name)
	}
	switch parts[1] {
	case "spam":
		return id, true, nil
	case "ham":
		return id, false, nil
	}
	return 0, false, fmt.Errorf("%w: bad label in %s", ErrNotTable, name)
}

// WriteTable persists a document table as "<term> <count>" lines sorted by
// descending count, then term.
func WriteTable(dir string, id int, isSpam bool, table *WordTable) (string, error) {
	entries := make([]TermCount, 0, table.Len())
	table.Each(func(term string, count int) {
		entries = append(entries, TermCount{Term: term, Count: count})
	})
	slices.SortFunc(entries, func(a, b TermCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Term, b.Term)
	})

	path := filepath.Join(dir, TableName(id, isSpam))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create table file: %w", err)
	}

	w := bufio.NewWriter(file)
	for _, e := range entries {
		fmt.Fprintf(w, "%s %d\n", e.Term, e.Count)
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write table file: %w", err)
	}
	return path, file.Close()
}

// ReadTable loads a cache table written by WriteTable.
func ReadTable(path string) (*WordTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open table file: %w", err)
	}
	defer file.Close()

	table := NewWordTable()
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("%s:%d: expected \"<term> <count>\"", path, lineNo)
		}
		count, err := strconv.Atoi(fields[1])
		if err != nil || count < 1 {
			return nil, fmt.Errorf("%s:%d: invalid count %q", path, lineNo, fields[1])
		}
		table.Add(fields[0], count)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read table file: %w", err)
	}
	return table, nil
}

// ListTables returns every cache table in dir ordered by document id.
// Other files are ignored.
func ListTables(dir string) ([]TableFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	var tables []TableFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, isSpam, err := ParseTableName(entry.Name())
		if err != nil {
			continue
		}
		tables = append(tables, TableFile{
			Path:       filepath.Join(dir, entry.Name()),
			DocumentID: id,
			IsSpam:     isSpam,
		})
	}
	slices.SortFunc(tables, func(a, b TableFile) int {
		return cmp.Compare(a.DocumentID, b.DocumentID)
	})
	return tables, nil
}

// ClearTables removes every cache table in dir and returns how many were
// removed. Other files are left alone.
func ClearTables(dir string) (int, error) {
	tables, err := ListTables(dir)
	if err != nil {
		return 0, err
	}
	for i, tf := range tables {
		if err := os.Remove(tf.Path); err != nil {
			return i, fmt.Errorf("failed to remove stale table: %w", err)
		}
	}
	return len(tables), nil
}
