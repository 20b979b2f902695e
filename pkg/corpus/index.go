package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

var (
	// ErrMalformedIndex is returned when an index line cannot be parsed.
	ErrMalformedIndex = errors.New("malformed index")

	// ErrUnindexedTarget is returned when a walked target has no index record.
	ErrUnindexedTarget = errors.New("target not present in spam index")
)

// IndexError describes a single unparseable index line
type IndexError struct {
	Line int
	Text string
	Err  error
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *IndexError) Unwrap() error { return e.Err }

// Is reports every IndexError as ErrMalformedIndex.
func (e *IndexError) Is(target error) bool { return target == ErrMalformedIndex }

// Identity addresses one message inside a dataset. Flat datasets always
// use corpus 0.
type Identity struct {
	Corpus int
	Target int
}

func (id Identity) String() string {
	return fmt.Sprintf("%d/%d", id.Corpus, id.Target)
}

// IdentityParser derives an Identity from an index path or a file path.
type IdentityParser func(path string) (Identity, error)

// NestedIdentity reads the last two slash-delimited segments of path as
// (corpus, target).
func NestedIdentity(path string) (Identity, error) {
	parts := strings.Split(strings.TrimRight(path, "/"), "/")
	if len(parts) < 2 {
		return Identity{}, fmt.Errorf("path %q has no corpus/target segments", path)
	}
	corpus, err := parseID(parts[len(parts)-2])
	if err != nil {
		return Identity{}, err
	}
	target, err := parseID(parts[len(parts)-1])
	if err != nil {
		return Identity{}, err
	}
	return Identity{Corpus: corpus, Target: target}, nil
}

// FlatIdentity reads the final dot-delimited segment of the last path
// element as the target id.
func FlatIdentity(path string) (Identity, error) {
	name := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		name = path[i+1:]
	}
	parts := strings.Split(name, ".")
	target, err := parseID(parts[len(parts)-1])
	if err != nil {
		return Identity{}, err
	}
	return Identity{Target: target}, nil
}

func parseID(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("id segment %q is not numeric", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("id segment %q is negative", s)
	}
	return n, nil
}

// SpamIndex maps message identities to their spam label.
//
// Only spam entries are stored. Every target between 0 and the highest id
// seen for a corpus is covered, and ids in that range missing from the
// index file read as ham.
type SpamIndex struct {
	spam      map[Identity]bool
	maxTarget map[int]int
	entries   int
}

func newSpamIndex() *SpamIndex {
	return &SpamIndex{
		spam:      make(map[Identity]bool),
		maxTarget: make(map[int]int),
	}
}

func (idx *SpamIndex) set(id Identity, isSpam bool) {
	if isSpam {
		idx.spam[id] = true
	} else {
		delete(idx.spam, id)
	}
	if top, ok := idx.maxTarget[id.Corpus]; !ok || id.Target > top {
		idx.maxTarget[id.Corpus] = id.Target
	}
	idx.entries++
}

// Contains reports whether id falls inside the covered range.
func (idx *SpamIndex) Contains(id Identity) bool {
	top, ok := idx.maxTarget[id.Corpus]
	return ok && id.Target >= 0 && id.Target <= top
}

// Lookup returns the label for id, or ErrUnindexedTarget if id is outside
// the covered range.
func (idx *SpamIndex) Lookup(id Identity) (bool, error) {
	if !idx.Contains(id) {
		return false, fmt.Errorf("%w: %s", ErrUnindexedTarget, id)
	}
	return idx.spam[id], nil
}

// IsSpam returns the label for id, defaulting to ham.
func (idx *SpamIndex) IsSpam(id Identity) bool {
	return idx.spam[id]
}

// Entries returns the number of lines loaded from the index file.
func (idx *SpamIndex) Entries() int {
	return idx.entries
}

// SpamCount returns the number of identities labelled spam.
func (idx *SpamIndex) SpamCount() int {
	return len(idx.spam)
}

// LoadIndex reads "<spam|ham> <path>" lines from r. Bytes are decoded as
// Latin-1 and blank lines are ignored.
func LoadIndex(r io.Reader, parse IdentityParser) (*SpamIndex, error) {
	idx := newSpamIndex()
	scanner := bufio.NewScanner(charmap.ISO8859_1.NewDecoder().Reader(r))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, &IndexError{Line: lineNo, Text: text, Err: fmt.Errorf("expected 2 fields, got %d", len(fields))}
		}

		var isSpam bool
		switch fields[0] {
		case "spam":
			isSpam = true
		case "ham":
		default:
			return nil, &IndexError{Line: lineNo, Text: text, Err: fmt.Errorf("unknown label %q", fields[0])}
		}

		id, err := parse(fields[1])
		if err != nil {
			return nil, &IndexError{Line: lineNo, Text: text, Err: err}
		}
		idx.set(id, isSpam)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	return idx, nil
}

// LoadIndexFile opens path and loads it with LoadIndex.
func LoadIndexFile(path string, parse IdentityParser) (*SpamIndex, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer file.Close()

	idx, err := LoadIndex(file, parse)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}
