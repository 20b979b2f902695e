package features

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/zpam/trecprep/pkg/learning"
)

func table(pairs map[string]int) *learning.WordTable {
	wt := learning.NewWordTable()
	for term, count := range pairs {
		wt.Add(term, count)
	}
	return wt
}

func TestProjectScenario(t *testing.T) {
	p := NewProjector([]string{"free", "buy", "win"}, 3)
	v := p.Project(table(map[string]int{"buy": 1, "cheap": 1}), 7, true)

	if !reflect.DeepEqual(v.Values, []int{0, 1, 0}) {
		t.Errorf("expected [0 1 0], got %v", v.Values)
	}
	if v.DocumentID != 7 || !v.IsSpam {
		t.Errorf("unexpected id/label: %d %v", v.DocumentID, v.IsSpam)
	}
}

func TestProjectFixedLength(t *testing.T) {
	vocab := []string{"a", "b", "c", "d", "e"}
	testCases := []struct {
		name         string
		featureCount int
		doc          map[string]int
		expected     []int
	}{
		{"truncates vocabulary", 2, map[string]int{"a": 1, "c": 5, "e": 2}, []int{1, 0}},
		{"pads short vocabulary", 7, map[string]int{"e": 3}, []int{0, 0, 0, 0, 3, 0, 0}},
		{"empty document", 3, map[string]int{}, []int{0, 0, 0}},
		{"zero features", 0, map[string]int{"a": 1}, []int{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewProjector(vocab, tc.featureCount).Project(table(tc.doc), 0, false)
			if len(v.Values) != tc.featureCount {
				t.Fatalf("expected %d values, got %d", tc.featureCount, len(v.Values))
			}
			if !reflect.DeepEqual(v.Values, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, v.Values)
			}
		})
	}
}

func TestSortByDocument(t *testing.T) {
	vectors := []Vector{{DocumentID: 10}, {DocumentID: 2}, {DocumentID: 7}, {DocumentID: 0}}
	SortByDocument(vectors)
	for i, expected := range []int{0, 2, 7, 10} {
		if vectors[i].DocumentID != expected {
			t.Fatalf("position %d: expected id %d, got %d", i, expected, vectors[i].DocumentID)
		}
	}
}

func TestCSVSink(t *testing.T) {
	ctx := context.Background()
	path := DataframePath(t.TempDir(), 2)
	if filepath.Base(path) != "trec-df-2" {
		t.Errorf("unexpected dataframe name %s", path)
	}

	sink, err := NewCSVSink(path, false)
	if err != nil {
		t.Fatalf("NewCSVSink failed: %v", err)
	}
	rows := []Vector{
		{Values: []int{3, 0}, DocumentID: 0, IsSpam: false},
		{Values: []int{1, 4}, DocumentID: 1, IsSpam: true},
	}
	if err := sink.Write(ctx, rows); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "3,0,0,False\n1,4,1,True\n" {
		t.Errorf("unexpected dataframe %q", data)
	}

	loaded, err := ReadCSV(path, 2)
	if err != nil {
		t.Fatalf("ReadCSV failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, rows) {
		t.Errorf("expected %v, got %v", rows, loaded)
	}

	if _, err := NewCSVSink(path, false); !errors.Is(err, ErrDataframeExists) {
		t.Errorf("expected ErrDataframeExists, got %v", err)
	}
	forced, err := NewCSVSink(path, true)
	if err != nil {
		t.Fatalf("forced overwrite failed: %v", err)
	}
	forced.Close()
}

func TestReadCSVWrongWidth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trec-df-3")
	os.WriteFile(path, []byte("1,2,0,True\n"), 0644)
	if _, err := ReadCSV(path, 3); err == nil {
		t.Error("expected error for short row")
	}
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()
	cache := t.TempDir()

	docs := []struct {
		id     int
		isSpam bool
		terms  map[string]int
	}{
		{2, true, map[string]int{"free": 3, "win": 1}},
		{0, false, map[string]int{"meet": 2}},
		{1, true, map[string]int{"free": 1, "buy": 2}},
	}
	for _, d := range docs {
		if _, err := learning.WriteTable(cache, d.id, d.isSpam, table(d.terms)); err != nil {
			t.Fatal(err)
		}
	}

	store := learning.NewFileVocabulary(filepath.Join(cache, "DICT"))
	if err := store.Save(ctx, []learning.TermCount{{Term: "free", Count: 4}, {Term: "buy", Count: 2}, {Term: "meet", Count: 2}, {Term: "win", Count: 1}}); err != nil {
		t.Fatal(err)
	}

	out := DataframePath(t.TempDir(), 3)
	sink, err := NewCSVSink(out, false)
	if err != nil {
		t.Fatal(err)
	}
	calls := 0
	n, err := Generate(ctx, cache, store, 3, sink, func(done, total int, _ Vector) {
		calls++
		if total != 3 || done != calls {
			t.Errorf("unexpected progress %d/%d", done, total)
		}
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	sink.Close()
	if n != 3 || calls != 3 {
		t.Errorf("expected 3 rows and 3 progress calls, got %d and %d", n, calls)
	}

	data, _ := os.ReadFile(out)
	expected := "0,0,2,0,False\n1,2,0,1,True\n3,0,0,2,True\n"
	if string(data) != expected {
		t.Errorf("expected %q, got %q", expected, data)
	}
}

func TestGenerateEmptyVocabulary(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := learning.NewFileVocabulary(filepath.Join(dir, "DICT"))
	store.Save(ctx, nil)

	sink, _ := NewCSVSink(DataframePath(dir, 1), false)
	defer sink.Close()
	if _, err := Generate(ctx, dir, store, 1, sink, nil); err == nil {
		t.Error("expected error for empty vocabulary")
	}
}

func TestPostgresSink(t *testing.T) {
	dsn := os.Getenv("TRECPREP_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TRECPREP_TEST_POSTGRES_DSN not set, skipping test")
	}

	ctx := context.Background()
	sink, err := NewPostgresSink(ctx, PostgresConfig{DSN: dsn, Table: "trecprep_test_df", BatchSize: 2}, true)
	if err != nil {
		t.Skipf("Postgres not available, skipping test: %v", err)
	}
	defer sink.Close()

	rows := []Vector{
		{Values: []int{1, 0}, DocumentID: 0},
		{Values: []int{0, 2}, DocumentID: 1, IsSpam: true},
		{Values: []int{5, 5}, DocumentID: 2, IsSpam: true},
	}
	if err := sink.Write(ctx, rows); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	n, err := sink.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 rows, got %d", n)
	}
}
