package learning

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/reiver/go-porterstemmer"

	"github.com/zpam/trecprep/pkg/email"
)

func tableOf(pairs ...any) *WordTable {
	wt := NewWordTable()
	for i := 0; i+1 < len(pairs); i += 2 {
		wt.Add(pairs[i].(string), pairs[i+1].(int))
	}
	return wt
}

func countsOf(wt *WordTable) map[string]int {
	out := map[string]int{}
	wt.Each(func(term string, count int) { out[term] = count })
	return out
}

func TestBuildWordTableFromMarkup(t *testing.T) {
	lines := [][]byte{[]byte("\n"), []byte("<p>Buy NOW cheap!!!</p>\n"), []byte("\n")}
	text, err := email.ExtractBody(lines, email.Range{Start: 0, End: 2})
	if err != nil {
		t.Fatalf("ExtractBody failed: %v", err)
	}

	table := BuildWordTable(text)
	expected := map[string]int{
		porterstemmer.StemString("buy"): 1,
		"now":                           1,
		"cheap":                         1,
	}
	if got := countsOf(table); !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}

	again := BuildWordTable(text)
	if !reflect.DeepEqual(table.Terms(), again.Terms()) || !reflect.DeepEqual(countsOf(table), countsOf(again)) {
		t.Error("building the same text twice produced different tables")
	}
}

func TestTokenizerPipeline(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected map[string]int
	}{
		{
			name:     "punctuation and digits removed",
			text:     "Hello, World! 123 hello",
			expected: map[string]int{"hello": 2, "world": 1},
		},
		{
			name:     "stopwords dropped",
			text:     "the cat and the hat",
			expected: map[string]int{"cat": 1, "hat": 1},
		},
		{
			name:     "line breaks join words",
			text:     "free\nmoney",
			expected: map[string]int{porterstemmer.StemString("freemoney"): 1},
		},
		{
			name:     "stemming",
			text:     "connected connecting connection",
			expected: map[string]int{"connect": 3},
		},
		{
			name:     "unstemmable words kept as is",
			text:     "eed eeds EED!!",
			expected: map[string]int{"eed": 2, "eeds": 1},
		},
		{
			name:     "eed inside words stems normally",
			text:     "please eed the feed",
			expected: map[string]int{porterstemmer.StemString("please"): 1, "eed": 1, porterstemmer.StemString("feed"): 1},
		},
		{
			name:     "only noise",
			text:     "!!! 42 ...",
			expected: map[string]int{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := countsOf(BuildWordTable(tc.text))
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("expected %v, got %v", tc.expected, got)
			}
		})
	}
}

func TestWordTableTotals(t *testing.T) {
	table := BuildWordTable("spam spam spam eggs bacon spam eggs")

	sum := 0
	table.Each(func(_ string, count int) { sum += count })
	if sum != table.Total() {
		t.Errorf("sum of counts %d != total %d", sum, table.Total())
	}
	if table.Total() != 7 || table.Len() != 3 {
		t.Errorf("unexpected total=%d len=%d", table.Total(), table.Len())
	}
	if f := table.Frequency("spam"); f != 4.0/7.0 {
		t.Errorf("unexpected frequency %f", f)
	}
	if table.Frequency("absent") != 0 || NewWordTable().Frequency("x") != 0 {
		t.Error("absent terms should have zero frequency")
	}
	if terms := table.Terms(); terms[0] != "spam" || terms[1] != "egg" {
		t.Errorf("terms should keep first-occurrence order, got %v", terms)
	}
}

type renameFilter struct{}

func (renameFilter) Filter(term string) (string, bool) {
	switch term {
	case "cat":
		return "", false
	case "hat":
		return "cap", true
	}
	return term, true
}

func TestTokenizerTermFilter(t *testing.T) {
	got := countsOf(NewTokenizer(renameFilter{}).Build("cat hat dog"))
	expected := map[string]int{"cap": 1, "dog": 1}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %v, got %v", expected, got)
	}
}

func TestVocabularyMergeOrderIndependent(t *testing.T) {
	docs := []*WordTable{
		tableOf("buy", 2, "cheap", 1),
		tableOf("cheap", 3, "meet", 1),
		tableOf("meet", 2, "buy", 1, "free", 4),
	}
	permutations := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}

	var reference map[string]int
	for _, perm := range permutations {
		vocab := NewVocabulary()
		for _, i := range perm {
			vocab.Merge(docs[i])
		}
		counts := map[string]int{}
		for _, tc := range vocab.Ranked() {
			counts[tc.Term] = tc.Count
		}
		if reference == nil {
			reference = counts
			continue
		}
		if !reflect.DeepEqual(reference, counts) {
			t.Errorf("order %v: expected %v, got %v", perm, reference, counts)
		}
	}

	if reference["cheap"] != 4 || reference["free"] != 4 || reference["buy"] != 3 || reference["meet"] != 3 {
		t.Errorf("unexpected aggregate counts %v", reference)
	}
}

func TestVocabularyRankStableTies(t *testing.T) {
	vocab := NewVocabulary()
	vocab.Merge(tableOf("b", 1, "a", 1))
	vocab.Merge(tableOf("c", 2))
	vocab.Merge(tableOf("d", 1))

	if got := vocab.Top(0); !reflect.DeepEqual(got, []string{"c", "b", "a", "d"}) {
		t.Errorf("unexpected ranking %v", got)
	}
	if got := vocab.Top(2); !reflect.DeepEqual(got, []string{"c", "b"}) {
		t.Errorf("unexpected top 2 %v", got)
	}
	if vocab.Len() != 4 || vocab.Count("c") != 2 {
		t.Errorf("unexpected len=%d count(c)=%d", vocab.Len(), vocab.Count("c"))
	}
}

func TestTableFiles(t *testing.T) {
	dir := t.TempDir()
	table := tableOf("a", 1, "b", 3, "c", 1)

	path, err := WriteTable(dir, 12, true, table)
	if err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}
	if filepath.Base(path) != "12.spam.table" {
		t.Errorf("unexpected file name %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "b 3\na 1\nc 1\n" {
		t.Errorf("unexpected file content %q", data)
	}

	loaded, err := ReadTable(path)
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if !reflect.DeepEqual(countsOf(loaded), countsOf(table)) || loaded.Total() != 5 {
		t.Errorf("loaded table differs: %v", countsOf(loaded))
	}

	bad := filepath.Join(dir, "3.ham.table")
	os.WriteFile(bad, []byte("term notanumber\n"), 0644)
	if _, err := ReadTable(bad); err == nil {
		t.Error("expected error for invalid count")
	}
}

func TestParseTableName(t *testing.T) {
	testCases := []struct {
		name   string
		id     int
		isSpam bool
		ok     bool
	}{
		{"0.ham.table", 0, false, true},
		{"/cache/42.spam.table", 42, true, true},
		{"DICT", 0, false, false},
		{"1.spam.txt", 0, false, false},
		{"x.spam.table", 0, false, false},
		{"1.junk.table", 0, false, false},
		{"1.2.spam.table", 0, false, false},
	}
	for _, tc := range testCases {
		id, isSpam, err := ParseTableName(tc.name)
		if !tc.ok {
			if !errors.Is(err, ErrNotTable) {
				t.Errorf("%s: expected ErrNotTable, got %v", tc.name, err)
			}
			continue
		}
		if err != nil || id != tc.id || isSpam != tc.isSpam {
			t.Errorf("%s: got (%d, %v, %v)", tc.name, id, isSpam, err)
		}
	}
}

func TestListTables(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"10.ham.table", "2.spam.table", "DICT", "1.ham.table"} {
		os.WriteFile(filepath.Join(dir, name), []byte("x 1\n"), 0644)
	}

	tables, err := ListTables(dir)
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	var ids []int
	for _, tf := range tables {
		ids = append(ids, tf.DocumentID)
	}
	if !reflect.DeepEqual(ids, []int{1, 2, 10}) {
		t.Errorf("expected ids [1 2 10], got %v", ids)
	}
	if !tables[1].IsSpam || tables[0].IsSpam {
		t.Error("labels not decoded")
	}
}

func TestFileVocabulary(t *testing.T) {
	ctx := context.Background()
	store := NewFileVocabulary(filepath.Join(t.TempDir(), "cache", "DICT"))
	ranked := []TermCount{{"free", 9}, {"buy", 5}, {"meet", 2}}

	if err := store.Save(ctx, ranked); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	data, _ := os.ReadFile(store.Path())
	if strings.TrimSpace(string(data)) != "free\nbuy\nmeet" {
		t.Errorf("unexpected vocabulary file %q", data)
	}

	top, err := store.Load(ctx, 2)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(top, []string{"free", "buy"}) {
		t.Errorf("unexpected top terms %v", top)
	}
	all, _ := store.Load(ctx, 0)
	if len(all) != 3 {
		t.Errorf("expected all 3 terms, got %v", all)
	}
}

func isRedisAvailable() bool {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 1})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}

func TestRedisVocabulary(t *testing.T) {
	if !isRedisAvailable() {
		t.Skip("Redis not available, skipping test")
	}

	ctx := context.Background()
	store, err := NewRedisVocabulary(ctx, &RedisConfig{
		RedisURL:    "redis://localhost:6379",
		KeyPrefix:   "trecprep:test:vocab",
		DatabaseNum: 1,
		BatchSize:   2,
	})
	if err != nil {
		t.Fatalf("NewRedisVocabulary failed: %v", err)
	}
	defer store.Close()
	defer store.Reset(ctx)

	ranked := []TermCount{{"free", 9}, {"buy", 5}, {"meet", 5}, {"win", 1}}
	if err := store.Save(ctx, ranked); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	top, err := store.Load(ctx, 3)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(top, []string{"free", "buy", "meet"}) {
		t.Errorf("unexpected top terms %v", top)
	}

	counts, err := store.TopCounts(ctx, 0)
	if err != nil {
		t.Fatalf("TopCounts failed: %v", err)
	}
	if !reflect.DeepEqual(counts, ranked) {
		t.Errorf("expected %v, got %v", ranked, counts)
	}

	// Saving again replaces the old vocabulary.
	if err := store.Save(ctx, ranked[:1]); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}
	if n, _ := store.Len(ctx); n != 1 {
		t.Errorf("expected 1 stored term, got %d", n)
	}
}

func TestClearTables(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"5.ham.table", "5.spam.table", "DICT", "notes.txt"} {
		os.WriteFile(filepath.Join(dir, name), []byte("x 1\n"), 0644)
	}

	removed, err := ClearTables(dir)
	if err != nil {
		t.Fatalf("ClearTables failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("expected 2 tables removed, got %d", removed)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("non-table files should be kept, got %v", entries)
	}
}
