// Package pipeline runs the extraction stage: every indexed message of
// every dataset is parsed, tokenized into a word table, cached on disk and
// folded into one corpus-wide vocabulary.
//
// Documents are processed by a bounded pool of workers. Their tables are
// merged by a single consumer in walk order, so the resulting vocabulary
// and its ranking do not depend on the number of workers.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/zpam/trecprep/pkg/corpus"
	"github.com/zpam/trecprep/pkg/email"
	"github.com/zpam/trecprep/pkg/learning"
	"github.com/zpam/trecprep/pkg/logger"
	"github.com/zpam/trecprep/pkg/metrics"
	"github.com/zpam/trecprep/pkg/profiler"
	"github.com/zpam/trecprep/pkg/tracker"
)

// Stage names reported to the profiler and the stage histogram.
const (
	StageRead     = "read"
	StageParse    = "parse"
	StageExtract  = "extract"
	StageTokenize = "tokenize"
	StageWrite    = "write"
	StageMerge    = "merge"
)

var (
	// ErrEmptyBody marks a document whose body is shorter than the minimum.
	ErrEmptyBody = errors.New("body is empty")
	// ErrDocumentPanic marks a document whose processing panicked. It is
	// counted as unparseable.
	ErrDocumentPanic = errors.New("document processing panicked")
)

// Options configure an Extractor.
type Options struct {
	CacheDir      string
	Workers       int
	MinBodyLength int
	Limits        corpus.Limits
	ReplyMarker   string

	// Filter post-processes every stemmed term. Optional.
	Filter learning.TermFilter
	// Store receives the ranked vocabulary once all documents are merged.
	// Optional.
	Store learning.VocabularyStore
	// OnDocument is called from the merge goroutine after each document.
	OnDocument func(Report)
}

// Report describes one processed document.
type Report struct {
	ID      int
	Dataset string
	Target  corpus.Target
	Outcome string
	Terms   int
	Err     error
}

// Counts tallies document outcomes.
type Counts struct {
	Documents   int
	OK          int
	Unparseable int
	Empty       int
	ReadErrors  int
}

func (c *Counts) add(outcome string) {
	c.Documents++
	switch outcome {
	case metrics.OutcomeOK:
		c.OK++
	case metrics.OutcomeUnparseable:
		c.Unparseable++
	case metrics.OutcomeEmpty:
		c.Empty++
	case metrics.OutcomeReadError:
		c.ReadErrors++
	}
}

// Excluded is the number of documents that produced no cache table.
func (c Counts) Excluded() int {
	return c.Documents - c.OK
}

// Summary is the result of a Run.
type Summary struct {
	Counts
	Datasets   map[string]*Counts
	Vocabulary *learning.Vocabulary
	Ranked     []learning.TermCount
	Elapsed    time.Duration
}

type job struct {
	id      int
	dataset string
	target  corpus.Target
}

type result struct {
	job
	outcome string
	table   *learning.WordTable
	sender  string
	err     error
}

// Extractor turns datasets into cached word tables and a vocabulary.
type Extractor struct {
	opts      Options
	parser    *email.Parser
	tokenizer *learning.Tokenizer
	senders   *tracker.SenderTracker
	profiler  *profiler.Profiler
	metrics   *metrics.Metrics
	log       *slog.Logger
}

// NewExtractor creates an extractor. m may be nil.
func NewExtractor(opts Options, m *metrics.Metrics) *Extractor {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	var hooks []profiler.Hook
	if m != nil {
		hooks = append(hooks, m.ObserveStage)
	}

	parser := email.NewParser()
	if opts.ReplyMarker != "" {
		parser = email.NewParserWithMarker(opts.ReplyMarker)
	}

	return &Extractor{
		opts:      opts,
		parser:    parser,
		tokenizer: learning.NewTokenizer(opts.Filter),
		senders:   tracker.NewSenderTracker(),
		profiler:  profiler.NewProfiler(hooks...),
		metrics:   m,
		log:       logger.WithComponent("pipeline"),
	}
}

// Profiler returns the per-stage timings collected so far.
func (e *Extractor) Profiler() *profiler.Profiler {
	return e.profiler
}

// Senders returns the per-sender spam/ham tallies collected so far.
func (e *Extractor) Senders() *tracker.SenderTracker {
	return e.senders
}

// Run processes every target of datasets. Errors in individual documents
// are counted and skipped; walk errors, cache write errors and context
// cancellation abort the run.
func (e *Extractor) Run(ctx context.Context, datasets []*corpus.Dataset) (*Summary, error) {
	start := time.Now()
	if err := os.MkdirAll(e.opts.CacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	// Tables from an earlier run would collide with this run's ids.
	removed, err := learning.ClearTables(e.opts.CacheDir)
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		e.log.Info("cleared stale cache tables", "dir", e.opts.CacheDir, "removed", removed)
	}

	summary := &Summary{
		Datasets:   make(map[string]*Counts, len(datasets)),
		Vocabulary: learning.NewVocabulary(),
	}
	for _, ds := range datasets {
		summary.Datasets[ds.Name] = &Counts{}
	}

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan job, e.opts.Workers*4)
	results := make(chan result, e.opts.Workers*4)

	g.Go(func() error {
		defer close(jobs)
		return e.produce(ctx, datasets, jobs)
	})

	var workers sync.WaitGroup
	for range e.opts.Workers {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for j := range jobs {
				r, err := e.process(j)
				if err != nil {
					return err
				}
				select {
				case results <- r:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	e.merge(results, summary)

	if err := g.Wait(); err != nil {
		return summary, err
	}

	summary.Ranked = summary.Vocabulary.Ranked()
	if e.opts.Store != nil {
		if err := e.opts.Store.Save(ctx, summary.Ranked); err != nil {
			return summary, fmt.Errorf("failed to save vocabulary: %w", err)
		}
	}

	summary.Elapsed = time.Since(start)
	e.log.Info("extraction finished",
		"documents", summary.Documents,
		"ok", summary.OK,
		"excluded", summary.Excluded(),
		"terms", summary.Vocabulary.Len(),
		"elapsed", summary.Elapsed)
	return summary, nil
}

// produce assigns document ids in walk order across all datasets. Every
// enumerated target consumes an id, including ones later excluded.
func (e *Extractor) produce(ctx context.Context, datasets []*corpus.Dataset, jobs chan<- job) error {
	id := 0
	for _, ds := range datasets {
		e.log.Debug("walking dataset", "dataset", ds.Name)
		for target, err := range ds.Walk(e.opts.Limits) {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if e.metrics != nil {
				e.metrics.DocumentsQueued.Inc()
			}
			select {
			case jobs <- job{id: id, dataset: ds.Name, target: target}:
			case <-ctx.Done():
				return ctx.Err()
			}
			id++
		}
	}
	return nil
}

// process runs one document through every stage. Only a failed cache
// write is returned as an error; a panic excludes the document.
func (e *Extractor) process(j job) (r result, err error) {
	defer func() {
		if p := recover(); p != nil {
			r = result{job: j, outcome: metrics.OutcomeUnparseable, err: fmt.Errorf("%w: %v", ErrDocumentPanic, p)}
			err = nil
		}
	}()
	r = result{job: j}

	timer := e.profiler.Start(StageRead)
	lines, err := email.ReadFile(j.target.Path)
	timer.Stop()
	if err != nil {
		r.outcome, r.err = metrics.OutcomeReadError, err
		return r, nil
	}

	timer = e.profiler.Start(StageParse)
	lines = e.parser.Sanitize(lines)
	msg, err := e.parser.Parse(lines)
	timer.Stop()
	if err != nil {
		r.outcome, r.err = metrics.OutcomeUnparseable, err
		return r, nil
	}
	r.sender = msg.Sender

	timer = e.profiler.Start(StageExtract)
	body, err := e.parser.Body(lines, msg)
	timer.Stop()
	if err != nil {
		e.log.Debug("part could not be decoded", "target", j.target.Path, "error", err)
	}
	if utf8.RuneCountInString(strings.TrimSpace(body)) < max(e.opts.MinBodyLength, 1) {
		r.outcome, r.err = metrics.OutcomeEmpty, ErrEmptyBody
		return r, nil
	}

	timer = e.profiler.Start(StageTokenize)
	r.table = e.tokenizer.Build(body)
	timer.Stop()

	timer = e.profiler.Start(StageWrite)
	_, err = learning.WriteTable(e.opts.CacheDir, j.id, j.target.IsSpam, r.table)
	timer.Stop()
	if err != nil {
		return r, fmt.Errorf("document %d (%s): %w", j.id, j.target.Path, err)
	}

	r.outcome = metrics.OutcomeOK
	return r, nil
}

// merge folds results into the summary in id order. It drains results
// until the channel is closed, even after a failure, so workers never block.
func (e *Extractor) merge(results <-chan result, summary *Summary) {
	pending := make(map[int]result)
	next := 0
	for r := range results {
		pending[r.id] = r
		for {
			ready, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			e.apply(ready, summary)
			next++
		}
	}
}

func (e *Extractor) apply(r result, summary *Summary) {
	timer := e.profiler.Start(StageMerge)
	defer timer.Stop()

	summary.add(r.outcome)
	summary.Datasets[r.dataset].add(r.outcome)

	terms := 0
	if r.outcome == metrics.OutcomeOK {
		summary.Vocabulary.Merge(r.table)
		terms = r.table.Len()
		if r.sender != "" {
			e.senders.Track(r.sender, r.target.IsSpam)
		}
	} else {
		e.log.Warn("document excluded",
			"dataset", r.dataset,
			"target", r.target.Path,
			"outcome", r.outcome,
			"error", r.err)
	}

	if e.metrics != nil {
		e.metrics.ObserveDocument(r.dataset, r.outcome)
		e.metrics.DocumentsQueued.Dec()
		e.metrics.VocabularySize.Set(float64(summary.Vocabulary.Len()))
	}
	if e.opts.OnDocument != nil {
		e.opts.OnDocument(Report{
			ID:      r.id,
			Dataset: r.dataset,
			Target:  r.target,
			Outcome: r.outcome,
			Terms:   terms,
			Err:     r.err,
		})
	}
}
