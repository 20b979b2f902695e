// Package profiler collects per-stage timings of the extraction pipeline.
package profiler

import (
	"fmt"
	"io"
	"slices"
	"sync"
	"time"
)

// Hook receives every recorded sample, e.g. to forward it to metrics.
type Hook func(stage string, d time.Duration)

// Profiler tracks durations per pipeline stage. Safe for concurrent use
// by the extraction workers.
type Profiler struct {
	mu      sync.Mutex
	samples map[string][]time.Duration
	order   []string // stages in first-seen order
	hooks   []Hook
}

// NewProfiler creates a profiler that also forwards samples to hooks.
func NewProfiler(hooks ...Hook) *Profiler {
	return &Profiler{
		samples: make(map[string][]time.Duration),
		hooks:   hooks,
	}
}

// Timer measures one stage execution.
type Timer struct {
	profiler *Profiler
	stage    string
	start    time.Time
}

// Start begins timing a stage. A nil profiler returns a timer that
// records nothing.
func (p *Profiler) Start(stage string) *Timer {
	return &Timer{profiler: p, stage: stage, start: time.Now()}
}

// Stop records the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	if t.profiler != nil {
		t.profiler.Record(t.stage, d)
	}
	return d
}

// Record adds one sample.
func (p *Profiler) Record(stage string, d time.Duration) {
	p.mu.Lock()
	if _, ok := p.samples[stage]; !ok {
		p.order = append(p.order, stage)
	}
	p.samples[stage] = append(p.samples[stage], d)
	p.mu.Unlock()

	for _, hook := range p.hooks {
		hook(stage, d)
	}
}

// Stats summarizes one stage.
type Stats struct {
	Stage   string
	Count   int
	Total   time.Duration
	Average time.Duration
	Min     time.Duration
	Max     time.Duration
	Median  time.Duration
	P95     time.Duration
	P99     time.Duration
}

// GetStats returns the summary for a stage; Count is 0 if it never ran.
func (p *Profiler) GetStats(stage string) Stats {
	p.mu.Lock()
	sorted := slices.Clone(p.samples[stage])
	p.mu.Unlock()

	if len(sorted) == 0 {
		return Stats{Stage: stage}
	}
	slices.Sort(sorted)

	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	return Stats{
		Stage:   stage,
		Count:   len(sorted),
		Total:   total,
		Average: total / time.Duration(len(sorted)),
		Min:     sorted[0],
		Max:     sorted[len(sorted)-1],
		Median:  sorted[len(sorted)/2],
		P95:     percentile(sorted, 0.95),
		P99:     percentile(sorted, 0.99),
	}
}

// GetAllStats returns the summaries in the order stages were first seen.
func (p *Profiler) GetAllStats() []Stats {
	p.mu.Lock()
	stages := slices.Clone(p.order)
	p.mu.Unlock()

	stats := make([]Stats, 0, len(stages))
	for _, stage := range stages {
		stats = append(stats, p.GetStats(stage))
	}
	return stats
}

// PrintReport writes a timing table to w.
func (p *Profiler) PrintReport(w io.Writer) {
	stats := p.GetAllStats()
	if len(stats) == 0 {
		fmt.Fprintln(w, "No timing data available")
		return
	}

	fmt.Fprintf(w, "⏱️  Stage Profile\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "%-12s %8s %10s %8s %8s %8s %8s %8s\n",
		"Stage", "Count", "Total", "Avg", "Median", "Max", "P95", "P99")
	fmt.Fprintf(w, "───────────────────────────────────────────────────────────────────────────\n")
	for _, s := range stats {
		fmt.Fprintf(w, "%-12s %8d %10s %8s %8s %8s %8s %8s\n",
			truncate(s.Stage, 12),
			s.Count,
			formatDuration(s.Total),
			formatDuration(s.Average),
			formatDuration(s.Median),
			formatDuration(s.Max),
			formatDuration(s.P95),
			formatDuration(s.P99),
		)
	}
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════════════════════\n")
}

func percentile(sorted []time.Duration, q float64) time.Duration {
	i := int(float64(len(sorted)) * q)
	if i >= len(sorted) {
		i = len(sorted) - 1
	}
	return sorted[i]
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Microsecond:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	case d < time.Millisecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1e3)
	case d < time.Second:
		return fmt.Sprintf("%.2fms", float64(d.Nanoseconds())/1e6)
	default:
		return fmt.Sprintf("%.3fs", d.Seconds())
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
