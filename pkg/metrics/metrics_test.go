package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveDocument(t *testing.T) {
	m := New()
	m.ObserveDocument("trec06p", OutcomeOK)
	m.ObserveDocument("trec06p", OutcomeOK)
	m.ObserveDocument("trec07p", OutcomeEmpty)

	if got := testutil.ToFloat64(m.DocumentsTotal.WithLabelValues("trec06p", OutcomeOK)); got != 2 {
		t.Errorf("expected 2 ok documents, got %v", got)
	}
	if got := testutil.ToFloat64(m.DocumentsTotal.WithLabelValues("trec07p", OutcomeEmpty)); got != 1 {
		t.Errorf("expected 1 empty document, got %v", got)
	}
}

func TestIndependentRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	a, b := New(), New()
	a.VocabularySize.Set(10)
	if testutil.ToFloat64(b.VocabularySize) != 0 {
		t.Error("registries should be independent")
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveStage("parse", 3*time.Millisecond)
	m.VocabularySize.Set(42)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{"trecprep_vocabulary_terms 42", `trecprep_stage_duration_seconds_count{stage="parse"} 1`} {
		if !strings.Contains(string(body), want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}
