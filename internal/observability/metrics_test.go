package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordTransition("complete", nil)
	m.RecordTransition("complete", errors.New("invalid"))
	m.RecordTransition("complete", nil)
	m.RecordStoreBatch(nil)
	m.RecordReport("tasks", "pdf")
	m.RecordRequest("/api/tasks", "GET", 200, 5*time.Millisecond)

	if got := testutil.ToFloat64(m.workflowTransitions.WithLabelValues("complete", "ok")); got != 2 {
		t.Errorf("expected 2 ok transitions, got %v", got)
	}
	if got := testutil.ToFloat64(m.workflowTransitions.WithLabelValues("complete", "error")); got != 1 {
		t.Errorf("expected 1 failed transition, got %v", got)
	}
	if got := testutil.ToFloat64(m.reportsGenerated.WithLabelValues("tasks", "pdf")); got != 1 {
		t.Errorf("expected 1 report, got %v", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordStoreBatch(nil)
	m.RecordTransition("reject", nil)
	m.RecordReport("tasks", "xlsx")
}
