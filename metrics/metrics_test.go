package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker/v2"
)

func TestRecordRecommend(t *testing.T) {
	before := testutil.ToFloat64(RecommendRequests.WithLabelValues(OutcomeOK))
	RecordRecommend(OutcomeOK, 3*time.Millisecond)
	if got := testutil.ToFloat64(RecommendRequests.WithLabelValues(OutcomeOK)); got != before+1 {
		t.Errorf("requests{ok} = %v, want %v", got, before+1)
	}
}

func TestRecordIndex(t *testing.T) {
	RecordIndex(42, 300, time.Second)
	if got := testutil.ToFloat64(IndexItems); got != 42 {
		t.Errorf("index items = %v, want 42", got)
	}
	if got := testutil.ToFloat64(IndexPairs); got != 300 {
		t.Errorf("index pairs = %v, want 300", got)
	}
}

func TestRecordBreakerState(t *testing.T) {
	RecordBreakerState("scorer", gobreaker.StateClosed, gobreaker.StateOpen)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("scorer")); got != float64(gobreaker.StateOpen) {
		t.Errorf("breaker state = %v, want %v", got, float64(gobreaker.StateOpen))
	}
}

func TestRecordNode(t *testing.T) {
	RecordNode("recall.item2item", "recall", 100, time.Millisecond)
	if n := testutil.CollectAndCount(Candidates); n == 0 {
		t.Error("candidates histogram not collected")
	}
}
