package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jaxxstorm/dnsdash/internal/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveCallCounts(t *testing.T) {
	p := NewPrometheus()
	p.ObserveCall("resolve", "ok", 10*time.Millisecond)
	p.ObserveCall("resolve", "ok", 12*time.Millisecond)
	p.ObserveCall("resolve", "error", time.Millisecond)

	if got := testutil.ToFloat64(p.calls.WithLabelValues("resolve", "ok")); got != 2 {
		t.Fatalf("expected 2 ok calls, got %v", got)
	}
	if got := testutil.ToFloat64(p.calls.WithLabelValues("resolve", "error")); got != 1 {
		t.Fatalf("expected 1 failed call, got %v", got)
	}
}

func TestObserveResolutionSetsPoisonedGauge(t *testing.T) {
	p := NewPrometheus()
	p.ObserveResolution(model.ModePlain, model.Resolution{ResolvedIP: "10.5.0.99", IsPoisoned: true})
	if got := testutil.ToFloat64(p.poisoned.WithLabelValues("plain")); got != 1 {
		t.Fatalf("expected poisoned gauge 1, got %v", got)
	}
	p.ObserveResolution(model.ModePlain, model.Resolution{ResolvedIP: "10.5.0.10", IsCorrect: true})
	if got := testutil.ToFloat64(p.poisoned.WithLabelValues("plain")); got != 0 {
		t.Fatalf("expected poisoned gauge 0, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	p := NewPrometheus()
	p.ObserveCall("health", "ok", time.Millisecond)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "dnsdash_api_calls_total") {
		t.Fatalf("expected api call counter in output")
	}
}
