package metrics

import (
	"net/http"
	"time"

	"github.com/jaxxstorm/dnsdash/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Prometheus struct {
	registry     *prometheus.Registry
	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	poisoned     *prometheus.GaugeVec
	observed     *prometheus.CounterVec
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Prometheus{
		registry: registry,
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dnsdash",
			Name:      "api_calls_total",
			Help:      "Control API calls by operation and outcome",
		}, []string{"op", "outcome"}),
		callDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dnsdash",
			Name:      "api_call_duration_seconds",
			Help:      "Latency of control API calls",
		}, []string{"op"}),
		poisoned: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dnsdash",
			Name:      "resolver_poisoned",
			Help:      "1 when the last observed resolution for a mode was poisoned",
		}, []string{"mode"}),
		observed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dnsdash",
			Name:      "resolutions_observed_total",
			Help:      "Resolutions applied to the dashboard by verdict",
		}, []string{"mode", "verdict"}),
	}
}

func (p *Prometheus) ObserveCall(op string, outcome string, elapsed time.Duration) {
	p.calls.WithLabelValues(op, outcome).Inc()
	p.callDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

func (p *Prometheus) ObserveResolution(mode model.Mode, r model.Resolution) {
	verdict := "other"
	switch {
	case r.IsPoisoned:
		verdict = "poisoned"
	case r.IsCorrect:
		verdict = "correct"
	}
	value := 0.0
	if r.IsPoisoned {
		value = 1
	}
	p.poisoned.WithLabelValues(string(mode)).Set(value)
	p.observed.WithLabelValues(string(mode), verdict).Inc()
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr in the background.
func (p *Prometheus) Serve(addr string, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	go func() {
		logger.Info("starting prometheus metrics", zap.String("addr", addr), zap.String("endpoint", "/metrics"))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
}
