package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once              sync.Once
	registry          *prom.Registry
	passDuration      *prom.HistogramVec
	passOutcome       *prom.CounterVec
	compileDuration   prom.Histogram
	compileOutcome    *prom.CounterVec
	hotReloadClients  prom.Gauge
	resolveConfigTime prom.Histogram
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.passDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "river",
			Name:      "build_pass_duration_seconds",
			Help:      "Duration of individual build passes",
			Buckets:   prom.DefBuckets,
		}, []string{"pass"})
		pr.passOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "river",
			Name:      "build_pass_outcomes_total",
			Help:      "Build pass outcomes by pass and status",
		}, []string{"pass", "outcome"})
		pr.compileDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "river",
			Name:      "dev_compile_duration_seconds",
			Help:      "Duration of dev server compiles",
			Buckets:   prom.DefBuckets,
		})
		pr.compileOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "river",
			Name:      "dev_compile_outcomes_total",
			Help:      "Dev server compile outcomes",
		}, []string{"outcome"})
		pr.hotReloadClients = prom.NewGauge(prom.GaugeOpts{
			Namespace: "river",
			Name:      "hot_reload_clients",
			Help:      "Connected hot-reload clients",
		})
		pr.resolveConfigTime = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "river",
			Name:      "config_resolution_duration_seconds",
			Help:      "Time spent resolving the finalized build config",
			Buckets:   prom.DefBuckets,
		})
		reg.MustRegister(pr.passDuration, pr.passOutcome, pr.compileDuration, pr.compileOutcome, pr.hotReloadClients, pr.resolveConfigTime)
	})
	return pr
}

// Registry returns the registry the metrics are registered with.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.registry }

func (p *PrometheusRecorder) ObservePassDuration(pass string, d time.Duration) {
	if p == nil || p.passDuration == nil {
		return
	}
	p.passDuration.WithLabelValues(pass).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPassOutcome(pass string, outcome Outcome) {
	if p == nil || p.passOutcome == nil {
		return
	}
	p.passOutcome.WithLabelValues(pass, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveCompileDuration(d time.Duration) {
	if p == nil || p.compileDuration == nil {
		return
	}
	p.compileDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCompileOutcome(outcome Outcome) {
	if p == nil || p.compileOutcome == nil {
		return
	}
	p.compileOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetHotReloadClients(n int) {
	if p == nil || p.hotReloadClients == nil {
		return
	}
	p.hotReloadClients.Set(float64(n))
}

func (p *PrometheusRecorder) ObserveConfigResolution(d time.Duration) {
	if p == nil || p.resolveConfigTime == nil {
		return
	}
	p.resolveConfigTime.Observe(d.Seconds())
}
