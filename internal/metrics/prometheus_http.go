package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler returns an http.Handler that serves Prometheus metrics for the provided registry.
func HTTPHandler(reg *prom.Registry) http.Handler {
	if reg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// HandlerFor returns the metrics handler for r, or nil when r exports nothing.
func HandlerFor(r Recorder) http.Handler {
	if pr, ok := r.(*PrometheusRecorder); ok && pr != nil {
		return HTTPHandler(pr.Registry())
	}
	return nil
}
