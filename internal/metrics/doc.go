// Package metrics records build-pass and dev-session observations.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no caller needs nil checks:
//
//	type Orchestrator struct {
//	    recorder metrics.Recorder
//	}
//
// The dev server mounts HTTPHandler for a PrometheusRecorder's registry under
// /__river/metrics.
package metrics
