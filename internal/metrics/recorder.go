package metrics

import "time"

// Outcome labels a build pass or compile result.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// Recorder defines observability hooks for build passes and dev sessions.
type Recorder interface {
	ObservePassDuration(pass string, d time.Duration)
	IncPassOutcome(pass string, outcome Outcome)
	ObserveCompileDuration(d time.Duration)
	IncCompileOutcome(outcome Outcome)
	SetHotReloadClients(n int)
	ObserveConfigResolution(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePassDuration(string, time.Duration) {}
func (NoopRecorder) IncPassOutcome(string, Outcome)            {}
func (NoopRecorder) ObserveCompileDuration(time.Duration)      {}
func (NoopRecorder) IncCompileOutcome(Outcome)                 {}
func (NoopRecorder) SetHotReloadClients(int)                   {}
func (NoopRecorder) ObserveConfigResolution(time.Duration)     {}

// OutcomeFor maps an error to an outcome label.
func OutcomeFor(err error, canceled bool) Outcome {
	switch {
	case canceled:
		return OutcomeCanceled
	case err != nil:
		return OutcomeFailed
	default:
		return OutcomeSuccess
	}
}
