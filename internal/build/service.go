package build

import (
	"time"

	"github.com/river-cli/river/internal/buildplan"
	"github.com/river-cli/river/internal/bundler"
)

// Options are the build command arguments.
type Options struct {
	// Entry overrides the app entry module.
	Entry string
	// Dest overrides the output directory. It is applied after every raw
	// config hook.
	Dest   string
	Modern bool
	// Target defaults to app.
	Target string
	Watch  bool
	// Clean removes the output directory first. Defaults to true.
	Clean  *bool
	Silent bool
}

func (o Options) withDefaults() Options {
	if o.Target == "" {
		o.Target = buildplan.TargetApp
	}
	if o.Clean == nil {
		clean := true
		o.Clean = &clean
	}
	return o
}

// Plans returns the passes o asks for, in execution order.
func (o Options) Plans() []buildplan.Plan {
	o = o.withDefaults()
	if o.Modern && o.Target == buildplan.TargetApp {
		legacy, modern := buildplan.Legacy(), buildplan.Modern()
		legacy.CleanOutput = *o.Clean
		legacy.Watch, modern.Watch = o.Watch, o.Watch
		return []buildplan.Plan{legacy, modern}
	}
	plan := buildplan.Single(o.Target, *o.Clean)
	plan.Watch = o.Watch
	return []buildplan.Plan{plan}
}

// Status is the outcome of a build.
type Status string

const (
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsSuccess reports whether the build completed successfully.
func (s Status) IsSuccess() bool { return s == StatusSuccess }

// PassResult is the outcome of one pass.
type PassResult struct {
	Plan      buildplan.Plan
	Stats     *bundler.Stats
	OutputDir string
	Duration  time.Duration
	Err       error
}

// Result is the outcome of a build.
type Result struct {
	BuildID   string
	Status    Status
	Passes    []PassResult
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

func (r *Result) finish(status Status) {
	r.Status = status
	r.EndTime = time.Now()
	r.Duration = r.EndTime.Sub(r.StartTime)
}
