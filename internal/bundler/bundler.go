// Package bundler is the boundary to the opaque module bundler. A Bundler
// receives a finalized raw.Config and reports compilation statistics; the
// implementation behind it (an external executable, or a fake in tests) is
// interchangeable.
package bundler

import (
	"context"
	"errors"
	"time"

	"github.com/river-cli/river/internal/raw"
)

var (
	// ErrBundlerNotFound is returned when the bundler executable is not on PATH.
	ErrBundlerNotFound = errors.New("bundler executable not found")
	// ErrBundlerFailed is returned when the bundler exits without usable stats.
	ErrBundlerFailed = errors.New("bundler execution failed")
)

// Bundler compiles finalized configurations.
type Bundler interface {
	// Run performs a single compilation.
	Run(ctx context.Context, cfg *raw.Config) (*Stats, error)
	// Watch starts a watching compilation. The first compile begins
	// immediately; every later one is triggered by a source change.
	Watch(ctx context.Context, cfg *raw.Config) (Watching, error)
}

// Watching is a running watch compilation. Results yields one value per
// compile and is closed after Close or when the watch context ends. A closed
// Watching cannot be restarted.
type Watching interface {
	Results() <-chan CompileResult
	Close() error
}

// CompileResult is the outcome of one compile in watch mode. Err is set when
// the bundler could not produce stats at all; compilation errors are reported
// through Stats.
type CompileResult struct {
	Stats    *Stats
	Err      error
	Duration time.Duration
}

// Failed reports whether the compile produced no usable output.
func (r CompileResult) Failed() bool {
	return r.Err != nil || r.Stats == nil || r.Stats.HasErrors()
}
