// Package notify fans build and dev-session events out to sinks: the SQLite
// history, an optional NATS subject and the debug log.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/river-cli/river/internal/eventstore"
)

// Publisher accepts events for a build or session.
type Publisher interface {
	Publish(ctx context.Context, buildID string, payload eventstore.Typed)
}

// Sink receives encoded events.
type Sink interface {
	Name() string
	Send(ctx context.Context, event *eventstore.BaseEvent) error
	Close() error
}

// Dispatcher publishes every event to all sinks. Sink failures are logged
// and never reach the build.
type Dispatcher struct {
	mu     sync.Mutex
	sinks  []Sink
	logger *slog.Logger
}

// NewDispatcher returns a dispatcher over sinks.
func NewDispatcher(logger *slog.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sinks: sinks, logger: logger}
}

// Add registers another sink.
func (d *Dispatcher) Add(s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, s)
}

// Publish encodes payload and sends it to every sink.
func (d *Dispatcher) Publish(ctx context.Context, buildID string, payload eventstore.Typed) {
	event, err := eventstore.NewEvent(buildID, payload)
	if err != nil {
		d.logger.Warn("Failed to encode event", "type", payload.EventType(), "error", err)
		return
	}
	d.mu.Lock()
	sinks := append([]Sink(nil), d.sinks...)
	d.mu.Unlock()
	for _, s := range sinks {
		if err := s.Send(ctx, event); err != nil {
			d.logger.Warn("Event sink failed", "sink", s.Name(), "type", event.Type(), "error", err)
		}
	}
}

// Close closes every sink.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var errs []error
	for _, s := range d.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.sinks = nil
	return errors.Join(errs...)
}

// Discard is a Publisher that drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, string, eventstore.Typed) {}

// StoreSink appends events to an event store.
type StoreSink struct {
	Store eventstore.Store
}

func (s StoreSink) Name() string { return "history" }

func (s StoreSink) Send(ctx context.Context, e *eventstore.BaseEvent) error {
	return s.Store.Append(ctx, e.BuildID(), e.Type(), e.Payload(), e.Metadata())
}

func (s StoreSink) Close() error { return s.Store.Close() }

// LogSink writes events to the debug log.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Name() string { return "log" }

func (s LogSink) Send(ctx context.Context, e *eventstore.BaseEvent) error {
	s.Logger.DebugContext(ctx, "Event", "type", e.Type(), "build_id", e.BuildID(), "payload", string(e.Payload()))
	return nil
}

func (s LogSink) Close() error { return nil }
