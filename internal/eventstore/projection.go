package eventstore

import (
	"context"
	"slices"
	"time"
)

const (
	statusRunning   = "running"
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
)

// PassSummary is a read model for one build pass or dev session.
type PassSummary struct {
	BuildID   string        `json:"build_id"`
	Pass      string        `json:"pass"`
	Status    string        `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Assets    int           `json:"assets,omitempty"`
	Bytes     int64         `json:"bytes,omitempty"`
	Compiles  int           `json:"compiles,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// History folds stored events into pass summaries, newest first.
func History(ctx context.Context, store Store, limit int) ([]*PassSummary, error) {
	events, err := store.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	// Recent is newest first; replay oldest first.
	slices.Reverse(events)

	byKey := make(map[string]*PassSummary)
	var order []*PassSummary
	get := func(e Event, pass string) *PassSummary {
		key := e.BuildID() + "/" + pass
		if s, ok := byKey[key]; ok {
			return s
		}
		s := &PassSummary{BuildID: e.BuildID(), Pass: pass, Status: statusRunning, StartedAt: e.Timestamp()}
		byKey[key] = s
		order = append(order, s)
		return s
	}

	for _, e := range events {
		switch e.Type() {
		case TypePassStarted:
			var p PassStarted
			if err := Decode(e, &p); err != nil {
				return nil, err
			}
			get(e, p.Pass)
		case TypePassCompleted:
			var p PassCompleted
			if err := Decode(e, &p); err != nil {
				return nil, err
			}
			s := get(e, p.Pass)
			s.Status = statusSucceeded
			s.Duration = time.Duration(p.DurationMS) * time.Millisecond
			s.Assets = p.Assets
			s.Bytes = p.TotalBytes
		case TypePassFailed:
			var p PassFailed
			if err := Decode(e, &p); err != nil {
				return nil, err
			}
			s := get(e, p.Pass)
			s.Status = statusFailed
			s.Duration = time.Duration(p.DurationMS) * time.Millisecond
			s.Error = p.Error
		case TypeSessionStarted:
			get(e, "serve")
		case TypeCompileCompleted:
			var p CompileCompleted
			if err := Decode(e, &p); err != nil {
				return nil, err
			}
			s := get(e, "serve")
			s.Compiles++
			s.Duration += time.Duration(p.DurationMS) * time.Millisecond
			if p.Errors == 0 {
				s.Status = statusSucceeded
			}
		}
	}

	slices.Reverse(order)
	return order, nil
}
