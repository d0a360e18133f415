package eventstore

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event type names.
const (
	TypePassStarted      = "PassStarted"
	TypePassCompleted    = "PassCompleted"
	TypePassFailed       = "PassFailed"
	TypeSessionStarted   = "SessionStarted"
	TypeCompileCompleted = "CompileCompleted"
)

// PassStarted is recorded when a build pass begins.
type PassStarted struct {
	Pass   string `json:"pass"`
	Mode   string `json:"mode"`
	Target string `json:"target"`
}

// PassCompleted is recorded when a build pass succeeds.
type PassCompleted struct {
	Pass       string `json:"pass"`
	DurationMS int64  `json:"duration_ms"`
	Assets     int    `json:"assets"`
	TotalBytes int64  `json:"total_bytes"`
	Warnings   int    `json:"warnings"`
	OutputDir  string `json:"output_dir"`
}

// PassFailed is recorded when a build pass fails.
type PassFailed struct {
	Pass       string `json:"pass"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error"`
}

// SessionStarted is recorded when a dev session serves its first compile.
type SessionStarted struct {
	URL  string `json:"url"`
	Port int    `json:"port"`
}

// CompileCompleted is recorded for every dev-session compile.
type CompileCompleted struct {
	DurationMS int64 `json:"duration_ms"`
	Errors     int   `json:"errors"`
	Warnings   int   `json:"warnings"`
	First      bool  `json:"first"`
}

// Typed couples a payload struct with its event type name.
type Typed interface {
	EventType() string
}

func (PassStarted) EventType() string      { return TypePassStarted }
func (PassCompleted) EventType() string    { return TypePassCompleted }
func (PassFailed) EventType() string       { return TypePassFailed }
func (SessionStarted) EventType() string   { return TypeSessionStarted }
func (CompileCompleted) EventType() string { return TypeCompileCompleted }

// NewEvent encodes payload into a BaseEvent for buildID.
func NewEvent(buildID string, payload Typed) (*BaseEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", payload.EventType(), err)
	}
	return &BaseEvent{
		EventBuildID:   buildID,
		EventType:      payload.EventType(),
		EventTimestamp: time.Now(),
		EventPayload:   data,
	}, nil
}

// Decode unmarshals an event payload into out.
func Decode(e Event, out any) error {
	if err := json.Unmarshal(e.Payload(), out); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", e.Type(), err)
	}
	return nil
}
