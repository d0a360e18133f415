package bundler

import (
	"encoding/json"
	"fmt"
	"time"
)

// Stats is the compilation summary reported by the bundler.
type Stats struct {
	Hash     string   `json:"hash"`
	Time     int64    `json:"time"`
	Errors   Messages `json:"errors"`
	Warnings Messages `json:"warnings"`
	Assets   []Asset  `json:"assets"`
	Chunks   []Chunk  `json:"chunks"`
}

// Asset is one emitted file.
type Asset struct {
	Name   string   `json:"name"`
	Size   int64    `json:"size"`
	Chunks []string `json:"chunks,omitempty"`
}

// Chunk is one emitted chunk and the chunks it depends on.
type Chunk struct {
	ID      string   `json:"id"`
	Names   []string `json:"names,omitempty"`
	Entry   bool     `json:"entry,omitempty"`
	Initial bool     `json:"initial,omitempty"`
	Parents []string `json:"parents,omitempty"`
	Files   []string `json:"files,omitempty"`
}

// HasErrors reports whether the compilation failed.
func (s *Stats) HasErrors() bool { return s != nil && len(s.Errors) > 0 }

// HasWarnings reports whether the compilation emitted warnings.
func (s *Stats) HasWarnings() bool { return s != nil && len(s.Warnings) > 0 }

// Duration is the bundler-reported compile time.
func (s *Stats) Duration() time.Duration { return time.Duration(s.Time) * time.Millisecond }

// TotalSize sums the sizes of all assets.
func (s *Stats) TotalSize() int64 {
	var total int64
	for _, a := range s.Assets {
		total += a.Size
	}
	return total
}

// Messages decodes bundler diagnostics given either as plain strings or as
// objects with a message field.
type Messages []string

func (m *Messages) UnmarshalJSON(data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(Messages, 0, len(items))
	for _, item := range items {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			Message    string `json:"message"`
			ModuleName string `json:"moduleName"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			return fmt.Errorf("decode bundler message: %w", err)
		}
		if obj.ModuleName != "" {
			out = append(out, obj.ModuleName+"\n"+obj.Message)
		} else {
			out = append(out, obj.Message)
		}
	}
	*m = out
	return nil
}

// UnmarshalJSON accepts numeric or string chunk ids.
func (c *Chunk) UnmarshalJSON(data []byte) error {
	type plain struct {
		ID      json.RawMessage   `json:"id"`
		Names   []string          `json:"names"`
		Entry   bool              `json:"entry"`
		Initial bool              `json:"initial"`
		Parents []json.RawMessage `json:"parents"`
		Files   []string          `json:"files"`
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = Chunk{Names: p.Names, Entry: p.Entry, Initial: p.Initial, Files: p.Files, ID: chunkID(p.ID)}
	for _, parent := range p.Parents {
		c.Parents = append(c.Parents, chunkID(parent))
	}
	return nil
}

func chunkID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// ParseStats decodes the bundler's JSON stats document.
func ParseStats(data []byte) (*Stats, error) {
	var s Stats
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse bundler stats: %w", err)
	}
	return &s, nil
}
