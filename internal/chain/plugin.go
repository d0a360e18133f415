package chain

import (
	"maps"
	"slices"

	"github.com/river-cli/river/internal/raw"
)

// Plugin is a named bundler plugin registration.
type Plugin struct {
	name string
	kind string
	args []any
}

// Use sets the plugin implementation and its constructor arguments.
func (p *Plugin) Use(kind string, args ...any) *Plugin {
	p.kind = kind
	p.args = args
	return p
}

// Tap replaces the constructor arguments with fn's result.
func (p *Plugin) Tap(fn func(args []any) []any) *Plugin {
	p.args = fn(slices.Clone(p.args))
	return p
}

// Name returns the registration key.
func (p *Plugin) Name() string { return p.name }

// Kind returns the plugin implementation.
func (p *Plugin) Kind() string { return p.kind }

// Args returns a copy of the constructor arguments.
func (p *Plugin) Args() []any { return slices.Clone(p.args) }

func (p *Plugin) toRaw() raw.Plugin {
	return raw.Plugin{Name: p.name, Kind: p.kind, Args: cloneArgs(p.args)}
}

func clonePlugin(p *Plugin) *Plugin {
	return &Plugin{name: p.name, kind: p.kind, args: cloneArgs(p.args)}
}

func cloneArgs(args []any) []any {
	if args == nil {
		return nil
	}
	out := make([]any, len(args))
	for i, a := range args {
		if m, ok := a.(map[string]any); ok {
			out[i] = maps.Clone(m)
			continue
		}
		out[i] = a
	}
	return out
}
