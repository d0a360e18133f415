// Package plugin defines the unit of extension: a Plugin has a stable id and
// an Apply function that registers commands and configuration hooks through
// the API handed to it. Plugins are applied once, in registry order.
package plugin

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/river-cli/river/internal/buildplan"
	"github.com/river-cli/river/internal/bundler"
	"github.com/river-cli/river/internal/chain"
	"github.com/river-cli/river/internal/config"
	"github.com/river-cli/river/internal/console"
	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
	"github.com/river-cli/river/internal/metrics"
	"github.com/river-cli/river/internal/notify"
	"github.com/river-cli/river/internal/raw"
)

// BuiltInPrefix marks plugins shipped with river.
const BuiltInPrefix = "built-in:"

// ApplyFunc applies a plugin.
type ApplyFunc func(api API, opts *config.ProjectOptions) error

// Plugin is a registered extension.
type Plugin struct {
	ID    string
	Apply ApplyFunc
	// DefaultModes maps command names registered by this plugin to the mode
	// they are usually run with. Help shows it; Run still falls back to
	// development when no --mode is given.
	DefaultModes map[string]string
}

// Validate checks that the plugin can be registered.
func (p Plugin) Validate() error {
	if p.ID == "" {
		return errors.New("plugin id is required")
	}
	if p.Apply == nil {
		return errors.New("plugin " + p.ID + " has no apply function")
	}
	return nil
}

// IsBuiltIn reports whether the plugin ships with river.
func (p Plugin) IsBuiltIn() bool {
	return len(p.ID) > len(BuiltInPrefix) && p.ID[:len(BuiltInPrefix)] == BuiltInPrefix
}

// DevServerFunc registers routes on the dev server ahead of its own handlers.
type DevServerFunc func(mux *http.ServeMux)

// RawHook is a raw-config hook: either a function or a literal patch merged
// on top of the finalized config.
type RawHook struct {
	Func    raw.Func
	Literal *raw.Patch
}

// API is what a plugin sees of the service.
type API interface {
	// ID is the id of the plugin being applied.
	ID() string
	// Mode is the mode the service was initialized with.
	Mode() string
	// Context is the project root.
	Context() string
	// Resolve joins path elements onto the project root.
	Resolve(elem ...string) string
	// IsProduction reports whether NODE_ENV selects production.
	IsProduction() bool
	// TestMode reports whether the CLI runs under its own test harness.
	TestMode() bool
	Options() *config.ProjectOptions

	RegisterCommand(cmd Command)
	ChainWebpack(fn chain.Func)
	ConfigureWebpack(hook RawHook)
	ConfigureDevServer(fn DevServerFunc)

	// ResolveChainableConfig runs every chain hook for plan on a fresh tree.
	ResolveChainableConfig(plan buildplan.Plan) (*chain.Config, error)
	// ResolveConfig finalizes tree, or a freshly resolved tree when nil,
	// and applies every raw hook.
	ResolveConfig(plan buildplan.Plan, tree *chain.Config) (*raw.Config, error)
	DevServerHooks() []DevServerFunc
	Commands() []Command
	Plugins() []Plugin

	Bundler() bundler.Bundler
	Console() *console.Console
	Events() notify.Publisher
	Metrics() metrics.Recorder
}

// Option documents one command flag for help output.
type Option struct {
	Flag        string
	Description string
}

// Command is a named CLI command contributed by a plugin.
type Command struct {
	Name        string
	Description string
	Usage       string
	Options     []Option
	Run         func(ctx context.Context, args Args) error
}

// Args are the parsed arguments of a command invocation.
type Args struct {
	Mode       string
	Positional []string
	Flags      map[string]string
	Help       bool
}

// Flag returns a raw flag value.
func (a Args) Flag(name string) (string, bool) {
	v, ok := a.Flags[name]
	return v, ok
}

// String returns a flag value or def.
func (a Args) String(name, def string) string {
	if v, ok := a.Flags[name]; ok && v != "" {
		return v
	}
	return def
}

// Bool returns a boolean flag. A flag given without value is true.
func (a Args) Bool(name string, def bool) bool {
	v, ok := a.Flags[name]
	if !ok {
		return def
	}
	if v == "" {
		return true
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// BoolPtr returns a boolean flag, or nil when absent.
func (a Args) BoolPtr(name string) *bool {
	if _, ok := a.Flags[name]; !ok {
		return nil
	}
	b := a.Bool(name, false)
	return &b
}

// Int returns an integer flag or def.
func (a Args) Int(name string, def int) (int, error) {
	v, ok := a.Flags[name]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, foundationerrors.ValidationError("invalid value for --"+name).
			WithContext("value", v).WithCause(err).Build()
	}
	return n, nil
}

// First returns the first positional argument or "".
func (a Args) First() string {
	if len(a.Positional) == 0 {
		return ""
	}
	return a.Positional[0]
}
