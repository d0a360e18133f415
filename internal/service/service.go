// Package service owns one CLI invocation: it loads project options, applies
// plugins in order, keeps their hooks and commands, and resolves build
// configurations from them.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/river-cli/river/internal/bundler"
	"github.com/river-cli/river/internal/chain"
	"github.com/river-cli/river/internal/config"
	"github.com/river-cli/river/internal/console"
	"github.com/river-cli/river/internal/eventstore"
	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
	"github.com/river-cli/river/internal/logfields"
	"github.com/river-cli/river/internal/metrics"
	"github.com/river-cli/river/internal/notify"
	"github.com/river-cli/river/internal/plugin"
	"github.com/river-cli/river/internal/raw"
)

// DefaultMode is used when the caller gives no --mode.
const DefaultMode = "development"

// Options configure a Service.
type Options struct {
	// BuiltIns are the plugins shipped with river, applied first.
	BuiltIns []plugin.Plugin
	// Plugins are additional plugins applied after the built-ins.
	Plugins []plugin.Plugin
	// DisableBuiltIn applies Plugins only.
	DisableBuiltIn bool
	// InlineOptions are used when the project has no config file.
	InlineOptions *config.ProjectOptions

	// Bundler overrides the bundler selected by the project options.
	Bundler bundler.Bundler
	Metrics metrics.Recorder
	Console *console.Console
	Logger  *slog.Logger
}

// Service is the state of one CLI invocation. It is mutated only while
// plugins are applied during Init.
type Service struct {
	mu sync.Mutex

	context string
	mode    string
	opts    Options

	projectOptions *config.ProjectOptions
	optionsSource  string

	registry     *plugin.Registry
	defaultModes map[string]string

	chainFns     []chain.Func
	rawFns       []plugin.RawHook
	devServerFns []plugin.DevServerFunc
	commands     map[string]plugin.Command
	commandOrder []string

	bundler bundler.Bundler
	console *console.Console
	metrics metrics.Recorder
	events  *notify.Dispatcher
	logger  *slog.Logger

	initialized bool
}

// New creates a Service rooted at root and resolves its plugin list.
func New(root string, opts Options) (*Service, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, foundationerrors.FileSystemError("cannot resolve project root").
			WithContext("root", root).WithCause(err).Build()
	}
	registry, err := plugin.ResolvePlugins(opts.BuiltIns, opts.Plugins, !opts.DisableBuiltIn)
	if err != nil {
		return nil, err
	}

	s := &Service{
		context:      abs,
		opts:         opts,
		registry:     registry,
		defaultModes: make(map[string]string),
		commands:     make(map[string]plugin.Command),
		console:      opts.Console,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
	}
	if s.console == nil {
		s.console = console.Stdout()
	}
	if s.metrics == nil {
		s.metrics = metrics.NoopRecorder{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	for _, p := range registry.List() {
		for name, mode := range p.DefaultModes {
			s.defaultModes[name] = mode
		}
	}
	return s, nil
}

// Init loads env files and project options for mode and applies every
// plugin. Calling Init again after it succeeded does nothing. A failed Init
// leaves no hooks, commands or open event sinks behind.
func (s *Service) Init(mode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	s.mode = mode
	s.resetRegistrations()

	if err := s.init(mode); err != nil {
		s.resetRegistrations()
		if s.events != nil {
			if cerr := s.events.Close(); cerr != nil {
				s.logger.Warn("Failed to close event sinks", logfields.Error(cerr))
			}
			s.events = nil
		}
		return err
	}

	s.initialized = true
	s.logger.Debug("Service initialized",
		logfields.Mode(mode),
		slog.String("options", s.optionsSource),
		slog.Int("plugins", s.registry.Count()),
		slog.Int("commands", len(s.commands)))
	return nil
}

func (s *Service) resetRegistrations() {
	s.chainFns, s.rawFns, s.devServerFns = nil, nil, nil
	s.commands = make(map[string]plugin.Command)
	s.commandOrder = nil
}

func (s *Service) init(mode string) error {
	if err := config.LoadEnv(s.context, mode); err != nil {
		return foundationerrors.ConfigError("cannot load environment files").WithCause(err).Build()
	}
	opts, source, err := config.Load(s.context, s.opts.InlineOptions)
	if err != nil {
		return err
	}
	s.projectOptions = opts
	s.optionsSource = source

	s.events = s.openEventSinks(opts)
	s.bundler = s.opts.Bundler
	if s.bundler == nil {
		s.bundler = bundler.NewExecBundler(opts.Bundler.Command, opts.Bundler.Args...)
	}

	for _, p := range s.registry.List() {
		s.logger.Debug("Applying plugin", logfields.Plugin(p.ID))
		if err := p.Apply(&pluginAPI{service: s, id: p.ID}, opts); err != nil {
			return plugin.ApplyError(p.ID, err)
		}
	}

	// Project hooks run after every plugin.
	if opts.ChainWebpack != nil {
		s.chainFns = append(s.chainFns, opts.ChainWebpack)
	}
	if opts.ConfigureWebpackFunc != nil {
		s.rawFns = append(s.rawFns, plugin.RawHook{Func: opts.ConfigureWebpackFunc})
	}
	if len(opts.ConfigureWebpack) > 0 {
		patch, err := raw.DecodePatch(opts.ConfigureWebpack)
		if err != nil {
			return foundationerrors.ConfigError("invalid configureWebpack option").
				WithContext("file", source).WithCause(err).Build()
		}
		s.rawFns = append(s.rawFns, plugin.RawHook{Literal: patch})
	}
	if opts.DevServer.Before != nil {
		s.devServerFns = append(s.devServerFns, opts.DevServer.Before)
	}
	return nil
}

func (s *Service) openEventSinks(opts *config.ProjectOptions) *notify.Dispatcher {
	d := notify.NewDispatcher(s.logger, notify.LogSink{Logger: s.logger})
	if opts.History.Enabled {
		store, err := eventstore.NewSQLiteStore(s.Resolve(opts.History.Path))
		if err != nil {
			s.logger.Warn("Build history disabled", "path", opts.History.Path, logfields.Error(err))
		} else {
			d.Add(notify.StoreSink{Store: store})
		}
	}
	if opts.Notify.NATSURL != "" {
		sink, err := notify.NewNATSSink(opts.Notify.NATSURL, opts.Notify.Subject)
		if err != nil {
			s.logger.Warn("NATS notifications disabled", logfields.URL(opts.Notify.NATSURL), logfields.Error(err))
		} else {
			d.Add(sink)
		}
	}
	return d
}

// Close releases event sinks.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events == nil {
		return nil
	}
	err := s.events.Close()
	s.events = nil
	return err
}

// Context is the absolute project root.
func (s *Service) Context() string { return s.context }

// Mode is the mode Init ran with.
func (s *Service) Mode() string { return s.mode }

// Resolve joins elem onto the project root. An absolute first element is
// returned cleaned.
func (s *Service) Resolve(elem ...string) string {
	if len(elem) > 0 && filepath.IsAbs(elem[0]) {
		return filepath.Join(elem...)
	}
	return filepath.Join(append([]string{s.context}, elem...)...)
}

// ProjectOptions returns the resolved options. It is nil before Init.
func (s *Service) ProjectOptions() *config.ProjectOptions { return s.projectOptions }

// OptionsSource names where the project options came from.
func (s *Service) OptionsSource() string { return s.optionsSource }

// Plugins returns the applied plugins in order.
func (s *Service) Plugins() []plugin.Plugin { return s.registry.List() }

// Commands returns registered commands in registration order.
func (s *Service) Commands() []plugin.Command {
	out := make([]plugin.Command, 0, len(s.commandOrder))
	for _, name := range s.commandOrder {
		out = append(out, s.commands[name])
	}
	return out
}

// Command looks up a registered command.
func (s *Service) Command(name string) (plugin.Command, bool) {
	c, ok := s.commands[name]
	return c, ok
}

// DefaultMode returns the mode command is usually run with, as shown in its
// help. It does not change the mode Run picks.
func (s *Service) DefaultMode(command string) string { return s.defaultModes[command] }

// Events returns the event publisher. Events are dropped before Init.
func (s *Service) Events() notify.Publisher {
	if s.events == nil {
		return notify.Discard{}
	}
	return s.events
}

func (s *Service) registerCommand(id string, cmd plugin.Command) {
	if _, exists := s.commands[cmd.Name]; !exists {
		s.commandOrder = append(s.commandOrder, cmd.Name)
	} else {
		s.logger.Debug("Command overridden", logfields.Command(cmd.Name), logfields.Plugin(id))
	}
	s.commands[cmd.Name] = cmd
}

func (s *Service) requireInit(op string) error {
	if !s.initialized {
		return foundationerrors.InternalError(fmt.Sprintf("%s called before service initialization", op)).Build()
	}
	return nil
}

func (s *Service) runCommand(ctx context.Context, cmd plugin.Command, args plugin.Args) error {
	s.logger.Debug("Running command", logfields.Command(cmd.Name), logfields.Mode(s.mode))
	return cmd.Run(ctx, args)
}
