package devserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/river-cli/river/internal/buildplan"
	"github.com/river-cli/river/internal/bundler"
	"github.com/river-cli/river/internal/config"
	"github.com/river-cli/river/internal/console"
	"github.com/river-cli/river/internal/eventstore"
	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
	"github.com/river-cli/river/internal/logfields"
	"github.com/river-cli/river/internal/metrics"
	"github.com/river-cli/river/internal/plugin"
	"github.com/river-cli/river/internal/raw"
)

// Defaults used when neither flags, environment nor project options pick a
// value.
const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8080
)

// BuildCommand is suggested in the note printed after the first compile.
const BuildCommand = "river build"

// AppUpdatedSignal is printed in test mode for every compile after the first.
const AppUpdatedSignal = "App updated"

// Options are the serve command arguments. Zero values defer to the HOST
// and PORT environment variables, then to the devServer project options.
type Options struct {
	Entry  string
	Host   string
	Port   int
	HTTPS  bool
	Public string
}

// Handle is returned once the first error-free compile is served.
type Handle struct {
	URL     string
	Session *Session
}

// Session owns one running dev server.
type Session struct {
	api    plugin.API
	opts   Options
	logger *slog.Logger
	id     string

	Protocol string
	Host     string
	Port     int
	URLs     URLs
	// PublicURL is the externally visible address, empty when not set.
	PublicURL string

	outputDir string
	hub       *Hub
	server    *http.Server
	watching  bundler.Watching
	group     *errgroup.Group
	cancel    context.CancelFunc

	shutdownOnce sync.Once
	shutdownErr  error
}

// NewSession prepares a session acting through api.
func NewSession(api plugin.API, opts Options, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New().String()
	return &Session{api: api, opts: opts, id: id, logger: logger.With(logfields.SessionID(id))}
}

// ID identifies the session in events and logs.
func (s *Session) ID() string { return s.id }

// Start resolves the config, binds the listener, starts the compiler watch
// and blocks until the first compile without errors. Compiles with errors
// before that are reported to the console and the overlay only.
func (s *Session) Start(ctx context.Context) (*Handle, error) {
	api := s.api
	projectOptions := api.Options()
	production := api.IsProduction()

	entry, err := config.ResolveEntry(api.Context(), firstNonEmpty(s.opts.Entry, projectOptions.Entry))
	if err != nil {
		return nil, err
	}
	cfg, err := api.ResolveConfig(buildplan.Single(buildplan.TargetApp, false), nil)
	if err != nil {
		return nil, err
	}
	if s.opts.Entry != "" {
		cfg.Entry = raw.NamedEntry("app", api.Resolve(entry))
	}

	merged := MergeDevServerOptions(cfg.DevServer, projectOptions.DevServer)
	var dev config.DevServerOptions
	if err := mapstructure.Decode(merged, &dev); err != nil {
		return nil, foundationerrors.ConfigError("invalid devServer options").WithCause(err).Build()
	}

	s.Protocol = "http"
	if s.opts.HTTPS || dev.HTTPS {
		s.Protocol = "https"
	}
	s.Host = firstNonEmpty(s.opts.Host, os.Getenv("HOST"), dev.Host, DefaultHost)
	base, err := s.basePort(dev.Port)
	if err != nil {
		return nil, err
	}
	if s.Port, err = FindPort(s.Host, base); err != nil {
		return nil, err
	}

	if public := firstNonEmpty(s.opts.Public, dev.Public); public != "" {
		if !strings.Contains(public, "://") {
			public = s.Protocol + "://" + public
		}
		s.PublicURL = public
	}
	pathname := projectOptions.BaseURL
	if config.IsAbsoluteURL(pathname) {
		pathname = "/"
	}
	s.URLs = PrepareURLs(s.Protocol, s.Host, s.Port, pathname)

	proxies, err := PrepareProxy(dev.Proxy, api.Resolve("public"), s.logger)
	if err != nil {
		return nil, err
	}

	if !production {
		socket := SocketURL(s.Protocol, s.PublicURL, s.URLs.LanURLForConfig, s.Port)
		cfg.Entry = AddDevClientToEntry(cfg.Entry, DevClients(socket, dev.HotOnly))
	}

	s.outputDir, err = os.MkdirTemp("", "river-serve-*")
	if err != nil {
		return nil, foundationerrors.FileSystemError("cannot create dev output directory").WithCause(err).Build()
	}
	merged["host"], merged["port"], merged["https"] = s.Host, s.Port, s.Protocol == "https"
	cfg.DevServer = merged
	cfg.Output.Path = s.outputDir
	cfg.Watch = true

	listener, err := s.listen()
	if err != nil {
		_ = os.RemoveAll(s.outputDir)
		return nil, err
	}

	compress := production
	if dev.Compress != nil {
		compress = *dev.Compress
	}
	s.hub = NewHub(!production, api.Metrics(), s.logger)
	s.server = &http.Server{
		Handler: newHandler(handlerOptions{
			BaseURL:   pathname,
			OutputDir: s.outputDir,
			PublicDir: api.Resolve("public"),
			Hooks:     api.DevServerHooks(),
			Proxies:   proxies,
			Hub:       s.hub,
			Metrics:   metrics.HandlerFor(api.Metrics()),
			Compress:  compress,
			Logger:    s.logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	var groupCtx context.Context
	s.group, groupCtx = errgroup.WithContext(runCtx)
	s.group.Go(func() error {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return foundationerrors.DevServerError("dev server stopped").WithCause(err).Build()
		}
		return nil
	})

	s.watching, err = api.Bundler().Watch(groupCtx, cfg)
	if err != nil {
		_ = s.Shutdown(context.Background())
		return nil, foundationerrors.BuildError("cannot start bundler").WithCause(err).Build()
	}

	ready := make(chan *Handle, 1)
	loopDone := make(chan struct{})
	s.group.Go(func() error {
		defer close(loopDone)
		s.compileLoop(groupCtx, production, ready)
		return nil
	})

	s.logger.Info("Dev server listening",
		logfields.URL(s.URLs.LocalURLForBrowser),
		logfields.Port(s.Port),
		slog.String("output", s.outputDir))

	select {
	case h := <-ready:
		return h, nil
	case <-loopDone:
		// The stream may close right after a clean first compile.
		select {
		case h := <-ready:
			return h, nil
		default:
		}
		err = foundationerrors.DevServerError("bundler stopped before the first successful compile").Build()
	case <-groupCtx.Done():
		err = ctx.Err()
	}
	if shutdownErr := s.Shutdown(context.Background()); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	if err == nil {
		err = foundationerrors.DevServerError("dev server stopped before the first successful compile").Build()
	}
	return nil, err
}

func (s *Session) basePort(configured int) (int, error) {
	if s.opts.Port > 0 {
		return s.opts.Port, nil
	}
	if env := os.Getenv("PORT"); env != "" {
		port, err := strconv.Atoi(env)
		if err != nil {
			return 0, foundationerrors.ValidationError("invalid PORT environment variable").
				WithContext("value", env).WithCause(err).Build()
		}
		return port, nil
	}
	if configured > 0 {
		return configured, nil
	}
	return DefaultPort, nil
}

func (s *Session) listen() (net.Listener, error) {
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, foundationerrors.DevServerError("cannot bind dev server").
			WithContext("address", addr).WithCause(err).Build()
	}
	if s.Protocol != "https" {
		return ln, nil
	}
	cert, err := SelfSignedCertificate(s.Host, s.URLs.LanURLForConfig)
	if err != nil {
		_ = ln.Close()
		return nil, foundationerrors.DevServerError("cannot create TLS certificate").WithCause(err).Build()
	}
	return tls.NewListener(ln, &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}), nil
}

// compileLoop reports every compile until the watch ends. The first
// compile without errors hands the session to Start.
func (s *Session) compileLoop(ctx context.Context, production bool, ready chan<- *Handle) {
	out := s.api.Console()
	first := true
	for res := range s.watching.Results() {
		s.recordCompile(ctx, res, first)
		s.hub.Publish(res)

		if res.Failed() {
			if res.Err != nil {
				out.Error(res.Err.Error())
			} else if res.Stats != nil {
				out.Messages("Failed to compile.", res.Stats.Errors)
			}
			continue
		}
		if res.Stats.HasWarnings() {
			out.Messages("Compiled with warnings.", res.Stats.Warnings)
		}

		network := s.URLs.LanURLForTerminal
		if s.PublicURL != "" {
			network = config.EnsureSlash(s.PublicURL)
		}
		out.Serving(console.ServingURLs{Local: s.URLs.LocalURLForTerminal, Network: network})

		if first {
			first = false
			out.ServingNote(production, BuildCommand)
			s.api.Events().Publish(ctx, s.id, eventstore.SessionStarted{URL: s.URLs.LocalURLForBrowser, Port: s.Port})
			ready <- &Handle{URL: s.URLs.LocalURLForBrowser, Session: s}
			continue
		}
		if s.api.TestMode() {
			out.Signal(AppUpdatedSignal)
		}
	}
}

func (s *Session) recordCompile(ctx context.Context, res bundler.CompileResult, first bool) {
	var failure error
	if res.Failed() {
		failure = res.Err
		if failure == nil {
			failure = errors.New("compile reported errors")
		}
	}
	rec := s.api.Metrics()
	rec.ObserveCompileDuration(res.Duration)
	rec.IncCompileOutcome(metrics.OutcomeFor(failure, false))

	event := eventstore.CompileCompleted{DurationMS: res.Duration.Milliseconds(), First: first}
	if res.Stats != nil {
		event.Errors = len(res.Stats.Errors)
		event.Warnings = len(res.Stats.Warnings)
	} else if res.Err != nil {
		event.Errors = 1
	}
	s.api.Events().Publish(ctx, s.id, event)
	s.logger.Debug("Compile finished",
		slog.Bool("failed", failure != nil),
		logfields.DurationMS(float64(res.Duration.Milliseconds())))
}

// Shutdown stops the compiler watch, disconnects browsers, closes the
// listener and removes the temporary output. It is safe to call twice.
func (s *Session) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		var errs []error
		if s.watching != nil {
			errs = append(errs, s.watching.Close())
		}
		if s.hub != nil {
			s.hub.Shutdown()
		}
		if s.server != nil {
			if err := s.server.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown dev server: %w", err))
			}
		}
		if s.cancel != nil {
			s.cancel()
		}
		if s.group != nil {
			errs = append(errs, s.group.Wait())
		}
		if s.outputDir != "" {
			errs = append(errs, os.RemoveAll(s.outputDir))
		}
		s.shutdownErr = errors.Join(errs...)
		s.logger.Info("Dev server stopped")
	})
	return s.shutdownErr
}

// Wait blocks until the session stops on its own or ctx is done, then shuts
// it down.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-s.done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func (s *Session) done() <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		if s.group != nil {
			_ = s.group.Wait()
		}
		close(ch)
	}()
	return ch
}

// MergeDevServerOptions overlays the project devServer options on the
// bundler's own devServer section. Project values win.
func MergeDevServerOptions(bundlerOptions map[string]any, project config.DevServerOptions) map[string]any {
	merged := maps.Clone(bundlerOptions)
	if merged == nil {
		merged = make(map[string]any)
	}
	maps.Copy(merged, project.Extra)
	if project.Host != "" {
		merged["host"] = project.Host
	}
	if project.Port != 0 {
		merged["port"] = project.Port
	}
	if project.HTTPS {
		merged["https"] = true
	}
	if project.Public != "" {
		merged["public"] = project.Public
	}
	if project.HotOnly {
		merged["hotOnly"] = true
	}
	if project.Open {
		merged["open"] = true
	}
	if project.Compress != nil {
		merged["compress"] = *project.Compress
	}
	if project.Proxy != nil {
		merged["proxy"] = project.Proxy
	}
	return merged
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
