package builtin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/river-cli/river/internal/build"
	"github.com/river-cli/river/internal/config"
	"github.com/river-cli/river/internal/devserver"
	"github.com/river-cli/river/internal/eventstore"
	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
	"github.com/river-cli/river/internal/inspect"
	"github.com/river-cli/river/internal/plugin"
)

// DefaultHistoryLimit is the number of events read by the history command.
const DefaultHistoryLimit = 200

func applyServe(api plugin.API, _ *config.ProjectOptions) error {
	api.RegisterCommand(plugin.Command{
		Name:        "serve",
		Description: "start development server",
		Usage:       "river serve [options] [entry]",
		Options: []plugin.Option{
			{Flag: "--open", Description: "open browser on server start"},
			{Flag: "--mode", Description: "specify env mode (default: development)"},
			{Flag: "--host", Description: "specify host (default: 0.0.0.0)"},
			{Flag: "--port", Description: "specify port (default: 8080)"},
			{Flag: "--https", Description: "use https (default: false)"},
			{Flag: "--public", Description: "specify the public network URL for the HMR client"},
		},
		Run: func(ctx context.Context, args plugin.Args) error {
			port, err := args.Int("port", 0)
			if err != nil {
				return err
			}
			session := devserver.NewSession(api, devserver.Options{
				Entry:  args.First(),
				Host:   args.String("host", ""),
				Port:   port,
				HTTPS:  args.Bool("https", false),
				Public: args.String("public", ""),
			}, slog.Default())
			handle, err := session.Start(ctx)
			if err != nil {
				return err
			}
			slog.Debug("Dev server ready", slog.String("url", handle.URL))
			return session.Wait(ctx)
		},
	})
	return nil
}

func applyBuild(api plugin.API, _ *config.ProjectOptions) error {
	api.RegisterCommand(plugin.Command{
		Name:        "build",
		Description: "build for production",
		Usage:       "river build [options] [entry]",
		Options: []plugin.Option{
			{Flag: "--mode", Description: "specify env mode (default: development)"},
			{Flag: "--dest", Description: "specify output directory (default: outputDir option)"},
			{Flag: "--modern", Description: "build app targeting modern browsers with auto fallback"},
			{Flag: "--target", Description: "app | lib (default: app)"},
			{Flag: "--watch", Description: "watch for changes"},
			{Flag: "--no-clean", Description: "do not remove the dist directory before building the project"},
			{Flag: "--silent", Description: "do not print the asset summary"},
		},
		Run: func(ctx context.Context, args plugin.Args) error {
			clean := args.BoolPtr("clean")
			if args.Bool("no-clean", false) {
				off := false
				clean = &off
			}
			_, err := build.NewOrchestrator(api, slog.Default()).Run(ctx, build.Options{
				Entry:  args.First(),
				Dest:   args.String("dest", ""),
				Modern: args.Bool("modern", false),
				Target: args.String("target", ""),
				Watch:  args.Bool("watch", false),
				Clean:  clean,
				Silent: args.Bool("silent", false),
			})
			return err
		},
	})
	return nil
}

func applyInspect(api plugin.API, _ *config.ProjectOptions) error {
	api.RegisterCommand(plugin.Command{
		Name:        "inspect",
		Description: "inspect the finalized bundler config",
		Usage:       "river inspect [options] [...paths]",
		Options: []plugin.Option{
			{Flag: "--mode", Description: "specify env mode (default: development)"},
			{Flag: "--rule <ruleName>", Description: "inspect a specific module rule"},
			{Flag: "--plugin <pluginName>", Description: "inspect a specific plugin"},
			{Flag: "--rules", Description: "list all module rule names"},
			{Flag: "--plugins", Description: "list all plugin names"},
			{Flag: "--verbose", Description: "show rule names alongside every rule"},
		},
		Run: func(_ context.Context, args plugin.Args) error {
			out, err := inspect.Inspect(api, inspect.Options{
				Paths:   args.Positional,
				Rules:   args.Bool("rules", false),
				Plugins: args.Bool("plugins", false),
				Rule:    args.String("rule", ""),
				Plugin:  args.String("plugin", ""),
				Verbose: args.Bool("verbose", false),
			})
			if err != nil {
				return err
			}
			api.Console().Println(out)
			return nil
		},
	})
	return nil
}

func applyHistory(api plugin.API, opts *config.ProjectOptions) error {
	api.RegisterCommand(plugin.Command{
		Name:        "history",
		Description: "list recent builds and dev sessions",
		Usage:       "river history [options]",
		Options: []plugin.Option{
			{Flag: "--limit", Description: fmt.Sprintf("number of events to read (default: %d)", DefaultHistoryLimit)},
		},
		Run: func(ctx context.Context, args plugin.Args) error {
			out := api.Console()
			if !opts.History.Enabled {
				out.Info("Build history is disabled. Set history.enabled in the project config to record builds.")
				return nil
			}
			limit, err := args.Int("limit", DefaultHistoryLimit)
			if err != nil {
				return err
			}
			store, err := eventstore.NewSQLiteStore(api.Resolve(opts.History.Path))
			if err != nil {
				return foundationerrors.FileSystemError("cannot open build history").
					WithContext("path", opts.History.Path).WithCause(err).Build()
			}
			defer store.Close()

			summaries, err := eventstore.History(ctx, store, limit)
			if err != nil {
				return foundationerrors.InternalError("cannot read build history").WithCause(err).Build()
			}
			if len(summaries) == 0 {
				out.Info("No builds recorded yet.")
				return nil
			}
			for _, s := range summaries {
				out.Println(historyLine(s))
			}
			return nil
		},
	})
	return nil
}

func historyLine(s *eventstore.PassSummary) string {
	id := s.BuildID
	if len(id) > 8 {
		id = id[:8]
	}
	line := fmt.Sprintf("%s  %-7s %-10s %8s  %s", id, s.Pass, s.Status,
		s.Duration.Round(time.Millisecond), humanize.Time(s.StartedAt))
	switch {
	case s.Bytes > 0:
		line += fmt.Sprintf("  %d assets, %s", s.Assets, humanize.Bytes(uint64(s.Bytes)))
	case s.Compiles > 0:
		line += fmt.Sprintf("  %d compiles", s.Compiles)
	}
	if s.Error != "" {
		line += "  " + s.Error
	}
	return line
}
