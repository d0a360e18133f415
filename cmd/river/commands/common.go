package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/river-cli/river/internal/builtin"
	"github.com/river-cli/river/internal/bundler"
	"github.com/river-cli/river/internal/console"
	"github.com/river-cli/river/internal/foundation/normalization"
	"github.com/river-cli/river/internal/metrics"
	"github.com/river-cli/river/internal/plugin"
	"github.com/river-cli/river/internal/service"
)

// EnvLogLevel overrides the log level when --debug is not given.
const EnvLogLevel = "RIVER_LOG_LEVEL"

// Global is shared state handed to every command.
type Global struct {
	Context context.Context
	Logger  *slog.Logger

	// Root is the project directory; the working directory when empty.
	Root string
	// Stdout receives console output; os.Stdout when nil.
	Stdout io.Writer
	// Bundler replaces the bundler selected by the project options.
	Bundler bundler.Bundler
}

// CLI definition and global flags.
type CLI struct {
	Debug   bool             `short:"d" help:"Enable debug logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build for production"`
	Serve   ServeCmd   `cmd:"" help:"Start development server"`
	Inspect InspectCmd `cmd:"" help:"Inspect the finalized bundler config"`
	History HistoryCmd `cmd:"" help:"List recent builds and dev sessions"`
	Init    InitCmd    `cmd:"" help:"Write an example project config file"`
	Help    HelpCmd    `cmd:"" default:"withargs" help:"Show help for river or one of its commands"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Debug)}))
	slog.SetDefault(logger)
	return nil
}

// parseLogLevel returns debug for --debug, else the RIVER_LOG_LEVEL value,
// else info.
func parseLogLevel(debug bool) slog.Level {
	if debug {
		return slog.LevelDebug
	}
	return logLevels.Normalize(os.Getenv(EnvLogLevel))
}

var logLevels = normalization.New("log level", map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}, slog.LevelInfo)

// RunService hands a parsed command to a fresh service rooted at the project
// directory. The service owns command lookup, mode selection and help.
func RunService(g *Global, name string, args plugin.Args) error {
	ctx := g.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := g.Logger
	if logger == nil {
		logger = slog.Default()
	}
	root := g.Root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		root = wd
	}
	out := console.Stdout()
	if g.Stdout != nil {
		out = console.New(g.Stdout)
	}

	svc, err := service.New(root, service.Options{
		BuiltIns: builtin.Plugins(),
		Bundler:  g.Bundler,
		Metrics:  metrics.NewPrometheusRecorder(nil),
		Console:  out,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := svc.Close(); cerr != nil {
			logger.Warn("Failed to close event sinks", "error", cerr)
		}
	}()
	return svc.Run(ctx, name, args)
}

// flags collects non-default flag values in the form plugin commands read.
type flags map[string]string

func (f flags) str(name, v string) {
	if v != "" {
		f[name] = v
	}
}

func (f flags) boolean(name string, v bool) {
	if v {
		f[name] = "true"
	}
}

func (f flags) integer(name string, v int) {
	if v != 0 {
		f[name] = strconv.Itoa(v)
	}
}

func positional(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
