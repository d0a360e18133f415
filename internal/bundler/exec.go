package bundler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/river-cli/river/internal/raw"
)

// ExecBundler invokes an external bundler executable. The finalized config is
// written as JSON to a per-run file passed with --config, and the executable
// must print its JSON stats on stdout.
type ExecBundler struct {
	Command string
	Args    []string
	// Dir is the working directory; the config context is used when empty.
	Dir string
	// WatchDirs are project-relative directories watched for changes.
	WatchDirs []string
}

// NewExecBundler returns an ExecBundler for command.
func NewExecBundler(command string, args ...string) *ExecBundler {
	return &ExecBundler{Command: command, Args: args, WatchDirs: []string{"src", "public"}}
}

// Run writes cfg to a temporary file and runs the bundler once. A bundler
// that exits non-zero but still prints stats is reported through the stats.
func (b *ExecBundler) Run(ctx context.Context, cfg *raw.Config) (*Stats, error) {
	bin, err := exec.LookPath(b.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBundlerNotFound, err)
	}

	once := cfg.Clone()
	once.Watch = false
	configPath, err := writeConfigFile(once)
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.Remove(configPath) }()

	args := append(append([]string(nil), b.Args...), "--config", configPath)
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = b.Dir
	if cmd.Dir == "" {
		cmd.Dir = cfg.Context
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.Debug("ExecBundler invoking bundler", "command", b.Command, "dir", cmd.Dir, "config", configPath)

	start := time.Now()
	runErr := cmd.Run()
	if errStr := stderr.String(); errStr != "" {
		slog.Debug("bundler stderr", "output", errStr)
	}

	stats, parseErr := ParseStats(bytes.TrimSpace(stdout.Bytes()))
	if parseErr == nil {
		if stats.Time == 0 {
			stats.Time = time.Since(start).Milliseconds()
		}
		return stats, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if runErr != nil {
		output := strings.TrimSpace(stderr.String())
		if output == "" {
			output = strings.TrimSpace(stdout.String())
		}
		if output != "" {
			return nil, fmt.Errorf("%w: %w: %s", ErrBundlerFailed, runErr, output)
		}
		return nil, fmt.Errorf("%w: %w", ErrBundlerFailed, runErr)
	}
	return nil, fmt.Errorf("%w: %w", ErrBundlerFailed, parseErr)
}

// Watch compiles cfg and recompiles after every debounced change below the
// watch directories of cfg.Context.
func (b *ExecBundler) Watch(ctx context.Context, cfg *raw.Config) (Watching, error) {
	var dirs []string
	for _, d := range b.WatchDirs {
		dirs = append(dirs, resolveUnder(cfg.Context, d))
	}
	return startWatch(ctx, dirs, func(ctx context.Context) (*Stats, error) {
		return b.Run(ctx, cfg)
	})
}

func writeConfigFile(cfg *raw.Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode bundler config: %w", err)
	}
	f, err := os.CreateTemp("", "river-config-*.json")
	if err != nil {
		return "", fmt.Errorf("create bundler config: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write bundler config: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close bundler config: %w", err)
	}
	return f.Name(), nil
}
