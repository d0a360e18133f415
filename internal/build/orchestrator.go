package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/river-cli/river/internal/buildplan"
	"github.com/river-cli/river/internal/bundler"
	"github.com/river-cli/river/internal/config"
	"github.com/river-cli/river/internal/eventstore"
	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
	"github.com/river-cli/river/internal/logfields"
	"github.com/river-cli/river/internal/metrics"
	"github.com/river-cli/river/internal/plugin"
	"github.com/river-cli/river/internal/raw"
)

// ModernTargetWarning is printed when --modern is combined with a non-app
// target.
const ModernTargetWarning = "Modern mode only works with default target (app). For libraries or web components, use the browserslist config to specify target browsers."

// FailedMessage is the error returned when the bundler reports errors.
const FailedMessage = "Build failed with errors."

// Orchestrator runs build passes against the service behind api.
type Orchestrator struct {
	api    plugin.API
	logger *slog.Logger
}

// NewOrchestrator creates an orchestrator acting through api.
func NewOrchestrator(api plugin.API, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{api: api, logger: logger}
}

// Run executes every pass opts asks for. Passes run in order and the first
// failure stops the build. In watch mode Run returns once ctx is done.
func (o *Orchestrator) Run(ctx context.Context, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	result := &Result{BuildID: uuid.New().String(), StartTime: time.Now()}
	logger := o.logger.With(logfields.BuildID(result.BuildID), logfields.Mode(o.api.Mode()))

	out := o.api.Console()
	if opts.Silent {
		out.SetSilent(true)
		defer out.SetSilent(false)
	}
	if opts.Modern && opts.Target != buildplan.TargetApp {
		out.Warn(ModernTargetWarning)
	}

	var watchers []bundler.Watching
	var wg sync.WaitGroup
	defer func() {
		for _, w := range watchers {
			_ = w.Close()
		}
		wg.Wait()
	}()

	for _, plan := range opts.Plans() {
		pass, watching, err := o.runPass(ctx, logger, result.BuildID, plan, opts)
		result.Passes = append(result.Passes, pass)
		if err != nil {
			status := StatusFailed
			if errors.Is(err, context.Canceled) {
				status = StatusCancelled
			}
			result.finish(status)
			return result, err
		}
		if watching != nil {
			watchers = append(watchers, watching)
			wg.Add(1)
			go func(plan buildplan.Plan, targetDir string) {
				defer wg.Done()
				o.watchLoop(ctx, logger, plan, opts, targetDir, watching)
			}(plan, pass.OutputDir)
		}
	}

	if opts.Watch {
		<-ctx.Done()
		result.finish(StatusCancelled)
		return result, nil
	}
	result.finish(StatusSuccess)
	logger.Info("Build finished",
		slog.Int("passes", len(result.Passes)),
		logfields.DurationMS(float64(result.Duration.Milliseconds())))
	return result, nil
}

func (o *Orchestrator) runPass(ctx context.Context, logger *slog.Logger, buildID string, plan buildplan.Plan, opts Options) (PassResult, bundler.Watching, error) {
	logger = logger.With(logfields.Pass(plan.PassName()), logfields.Target(plan.Target))
	pass := PassResult{Plan: plan}
	start := time.Now()
	events, rec := o.api.Events(), o.api.Metrics()
	events.Publish(ctx, buildID, eventstore.PassStarted{Pass: plan.PassName(), Mode: o.api.Mode(), Target: plan.Target})

	fail := func(err error) (PassResult, bundler.Watching, error) {
		pass.Err = err
		pass.Duration = time.Since(start)
		rec.ObservePassDuration(plan.PassName(), pass.Duration)
		rec.IncPassOutcome(plan.PassName(), metrics.OutcomeFor(err, errors.Is(err, context.Canceled)))
		events.Publish(ctx, buildID, eventstore.PassFailed{
			Pass:       plan.PassName(),
			DurationMS: pass.Duration.Milliseconds(),
			Error:      err.Error(),
		})
		logger.Error("Build pass failed", logfields.Error(err))
		return pass, nil, err
	}

	out := o.api.Console()
	out.Step(stepMessage(plan, o.api.Mode()))

	cfg, err := o.api.ResolveConfig(plan, nil)
	if err != nil {
		return fail(err)
	}
	if err := ValidateConfig(cfg, o.api.Context()); err != nil {
		return fail(err)
	}

	targetDir := cfg.Output.Path
	if opts.Dest != "" {
		targetDir = o.api.Resolve(opts.Dest)
		cfg.Output.Path = targetDir
	}
	pass.OutputDir = targetDir

	if plan.IsAppTarget() {
		entry, err := config.ResolveEntry(o.api.Context(), firstNonEmpty(opts.Entry, o.api.Options().Entry))
		if err != nil {
			return fail(err)
		}
		if opts.Entry != "" {
			cfg.Entry = raw.NamedEntry("app", o.api.Resolve(entry))
		}
	}
	cfg.Watch = plan.Watch

	if plan.CleanOutput {
		if err := os.RemoveAll(targetDir); err != nil {
			return fail(foundationerrors.FileSystemError("cannot clean output directory").
				WithContext("path", targetDir).WithCause(err).Build())
		}
	}

	var stats *bundler.Stats
	var watching bundler.Watching
	if plan.Watch {
		watching, err = o.api.Bundler().Watch(ctx, cfg)
		if err != nil {
			return fail(foundationerrors.BuildError("cannot start bundler").WithCause(err).Build())
		}
		select {
		case <-ctx.Done():
			_ = watching.Close()
			return fail(ctx.Err())
		case res, ok := <-watching.Results():
			if !ok {
				return fail(foundationerrors.BuildError("bundler stopped before the first compile").Build())
			}
			stats, err = res.Stats, res.Err
		}
	} else {
		stats, err = o.api.Bundler().Run(ctx, cfg)
	}
	if err == nil {
		if stats == nil {
			stats = &bundler.Stats{}
		}
		err = o.report(logger, plan, opts, stats, targetDir)
	} else if !errors.Is(err, context.Canceled) && !foundationerrors.IsClassified(err) {
		err = foundationerrors.BuildError("bundler failed").WithCause(err).Build()
	}
	if err != nil {
		if watching != nil {
			_ = watching.Close()
		}
		return fail(err)
	}

	pass.Stats = stats
	pass.Duration = time.Since(start)
	rec.ObservePassDuration(plan.PassName(), pass.Duration)
	rec.IncPassOutcome(plan.PassName(), metrics.OutcomeSuccess)
	events.Publish(ctx, buildID, eventstore.PassCompleted{
		Pass:       plan.PassName(),
		DurationMS: pass.Duration.Milliseconds(),
		Assets:     len(stats.Assets),
		TotalBytes: stats.TotalSize(),
		Warnings:   len(stats.Warnings),
		OutputDir:  targetDir,
	})
	logger.Info("Build pass complete",
		logfields.Path(targetDir),
		logfields.DurationMS(float64(pass.Duration.Milliseconds())))
	return pass, watching, nil
}

// watchLoop reports every compile after the first until the watch closes.
func (o *Orchestrator) watchLoop(ctx context.Context, logger *slog.Logger, plan buildplan.Plan, opts Options, targetDir string, w bundler.Watching) {
	for {
		select {
		case <-ctx.Done():
			return
		case res, ok := <-w.Results():
			if !ok {
				return
			}
			err := res.Err
			if err == nil {
				err = o.report(logger, plan, opts, res.Stats, targetDir)
			}
			if err != nil {
				logger.Warn("Rebuild failed", logfields.Error(err))
			}
		}
	}
}

// report prints the outcome of one compile and turns compiler errors into a
// build error.
func (o *Orchestrator) report(logger *slog.Logger, plan buildplan.Plan, opts Options, stats *bundler.Stats, targetDir string) error {
	out := o.api.Console()
	if stats == nil {
		stats = &bundler.Stats{}
	}
	if stats.HasErrors() {
		out.Messages("Failed to compile with "+pluralize(len(stats.Errors), "error")+":", stats.Errors)
		return foundationerrors.BuildError(FailedMessage).
			WithContext("errors", len(stats.Errors)).Build()
	}
	if stats.HasWarnings() {
		out.Messages("Compiled with "+pluralize(len(stats.Warnings), "warning")+":", stats.Warnings)
	}

	order := bundler.SortChunks(stats.Chunks, logger)
	if len(order) > 0 {
		names := make([]string, 0, len(order))
		for _, c := range order {
			names = append(names, c.ID)
		}
		logger.Debug("Chunk load order", slog.String("chunks", strings.Join(names, ",")))
	}

	displayDir := displayPath(o.api.Context(), targetDir)
	if !opts.Silent {
		out.AssetSummary(stats, targetDir, displayDir)
		if plan.IsAppTarget() && !plan.IsLegacyPass {
			if plan.Watch {
				out.Done("Build complete. Watching for changes...")
			} else {
				out.Done(fmt.Sprintf("Build complete. The %s directory is ready to be deployed.", out.Accent(displayDir)))
			}
		}
	}
	if o.api.TestMode() {
		out.Signal("Build complete.")
	}
	return nil
}

func stepMessage(plan buildplan.Plan, mode string) string {
	switch {
	case plan.IsLegacyPass:
		return fmt.Sprintf("Building legacy bundle for %s...", mode)
	case plan.IsModernPass:
		return fmt.Sprintf("Building modern bundle for %s...", mode)
	case !plan.IsAppTarget():
		return fmt.Sprintf("Building for %s as %s...", mode, plan.Target)
	default:
		return fmt.Sprintf("Building for %s...", mode)
	}
}

func displayPath(root, dir string) string {
	rel, err := filepath.Rel(root, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return dir
	}
	return filepath.ToSlash(rel)
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
