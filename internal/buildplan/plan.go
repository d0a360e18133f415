// Package buildplan describes which build pass is being configured. A Plan
// is passed explicitly to every chain callback and to config resolution so no
// process-wide state signals the legacy or modern pass.
package buildplan

// TargetApp is the default build target and the only one with a dual pass.
const TargetApp = "app"

// Plan carries per-pass orchestration state.
type Plan struct {
	// Target is the build target; empty means app.
	Target string
	// ModernMode is set for both passes of a dual build.
	ModernMode bool
	// IsLegacyPass marks the first pass of a dual build.
	IsLegacyPass bool
	// IsModernPass marks the second pass of a dual build.
	IsModernPass bool
	// CleanOutput removes the output directory before the pass runs.
	CleanOutput bool
	// KeepAlive asks the pass to leave shared state for a following pass.
	KeepAlive bool
	// Watch forces the bundler into watch mode.
	Watch bool
}

// Single is the plan for a one-pass build of target.
func Single(target string, clean bool) Plan {
	return Plan{Target: target, CleanOutput: clean}
}

// Legacy is the first pass of a dual app build.
func Legacy() Plan {
	return Plan{Target: TargetApp, ModernMode: true, IsLegacyPass: true, CleanOutput: true, KeepAlive: true}
}

// Modern is the second pass of a dual app build. It never cleans.
func Modern() Plan {
	return Plan{Target: TargetApp, ModernMode: true, IsModernPass: true}
}

// IsAppTarget reports whether the plan targets an application build.
func (p Plan) IsAppTarget() bool {
	return p.Target == "" || p.Target == TargetApp
}

// LegacyBundle reports whether emitted filenames need the legacy suffix.
func (p Plan) LegacyBundle() bool {
	return p.ModernMode && !p.IsModernPass
}

// PassName is a short label for logs and metrics.
func (p Plan) PassName() string {
	switch {
	case p.IsLegacyPass:
		return "legacy"
	case p.IsModernPass:
		return "modern"
	default:
		return "single"
	}
}
