// Package build runs the build command: one bundler pass, or a legacy pass
// followed by a modern pass when a modern app build is requested.
//
// Pass state travels in a buildplan.Plan value handed to config resolution,
// so nothing outlives a pass and a failed legacy pass leaves no state behind
// for later commands in the same process.
package build
