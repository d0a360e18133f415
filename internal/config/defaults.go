package config

import (
	"fmt"

	"dario.cat/mergo"
)

// Default option values.
const (
	DefaultBaseURL        = "/"
	DefaultOutputDir      = "dist"
	DefaultIndexPath      = "index.html"
	DefaultBundlerCommand = "webpack"
	DefaultHistoryPath    = ".river/history.db"
	DefaultNotifySubject  = "river.events"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(opts *ProjectOptions) error
	Domain() string
}

// baseDefaultApplier deep-defaults the static option set. User values win,
// including a user pointer to false.
type baseDefaultApplier struct{}

func (baseDefaultApplier) Domain() string { return "base" }

func (baseDefaultApplier) ApplyDefaults(opts *ProjectOptions) error {
	defaults := Defaults()
	return mergo.Merge(opts, &defaults, mergo.WithoutDereference)
}

// historyDefaultApplier fills the event log path when history is on.
type historyDefaultApplier struct{}

func (historyDefaultApplier) Domain() string { return "history" }

func (historyDefaultApplier) ApplyDefaults(opts *ProjectOptions) error {
	if opts.History.Enabled && opts.History.Path == "" {
		opts.History.Path = DefaultHistoryPath
	}
	return nil
}

// notifyDefaultApplier fills the subject when a NATS URL is configured.
type notifyDefaultApplier struct{}

func (notifyDefaultApplier) Domain() string { return "notify" }

func (notifyDefaultApplier) ApplyDefaults(opts *ProjectOptions) error {
	if opts.Notify.NATSURL != "" && opts.Notify.Subject == "" {
		opts.Notify.Subject = DefaultNotifySubject
	}
	return nil
}

var defaultAppliers = []DefaultApplier{
	baseDefaultApplier{},
	historyDefaultApplier{},
	notifyDefaultApplier{},
}

// Defaults returns the static default option set.
func Defaults() ProjectOptions {
	hashing, sourceMap := true, true
	return ProjectOptions{
		BaseURL:             DefaultBaseURL,
		OutputDir:           DefaultOutputDir,
		IndexPath:           DefaultIndexPath,
		FilenameHashing:     &hashing,
		ProductionSourceMap: &sourceMap,
		Bundler:             BundlerOptions{Command: DefaultBundlerCommand},
	}
}

// ApplyDefaults runs every domain applier in order.
func ApplyDefaults(opts *ProjectOptions) error {
	for _, a := range defaultAppliers {
		if err := a.ApplyDefaults(opts); err != nil {
			return fmt.Errorf("apply %s defaults: %w", a.Domain(), err)
		}
	}
	return nil
}
