// Package config resolves project options: env files, the project config
// file, defaults, normalization and validation.
package config

import (
	"net/http"

	"github.com/river-cli/river/internal/chain"
	"github.com/river-cli/river/internal/raw"
)

// ProjectOptions is the validated, defaulted project configuration.
type ProjectOptions struct {
	BaseURL             string  `mapstructure:"baseUrl"`
	OutputDir           string  `mapstructure:"outputDir"`
	AssetsDir           string  `mapstructure:"assetsDir"`
	IndexPath           string  `mapstructure:"indexPath"`
	FilenameHashing     *bool   `mapstructure:"filenameHashing"`
	ProductionSourceMap *bool   `mapstructure:"productionSourceMap"`
	Crossorigin         *string `mapstructure:"crossorigin"`
	Integrity           bool    `mapstructure:"integrity"`

	// Entry is the project-relative entry module. Resolved from the command
	// line or discovered under src/ when empty.
	Entry string `mapstructure:"entry"`

	CSS       CSSOptions       `mapstructure:"css"`
	DevServer DevServerOptions `mapstructure:"devServer"`
	Pages     map[string]any   `mapstructure:"pages"`
	Bundler   BundlerOptions   `mapstructure:"bundler"`
	History   HistoryOptions   `mapstructure:"history"`
	Notify    NotifyOptions    `mapstructure:"notify"`

	// ConfigureWebpack is a literal raw-config patch, the only hook form a
	// data file can express.
	ConfigureWebpack map[string]any `mapstructure:"configureWebpack"`

	// Programmatic hooks, available to inline options only.
	ChainWebpack         chain.Func `mapstructure:"-"`
	ConfigureWebpackFunc raw.Func   `mapstructure:"-"`
}

// CSSOptions configures stylesheet handling.
type CSSOptions struct {
	Modules bool `mapstructure:"modules"`
	// Extract is nil (extract in production), a bool, or a map of
	// extraction plugin options.
	Extract       any                       `mapstructure:"extract"`
	SourceMap     bool                      `mapstructure:"sourceMap"`
	LoaderOptions map[string]map[string]any `mapstructure:"loaderOptions"`
}

// DevServerOptions configures the development server. Unknown keys are kept
// in Extra and forwarded to the bundler's dev-server section.
type DevServerOptions struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	HTTPS    bool   `mapstructure:"https"`
	Public   string `mapstructure:"public"`
	HotOnly  bool   `mapstructure:"hotOnly"`
	Open     bool   `mapstructure:"open"`
	Compress *bool  `mapstructure:"compress"`
	// Proxy is either a target URL string or a map of path prefix to
	// per-path options.
	Proxy any            `mapstructure:"proxy"`
	Extra map[string]any `mapstructure:",remain"`

	// Before registers project routes ahead of the built-in handlers.
	Before func(mux *http.ServeMux) `mapstructure:"-"`
}

// BundlerOptions selects the bundler executable.
type BundlerOptions struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// HistoryOptions controls the on-disk build event log.
type HistoryOptions struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// NotifyOptions configures the optional NATS event sink.
type NotifyOptions struct {
	NATSURL string `mapstructure:"natsUrl"`
	Subject string `mapstructure:"subject"`
}

// HashFilenames reports whether emitted filenames carry content hashes.
func (o *ProjectOptions) HashFilenames() bool {
	return o.FilenameHashing == nil || *o.FilenameHashing
}

// SourceMapInProduction reports whether production builds emit source maps.
func (o *ProjectOptions) SourceMapInProduction() bool {
	return o.ProductionSourceMap == nil || *o.ProductionSourceMap
}

// ExtractCSS reports whether stylesheets are extracted into files.
func (o *ProjectOptions) ExtractCSS(production bool) bool {
	switch v := o.CSS.Extract.(type) {
	case nil:
		return production
	case bool:
		return v
	default:
		return true
	}
}

// ExtractOptions returns user-supplied extraction plugin options.
func (o *ProjectOptions) ExtractOptions() map[string]any {
	if m, ok := o.CSS.Extract.(map[string]any); ok {
		return m
	}
	return nil
}
