package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
)

// ValidateOptions checks opts against the option schema. Every violation is
// logged against source and the joined result is returned as a single
// validation error.
func ValidateOptions(opts *ProjectOptions, source string) error {
	v := &optionsValidator{opts: opts}
	v.validate()
	if len(v.problems) == 0 {
		return nil
	}
	for _, p := range v.problems {
		slog.Error("Invalid options", "source", source, "error", p)
	}
	return foundationerrors.ValidationError(fmt.Sprintf("invalid options in %s", source)).
		WithCause(errors.Join(v.problems...)).
		WithContext("source", source).
		WithContext("violations", len(v.problems)).
		Fatal().
		Build()
}

type optionsValidator struct {
	opts     *ProjectOptions
	problems []error
}

func (v *optionsValidator) fail(format string, args ...any) {
	v.problems = append(v.problems, fmt.Errorf(format, args...))
}

func (v *optionsValidator) validate() {
	v.validatePaths()
	v.validateSecurity()
	v.validateDevServer()
	v.validateBundler()
}

func (v *optionsValidator) validatePaths() {
	o := v.opts
	if IsAbsoluteURL(o.BaseURL) && !httpURL.MatchString(o.BaseURL) {
		v.fail(`"baseUrl" must be a path or an http(s) URL, got %q`, o.BaseURL)
	}
	if o.OutputDir == "" {
		v.fail(`"outputDir" must not be empty`)
	}
	if filepath.IsAbs(o.AssetsDir) {
		v.fail(`"assetsDir" must be relative to "outputDir", got %q`, o.AssetsDir)
	}
	if o.IndexPath == "" || filepath.IsAbs(o.IndexPath) {
		v.fail(`"indexPath" must be a relative path, got %q`, o.IndexPath)
	}
}

func (v *optionsValidator) validateSecurity() {
	if c := v.opts.Crossorigin; c != nil {
		switch *c {
		case "", "anonymous", "use-credentials":
		default:
			v.fail(`"crossorigin" must be one of "", "anonymous", "use-credentials", got %q`, *c)
		}
	}
}

func (v *optionsValidator) validateDevServer() {
	ds := v.opts.DevServer
	if ds.Port < 0 || ds.Port > 65535 {
		v.fail(`"devServer.port" must be between 0 and 65535, got %d`, ds.Port)
	}
	switch p := ds.Proxy.(type) {
	case nil, string:
	case map[string]any:
		for path, entry := range p {
			switch entry.(type) {
			case string, map[string]any:
			default:
				v.fail(`"devServer.proxy.%s" must be a string or an object`, path)
			}
		}
	default:
		v.fail(`"devServer.proxy" must be a string or an object, got %T`, ds.Proxy)
	}
	switch v.opts.CSS.Extract.(type) {
	case nil, bool, map[string]any:
	default:
		v.fail(`"css.extract" must be a boolean or an object`)
	}
}

func (v *optionsValidator) validateBundler() {
	if v.opts.Bundler.Command == "" {
		v.fail(`"bundler.command" must not be empty`)
	}
}
