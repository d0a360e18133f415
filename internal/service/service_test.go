package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/river-cli/river/internal/buildplan"
	"github.com/river-cli/river/internal/bundler"
	"github.com/river-cli/river/internal/chain"
	"github.com/river-cli/river/internal/config"
	"github.com/river-cli/river/internal/console"
	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
	"github.com/river-cli/river/internal/plugin"
	"github.com/river-cli/river/internal/raw"
)

func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"NODE_ENV", "BABEL_ENV", config.EnvTestMode, config.EnvTestingNodeEnv} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

// basePlugin sets the fields every resolved config needs.
var basePlugin = plugin.Plugin{
	ID: "test:base",
	Apply: func(api plugin.API, opts *config.ProjectOptions) error {
		api.ChainWebpack(func(cfg *chain.Config, _ buildplan.Plan) {
			cfg.SetMode("development").SetContext(api.Context())
			cfg.Output.SetPublicPath(opts.BaseURL)
			cfg.Module.Rule("js").SetTest(`\.js$`).Use("babel").Loader("babel-loader")
			cfg.Module.Rule("css").OneOf("normal").Use("css").Loader("css-loader")
		})
		return nil
	},
}

func newService(t *testing.T, opts Options) (*Service, *bytes.Buffer) {
	t.Helper()
	cleanEnv(t)
	var out bytes.Buffer
	opts.Console = console.New(&out)
	if opts.Bundler == nil {
		opts.Bundler = &bundler.Fake{}
	}
	s, err := New(t.TempDir(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, &out
}

func TestPluginsApplyInOrderWithUserHookLast(t *testing.T) {
	var order []string
	record := func(id string) plugin.Plugin {
		return plugin.Plugin{ID: id, Apply: func(api plugin.API, _ *config.ProjectOptions) error {
			api.ChainWebpack(func(cfg *chain.Config, _ buildplan.Plan) {
				order = append(order, id)
				cfg.Plugin("html").Use("html", map[string]any{"template": id})
			})
			return nil
		}}
	}
	inline := &config.ProjectOptions{
		ChainWebpack: func(cfg *chain.Config, _ buildplan.Plan) {
			order = append(order, "user")
			assert.Equal(t, "second", cfg.Plugin("html").Args()[0].(map[string]any)["template"])
			cfg.Plugin("html").Tap(func(args []any) []any {
				return []any{map[string]any{"template": "user"}}
			})
		},
	}
	s, _ := newService(t, Options{
		BuiltIns:      []plugin.Plugin{basePlugin, record("first")},
		Plugins:       []plugin.Plugin{record("second")},
		InlineOptions: inline,
	})
	require.NoError(t, s.Init("development"))

	cfg, err := s.ResolveConfig(buildplan.Plan{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "user"}, order)
	p, ok := cfg.FindPlugin("html")
	require.True(t, ok)
	assert.Equal(t, "user", p.Args[0].(map[string]any)["template"])
}

func TestInitIsIdempotent(t *testing.T) {
	applied := 0
	counter := plugin.Plugin{ID: "test:count", Apply: func(plugin.API, *config.ProjectOptions) error {
		applied++
		return nil
	}}
	s, _ := newService(t, Options{Plugins: []plugin.Plugin{counter}, DisableBuiltIn: true})
	require.NoError(t, s.Init("production"))
	require.NoError(t, s.Init("development"))
	assert.Equal(t, 1, applied)
	assert.Equal(t, "production", s.Mode())
}

func TestFailedInitLeavesNothingBehind(t *testing.T) {
	fail := true
	flaky := plugin.Plugin{ID: "test:flaky", Apply: func(api plugin.API, _ *config.ProjectOptions) error {
		api.RegisterCommand(plugin.Command{Name: "greet", Run: func(context.Context, plugin.Args) error { return nil }})
		api.ChainWebpack(func(*chain.Config, buildplan.Plan) {})
		if fail {
			return errors.New("not yet")
		}
		return nil
	}}
	inline := &config.ProjectOptions{History: config.HistoryOptions{Enabled: true}}
	s, _ := newService(t, Options{Plugins: []plugin.Plugin{flaky}, DisableBuiltIn: true, InlineOptions: inline})

	require.Error(t, s.Init("development"))
	assert.Empty(t, s.Commands())
	assert.Empty(t, s.chainFns)
	assert.Nil(t, s.events)

	fail = false
	require.NoError(t, s.Init("development"))
	require.Len(t, s.Commands(), 1)
	assert.Equal(t, "greet", s.Commands()[0].Name)
	assert.Len(t, s.chainFns, 1)
	require.NotNil(t, s.events)
	require.NoError(t, s.Close())
}

func TestPluginApplyErrorNamesPlugin(t *testing.T) {
	broken := plugin.Plugin{ID: "test:broken", Apply: func(plugin.API, *config.ProjectOptions) error {
		return errors.New("boom")
	}}
	s, _ := newService(t, Options{Plugins: []plugin.Plugin{broken}})
	err := s.Init("development")
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryPlugin))
	assert.Contains(t, err.Error(), "test:broken")
}

func TestRunUnknownCommandFails(t *testing.T) {
	s, _ := newService(t, Options{BuiltIns: []plugin.Plugin{basePlugin}})
	err := s.Run(context.Background(), "nope", plugin.Args{})
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryResolution))
	assert.Contains(t, err.Error(), `command "nope" does not exist.`)
}

func greeter(ran *plugin.Args) plugin.Plugin {
	return plugin.Plugin{
		ID:           "test:greet",
		DefaultModes: map[string]string{"greet": "production"},
		Apply: func(api plugin.API, _ *config.ProjectOptions) error {
			api.RegisterCommand(plugin.Command{
				Name:        "greet",
				Description: "say hello",
				Options:     []plugin.Option{{Flag: "--loud", Description: "shout"}},
				Run: func(_ context.Context, args plugin.Args) error {
					*ran = args
					return nil
				},
			})
			return nil
		},
	}
}

func TestRunWithoutNameShowsHelp(t *testing.T) {
	var ran plugin.Args
	s, out := newService(t, Options{Plugins: []plugin.Plugin{greeter(&ran)}})
	require.NoError(t, s.Run(context.Background(), "", plugin.Args{}))
	assert.Contains(t, out.String(), "Usage: river <command> [options]")
	assert.Contains(t, out.String(), "greet")
	assert.Nil(t, ran.Flags)
}

func TestRunHelpForCommand(t *testing.T) {
	var ran plugin.Args
	s, out := newService(t, Options{Plugins: []plugin.Plugin{greeter(&ran)}})
	require.NoError(t, s.Run(context.Background(), "help", plugin.Args{Positional: []string{"greet"}}))
	assert.Contains(t, out.String(), "Usage: river greet [options]")
	assert.Contains(t, out.String(), "--loud")
}

func TestRunDefaultsToDevelopmentMode(t *testing.T) {
	var ran plugin.Args
	s, _ := newService(t, Options{Plugins: []plugin.Plugin{greeter(&ran)}})
	require.NoError(t, s.Run(context.Background(), "greet", plugin.Args{Flags: map[string]string{"loud": ""}}))
	assert.Equal(t, "development", s.Mode())
	assert.True(t, ran.Bool("loud", false))
	assert.Equal(t, "development", os.Getenv("NODE_ENV"))
	assert.Equal(t, "production", s.DefaultMode("greet"))
}

func TestRunUsesExplicitMode(t *testing.T) {
	var ran plugin.Args
	s, _ := newService(t, Options{Plugins: []plugin.Plugin{greeter(&ran)}})
	require.NoError(t, s.Run(context.Background(), "greet", plugin.Args{Mode: "production"}))
	assert.Equal(t, "production", s.Mode())
	assert.Equal(t, "production", os.Getenv("NODE_ENV"))
}

func TestHelpShowsUsualMode(t *testing.T) {
	var ran plugin.Args
	s, out := newService(t, Options{Plugins: []plugin.Plugin{greeter(&ran)}})
	require.NoError(t, s.Run(context.Background(), "help", plugin.Args{Positional: []string{"greet"}}))
	assert.Contains(t, out.String(), "Usually run with --mode production.")
}

func TestResolveModeRules(t *testing.T) {
	assert.Equal(t, "test", resolveMode(plugin.Args{Mode: "test"}))
	assert.Equal(t, DefaultMode, resolveMode(plugin.Args{}))
	assert.Equal(t, DefaultMode, resolveMode(plugin.Args{Flags: map[string]string{"watch": ""}}))
}

func TestResolveConfigFailsBeforeInit(t *testing.T) {
	s, _ := newService(t, Options{})
	_, err := s.ResolveConfig(buildplan.Plan{}, nil)
	require.Error(t, err)
	_, err = s.ResolveChainableConfig(buildplan.Plan{})
	require.Error(t, err)
}

func TestResolveConfigIsIdempotent(t *testing.T) {
	s, _ := newService(t, Options{BuiltIns: []plugin.Plugin{basePlugin}})
	require.NoError(t, s.Init("development"))
	a, err := s.ResolveConfig(buildplan.Plan{}, nil)
	require.NoError(t, err)
	b, err := s.ResolveConfig(buildplan.Plan{}, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRawHookMergeKeepsRuleNames(t *testing.T) {
	inline := &config.ProjectOptions{
		ConfigureWebpackFunc: func(cfg *raw.Config) (*raw.Config, error) {
			cfg.Devtool = raw.DevtoolName("source-map")
			return &raw.Config{Module: raw.Module{Rules: []raw.Rule{{Test: `\.vue$`}}}}, nil
		},
	}
	s, _ := newService(t, Options{BuiltIns: []plugin.Plugin{basePlugin}, InlineOptions: inline})
	require.NoError(t, s.Init("development"))

	cfg, err := s.ResolveConfig(buildplan.Plan{}, nil)
	require.NoError(t, err)
	require.Len(t, cfg.Module.Rules, 3)
	assert.Equal(t, []string{"js"}, cfg.Module.Rules[0].Names)
	assert.Equal(t, []string{"css"}, cfg.Module.Rules[1].Names)
	assert.Equal(t, []string{"css", "normal"}, cfg.Module.Rules[1].OneOf[0].Names)
	assert.Empty(t, cfg.Module.Rules[2].Names)
	assert.Equal(t, raw.DevtoolName("source-map"), cfg.Devtool)
}

func TestLiteralConfigureWebpackFromFile(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "river.config.yaml"), []byte(`
configureWebpack:
  resolve:
    extensions: [".vue"]
  performance:
    hints: false
`), 0o600))
	s, err := New(dir, Options{BuiltIns: []plugin.Plugin{basePlugin}, Bundler: &bundler.Fake{}, Console: console.Discard()})
	require.NoError(t, err)
	require.NoError(t, s.Init("development"))

	cfg, err := s.ResolveConfig(buildplan.Plan{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{".vue"}, cfg.Resolve.Extensions)
	assert.Equal(t, map[string]any{"hints": false}, cfg.Extra["performance"])
	assert.Equal(t, "river.config.yaml", s.OptionsSource())
}

func TestLiteralConfigureWebpackFalseOverrides(t *testing.T) {
	cleanEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "river.config.yaml"), []byte(`
configureWebpack:
  devtool: false
  optimization:
    minimize: false
`), 0o600))
	sourceMaps := plugin.Plugin{ID: "test:maps", Apply: func(api plugin.API, _ *config.ProjectOptions) error {
		api.ChainWebpack(func(cfg *chain.Config, _ buildplan.Plan) {
			cfg.SetDevtool("source-map")
			cfg.Optimization.SetMinimize(true)
		})
		return nil
	}}
	s, err := New(dir, Options{BuiltIns: []plugin.Plugin{basePlugin, sourceMaps}, Bundler: &bundler.Fake{}, Console: console.Discard()})
	require.NoError(t, err)
	require.NoError(t, s.Init("development"))

	cfg, err := s.ResolveConfig(buildplan.Plan{}, nil)
	require.NoError(t, err)
	assert.Equal(t, raw.Devtool{Disabled: true}, cfg.Devtool)
	require.NotNil(t, cfg.Optimization.Minimize)
	assert.False(t, *cfg.Optimization.Minimize)
	assert.Equal(t, []string{"js"}, cfg.Module.Rules[0].Names)
}

func TestPublicPathInvariant(t *testing.T) {
	tamper := &config.ProjectOptions{
		BaseURL: "/app/",
		ChainWebpack: func(cfg *chain.Config, _ buildplan.Plan) {
			cfg.Output.SetPublicPath("/cdn/")
		},
	}
	s, _ := newService(t, Options{BuiltIns: []plugin.Plugin{basePlugin}, InlineOptions: tamper})
	require.NoError(t, s.Init("production"))

	_, err := s.ResolveConfig(buildplan.Single(buildplan.TargetApp, true), nil)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
	assert.Contains(t, err.Error(), "baseUrl")

	cfg, err := s.ResolveConfig(buildplan.Single("lib", true), nil)
	require.NoError(t, err)
	assert.Equal(t, "/cdn/", cfg.Output.PublicPath)

	t.Setenv(config.EnvTestMode, "1")
	_, err = s.ResolveConfig(buildplan.Plan{}, nil)
	require.NoError(t, err)
}

func TestPublicPathMatchesBaseURL(t *testing.T) {
	s, _ := newService(t, Options{BuiltIns: []plugin.Plugin{basePlugin}, InlineOptions: &config.ProjectOptions{BaseURL: "app/"}})
	require.NoError(t, s.Init("production"))
	cfg, err := s.ResolveConfig(buildplan.Plan{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "/app/", cfg.Output.PublicPath)
}

func TestHistorySinkIsOpened(t *testing.T) {
	s, _ := newService(t, Options{InlineOptions: &config.ProjectOptions{History: config.HistoryOptions{Enabled: true}}})
	require.NoError(t, s.Init("development"))
	assert.FileExists(t, s.Resolve(config.DefaultHistoryPath))
}
