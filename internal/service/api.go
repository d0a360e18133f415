package service

import (
	"github.com/river-cli/river/internal/buildplan"
	"github.com/river-cli/river/internal/bundler"
	"github.com/river-cli/river/internal/chain"
	"github.com/river-cli/river/internal/config"
	"github.com/river-cli/river/internal/console"
	"github.com/river-cli/river/internal/metrics"
	"github.com/river-cli/river/internal/notify"
	"github.com/river-cli/river/internal/plugin"
	"github.com/river-cli/river/internal/raw"
)

// pluginAPI is the handle a plugin receives. Registrations go to the shared
// service; the handle only adds the plugin id.
type pluginAPI struct {
	service *Service
	id      string
}

var _ plugin.API = (*pluginAPI)(nil)

// API returns a handle on s for code acting on behalf of plugin id.
func (s *Service) API(id string) plugin.API { return &pluginAPI{service: s, id: id} }

func (a *pluginAPI) ID() string                      { return a.id }
func (a *pluginAPI) Mode() string                    { return a.service.mode }
func (a *pluginAPI) Context() string                 { return a.service.context }
func (a *pluginAPI) Resolve(elem ...string) string   { return a.service.Resolve(elem...) }
func (a *pluginAPI) IsProduction() bool              { return config.IsProduction() }
func (a *pluginAPI) TestMode() bool                  { return a.service.TestMode() }
func (a *pluginAPI) Options() *config.ProjectOptions { return a.service.projectOptions }

func (a *pluginAPI) RegisterCommand(cmd plugin.Command) { a.service.registerCommand(a.id, cmd) }
func (a *pluginAPI) ChainWebpack(fn chain.Func)         { a.service.chainFns = append(a.service.chainFns, fn) }
func (a *pluginAPI) ConfigureWebpack(hook plugin.RawHook) {
	a.service.rawFns = append(a.service.rawFns, hook)
}
func (a *pluginAPI) ConfigureDevServer(fn plugin.DevServerFunc) {
	a.service.devServerFns = append(a.service.devServerFns, fn)
}

func (a *pluginAPI) ResolveChainableConfig(plan buildplan.Plan) (*chain.Config, error) {
	return a.service.ResolveChainableConfig(plan)
}

func (a *pluginAPI) ResolveConfig(plan buildplan.Plan, tree *chain.Config) (*raw.Config, error) {
	return a.service.ResolveConfig(plan, tree)
}

func (a *pluginAPI) DevServerHooks() []plugin.DevServerFunc {
	return append([]plugin.DevServerFunc(nil), a.service.devServerFns...)
}
func (a *pluginAPI) Commands() []plugin.Command { return a.service.Commands() }
func (a *pluginAPI) Plugins() []plugin.Plugin   { return a.service.Plugins() }

func (a *pluginAPI) Bundler() bundler.Bundler  { return a.service.bundler }
func (a *pluginAPI) Console() *console.Console { return a.service.console }
func (a *pluginAPI) Events() notify.Publisher  { return a.service.Events() }
func (a *pluginAPI) Metrics() metrics.Recorder { return a.service.metrics }

// TestMode reports whether the CLI runs under its own test harness.
func (s *Service) TestMode() bool { return config.IsTestMode() }
