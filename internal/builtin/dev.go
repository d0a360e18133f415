package builtin

import (
	"github.com/river-cli/river/internal/buildplan"
	"github.com/river-cli/river/internal/chain"
	"github.com/river-cli/river/internal/config"
	"github.com/river-cli/river/internal/plugin"
)

func applyDev(api plugin.API, _ *config.ProjectOptions) error {
	api.ChainWebpack(func(cfg *chain.Config, _ buildplan.Plan) {
		if api.IsProduction() {
			return
		}
		cfg.SetDevtool("cheap-module-eval-source-map")
		cfg.Plugin("hmr").Use("webpack/lib/HotModuleReplacementPlugin")
		cfg.Plugin("no-emit-on-errors").Use("webpack/lib/NoEmitOnErrorsPlugin")
	})
	return nil
}
