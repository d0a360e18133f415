package builtin

import (
	"github.com/river-cli/river/internal/buildplan"
	"github.com/river-cli/river/internal/chain"
	"github.com/river-cli/river/internal/config"
	"github.com/river-cli/river/internal/plugin"
)

func applyProd(api plugin.API, opts *config.ProjectOptions) error {
	api.ChainWebpack(func(cfg *chain.Config, plan buildplan.Plan) {
		if !api.IsProduction() {
			return
		}
		legacy := ""
		if plan.LegacyBundle() {
			legacy = "-legacy"
		}
		filename := assetPath(opts, "js/[name]"+legacy+hashSuffix(opts, ".[contenthash:8]")+".js")

		cfg.SetMode("production")
		if opts.SourceMapInProduction() {
			cfg.SetDevtool("source-map")
		} else {
			cfg.DisableDevtool()
		}
		cfg.Output.SetFilename(filename).SetChunkFilename(filename)

		// Stable module ids while vendor modules do not change.
		cfg.Plugin("hash-module-ids").Use("webpack/lib/HashedModuleIdsPlugin", map[string]any{"hashDigest": "hex"})

		if api.TestMode() {
			cfg.Optimization.SetMinimize(false)
			return
		}
		cfg.Optimization.Minimizer("terser").Use("terser-webpack-plugin", terserOptions(opts))
	})
	return nil
}

func terserOptions(opts *config.ProjectOptions) map[string]any {
	return map[string]any{
		"terserOptions": map[string]any{
			"compress": map[string]any{
				"arrows":         false,
				"collapse_vars":  false,
				"comparisons":    false,
				"computed_props": false,
				"hoist_funs":     false,
				"hoist_props":    false,
				"hoist_vars":     false,
				"inline":         false,
				"loops":          false,
				"negate_iife":    false,
				"properties":     false,
				"reduce_funcs":   false,
				"reduce_vars":    false,
				"switches":       false,
				"toplevel":       false,
				"typeofs":        false,
				"booleans":       true,
				"if_return":      true,
				"sequences":      true,
				"unused":         true,
				"conditionals":   true,
				"dead_code":      true,
				"evaluate":       true,
			},
			"mangle": map[string]any{"safari10": true},
		},
		"sourceMap": opts.SourceMapInProduction(),
		"cache":     true,
		"parallel":  true,
	}
}
