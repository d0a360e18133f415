package builtin

import (
	"os"
	"path/filepath"

	"github.com/river-cli/river/internal/buildplan"
	"github.com/river-cli/river/internal/chain"
	"github.com/river-cli/river/internal/config"
	"github.com/river-cli/river/internal/plugin"
)

// ChunksSortMode asks the html plugin to order injected chunks by
// dependency. river applies the same order with bundler.SortChunks.
const ChunksSortMode = "dependency"

func applyApp(api plugin.API, opts *config.ProjectOptions) error {
	api.ChainWebpack(func(cfg *chain.Config, _ buildplan.Plan) {
		production := api.IsProduction()
		outputDir := api.Resolve(opts.OutputDir)

		if production {
			cfg.Optimization.SetSplitChunks(map[string]any{
				"cacheGroups": map[string]any{
					"vendors": map[string]any{
						"name":     "chunk-vendors",
						"test":     `[\\/]node_modules[\\/]`,
						"priority": -10,
						"chunks":   "initial",
					},
					"common": map[string]any{
						"name":               "chunk-common",
						"minChunks":          2,
						"priority":           -20,
						"chunks":             "initial",
						"reuseExistingChunk": true,
					},
				},
			})
		}

		params := make(map[string]any)
		for k, v := range ClientEnv(api.Context(), opts) {
			params[k] = v
		}
		htmlOptions := map[string]any{
			"template":           api.Resolve("public", "index.html"),
			"templateParameters": params,
			"chunksSortMode":     ChunksSortMode,
		}

		if production {
			if opts.IndexPath != config.DefaultIndexPath {
				cfg.Plugin("move-index").Use("river/lib/MovePlugin",
					filepath.Join(outputDir, config.DefaultIndexPath),
					filepath.Join(outputDir, opts.IndexPath))
			}
			htmlOptions["minify"] = map[string]any{
				"removeComments":             true,
				"collapseWhitespace":         true,
				"removeAttributeQuotes":      true,
				"collapseBooleanAttributes":  true,
				"removeScriptTypeAttributes": true,
			}
			// Stable chunk ids keep async chunk hashes consistent.
			cfg.Plugin("named-chunks").Use("webpack/lib/NamedChunksPlugin")
		}

		cfg.Plugin("html").Use("html-webpack-plugin", htmlOptions)

		if production {
			cfg.Plugin("preload").Use("preload-webpack-plugin", map[string]any{
				"rel":           "preload",
				"include":       "initial",
				"fileBlacklist": []any{`\.map$`, `hot-update\.js$`},
			})
			cfg.Plugin("prefetch").Use("preload-webpack-plugin", map[string]any{
				"rel":     "prefetch",
				"include": "asyncChunks",
			})
		}

		if opts.Crossorigin != nil || opts.Integrity {
			cors := map[string]any{"integrity": opts.Integrity, "baseUrl": opts.BaseURL}
			if opts.Crossorigin != nil {
				cors["crossorigin"] = *opts.Crossorigin
			}
			cfg.Plugin("cors").Use("river/lib/CorsPlugin", cors)
		}

		publicDir := api.Resolve("public")
		if st, err := os.Stat(publicDir); err == nil && st.IsDir() {
			cfg.Plugin("copy").Use("copy-webpack-plugin", []any{map[string]any{
				"from":   publicDir,
				"to":     outputDir,
				"toType": "dir",
				"ignore": []any{config.DefaultIndexPath, ".DS_Store"},
			}})
		}
	})
	return nil
}
