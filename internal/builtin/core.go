package builtin

import (
	"github.com/river-cli/river/internal/buildplan"
	"github.com/river-cli/river/internal/chain"
	"github.com/river-cli/river/internal/config"
	"github.com/river-cli/river/internal/plugin"
)

const inlineLimit = 4096

var defaultExtensions = []string{".ts", ".tsx", ".mjs", ".js", ".jsx", ".json", ".wasm"}

func applyCore(api plugin.API, opts *config.ProjectOptions) error {
	api.ChainWebpack(func(cfg *chain.Config, plan buildplan.Plan) {
		filename := "[name].js"
		if plan.LegacyBundle() {
			filename = "[name]-legacy.js"
		}

		cfg.SetMode("development").SetContext(api.Context())
		cfg.Entry("app").Add(api.Resolve(entryModule(api, opts)))
		cfg.Output.
			SetPath(api.Resolve(opts.OutputDir)).
			SetFilename(filename).
			SetPublicPath(opts.BaseURL)

		cfg.Resolve.Extensions.Merge(defaultExtensions)
		cfg.Resolve.Modules.Add("node_modules").Add(api.Resolve("node_modules"))
		cfg.Resolve.Alias.Set("@", api.Resolve("src"))
		cfg.ResolveLoader.Modules.Add("node_modules").Add(api.Resolve("node_modules"))

		compile := cfg.Module.Rule("compile").SetTest(`\.(ts|tsx)$`)
		compile.Include.Add(api.Resolve("src"))
		compile.Use("ts-loader").Loader("ts-loader")

		cfg.Module.Rule("images").SetTest(`\.(png|jpe?g|gif|webp)(\?.*)?$`).
			Use("url-loader").Loader("url-loader").Options(urlLoaderOptions(opts, "img"))
		cfg.Module.Rule("media").SetTest(`\.(mp4|webm|ogg|mp3|wav|flac|aac)(\?.*)?$`).
			Use("url-loader").Loader("url-loader").Options(urlLoaderOptions(opts, "media"))
		cfg.Module.Rule("fonts").SetTest(`\.(woff2?|eot|ttf|otf|WOFF2?|EOT|TTF|OTF)(\?.*)?$`).
			Use("url-loader").Loader("url-loader").Options(urlLoaderOptions(opts, "fonts"))

		cfg.Plugin("define").Use("webpack/lib/DefinePlugin", DefineEnv(ClientEnv(api.Context(), opts)))
		cfg.Plugin("case-sensitive-paths").Use("case-sensitive-paths-webpack-plugin")
		cfg.Plugin("friendly-errors").Use("friendly-errors-webpack-plugin", map[string]any{
			"clearConsole": false,
		})
	})
	return nil
}

// entryModule is the configured entry, the first default entry present, or
// the first default entry when none exists yet. Commands check existence
// before building.
func entryModule(api plugin.API, opts *config.ProjectOptions) string {
	if entry, err := config.ResolveEntry(api.Context(), opts.Entry); err == nil {
		return entry
	}
	if opts.Entry != "" {
		return opts.Entry
	}
	return config.DefaultEntries[0]
}

func urlLoaderOptions(opts *config.ProjectOptions, dir string) map[string]any {
	return map[string]any{
		"limit": inlineLimit,
		"fallback": map[string]any{
			"loader": "file-loader",
			"options": map[string]any{
				"name": assetPath(opts, dir+"/[name]"+hashSuffix(opts, ".[hash:8]")+".[ext]"),
			},
		},
	}
}
