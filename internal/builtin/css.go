package builtin

import (
	"maps"
	"strings"

	"github.com/river-cli/river/internal/buildplan"
	"github.com/river-cli/river/internal/chain"
	"github.com/river-cli/river/internal/config"
	"github.com/river-cli/river/internal/plugin"
)

var postCSSConfigs = []string{".postcssrc", ".postcssrc.js", "postcss.config.js", ".postcssrc.yaml", ".postcssrc.json"}

type cssLang struct {
	name    string
	test    string
	loader  string
	options map[string]any
}

func applyCSS(api plugin.API, opts *config.ProjectOptions) error {
	api.ChainWebpack(func(cfg *chain.Config, _ buildplan.Plan) {
		production := api.IsProduction()
		extract := opts.ExtractCSS(production)
		sourceMap := opts.CSS.SourceMap
		loaderOptions := opts.CSS.LoaderOptions

		filename := assetPath(opts, "css/[name]"+hashSuffix(opts, ".[contenthash:8]")+".css")
		extractOptions := map[string]any{"filename": filename, "chunkFilename": filename}
		maps.Copy(extractOptions, opts.ExtractOptions())

		// Extracted CSS refers to assets relative to its own location.
		extractedName, _ := extractOptions["filename"].(string)
		depth := len(strings.Split(strings.TrimPrefix(extractedName, "./"), "/")) - 1
		cssPublicPath := strings.Repeat("../", depth)

		hasPostCSS := findExisting(api.Context(), postCSSConfigs...) != ""

		langs := []cssLang{
			{name: "css", test: `\.css$`},
			{name: "scss", test: `\.scss$`, loader: "sass-loader", options: loaderOptions["sass"]},
			{name: "less", test: `\.less$`, loader: "less-loader", options: loaderOptions["less"]},
			{name: "stylus", test: `\.styl(us)?$`, loader: "stylus-loader",
				options: withDefaults(map[string]any{"preferPathResolver": "webpack"}, loaderOptions["stylus"])},
		}
		for _, lang := range langs {
			rule := cfg.Module.Rule(lang.name).SetTest(lang.test).OneOf("normal")

			if extract {
				rule.Use("extract-css-loader").Loader("mini-css-extract-plugin/dist/loader").
					Options(map[string]any{"publicPath": cssPublicPath})
			} else {
				rule.Use("style-loader").Loader("style-loader")
			}

			importLoaders := 0
			if hasPostCSS {
				importLoaders = 1
			}
			cssLoaderOptions := withDefaults(map[string]any{"sourceMap": sourceMap, "importLoaders": importLoaders}, loaderOptions["css"])
			if opts.CSS.Modules {
				cssLoaderOptions["modules"] = true
				if _, ok := cssLoaderOptions["localIdentName"]; !ok {
					cssLoaderOptions["localIdentName"] = "[name]_[local]_[hash:base64:5]"
				}
			}
			rule.Use("css-loader").Loader("css-loader").Options(cssLoaderOptions)

			if hasPostCSS {
				rule.Use("postcss-loader").Loader("postcss-loader").
					Options(withDefaults(map[string]any{"sourceMap": sourceMap}, loaderOptions["postcss"]))
			}
			if lang.loader != "" {
				rule.Use(lang.loader).Loader(lang.loader).
					Options(withDefaults(map[string]any{"sourceMap": sourceMap}, lang.options))
			}
		}

		if !extract {
			return
		}
		cfg.Plugin("extract-css").Use("mini-css-extract-plugin", extractOptions)
		if production {
			cssnano := map[string]any{
				"preset": []any{"default", map[string]any{"mergeLonghand": false, "cssDeclarationSorter": false}},
			}
			if opts.SourceMapInProduction() && sourceMap {
				cssnano["map"] = map[string]any{"inline": false}
			}
			cfg.Plugin("optimize-css").Use("@intervolga/optimize-cssnano-plugin", map[string]any{
				"sourceMap":      opts.SourceMapInProduction() && sourceMap,
				"cssnanoOptions": cssnano,
			})
		}
	})
	return nil
}

// withDefaults returns base overlaid with override.
func withDefaults(base, override map[string]any) map[string]any {
	out := maps.Clone(base)
	maps.Copy(out, override)
	return out
}
