// Package builtin holds the plugins shipped with river: the serve, build,
// inspect and history commands, and the core, css, dev, prod and app
// configuration plugins. Their order is fixed.
package builtin

import (
	"os"
	"path"
	"path/filepath"

	"github.com/river-cli/river/internal/config"
	"github.com/river-cli/river/internal/plugin"
)

// Plugin ids in application order.
const (
	IDServe   = plugin.BuiltInPrefix + "command/serve"
	IDBuild   = plugin.BuiltInPrefix + "command/build"
	IDInspect = plugin.BuiltInPrefix + "command/inspect"
	IDHistory = plugin.BuiltInPrefix + "command/history"
	IDCore    = plugin.BuiltInPrefix + "config/core"
	IDCSS     = plugin.BuiltInPrefix + "config/css"
	IDDev     = plugin.BuiltInPrefix + "config/dev"
	IDProd    = plugin.BuiltInPrefix + "config/prod"
	IDApp     = plugin.BuiltInPrefix + "config/app"
)

// Plugins returns the built-in plugins in application order. Command plugins
// come first, then the configuration plugins, so that later configuration
// plugins see the nodes created by earlier ones.
func Plugins() []plugin.Plugin {
	return []plugin.Plugin{
		{ID: IDServe, Apply: applyServe, DefaultModes: map[string]string{"serve": "development"}},
		{ID: IDBuild, Apply: applyBuild, DefaultModes: map[string]string{"build": "production"}},
		{ID: IDInspect, Apply: applyInspect, DefaultModes: map[string]string{"inspect": "development"}},
		{ID: IDHistory, Apply: applyHistory},
		{ID: IDCore, Apply: applyCore},
		{ID: IDCSS, Apply: applyCSS},
		{ID: IDDev, Apply: applyDev},
		{ID: IDProd, Apply: applyProd},
		{ID: IDApp, Apply: applyApp},
	}
}

// assetPath places p under the configured assets directory.
func assetPath(opts *config.ProjectOptions, p string) string {
	if opts.AssetsDir == "" {
		return p
	}
	return path.Join(opts.AssetsDir, p)
}

func hashSuffix(opts *config.ProjectOptions, pattern string) string {
	if !opts.HashFilenames() {
		return ""
	}
	return pattern
}

// findExisting returns the first of files present under dir.
func findExisting(dir string, files ...string) string {
	for _, f := range files {
		if _, err := os.Stat(filepath.Join(dir, f)); err == nil {
			return f
		}
	}
	return ""
}
