// Package chain implements the chainable build description that plugins
// mutate before it is finalized into a raw.Config. Every rule, use, plugin,
// minimizer and entry point is addressed by a stable name: asking for a name
// returns the existing node or creates it.
package chain

import (
	"maps"

	"github.com/river-cli/river/internal/buildplan"
	"github.com/river-cli/river/internal/raw"
)

// Func mutates the tree for the given pass.
type Func func(cfg *Config, plan buildplan.Plan)

// Config is the root of the chainable tree.
type Config struct {
	mode    string
	context string
	devtool raw.Devtool
	watch   bool

	entries collection[EntryPoint]
	plugins collection[Plugin]

	Output        *Output
	Resolve       *Resolve
	ResolveLoader *ResolveLoader
	Module        *Module
	Optimization  *Optimization
	DevServer     *Options
}

// New returns an empty tree.
func New() *Config {
	return &Config{
		Output:        &Output{},
		Resolve:       &Resolve{Extensions: &StringSet{}, Modules: &StringSet{}, Alias: &Alias{}},
		ResolveLoader: &ResolveLoader{Modules: &StringSet{}},
		Module:        &Module{},
		Optimization:  &Optimization{},
		DevServer:     &Options{},
	}
}

func (c *Config) SetMode(mode string) *Config   { c.mode = mode; return c }
func (c *Config) SetContext(dir string) *Config { c.context = dir; return c }
func (c *Config) SetWatch(watch bool) *Config   { c.watch = watch; return c }

// SetDevtool selects a source map style by name.
func (c *Config) SetDevtool(name string) *Config { c.devtool = raw.DevtoolName(name); return c }

// DisableDevtool turns source maps off; the bundler receives false.
func (c *Config) DisableDevtool() *Config { c.devtool = raw.Devtool{Disabled: true}; return c }

func (c *Config) Mode() string         { return c.mode }
func (c *Config) Context() string      { return c.context }
func (c *Config) Devtool() raw.Devtool { return c.devtool }

// Entry returns the named entry point, creating it when absent.
func (c *Config) Entry(name string) *EntryPoint {
	return c.entries.getOrCreate(name, func() *EntryPoint { return &EntryPoint{} })
}

// EntryNames lists entry points in declaration order.
func (c *Config) EntryNames() []string { return c.entries.names() }

// DeleteEntry removes the named entry point.
func (c *Config) DeleteEntry(name string) *Config {
	c.entries.remove(name)
	return c
}

// Plugin returns the named plugin registration, creating it when absent.
func (c *Config) Plugin(name string) *Plugin {
	return c.plugins.getOrCreate(name, func() *Plugin { return &Plugin{name: name} })
}

// HasPlugin reports whether a plugin is registered under name.
func (c *Config) HasPlugin(name string) bool { return c.plugins.has(name) }

// PluginNames lists plugin registrations in order.
func (c *Config) PluginNames() []string { return c.plugins.names() }

// DeletePlugin removes the named plugin registration.
func (c *Config) DeletePlugin(name string) *Config {
	c.plugins.remove(name)
	return c
}

// EntryPoint is an ordered list of modules.
type EntryPoint struct {
	StringSet
}

// Output is the output section.
type Output struct {
	path          string
	filename      string
	chunkFilename string
	publicPath    string
}

func (o *Output) SetPath(p string) *Output          { o.path = p; return o }
func (o *Output) SetFilename(f string) *Output      { o.filename = f; return o }
func (o *Output) SetChunkFilename(f string) *Output { o.chunkFilename = f; return o }
func (o *Output) SetPublicPath(p string) *Output    { o.publicPath = p; return o }

func (o *Output) Path() string          { return o.path }
func (o *Output) Filename() string      { return o.filename }
func (o *Output) ChunkFilename() string { return o.chunkFilename }
func (o *Output) PublicPath() string    { return o.publicPath }

// Resolve is the module resolution section.
type Resolve struct {
	Extensions *StringSet
	Modules    *StringSet
	Alias      *Alias
}

// ResolveLoader is the loader resolution section.
type ResolveLoader struct {
	Modules *StringSet
}

// Alias is an ordered alias table.
type Alias struct {
	keys   []string
	values map[string]string
}

// Set adds or replaces an alias.
func (a *Alias) Set(key, target string) *Alias {
	if a.values == nil {
		a.values = make(map[string]string)
	}
	if _, ok := a.values[key]; !ok {
		a.keys = append(a.keys, key)
	}
	a.values[key] = target
	return a
}

// Get returns the alias target.
func (a *Alias) Get(key string) (string, bool) {
	v, ok := a.values[key]
	return v, ok
}

// Options is a free-form option bag, used for the dev server section.
type Options struct {
	values map[string]any
}

// Set stores a value.
func (o *Options) Set(key string, value any) *Options {
	if o.values == nil {
		o.values = make(map[string]any)
	}
	o.values[key] = value
	return o
}

// Get returns a stored value.
func (o *Options) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Optimization is the optimization section.
type Optimization struct {
	minimize    *bool
	splitChunks map[string]any
	minimizers  collection[Plugin]
}

// SetMinimize toggles minification.
func (o *Optimization) SetMinimize(v bool) *Optimization {
	o.minimize = &v
	return o
}

// SetSplitChunks replaces the split chunks settings.
func (o *Optimization) SetSplitChunks(v map[string]any) *Optimization {
	o.splitChunks = v
	return o
}

// Minimizer returns the named minimizer, creating it when absent.
func (o *Optimization) Minimizer(name string) *Plugin {
	return o.minimizers.getOrCreate(name, func() *Plugin { return &Plugin{name: name} })
}

// MinimizerNames lists registered minimizers.
func (o *Optimization) MinimizerNames() []string { return o.minimizers.names() }

// Minimize returns the explicit minimize setting, if any.
func (o *Optimization) Minimize() (bool, bool) {
	if o.minimize == nil {
		return false, false
	}
	return *o.minimize, true
}

// Clone deep-copies the tree. Plugin argument values are copied one level
// deep; callers mutating nested argument maps should Tap instead.
func (c *Config) Clone() *Config {
	out := &Config{
		mode:    c.mode,
		context: c.context,
		devtool: c.devtool,
		watch:   c.watch,
		entries: c.entries.clone(func(e *EntryPoint) *EntryPoint {
			return &EntryPoint{StringSet: *e.StringSet.clone()}
		}),
		plugins: c.plugins.clone(clonePlugin),
		Output:  &Output{},
		Resolve: &Resolve{
			Extensions: c.Resolve.Extensions.clone(),
			Modules:    c.Resolve.Modules.clone(),
			Alias:      &Alias{keys: append([]string(nil), c.Resolve.Alias.keys...), values: maps.Clone(c.Resolve.Alias.values)},
		},
		ResolveLoader: &ResolveLoader{Modules: c.ResolveLoader.Modules.clone()},
		Module:        &Module{rules: c.Module.rules.clone(cloneRule)},
		Optimization: &Optimization{
			splitChunks: maps.Clone(c.Optimization.splitChunks),
			minimizers:  c.Optimization.minimizers.clone(clonePlugin),
		},
		DevServer: &Options{values: maps.Clone(c.DevServer.values)},
	}
	*out.Output = *c.Output
	if c.Optimization.minimize != nil {
		out.Optimization.SetMinimize(*c.Optimization.minimize)
	}
	return out
}

// ToConfig finalizes the tree. The result shares no mutable state with the
// tree.
func (c *Config) ToConfig() *raw.Config {
	cfg := &raw.Config{
		Mode:    c.mode,
		Context: c.context,
		Devtool: c.devtool,
		Watch:   c.watch,
		Output: raw.Output{
			Path:          c.Output.path,
			Filename:      c.Output.filename,
			ChunkFilename: c.Output.chunkFilename,
			PublicPath:    c.Output.publicPath,
		},
		Resolve: raw.Resolve{
			Extensions: c.Resolve.Extensions.Values(),
			Modules:    c.Resolve.Modules.Values(),
		},
		ResolveLoader: raw.ResolveLoader{Modules: c.ResolveLoader.Modules.Values()},
		DevServer:     maps.Clone(c.DevServer.values),
	}
	if len(c.Resolve.Alias.keys) > 0 {
		cfg.Resolve.Alias = maps.Clone(c.Resolve.Alias.values)
	}
	if names := c.entries.names(); len(names) > 0 {
		cfg.Entry.Named = make(map[string][]string, len(names))
		for _, name := range names {
			e, _ := c.entries.get(name)
			cfg.Entry.Named[name] = e.Values()
		}
	}
	for _, r := range c.Module.rules.values() {
		cfg.Module.Rules = append(cfg.Module.Rules, r.toRaw())
	}
	for _, p := range c.plugins.values() {
		cfg.Plugins = append(cfg.Plugins, p.toRaw())
	}
	if c.Optimization.minimize != nil {
		v := *c.Optimization.minimize
		cfg.Optimization.Minimize = &v
	}
	for _, p := range c.Optimization.minimizers.values() {
		cfg.Optimization.Minimizer = append(cfg.Optimization.Minimizer, p.toRaw())
	}
	cfg.Optimization.SplitChunks = maps.Clone(c.Optimization.splitChunks)
	return cfg.Clone()
}
