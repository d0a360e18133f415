// Package raw holds the finalized, bundler-consumable build description and
// the structural merge applied on top of it by raw-config hooks.
package raw

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
)

// Config is the finalized build description handed to the bundler.
type Config struct {
	Mode          string         `json:"mode,omitempty"`
	Context       string         `json:"context,omitempty"`
	Devtool       Devtool        `json:"devtool,omitzero"`
	Entry         Entry          `json:"entry"`
	Output        Output         `json:"output"`
	Resolve       Resolve        `json:"resolve"`
	ResolveLoader ResolveLoader  `json:"resolveLoader"`
	Module        Module         `json:"module"`
	Plugins       []Plugin       `json:"plugins,omitempty"`
	Optimization  Optimization   `json:"optimization"`
	DevServer     map[string]any `json:"devServer,omitempty"`
	Watch         bool           `json:"watch,omitempty"`

	// Extra carries top-level keys this package does not model. They are
	// emitted alongside the modelled fields when encoding.
	Extra map[string]any `json:"-" mapstructure:",remain"`
}

// Devtool selects the source map style. The zero value leaves the choice to
// the bundler. Disabled encodes as false.
type Devtool struct {
	Name     string
	Disabled bool
}

// DevtoolName selects the named source map style.
func DevtoolName(name string) Devtool { return Devtool{Name: name} }

// IsZero reports whether neither a name nor Disabled is set.
func (d Devtool) IsZero() bool { return d.Name == "" && !d.Disabled }

func (d Devtool) String() string {
	if d.Disabled {
		return "false"
	}
	return d.Name
}

// MarshalJSON encodes a disabled devtool as false and otherwise the name.
func (d Devtool) MarshalJSON() ([]byte, error) {
	if d.Disabled {
		return []byte("false"), nil
	}
	return json.Marshal(d.Name)
}

// Output mirrors the bundler's output section.
type Output struct {
	Path          string `json:"path,omitempty"`
	Filename      string `json:"filename,omitempty"`
	ChunkFilename string `json:"chunkFilename,omitempty"`
	PublicPath    string `json:"publicPath"`
}

// Resolve mirrors the bundler's module resolution section.
type Resolve struct {
	Extensions []string          `json:"extensions,omitempty"`
	Modules    []string          `json:"modules,omitempty"`
	Alias      map[string]string `json:"alias,omitempty"`
}

// ResolveLoader mirrors the bundler's loader resolution section.
type ResolveLoader struct {
	Modules []string `json:"modules,omitempty"`
}

// Module holds the ordered rule list.
type Module struct {
	Rules []Rule `json:"rules,omitempty"`
}

// Rule is a finalized module rule. Names records the chain path under which
// the rule was declared; it is part of the node rather than a side channel, so
// a structural merge keeps it.
type Rule struct {
	Names   []string `json:"-" mapstructure:"-"`
	Test    string   `json:"test,omitempty"`
	Include []string `json:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
	OneOf   []Rule   `json:"oneOf,omitempty"`
	Use     []Use    `json:"use,omitempty"`
}

// Name returns the rule's declared path joined with "/".
func (r Rule) Name() string {
	return strings.Join(r.Names, "/")
}

// Use is a single loader application within a rule.
type Use struct {
	Name    string         `json:"-" mapstructure:"-"`
	Loader  string         `json:"loader"`
	Options map[string]any `json:"options,omitempty"`
}

// Plugin is a bundler plugin registration. Kind identifies the plugin
// implementation to the bundler, Name is the key it was registered under.
type Plugin struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Args []any  `json:"args,omitempty"`
}

// Optimization mirrors the bundler's optimization section.
type Optimization struct {
	Minimize    *bool          `json:"minimize,omitempty"`
	Minimizer   []Plugin       `json:"minimizer,omitempty"`
	SplitChunks map[string]any `json:"splitChunks,omitempty"`
}

// Func is a raw-config hook. It may mutate cfg in place and return nil, or
// return a patch that is deep-merged on top of cfg.
type Func func(cfg *Config) (*Config, error)

// MarshalJSON encodes the modelled fields and then the Extra keys. Modelled
// fields win on key collisions.
func (c Config) MarshalJSON() ([]byte, error) {
	type plain Config
	data, err := json.Marshal(plain(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return data, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	for k, v := range c.Extra {
		if _, exists := fields[k]; !exists {
			fields[k] = v
		}
	}
	return json.Marshal(fields)
}

// Clone returns a deep copy of c. Function-valued entries are shared.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	out.Entry = c.Entry.Clone()
	out.Resolve.Extensions = slices.Clone(c.Resolve.Extensions)
	out.Resolve.Modules = slices.Clone(c.Resolve.Modules)
	out.Resolve.Alias = maps.Clone(c.Resolve.Alias)
	out.ResolveLoader.Modules = slices.Clone(c.ResolveLoader.Modules)
	out.Module.Rules = cloneRules(c.Module.Rules)
	out.Plugins = clonePlugins(c.Plugins)
	if c.Optimization.Minimize != nil {
		v := *c.Optimization.Minimize
		out.Optimization.Minimize = &v
	}
	out.Optimization.Minimizer = clonePlugins(c.Optimization.Minimizer)
	out.Optimization.SplitChunks = cloneMap(c.Optimization.SplitChunks)
	out.DevServer = cloneMap(c.DevServer)
	out.Extra = cloneMap(c.Extra)
	return &out
}

func cloneRules(rules []Rule) []Rule {
	if rules == nil {
		return nil
	}
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = Rule{
			Names:   slices.Clone(r.Names),
			Test:    r.Test,
			Include: slices.Clone(r.Include),
			Exclude: slices.Clone(r.Exclude),
			OneOf:   cloneRules(r.OneOf),
		}
		if r.Use != nil {
			out[i].Use = make([]Use, len(r.Use))
			for j, u := range r.Use {
				out[i].Use[j] = Use{Name: u.Name, Loader: u.Loader, Options: cloneMap(u.Options)}
			}
		}
	}
	return out
}

func clonePlugins(plugins []Plugin) []Plugin {
	if plugins == nil {
		return nil
	}
	out := make([]Plugin, len(plugins))
	for i, p := range plugins {
		out[i] = Plugin{Name: p.Name, Kind: p.Kind, Args: cloneSlice(p.Args)}
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneSlice(s []any) []any {
	if s == nil {
		return nil
	}
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		return cloneSlice(t)
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}
