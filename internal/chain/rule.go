package chain

import (
	"maps"
	"slices"

	"github.com/river-cli/river/internal/raw"
)

// Module holds named rules.
type Module struct {
	rules collection[Rule]
}

// Rule returns the named rule, creating it when absent.
func (m *Module) Rule(name string) *Rule {
	return m.rules.getOrCreate(name, func() *Rule { return newRule([]string{name}) })
}

// HasRule reports whether a rule is declared under name.
func (m *Module) HasRule(name string) bool { return m.rules.has(name) }

// RuleNames lists rules in declaration order.
func (m *Module) RuleNames() []string { return m.rules.names() }

// DeleteRule removes the named rule.
func (m *Module) DeleteRule(name string) *Module {
	m.rules.remove(name)
	return m
}

// Rule is a named module rule with named uses and named oneOf groups.
type Rule struct {
	names   []string
	test    string
	Include *StringSet
	Exclude *StringSet
	uses    collection[Use]
	oneOfs  collection[Rule]
}

func newRule(names []string) *Rule {
	return &Rule{names: names, Include: &StringSet{}, Exclude: &StringSet{}}
}

// Names returns the declared path of the rule.
func (r *Rule) Names() []string { return slices.Clone(r.names) }

// SetTest sets the match pattern (a regular expression source).
func (r *Rule) SetTest(pattern string) *Rule {
	r.test = pattern
	return r
}

// Test returns the match pattern.
func (r *Rule) Test() string { return r.test }

// Use returns the named loader use, creating it when absent.
func (r *Rule) Use(name string) *Use {
	return r.uses.getOrCreate(name, func() *Use { return &Use{name: name} })
}

// HasUse reports whether a use is declared under name.
func (r *Rule) HasUse(name string) bool { return r.uses.has(name) }

// UseNames lists uses in declaration order.
func (r *Rule) UseNames() []string { return r.uses.names() }

// OneOf returns the named nested rule group, creating it when absent.
func (r *Rule) OneOf(name string) *Rule {
	return r.oneOfs.getOrCreate(name, func() *Rule {
		return newRule(append(slices.Clone(r.names), name))
	})
}

// OneOfNames lists nested groups in declaration order.
func (r *Rule) OneOfNames() []string { return r.oneOfs.names() }

func (r *Rule) toRaw() raw.Rule {
	out := raw.Rule{
		Names:   slices.Clone(r.names),
		Test:    r.test,
		Include: r.Include.Values(),
		Exclude: r.Exclude.Values(),
	}
	for _, u := range r.uses.values() {
		out.Use = append(out.Use, raw.Use{Name: u.name, Loader: u.loader, Options: maps.Clone(u.options)})
	}
	for _, nested := range r.oneOfs.values() {
		out.OneOf = append(out.OneOf, nested.toRaw())
	}
	if len(out.Include) == 0 {
		out.Include = nil
	}
	if len(out.Exclude) == 0 {
		out.Exclude = nil
	}
	return out
}

func cloneRule(r *Rule) *Rule {
	return &Rule{
		names:   slices.Clone(r.names),
		test:    r.test,
		Include: r.Include.clone(),
		Exclude: r.Exclude.clone(),
		uses: r.uses.clone(func(u *Use) *Use {
			return &Use{name: u.name, loader: u.loader, options: maps.Clone(u.options)}
		}),
		oneOfs: r.oneOfs.clone(cloneRule),
	}
}

// Use is a named loader application.
type Use struct {
	name    string
	loader  string
	options map[string]any
}

// Loader sets the loader module.
func (u *Use) Loader(loader string) *Use {
	u.loader = loader
	return u
}

// Options replaces the loader options.
func (u *Use) Options(options map[string]any) *Use {
	u.options = options
	return u
}

// Tap replaces the options with fn's result.
func (u *Use) Tap(fn func(map[string]any) map[string]any) *Use {
	u.options = fn(maps.Clone(u.options))
	return u
}

// LoaderName returns the loader module.
func (u *Use) LoaderName() string { return u.loader }

// GetOptions returns a copy of the loader options.
func (u *Use) GetOptions() map[string]any { return maps.Clone(u.options) }
