package raw

// NamedRule pairs a rule with its declared path.
type NamedRule struct {
	Name string
	Rule Rule
}

// Rules flattens the rule tree depth first, oneOf groups after their parent.
func (c *Config) Rules() []NamedRule {
	var out []NamedRule
	var walk func(rules []Rule)
	walk = func(rules []Rule) {
		for _, r := range rules {
			out = append(out, NamedRule{Name: r.Name(), Rule: r})
			walk(r.OneOf)
		}
	}
	walk(c.Module.Rules)
	return out
}

// FindRule returns the rule declared under name, e.g. "css" or "css/normal".
func (c *Config) FindRule(name string) (Rule, bool) {
	for _, nr := range c.Rules() {
		if nr.Name == name {
			return nr.Rule, true
		}
	}
	return Rule{}, false
}

// PluginNames lists plugin registrations in order.
func (c *Config) PluginNames() []string {
	out := make([]string, 0, len(c.Plugins))
	for _, p := range c.Plugins {
		out = append(out, p.Name)
	}
	return out
}

// FindPlugin returns the plugin registered under name.
func (c *Config) FindPlugin(name string) (Plugin, bool) {
	for _, p := range c.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return Plugin{}, false
}
