// Package inspect renders the finalized build configuration for the inspect
// command.
package inspect

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/river-cli/river/internal/buildplan"
	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
	"github.com/river-cli/river/internal/plugin"
	"github.com/river-cli/river/internal/raw"
)

// RuleNamesKey annotates rules with their declared path in verbose output.
const RuleNamesKey = "__ruleNames"

// Options select what to render.
type Options struct {
	// Paths are dot-separated selectors into the config, e.g. "resolve.alias"
	// or "module.rules.0".
	Paths   []string
	Rules   bool
	Plugins bool
	Rule    string
	Plugin  string
	// Verbose annotates every rule with its declared path.
	Verbose bool
	// Target picks the build target to resolve. Defaults to app.
	Target string
}

// Inspect resolves the config through api and renders the selection as
// indented JSON.
func Inspect(api plugin.API, opts Options) (string, error) {
	target := opts.Target
	if target == "" {
		target = buildplan.TargetApp
	}
	cfg, err := api.ResolveConfig(buildplan.Single(target, false), nil)
	if err != nil {
		return "", err
	}
	return Render(cfg, opts)
}

// Render formats cfg according to opts.
func Render(cfg *raw.Config, opts Options) (string, error) {
	var value any
	switch {
	case opts.Rules:
		names := make([]string, 0)
		for _, nr := range cfg.Rules() {
			names = append(names, nr.Name)
		}
		value = names
	case opts.Plugins:
		value = cfg.PluginNames()
	case opts.Rule != "":
		rule, ok := cfg.FindRule(opts.Rule)
		if !ok {
			return "", foundationerrors.ResolutionError(fmt.Sprintf("rule %q does not exist", opts.Rule)).Build()
		}
		value = rule
	case opts.Plugin != "":
		p, ok := cfg.FindPlugin(opts.Plugin)
		if !ok {
			return "", foundationerrors.ResolutionError(fmt.Sprintf("plugin %q does not exist", opts.Plugin)).Build()
		}
		value = p
	default:
		tree, err := toTree(cfg)
		if err != nil {
			return "", err
		}
		if opts.Verbose {
			annotateRules(tree, cfg.Module.Rules)
		}
		if len(opts.Paths) == 0 {
			value = tree
			break
		}
		selected := make([]any, 0, len(opts.Paths))
		for _, p := range opts.Paths {
			v, ok := Select(tree, p)
			if !ok {
				return "", foundationerrors.ResolutionError(fmt.Sprintf("path %q does not exist in the config", p)).Build()
			}
			selected = append(selected, v)
		}
		if len(selected) == 1 {
			value = selected[0]
		} else {
			value = selected
		}
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", foundationerrors.InternalError("cannot encode config").WithCause(err).Build()
	}
	return string(data), nil
}

func toTree(cfg *raw.Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, foundationerrors.InternalError("cannot encode config").WithCause(err).Build()
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, foundationerrors.InternalError("cannot decode config").WithCause(err).Build()
	}
	return tree, nil
}

// annotateRules copies rule names onto the encoded rule objects, index by
// index, including nested oneOf groups.
func annotateRules(tree map[string]any, rules []raw.Rule) {
	module, _ := tree["module"].(map[string]any)
	if module == nil {
		return
	}
	encoded, _ := module["rules"].([]any)
	annotate(encoded, rules)
}

func annotate(encoded []any, rules []raw.Rule) {
	for i, r := range rules {
		if i >= len(encoded) {
			return
		}
		obj, ok := encoded[i].(map[string]any)
		if !ok {
			continue
		}
		if len(r.Names) > 0 {
			obj[RuleNamesKey] = r.Names
		}
		nested, _ := obj["oneOf"].([]any)
		annotate(nested, r.OneOf)
	}
}

// Select walks a dot-separated path through decoded JSON.
func Select(tree any, path string) (any, bool) {
	cur := tree
	for _, part := range strings.Split(path, ".") {
		if part == "" {
			continue
		}
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}
