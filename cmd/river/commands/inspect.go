package commands

import "github.com/river-cli/river/internal/plugin"

// InspectCmd implements the 'inspect' command.
type InspectCmd struct {
	Paths   []string `arg:"" optional:"" help:"Dot paths into the config, e.g. module.rules.0"`
	Mode    string   `help:"Specify env mode (default: development)"`
	Rule    string   `help:"Inspect a specific module rule"`
	Plugin  string   `help:"Inspect a specific plugin"`
	Rules   bool     `help:"List all module rule names"`
	Plugins bool     `help:"List all plugin names"`
	Verbose bool     `name:"verbose" help:"Show rule names alongside every rule"`
}

func (i *InspectCmd) Run(g *Global, _ *CLI) error {
	return RunService(g, "inspect", i.args())
}

func (i *InspectCmd) args() plugin.Args {
	f := flags{}
	f.str("rule", i.Rule)
	f.str("plugin", i.Plugin)
	f.boolean("rules", i.Rules)
	f.boolean("plugins", i.Plugins)
	f.boolean("verbose", i.Verbose)
	return plugin.Args{Mode: i.Mode, Positional: positional(i.Paths...), Flags: f}
}
