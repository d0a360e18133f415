package commands

import (
	"strconv"

	"github.com/river-cli/river/internal/plugin"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Entry  string `arg:"" optional:"" help:"Entry module, relative to the project root"`
	Mode   string `help:"Specify env mode (default: development)"`
	Dest   string `help:"Specify output directory (default: outputDir option)"`
	Modern bool   `help:"Build app targeting modern browsers with auto fallback"`
	Target string `help:"app | lib (default: app)"`
	Watch  bool   `help:"Watch for changes"`
	Clean  bool   `default:"true" negatable:"" help:"Remove the output directory before building"`
	Silent bool   `help:"Do not print the asset summary"`
}

func (b *BuildCmd) Run(g *Global, _ *CLI) error {
	return RunService(g, "build", b.args())
}

func (b *BuildCmd) args() plugin.Args {
	f := flags{}
	f.str("dest", b.Dest)
	f.boolean("modern", b.Modern)
	f.str("target", b.Target)
	f.boolean("watch", b.Watch)
	f.boolean("silent", b.Silent)
	f["clean"] = strconv.FormatBool(b.Clean)
	return plugin.Args{Mode: b.Mode, Positional: positional(b.Entry), Flags: f}
}
