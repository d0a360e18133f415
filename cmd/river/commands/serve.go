package commands

import "github.com/river-cli/river/internal/plugin"

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Entry  string `arg:"" optional:"" help:"Entry module, relative to the project root"`
	Mode   string `help:"Specify env mode (default: development)"`
	Host   string `help:"Specify host (default: 0.0.0.0)"`
	Port   int    `short:"p" help:"Specify port (default: 8080)"`
	HTTPS  bool   `name:"https" help:"Use https"`
	Public string `help:"Public network URL for the hot-reload client"`
}

func (s *ServeCmd) Run(g *Global, _ *CLI) error {
	return RunService(g, "serve", s.args())
}

func (s *ServeCmd) args() plugin.Args {
	f := flags{}
	f.str("host", s.Host)
	f.integer("port", s.Port)
	f.boolean("https", s.HTTPS)
	f.str("public", s.Public)
	return plugin.Args{Mode: s.Mode, Positional: positional(s.Entry), Flags: f}
}
