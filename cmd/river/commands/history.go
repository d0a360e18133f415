package commands

import "github.com/river-cli/river/internal/plugin"

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int `short:"n" help:"Number of events to read"`
}

func (h *HistoryCmd) Run(g *Global, _ *CLI) error {
	f := flags{}
	f.integer("limit", h.Limit)
	return RunService(g, "history", plugin.Args{Flags: f})
}

// HelpCmd lists commands, or shows the usage of one.
type HelpCmd struct {
	Command string `arg:"" optional:"" help:"Command to describe"`
}

func (h *HelpCmd) Run(g *Global, _ *CLI) error {
	return RunService(g, "help", plugin.Args{Positional: positional(h.Command)})
}
