package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
	"github.com/river-cli/river/internal/plugin"
)

// HelpCommand is the pseudo-command shown for a missing command name.
const HelpCommand = "help"

// Run initializes the service for the resolved mode and runs command name.
// The mode is args.Mode, else DefaultMode. An unknown explicit command is an
// error; an empty name shows help.
func (s *Service) Run(ctx context.Context, name string, args plugin.Args) error {
	if err := s.Init(resolveMode(args)); err != nil {
		return err
	}

	cmd, ok := s.commands[name]
	if !ok && name != "" && name != HelpCommand {
		return foundationerrors.ResolutionError(fmt.Sprintf("command %q does not exist.", name)).
			WithContext("command", name).
			Build()
	}
	if !ok || args.Help {
		topic := ""
		if name == HelpCommand {
			topic = args.First()
		} else if ok {
			topic = name
		}
		return s.help(topic)
	}
	return s.runCommand(ctx, cmd, args)
}

func resolveMode(args plugin.Args) string {
	if args.Mode != "" {
		return args.Mode
	}
	return DefaultMode
}

// help prints the command list, or the usage of one command.
func (s *Service) help(topic string) error {
	if topic != "" {
		cmd, ok := s.commands[topic]
		if !ok {
			return foundationerrors.ResolutionError(fmt.Sprintf("command %q does not exist.", topic)).
				WithContext("command", topic).
				Build()
		}
		s.console.Printf("\n  Usage: river %s\n\n", usageLine(cmd))
		if cmd.Description != "" {
			s.console.Printf("  %s\n\n", cmd.Description)
		}
		if mode := s.defaultModes[topic]; mode != "" && mode != DefaultMode {
			s.console.Printf("  Usually run with --mode %s.\n\n", mode)
		}
		if len(cmd.Options) > 0 {
			s.console.Println("  Options:")
			s.console.Println()
			width := 0
			for _, o := range cmd.Options {
				width = max(width, len(o.Flag))
			}
			for _, o := range cmd.Options {
				s.console.Printf("    %-*s  %s\n", width, o.Flag, o.Description)
			}
			s.console.Println()
		}
		return nil
	}

	s.console.Printf("\n  Usage: river <command> [options]\n\n  Commands:\n\n")
	names := slices.Clone(s.commandOrder)
	width := 0
	for _, n := range names {
		width = max(width, len(n))
	}
	for _, n := range names {
		s.console.Printf("    %-*s  %s\n", width, n, s.commands[n].Description)
	}
	s.console.Printf("\n  run %s for detailed usage of given command.\n\n",
		s.console.Accent("river help [command]"))
	return nil
}

func usageLine(cmd plugin.Command) string {
	if cmd.Usage != "" {
		return strings.TrimPrefix(cmd.Usage, "river ")
	}
	return cmd.Name + " [options]"
}
