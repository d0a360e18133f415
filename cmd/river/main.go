package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/river-cli/river/cmd/river/commands"
	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
	"github.com/river-cli/river/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser, err := kong.New(cli,
		kong.Name("river"),
		kong.Description("Build orchestration for single-page applications."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)
	if err != nil {
		panic(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	adapter := foundationerrors.NewCLIErrorAdapter(false, slog.Default())
	kctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		adapter.HandleError(err)
		return
	}
	adapter = foundationerrors.NewCLIErrorAdapter(cli.Debug, slog.Default())
	if err := kctx.Run(&commands.Global{Context: ctx, Logger: slog.Default()}, cli); err != nil {
		cancel()
		adapter.HandleError(err)
	}
}
