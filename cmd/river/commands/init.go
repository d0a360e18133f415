package commands

import (
	"fmt"
	"path/filepath"

	"github.com/river-cli/river/internal/config"
	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Directory for the generated config file"`
}

func (i *InitCmd) Run(g *Global, _ *CLI) error {
	dir := i.Output
	if dir == "" {
		dir = g.Root
	}
	return RunInit(filepath.Join(dir, config.ConfigFiles[0]), i.Force)
}

// RunInit writes the example config to configPath.
func RunInit(configPath string, force bool) error {
	fmt.Printf("Writing configuration to %s\n", configPath)
	if err := config.Init(configPath, force); err != nil {
		return foundationerrors.ConfigError("initialization failed").
			WithContext("path", configPath).WithCause(err).Build()
	}
	fmt.Println("initialized successfully")
	return nil
}
