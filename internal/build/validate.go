package build

import (
	"path/filepath"

	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
	"github.com/river-cli/river/internal/raw"
)

// ValidateConfig rejects finalized configs that would emit into the project
// root or into the public directory. The publicPath rule is enforced when
// the config is resolved.
func ValidateConfig(cfg *raw.Config, root string) error {
	if cfg.Output.Path == "" {
		return foundationerrors.ConfigError("output.path is required").Build()
	}
	outputPath := filepath.Clean(cfg.Output.Path)
	if outputPath == filepath.Clean(root) {
		return foundationerrors.ConfigError("Do not set output directory to project root.").
			WithContext("outputDir", cfg.Output.Path).Build()
	}
	if outputPath == filepath.Join(filepath.Clean(root), "public") {
		return foundationerrors.ConfigError("Do not set output directory to the public directory, it is reserved for static assets.").
			WithContext("outputDir", cfg.Output.Path).Build()
	}
	return nil
}
