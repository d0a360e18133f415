package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Test-mode environment switches.
const (
	EnvTestMode       = "RIVER_CLI_TEST"
	EnvTestingNodeEnv = "RIVER_CLI_TEST_TESTING_ENV"
)

// IsTestMode reports whether the CLI runs under its own test harness. Test
// mode disables minification and prints machine-readable markers.
func IsTestMode() bool {
	return os.Getenv(EnvTestMode) != ""
}

// EnvFiles returns the env files considered for mode, highest priority first.
func EnvFiles(mode string) []string {
	var files []string
	if mode != "" {
		files = append(files, ".env."+mode+".local", ".env."+mode)
	}
	return append(files, ".env.local", ".env")
}

// LoadEnv loads env files from root in priority order. A variable that is
// already set is never overwritten, so the first writer wins. NODE_ENV and
// BABEL_ENV then default from mode.
func LoadEnv(root, mode string) error {
	for _, name := range EnvFiles(mode) {
		path := filepath.Join(root, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		// godotenv.Load never overrides variables that are already present.
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %s: %w", name, err)
		}
		slog.Debug("Loaded environment variables", "file", name)
	}
	if mode != "" {
		applyNodeEnv(mode)
	}
	return nil
}

// NodeEnvFor maps a mode to its NODE_ENV value.
func NodeEnvFor(mode string) string {
	if mode == "production" || mode == "test" {
		return mode
	}
	return "development"
}

func applyNodeEnv(mode string) {
	force := IsTestMode() && os.Getenv(EnvTestingNodeEnv) == ""
	value := NodeEnvFor(mode)
	for _, key := range []string{"NODE_ENV", "BABEL_ENV"} {
		if _, set := os.LookupEnv(key); force || !set {
			_ = os.Setenv(key, value)
		}
	}
}

// IsProduction reports whether NODE_ENV selects a production build.
func IsProduction() bool {
	return os.Getenv("NODE_ENV") == "production"
}
