package builtin

import (
	"encoding/json"
	"log/slog"
	"os"
	"strings"

	"github.com/river-cli/river/internal/config"
	"github.com/river-cli/river/internal/git"
)

// ClientEnvPrefix selects environment variables exposed to client code.
const ClientEnvPrefix = "RIVER_APP_"

// GitSHAVar carries the project's checked-out commit when not set already.
const GitSHAVar = ClientEnvPrefix + "GIT_SHA"

// ClientEnv collects RIVER_APP_* variables plus NODE_ENV and BASE_URL. The
// commit hash of root is added as RIVER_APP_GIT_SHA when root is inside a
// git work tree.
func ClientEnv(root string, opts *config.ProjectOptions) map[string]string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(key, ClientEnvPrefix) {
			env[key] = value
		}
	}
	if _, ok := env[GitSHAVar]; !ok {
		if rev, err := git.ReadRevision(root); err == nil {
			env[GitSHAVar] = rev.Hash
		} else {
			slog.Debug("No git revision for client env", "error", err)
		}
	}
	env["NODE_ENV"] = os.Getenv("NODE_ENV")
	env["BASE_URL"] = opts.BaseURL
	return env
}

// DefineEnv encodes env for the define plugin: every value is a JSON string
// literal under "process.env".
func DefineEnv(env map[string]string) map[string]any {
	encoded := make(map[string]any, len(env))
	for k, v := range env {
		b, _ := json.Marshal(v)
		encoded[k] = string(b)
	}
	return map[string]any{"process.env": encoded}
}
