package commands

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/river-cli/river/internal/bundler"
	"github.com/river-cli/river/internal/config"
	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
)

func parse(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Name("river"), kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)
	kctx, err := parser.Parse(args)
	require.NoError(t, err)
	return cli, kctx
}

func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"NODE_ENV", "BABEL_ENV", config.EnvTestMode, config.EnvTestingNodeEnv} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		env   string
		debug bool
		want  slog.Level
	}{
		{"", false, slog.LevelInfo},
		{"", true, slog.LevelDebug},
		{"debug", false, slog.LevelDebug},
		{"WARN", false, slog.LevelWarn},
		{"error", false, slog.LevelError},
		{"bogus", false, slog.LevelInfo},
		{"error", true, slog.LevelDebug},
	}
	for _, tt := range tests {
		t.Setenv(EnvLogLevel, tt.env)
		assert.Equal(t, tt.want, parseLogLevel(tt.debug), "env=%q debug=%v", tt.env, tt.debug)
	}
}

func TestBuildFlagsBecomeArgs(t *testing.T) {
	cli, _ := parse(t, "build", "--modern", "--dest", "out", "--no-clean", "--mode", "staging", "src/app.ts")

	args := cli.Build.args()
	assert.Equal(t, "staging", args.Mode)
	assert.Equal(t, []string{"src/app.ts"}, args.Positional)
	assert.True(t, args.Bool("modern", false))
	assert.Equal(t, "out", args.String("dest", ""))
	require.NotNil(t, args.BoolPtr("clean"))
	assert.False(t, *args.BoolPtr("clean"))
	assert.Nil(t, args.BoolPtr("watch"))
}

func TestServeFlagsBecomeArgs(t *testing.T) {
	cli, _ := parse(t, "serve", "--port", "9000", "--https", "--host", "127.0.0.1")

	args := cli.Serve.args()
	port, err := args.Int("port", 0)
	require.NoError(t, err)
	assert.Equal(t, 9000, port)
	assert.True(t, args.Bool("https", false))
	assert.Equal(t, "127.0.0.1", args.String("host", ""))
	assert.Empty(t, args.Positional)
}

func TestInspectFlagsBecomeArgs(t *testing.T) {
	cli, _ := parse(t, "inspect", "--rules", "--verbose", "module.rules", "output")

	args := cli.Inspect.args()
	assert.Equal(t, []string{"module.rules", "output"}, args.Positional)
	assert.True(t, args.Bool("rules", false))
	assert.True(t, args.Bool("verbose", false))
	assert.False(t, args.Bool("plugins", false))
}

func TestNoCommandShowsHelp(t *testing.T) {
	cleanEnv(t)
	cli, kctx := parse(t)
	var out bytes.Buffer
	err := kctx.Run(&Global{Root: t.TempDir(), Stdout: &out, Bundler: &bundler.Fake{}}, cli)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Usage: river <command> [options]")
	assert.Contains(t, out.String(), "serve")
	assert.Contains(t, out.String(), "history")
}

func TestUnknownCommandFails(t *testing.T) {
	cleanEnv(t)
	cli, kctx := parse(t, "deploy")
	assert.Equal(t, "deploy", cli.Help.Command)

	err := kctx.Run(&Global{Root: t.TempDir(), Stdout: &bytes.Buffer{}, Bundler: &bundler.Fake{}}, cli)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryResolution))
	assert.Contains(t, err.Error(), `command "deploy" does not exist.`)
}

func TestBuildCommandEndToEnd(t *testing.T) {
	cleanEnv(t)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "main.ts"), []byte("export {}\n"), 0o600))

	var out bytes.Buffer
	fake := &bundler.Fake{Files: map[string]string{"js/app.js": "console.log(1)"}}
	cli, kctx := parse(t, "build", "--mode", "production")
	require.NoError(t, kctx.Run(&Global{Root: root, Stdout: &out, Bundler: fake}, cli))

	assert.Equal(t, 1, fake.Calls())
	assert.Equal(t, "production", fake.Last().Mode)
	assert.FileExists(t, filepath.Join(root, "dist", "js", "app.js"))
	assert.Contains(t, out.String(), "Build complete.")
}

func TestInitWritesConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, RunInit(filepath.Join(dir, config.ConfigFiles[0]), false))
	assert.FileExists(t, filepath.Join(dir, config.ConfigFiles[0]))

	err := RunInit(filepath.Join(dir, config.ConfigFiles[0]), false)
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryConfig))
	require.NoError(t, RunInit(filepath.Join(dir, config.ConfigFiles[0]), true))
}
