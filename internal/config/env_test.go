package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetForTest(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadEnvFirstWriterWins(t *testing.T) {
	unsetForTest(t, "RIVER_APP_TITLE", "RIVER_APP_ONLY_BASE", "NODE_ENV", "BABEL_ENV", EnvTestMode)
	dir := t.TempDir()
	writeFile(t, dir, ".env", "RIVER_APP_TITLE=base\nRIVER_APP_ONLY_BASE=yes\n")
	writeFile(t, dir, ".env.production", "RIVER_APP_TITLE=production\n")

	require.NoError(t, LoadEnv(dir, "production"))

	assert.Equal(t, "production", os.Getenv("RIVER_APP_TITLE"))
	assert.Equal(t, "yes", os.Getenv("RIVER_APP_ONLY_BASE"))
	assert.Equal(t, "production", os.Getenv("NODE_ENV"))
	assert.Equal(t, "production", os.Getenv("BABEL_ENV"))
}

func TestLoadEnvKeepsExistingValues(t *testing.T) {
	unsetForTest(t, EnvTestMode)
	t.Setenv("RIVER_APP_TITLE", "shell")
	t.Setenv("NODE_ENV", "staging")
	dir := t.TempDir()
	writeFile(t, dir, ".env", "RIVER_APP_TITLE=file\n")

	require.NoError(t, LoadEnv(dir, "development"))

	assert.Equal(t, "shell", os.Getenv("RIVER_APP_TITLE"))
	assert.Equal(t, "staging", os.Getenv("NODE_ENV"))
}

func TestLoadEnvForcesNodeEnvInTestMode(t *testing.T) {
	t.Setenv(EnvTestMode, "1")
	unsetForTest(t, EnvTestingNodeEnv)
	t.Setenv("NODE_ENV", "production")

	require.NoError(t, LoadEnv(t.TempDir(), "serve-mode"))

	assert.Equal(t, "development", os.Getenv("NODE_ENV"))
	assert.True(t, IsTestMode())
}

func TestEnvFilesOrder(t *testing.T) {
	assert.Equal(t, []string{".env.test.local", ".env.test", ".env.local", ".env"}, EnvFiles("test"))
	assert.Equal(t, []string{".env.local", ".env"}, EnvFiles(""))
}

func TestResolveEntry(t *testing.T) {
	dir := t.TempDir()
	_, err := ResolveEntry(dir, "")
	require.Error(t, err)

	writeFile(t, dir, filepath.Join("src", "index.ts"), "export {}\n")
	entry, err := ResolveEntry(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "src/index.ts", entry)

	writeFile(t, dir, filepath.Join("src", "main.ts"), "export {}\n")
	entry, err = ResolveEntry(dir, "")
	require.NoError(t, err)
	assert.Equal(t, "src/main.ts", entry)

	_, err = ResolveEntry(dir, "src/missing.ts")
	require.Error(t, err)
}
