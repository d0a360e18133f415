package console

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/river-cli/river/internal/bundler"
)

func TestBadgesAndSilence(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)
	c.Done("Build complete.")
	c.SetSilent(true)
	c.Info("hidden")
	c.Error("shown")

	out := buf.String()
	assert.Contains(t, out, " DONE  Build complete.")
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, " ERROR  shown")
}

func TestServing(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)
	c.Serving(ServingURLs{Local: "http://localhost:8080/"})
	c.ServingNote(false, "river build")
	out := buf.String()
	assert.Contains(t, out, "Local:   http://localhost:8080/")
	assert.Contains(t, out, "Network: unavailable")
	assert.Contains(t, out, "run river build.")
}

func TestSummarizeAssets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "js"), 0o750))
	big := strings.Repeat("console.log(1);", 200)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "js", "app.js"), []byte(big), 0o600))

	stats := &bundler.Stats{Assets: []bundler.Asset{
		{Name: "css/app.css", Size: 10},
		{Name: "js/app.js", Size: 1},
		{Name: "js/vendors.js", Size: 500},
		{Name: "js/app.js.map", Size: 9000},
		{Name: "img/logo.png", Size: 4000},
	}}
	rows := SummarizeAssets(stats, dir)
	require.Len(t, rows, 3)
	assert.Equal(t, "js/app.js", rows[0].Name)
	assert.Equal(t, int64(len(big)), rows[0].Size)
	assert.Positive(t, rows[0].GzipSize)
	assert.Less(t, rows[0].GzipSize, rows[0].Size)
	assert.Equal(t, "js/vendors.js", rows[1].Name)
	assert.Zero(t, rows[1].GzipSize)
	assert.Equal(t, "css", rows[2].Kind)

	var buf bytes.Buffer
	New(&buf).AssetSummary(stats, dir, "dist")
	assert.Contains(t, buf.String(), "dist/js/app.js")
	assert.Contains(t, buf.String(), "Images and other types of assets omitted.")
}
