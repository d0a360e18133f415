package inspect

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
	"github.com/river-cli/river/internal/raw"
)

func sampleConfig() *raw.Config {
	return &raw.Config{
		Mode:   "development",
		Entry:  raw.NamedEntry("app", "/project/src/main.ts"),
		Output: raw.Output{Path: "/project/dist", PublicPath: "/"},
		Resolve: raw.Resolve{
			Alias: map[string]string{"@": "/project/src"},
		},
		Module: raw.Module{Rules: []raw.Rule{
			{Names: []string{"js"}, Test: `\.m?jsx?$`, Use: []raw.Use{{Name: "babel", Loader: "babel-loader"}}},
			{Names: []string{"css"}, Test: `\.css$`, OneOf: []raw.Rule{
				{Names: []string{"css", "normal"}, Use: []raw.Use{{Name: "css", Loader: "css-loader"}}},
			}},
		}},
		Plugins: []raw.Plugin{
			{Name: "define", Kind: "DefinePlugin", Args: []any{map[string]any{"x": "1"}}},
			{Name: "html", Kind: "HtmlWebpackPlugin"},
		},
	}
}

func TestRenderRuleAndPluginNames(t *testing.T) {
	out, err := Render(sampleConfig(), Options{Rules: true})
	require.NoError(t, err)
	var names []string
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	assert.Equal(t, []string{"js", "css", "css/normal"}, names)

	out, err = Render(sampleConfig(), Options{Plugins: true})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &names))
	assert.Equal(t, []string{"define", "html"}, names)
}

func TestRenderSingleRuleAndPlugin(t *testing.T) {
	out, err := Render(sampleConfig(), Options{Rule: "css/normal"})
	require.NoError(t, err)
	assert.Contains(t, out, `"loader": "css-loader"`)

	out, err = Render(sampleConfig(), Options{Plugin: "define"})
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "DefinePlugin"`)

	_, err = Render(sampleConfig(), Options{Rule: "nope"})
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryResolution))

	_, err = Render(sampleConfig(), Options{Plugin: "nope"})
	require.Error(t, err)
}

func TestRenderPaths(t *testing.T) {
	out, err := Render(sampleConfig(), Options{Paths: []string{"resolve.alias"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"@": "/project/src"}`, out)

	out, err = Render(sampleConfig(), Options{Paths: []string{"output.path", "module.rules.0.test"}})
	require.NoError(t, err)
	assert.JSONEq(t, `["/project/dist", "\\.m?jsx?$"]`, out)

	_, err = Render(sampleConfig(), Options{Paths: []string{"module.rules.9"}})
	require.Error(t, err)
}

func TestRenderVerboseAnnotatesNestedRules(t *testing.T) {
	out, err := Render(sampleConfig(), Options{Verbose: true})
	require.NoError(t, err)

	var tree map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &tree))
	css, ok := Select(tree, "module.rules.1")
	require.True(t, ok)
	assert.Equal(t, []any{"css"}, css.(map[string]any)[RuleNamesKey])
	normal, ok := Select(tree, "module.rules.1.oneOf.0")
	require.True(t, ok)
	assert.Equal(t, []any{"css", "normal"}, normal.(map[string]any)[RuleNamesKey])

	plain, err := Render(sampleConfig(), Options{})
	require.NoError(t, err)
	assert.NotContains(t, plain, RuleNamesKey)
}
