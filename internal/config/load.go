package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-viper/mapstructure/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	foundationerrors "github.com/river-cli/river/internal/foundation/errors"
)

// ConfigFiles are the project config file names, in lookup order.
var ConfigFiles = []string{
	"river.config.yaml",
	"river.config.yml",
	"river.config.json",
	"river.config.toml",
}

// InlineSource names options that did not come from a file.
const InlineSource = "inline options"

// Load resolves project options for root. When a config file exists it wins
// over inline; otherwise inline (or nothing) is used. The result is
// normalized, validated and defaulted. The returned source names where the
// options came from.
func Load(root string, inline *ProjectOptions) (*ProjectOptions, string, error) {
	resolved, source, err := loadUserOptions(root, inline)
	if err != nil {
		return nil, "", err
	}

	Normalize(resolved)
	if err := ApplyDefaults(resolved); err != nil {
		return nil, "", foundationerrors.InternalError("apply option defaults").WithCause(err).Build()
	}
	if err := ValidateOptions(resolved, source); err != nil {
		return nil, "", err
	}
	return resolved, source, nil
}

func loadUserOptions(root string, inline *ProjectOptions) (*ProjectOptions, string, error) {
	path := FindConfigFile(root)
	if path != "" {
		name := filepath.Base(path)
		opts, err := loadFile(path)
		if err == nil && opts != nil {
			return opts, name, nil
		}
		if err != nil {
			slog.Error("Error loading project config", "file", name, "error", err)
			return nil, "", err
		}
		// The file parsed but its top level is not a mapping.
		slog.Error("Error loading project config: should contain a mapping", "file", name)
	}

	if inline != nil {
		cp := *inline
		return &cp, InlineSource, nil
	}
	return &ProjectOptions{}, InlineSource, nil
}

// FindConfigFile returns the first existing config file under root.
func FindConfigFile(root string) string {
	for _, name := range ConfigFiles {
		path := filepath.Join(root, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// loadFile parses a config file. It returns (nil, nil) when the document
// parses but is not a mapping.
func loadFile(path string) (*ProjectOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, foundationerrors.FileSystemError("read project config").
			WithCause(err).
			WithContext("file", path).
			Build()
	}

	// Expand environment variables before parsing.
	expanded := os.ExpandEnv(string(data))

	doc, err := parseDocument(filepath.Ext(path), []byte(expanded))
	if err != nil {
		return nil, foundationerrors.ConfigError("parse project config").
			WithCause(err).
			WithContext("file", path).
			Build()
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, nil
	}
	opts, err := DecodeOptions(m)
	if err != nil {
		return nil, foundationerrors.ConfigError("decode project config").
			WithCause(err).
			WithContext("file", path).
			Build()
	}
	return opts, nil
}

func parseDocument(ext string, data []byte) (any, error) {
	var doc any
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case ".json":
		if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
			return nil, err
		}
	case ".toml":
		var m map[string]any
		if _, err := toml.Decode(string(data), &m); err != nil {
			return nil, err
		}
		doc = m
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return doc, nil
}

// DecodeOptions decodes a loose mapping into ProjectOptions. Unknown
// top-level keys are rejected.
func DecodeOptions(m map[string]any) (*ProjectOptions, error) {
	var opts ProjectOptions
	var md mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: &md,
		Result:   &opts,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, err
	}
	if len(md.Unused) > 0 {
		return nil, fmt.Errorf("unknown option(s): %s", strings.Join(md.Unused, ", "))
	}
	return &opts, nil
}
