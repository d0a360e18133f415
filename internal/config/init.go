package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type exampleDevServer struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	HTTPS   bool   `yaml:"https"`
	HotOnly bool   `yaml:"hotOnly"`
}

type exampleCSS struct {
	Modules bool `yaml:"modules"`
}

type exampleBundler struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args,omitempty"`
}

type exampleHistory struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type exampleConfig struct {
	BaseURL             string           `yaml:"baseUrl"`
	OutputDir           string           `yaml:"outputDir"`
	AssetsDir           string           `yaml:"assetsDir"`
	IndexPath           string           `yaml:"indexPath"`
	FilenameHashing     bool             `yaml:"filenameHashing"`
	ProductionSourceMap bool             `yaml:"productionSourceMap"`
	CSS                 exampleCSS       `yaml:"css"`
	DevServer           exampleDevServer `yaml:"devServer"`
	Bundler             exampleBundler   `yaml:"bundler"`
	History             exampleHistory   `yaml:"history"`
	ConfigureWebpack    map[string]any   `yaml:"configureWebpack"`
}

// Init writes an example project config file to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}

	example := exampleConfig{
		BaseURL:             DefaultBaseURL,
		OutputDir:           DefaultOutputDir,
		AssetsDir:           "static",
		IndexPath:           DefaultIndexPath,
		FilenameHashing:     true,
		ProductionSourceMap: true,
		CSS:                 exampleCSS{Modules: true},
		DevServer:           exampleDevServer{Host: "0.0.0.0", Port: 8080},
		Bundler:             exampleBundler{Command: DefaultBundlerCommand},
		History:             exampleHistory{Enabled: false, Path: DefaultHistoryPath},
		ConfigureWebpack: map[string]any{
			"resolve": map[string]any{"extensions": []string{".vue"}},
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
