package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// config mirrors the preprocessor options that make sense to keep in a
// project file. Flags are applied on top of the file.
type config struct {
	StdlibPaths  []string `yaml:"stdlib_paths"`
	KeepComments bool     `yaml:"keep_comments"`
	Defines      []string `yaml:"defines"`
	Undefines    []string `yaml:"undefines"`
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}
