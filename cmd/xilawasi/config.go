package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// config is the optional run configuration file. Command line flags take
// precedence over it.
type config struct {
	Args    []string          `yaml:"args"`
	Env     map[string]string `yaml:"env"`
	Root    string            `yaml:"root"`
	Preopen string            `yaml:"preopen"`
	Debug   bool              `yaml:"debug"`
}

func defaultConfig() *config {
	return &config{Preopen: "/"}
}

func readConfig(r io.Reader) (*config, error) {
	c := defaultConfig()
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return c, nil
}

// loadConfig reads the file at path. An empty path yields the defaults.
func loadConfig(path string) (*config, error) {
	if path == "" {
		return defaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := readConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
