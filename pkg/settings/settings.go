// Package settings loads the optional calproj.yaml file from a
// project root. It carries defaults for setup prompts and processing
// options; a missing file yields the built-in defaults.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the optional settings file at the project root.
const FileName = "calproj.yaml"

// Settings is the full calproj.yaml document.
type Settings struct {
	DefaultGroups     int        `yaml:"default_groups"`
	DefaultRecordings int        `yaml:"default_recordings"`
	Processing        Processing `yaml:"processing"`
}

// Processing holds batch-processing defaults.
type Processing struct {
	Jobs       int      `yaml:"jobs"`
	Recursive  bool     `yaml:"recursive"`
	Sidecar    bool     `yaml:"sidecar"`
	Extensions []string `yaml:"extensions"` // subset of the recognized image extensions
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		DefaultGroups:     2,
		DefaultRecordings: 2,
	}
}

// Load reads <dir>/calproj.yaml, falling back to Default when the
// file does not exist. A present but malformed file is an error.
func Load(dir string) (Settings, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("read settings %s: %w", path, err)
	}

	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if s.DefaultGroups < 1 {
		s.DefaultGroups = Default().DefaultGroups
	}
	if s.DefaultRecordings < 1 {
		s.DefaultRecordings = Default().DefaultRecordings
	}
	return s, nil
}
