package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreKuzu   = "kuzu"
	StoreSQLite = "sqlite"
)

// DefaultStorePath is where persistent stores live, relative to the root.
var DefaultStorePath = filepath.Join(".pygraph", "graph")

// ProjectConfig holds project-level settings loaded from pygraph.yml.
type ProjectConfig struct {
	SearchPaths    []string `yaml:"searchPaths,omitempty"`
	ExcludeDirs    []string `yaml:"excludeDirs,omitempty"`
	Workers        int      `yaml:"workers,omitempty"`
	LogLevel       string   `yaml:"logLevel,omitempty"`
	Store          string   `yaml:"store,omitempty"`
	StorePath      string   `yaml:"storePath,omitempty"`
	PackageMarkers []string `yaml:"packageMarkers,omitempty"`
	RuntimePrefix  string   `yaml:"runtimePrefix,omitempty"`
}

// Load attempts to read pygraph.yml or pygraph.yaml from the given
// directory. Returns a defaulted config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"pygraph.yml", "pygraph.yaml"} {
		cfg, err := LoadFile(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return cfg, err
	}
	cfg := &ProjectConfig{}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadFile reads one config file. Relative search paths are resolved
// against the file's directory.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	for i, p := range cfg.SearchPaths {
		if !filepath.IsAbs(p) {
			cfg.SearchPaths[i] = filepath.Join(dir, p)
		}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *ProjectConfig) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	if c.Store == "" {
		c.Store = StoreMemory
	}
	if c.StorePath == "" {
		c.StorePath = DefaultStorePath
	}
}

// Validate rejects settings no backend can honor.
func (c *ProjectConfig) Validate() error {
	switch c.Store {
	case StoreMemory, StoreKuzu, StoreSQLite:
	default:
		return fmt.Errorf("unknown store %q (want memory, kuzu or sqlite)", c.Store)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}
