// Package config loads potiondb configuration from potiondb.yaml.
//
// The file is optional. Every path defaults to a file in the working
// directory; a named workspace (~/.potiondb/<name>/) replaces that
// directory. POTIONDB_BACKEND and POTIONDB_LOG_LEVEL override the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"potiondb/internal/workspace"
)

// FileName is the config file looked up in the working directory.
const FileName = "potiondb.yaml"

// Environment variables read by Load.
const (
	EnvConfig   = "POTIONDB_CONFIG"
	EnvBackend  = "POTIONDB_BACKEND"
	EnvLogLevel = "POTIONDB_LOG_LEVEL"
)

// Config holds potiondb settings.
type Config struct {
	// Backend is "files" (default) or "sqlite".
	Backend         string `yaml:"backend"`
	IngredientsPath string `yaml:"ingredients_path"`
	RecipesPath     string `yaml:"recipes_path"`
	DataJSPath      string `yaml:"data_js_path"`
	SQLitePath      string `yaml:"sqlite_path"`
	// Workspace names a directory under ~/.potiondb/ holding the data files.
	Workspace string `yaml:"workspace"`
	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
	// Exporters holds per-format export settings: format name -> key/value map.
	Exporters map[string]map[string]string `yaml:"exporters"`
}

// LoadFile reads a config file.
// Returns nil (not an error) if the file does not exist.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return &c, nil
}

// Load reads the config for the working directory dir and resolves it:
// environment overrides, workspace paths, defaults and absolute paths.
func Load(dir string) (*Config, error) {
	path := os.Getenv(EnvConfig)
	if path == "" {
		path = filepath.Join(dir, FileName)
	}
	c, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = &Config{}
	}
	if v := os.Getenv(EnvBackend); v != "" {
		c.Backend = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if err := c.Resolve(dir); err != nil {
		return nil, err
	}
	return c, nil
}

// Resolve fills defaults and makes every path absolute. Relative paths are
// taken from dir, or from the workspace directory when one is named.
func (c *Config) Resolve(dir string) error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = "files"
	}
	if c.Backend != "files" && c.Backend != "sqlite" {
		return fmt.Errorf("invalid backend %q (want files or sqlite)", c.Backend)
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	base := dir
	if c.Workspace != "" {
		w, err := workspace.Open(c.Workspace)
		if err != nil {
			return err
		}
		base = w.Dir
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", base, err)
	}
	c.IngredientsPath = resolvePath(abs, c.IngredientsPath, workspace.IngredientsFile)
	c.RecipesPath = resolvePath(abs, c.RecipesPath, workspace.RecipesFile)
	c.DataJSPath = resolvePath(abs, c.DataJSPath, workspace.DataJSFile)
	c.SQLitePath = resolvePath(abs, c.SQLitePath, workspace.SQLiteFile)
	return nil
}

func resolvePath(base, p, def string) string {
	if p == "" {
		p = def
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// Exporter returns the settings of one export format, never nil.
func (c *Config) Exporter(name string) map[string]string {
	out := map[string]string{}
	if c == nil {
		return out
	}
	for k, v := range c.Exporters[name] {
		out[k] = v
	}
	return out
}
