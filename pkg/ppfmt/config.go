package ppfmt

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ConfigFileName is the name of the formatter configuration file.
const ConfigFileName = "ppfmt.toml"

// ConfigEnv names an environment variable pointing at an explicit
// configuration file. It takes precedence over discovery.
const ConfigEnv = "PPFMT_CONFIG"

// Config represents a ppfmt.toml configuration file.
type Config struct {
	// MaxWidth is the preferred maximum line width.
	MaxWidth int `toml:"max_width,omitempty"`
	// Indent is one level of indentation.
	Indent string `toml:"indent,omitempty"`
	// TabWidth is used to measure the width of tabs.
	TabWidth int `toml:"tab_width,omitempty"`
	// LineSeparator is written at the end of every line.
	LineSeparator string `toml:"line_separator,omitempty"`
	// ClusterDispersion is how far apart two label widths may be and still
	// share an alignment column.
	ClusterDispersion int `toml:"cluster_dispersion,omitempty"`
	// PreserveWhitespace keeps all whitespace exactly as written.
	PreserveWhitespace bool `toml:"preserve_whitespace,omitempty"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		MaxWidth:          132,
		Indent:            "  ",
		TabWidth:          4,
		LineSeparator:     "\n",
		ClusterDispersion: 20,
	}
}

// withDefaults fills unset fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxWidth <= 0 {
		c.MaxWidth = def.MaxWidth
	}
	if c.Indent == "" {
		c.Indent = def.Indent
	}
	if c.TabWidth <= 0 {
		c.TabWidth = def.TabWidth
	}
	if c.LineSeparator == "" {
		c.LineSeparator = def.LineSeparator
	}
	if c.ClusterDispersion <= 0 {
		c.ClusterDispersion = def.ClusterDispersion
	}
	return c
}

// LoadConfig loads a ppfmt.toml file from the given path. Unset keys keep
// their defaults.
func LoadConfig(path string) (Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return config.withDefaults(), nil
}

// FindConfig searches for a ppfmt.toml file starting from dir and walking
// up to parent directories, stopping at a .git boundary. It returns the
// path of the file found, or "" and the default configuration.
func FindConfig(dir string) (string, Config, error) {
	if path := os.Getenv(ConfigEnv); path != "" {
		config, err := LoadConfig(path)
		return path, config, err
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", Config{}, err
	}
	for {
		path := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			config, err := LoadConfig(path)
			if err != nil {
				return "", Config{}, err
			}
			return path, config, nil
		}

		// Stop at .git boundary
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", DefaultConfig(), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", DefaultConfig(), nil
		}
		dir = parent
	}
}
