package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds settings that can also be given as flags. Unset fields leave
// the flag defaults in place.
type Config struct {
	// Git restricts bundles to git-tracked files.
	Git *bool `yaml:"git"`
	// Verbose enables progress notices.
	Verbose *bool `yaml:"verbose"`
	// Output is the directory receiving the archive. Relative values are
	// resolved against the directory of the file that sets them.
	Output string `yaml:"output"`
	// GitTimeout bounds each git invocation, e.g. "5s".
	GitTimeout time.Duration `yaml:"git_timeout"`
	// Compression is one of "fast", "default" or "best".
	Compression string `yaml:"compression"`
	// Exclude lists extra ignore entries relative to the bundle root.
	Exclude []string `yaml:"exclude"`
}

// ParseError reports a config file that exists but cannot be used.
type ParseError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Merge overlays the fields set in other onto c. Exclude lists accumulate.
func (c *Config) Merge(other Config) {
	if other.Git != nil {
		c.Git = other.Git
	}
	if other.Verbose != nil {
		c.Verbose = other.Verbose
	}
	if other.Output != "" {
		c.Output = other.Output
	}
	if other.GitTimeout != 0 {
		c.GitTimeout = other.GitTimeout
	}
	if other.Compression != "" {
		c.Compression = other.Compression
	}
	c.Exclude = append(c.Exclude, other.Exclude...)
}

// Load reads the given files in order, later files overriding earlier ones.
// Empty paths and files that do not exist are skipped. It returns the merged
// config and the paths that were actually read.
func Load(paths ...string) (Config, []string, error) {
	var merged Config
	var loaded []string

	for _, path := range paths {
		if path == "" {
			continue
		}
		cfg, err := LoadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, loaded, err
		}
		merged.Merge(cfg)
		loaded = append(loaded, path)
	}

	return merged, loaded, nil
}

// LoadFile reads a single YAML config file. Unknown keys are rejected so
// typos do not pass silently. A missing file returns an error matching
// fs.ErrNotExist.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
		return Config{}, &ParseError{Path: path, Err: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, &ParseError{Path: path, Err: err}
	}

	if cfg.Output != "" && !filepath.IsAbs(cfg.Output) {
		cfg.Output = filepath.Join(filepath.Dir(path), cfg.Output)
	}
	return cfg, nil
}

// Parse decodes YAML config content. Empty content yields a zero Config.
func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return Config{}, nil
		}
		return Config{}, err
	}
	if cfg.GitTimeout < 0 {
		return Config{}, fmt.Errorf("git_timeout must not be negative, got %s", cfg.GitTimeout)
	}
	return cfg, nil
}
