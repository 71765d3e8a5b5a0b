// Package config loads the imgcache command configuration from
// ~/.config/imgcache/config.toml.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ValidQueuePolicies lists the accepted queue_policy values.
var ValidQueuePolicies = []string{"lifo", "fifo"}

// Config holds the imgcache command configuration
type Config struct {
	MirrorDir      string        // empty means the library default
	MirrorMaxBytes int64         // 0 = unlimited
	MemoryCapacity int           // 0 = unbounded
	QueuePolicy    string        // "lifo" or "fifo"
	FetchTimeout   time.Duration // 0 disables the bound
	CacheFailures  bool
	UserAgent      string
}

// DefaultFetchTimeout matches the library default.
const DefaultFetchTimeout = 30 * time.Second

// Default returns the default configuration
func Default() Config {
	return Config{
		QueuePolicy:   "lifo",
		FetchTimeout:  DefaultFetchTimeout,
		CacheFailures: true,
	}
}

// rawConfig is the file layout before validation and defaulting
type rawConfig struct {
	MirrorDir      string `toml:"mirror_dir"`
	MirrorMaxBytes int64  `toml:"mirror_max_bytes"`
	MemoryCapacity int    `toml:"memory_capacity"`
	QueuePolicy    string `toml:"queue_policy"`
	FetchTimeout   string `toml:"fetch_timeout"` // Go duration, e.g. "15s"
	CacheFailures  *bool  `toml:"cache_failures"`
	UserAgent      string `toml:"user_agent"`
}

// Path returns the path of the config file
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "imgcache", "config.toml"), nil
}

// Load reads the config file at Path.
// Returns Default() if the file doesn't exist (no error).
func Load() (Config, error) {
	path, err := Path()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config file at path.
// Returns Default() if the file doesn't exist (no error).
// Returns an error only if the file exists but is invalid.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Default(), fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates TOML config data.
func Parse(data []byte) (Config, error) {
	var raw rawConfig
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return Default(), fmt.Errorf("failed to parse config file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Default(), fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	cfg := Default()
	cfg.MirrorDir = raw.MirrorDir
	cfg.MirrorMaxBytes = raw.MirrorMaxBytes
	cfg.MemoryCapacity = raw.MemoryCapacity
	cfg.UserAgent = raw.UserAgent
	if raw.CacheFailures != nil {
		cfg.CacheFailures = *raw.CacheFailures
	}
	if raw.QueuePolicy != "" {
		cfg.QueuePolicy = strings.ToLower(raw.QueuePolicy)
	}

	// Validate mirror_dir (must be absolute or start with ~)
	if err := ValidatePath(cfg.MirrorDir, "mirror_dir"); err != nil {
		return Default(), err
	}
	expanded, err := expandPath(cfg.MirrorDir)
	if err != nil {
		return Default(), fmt.Errorf("expand mirror_dir: %w", err)
	}
	cfg.MirrorDir = expanded

	if cfg.MirrorMaxBytes < 0 {
		return Default(), fmt.Errorf("invalid mirror_max_bytes %d: must be >= 0", cfg.MirrorMaxBytes)
	}
	if cfg.MemoryCapacity < 0 {
		return Default(), fmt.Errorf("invalid memory_capacity %d: must be >= 0", cfg.MemoryCapacity)
	}
	if !slices.Contains(ValidQueuePolicies, cfg.QueuePolicy) {
		return Default(), fmt.Errorf("invalid queue_policy %q: must be \"lifo\" or \"fifo\"", raw.QueuePolicy)
	}

	if raw.FetchTimeout != "" {
		d, err := time.ParseDuration(raw.FetchTimeout)
		if err != nil {
			return Default(), fmt.Errorf("invalid fetch_timeout %q: %w", raw.FetchTimeout, err)
		}
		if d < 0 {
			return Default(), fmt.Errorf("invalid fetch_timeout %q: must be >= 0", raw.FetchTimeout)
		}
		cfg.FetchTimeout = d
	}

	return cfg, nil
}

// ValidatePath checks that the path is absolute or starts with ~
// Returns error if path is relative (like "." or "..")
func ValidatePath(path, fieldName string) error {
	if path == "" {
		return nil // not configured
	}
	if path[0] == '~' {
		return nil
	}
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%s must be absolute or start with ~, got: %q", fieldName, path)
	}
	return nil
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) (string, error) {
	if path == "~" {
		return os.UserHomeDir()
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
