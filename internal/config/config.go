// Package config holds runtime configuration: defaults, optional TOML file,
// environment overrides, and validation.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// GroupingMode selects how strict group completeness is judged.
type GroupingMode string

const (
	// GroupingStrict requires exactly one main document plus at least one attachment.
	GroupingStrict GroupingMode = "strict"
	// GroupingLenient accepts any two-or-more members; the first in resolved
	// order acts as the main document.
	GroupingLenient GroupingMode = "lenient"
)

// NamingMode selects the output filename scheme.
type NamingMode string

const (
	// NamingComposite prefixes the group identifier (default).
	NamingComposite NamingMode = "composite"
	// NamingLegacy uses the addressee name alone when one was extracted,
	// matching the old single-file-per-request deployments.
	NamingLegacy NamingMode = "legacy"
)

// ReferenceFallback selects what the reference number becomes when the
// "Fattura N" heuristic finds nothing.
type ReferenceFallback string

const (
	// ReferenceIdentifier derives the reference from the group key, hyphen as slash.
	ReferenceIdentifier ReferenceFallback = "identifier"
	// ReferenceNone reports the reference as absent.
	ReferenceNone ReferenceFallback = "none"
)

// Config is the full application configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	Merge  MergeConfig  `toml:"merge"`
}

// ServerConfig covers the HTTP listener.
type ServerConfig struct {
	Port           int   `toml:"port"`
	DevMode        bool  `toml:"dev_mode"`
	MaxUploadBytes int64 `toml:"max_upload_bytes"` // total per request; 0 disables the cap
}

// MergeConfig covers the merge pipeline.
type MergeConfig struct {
	Workers           int               `toml:"workers"` // parallel groups per request
	GroupingMode      GroupingMode      `toml:"grouping_mode"`
	NamingMode        NamingMode        `toml:"naming_mode"`
	ReferenceFallback ReferenceFallback `toml:"reference_fallback"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			MaxUploadBytes: 100 << 20,
		},
		Merge: MergeConfig{
			Workers:           4,
			GroupingMode:      GroupingStrict,
			NamingMode:        NamingComposite,
			ReferenceFallback: ReferenceIdentifier,
		},
	}
}

// Load builds the configuration from defaults, then the TOML file at path (if
// any), then FATTURAMERGE_* environment overrides, and validates the result.
// An empty path skips the file step.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := getEnv("FATTURAMERGE_PORT", ""); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FATTURAMERGE_PORT must be an integer: %w", err)
		}
		c.Server.Port = port
	}
	if v := getEnv("FATTURAMERGE_DEV_MODE", ""); v != "" {
		c.Server.DevMode = v == "1" || v == "true"
	}
	if v := getEnv("FATTURAMERGE_MAX_UPLOAD_BYTES", ""); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("FATTURAMERGE_MAX_UPLOAD_BYTES must be an integer: %w", err)
		}
		c.Server.MaxUploadBytes = n
	}
	if v := getEnv("FATTURAMERGE_WORKERS", ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FATTURAMERGE_WORKERS must be an integer: %w", err)
		}
		c.Merge.Workers = n
	}
	if v := getEnv("FATTURAMERGE_GROUPING_MODE", ""); v != "" {
		c.Merge.GroupingMode = GroupingMode(v)
	}
	if v := getEnv("FATTURAMERGE_NAMING_MODE", ""); v != "" {
		c.Merge.NamingMode = NamingMode(v)
	}
	if v := getEnv("FATTURAMERGE_REFERENCE_FALLBACK", ""); v != "" {
		c.Merge.ReferenceFallback = ReferenceFallback(v)
	}
	return nil
}

// Validate checks enum fields and numeric limits.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes < 0 {
		return fmt.Errorf("server.max_upload_bytes must not be negative, got %d", c.Server.MaxUploadBytes)
	}
	if c.Merge.Workers <= 0 {
		return fmt.Errorf("merge.workers must be positive, got %d", c.Merge.Workers)
	}
	switch c.Merge.GroupingMode {
	case GroupingStrict, GroupingLenient:
	default:
		return fmt.Errorf("merge.grouping_mode must be %q or %q, got %q", GroupingStrict, GroupingLenient, c.Merge.GroupingMode)
	}
	switch c.Merge.NamingMode {
	case NamingComposite, NamingLegacy:
	default:
		return fmt.Errorf("merge.naming_mode must be %q or %q, got %q", NamingComposite, NamingLegacy, c.Merge.NamingMode)
	}
	switch c.Merge.ReferenceFallback {
	case ReferenceIdentifier, ReferenceNone:
	default:
		return fmt.Errorf("merge.reference_fallback must be %q or %q, got %q", ReferenceIdentifier, ReferenceNone, c.Merge.ReferenceFallback)
	}
	return nil
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
