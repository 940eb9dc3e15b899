package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the registry connection and build location settings.
type Config struct {
	// Server is the base URL of the installer registry.
	Server string `yaml:"server"`
	// APIKey is a pre-issued registry API key.
	APIKey string `yaml:"api_key,omitempty"`
	// Username is used for password login when no valid API key is available.
	Username string `yaml:"username,omitempty"`
	// Password pairs with Username.
	Password string `yaml:"password,omitempty"`
	// BuildDir is the build output folder that holds metadata.json.
	BuildDir string `yaml:"build_dir,omitempty"`
	// Timeout bounds each registry call except the binary upload.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

const (
	// DefaultConfigFilename is the settings file looked up in the working directory.
	DefaultConfigFilename = "installer-uploader.yaml"

	// DefaultBuildDir is the build output folder relative to the working directory.
	DefaultBuildDir = "build"

	// DefaultTimeout bounds registry calls other than upload.
	DefaultTimeout = 30 * time.Second

	// DefaultFilePermissions restricts the settings file; it may hold credentials.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerRequired is returned when the registry URL is missing.
	errServerRequired = errors.New("server URL must be provided")
	// errServerScheme is returned for URLs that are not http(s).
	errServerScheme = errors.New("server URL must use http or https")
)

// Load reads settings from path. A missing file at the default location
// yields empty settings; a missing explicit file is an error.
// Load does not validate: the server URL may still come from flags.
func Load(path string) (*Config, error) {
	explicit := path != "" && path != DefaultConfigFilename
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return new(Config), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	return &cfg, nil
}

// Save validates cfg and writes it to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Merge returns a copy of base where every non-empty field of override wins.
func Merge(base, override *Config) *Config {
	merged := new(Config)
	if base != nil {
		*merged = *base
	}

	if override == nil {
		return merged
	}

	if override.Server != "" {
		merged.Server = override.Server
	}

	if override.APIKey != "" {
		merged.APIKey = override.APIKey
	}

	if override.Username != "" {
		merged.Username = override.Username
	}

	if override.Password != "" {
		merged.Password = override.Password
	}

	if override.BuildDir != "" {
		merged.BuildDir = override.BuildDir
	}

	if override.Timeout > 0 {
		merged.Timeout = override.Timeout
	}

	return merged
}

// Validate checks the registry URL and fills defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	ApplyDefaults(cfg)

	cfg.Server = strings.TrimRight(strings.TrimSpace(cfg.Server), "/")
	if cfg.Server == "" {
		return errServerRequired
	}

	u, err := url.ParseRequestURI(cfg.Server)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%q: %w", cfg.Server, errServerScheme)
	}

	return nil
}

// ApplyDefaults fills the fields that have defaults and need no validation.
func ApplyDefaults(cfg *Config) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.BuildDir == "" {
		cfg.BuildDir = DefaultBuildDir
	}
}
