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

// Config holds the settings shared by the init and upgrade commands.
type Config struct {
	// ReleaseIndexURL is an optional metadata endpoint returning {version, url_tar}.
	// When empty, releases are resolved through the GitHub API.
	ReleaseIndexURL string `yaml:"release_index_url,omitempty"`
	// GitHubAPIURL is the base URL of the GitHub REST API.
	GitHubAPIURL string `yaml:"github_api_url"`
	// GitHubRepository is the "owner/name" of the repository publishing releases.
	GitHubRepository string `yaml:"github_repository"`
	// ReleaseMarker identifies the payload directory among extracted entries.
	ReleaseMarker string `yaml:"release_marker"`
	// Timeout bounds every HTTP request, including archive downloads.
	Timeout time.Duration `yaml:"timeout"`
	// TelemetryWriteKey authorizes telemetry submissions. Empty disables telemetry.
	TelemetryWriteKey string `yaml:"telemetry_write_key,omitempty"`
	// TelemetryEndpoint overrides the telemetry API endpoint.
	TelemetryEndpoint string `yaml:"telemetry_endpoint,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for express-cli settings.
	DefaultConfigFilename = "express-cli.yaml"

	// DefaultGitHubAPIURL is the public GitHub REST API.
	DefaultGitHubAPIURL = "https://api.github.com"

	// DefaultGitHubRepository publishes the Platform9 Express releases.
	DefaultGitHubRepository = "platform9/express"

	// DefaultReleaseMarker is contained in the name of the top-level directory
	// of every Platform9 Express release archive.
	DefaultReleaseMarker = "platform9-express-"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 60 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidRepository is returned when the repository is not in "owner/name" form.
	errInvalidRepository = errors.New(`github repository must look like "owner/name"`)
)

// Default returns a configuration with every field set to its default.
func Default() *Config {
	cfg := new(Config)

	// Defaults never fail validation.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault behaves like Load but returns defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	return cfg, err
}

// Save writes Config to the provided path.
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

	// The file may carry the telemetry write key.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for formatting and fills in defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.GitHubAPIURL == "" {
		settings.GitHubAPIURL = DefaultGitHubAPIURL
	}

	settings.GitHubAPIURL = strings.TrimRight(settings.GitHubAPIURL, "/")

	if settings.GitHubRepository == "" {
		settings.GitHubRepository = DefaultGitHubRepository
	}

	if settings.ReleaseMarker == "" {
		settings.ReleaseMarker = DefaultReleaseMarker
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	owner, name, found := strings.Cut(settings.GitHubRepository, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("%q: %w", settings.GitHubRepository, errInvalidRepository)
	}

	if _, err := url.ParseRequestURI(settings.GitHubAPIURL); err != nil {
		return fmt.Errorf("invalid github api URI: %w", err)
	}

	if settings.ReleaseIndexURL != "" {
		if _, err := url.ParseRequestURI(settings.ReleaseIndexURL); err != nil {
			return fmt.Errorf("invalid release index URI: %w", err)
		}
	}

	if settings.TelemetryEndpoint != "" {
		if _, err := url.ParseRequestURI(settings.TelemetryEndpoint); err != nil {
			return fmt.Errorf("invalid telemetry endpoint URI: %w", err)
		}
	}

	return nil
}
