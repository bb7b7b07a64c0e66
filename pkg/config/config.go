// Package config provides configuration for the ashpkg engine and CLI: the
// managed installation root, the upstream repository, API credentials, and
// network settings. Settings are typed fields on a struct passed explicitly
// into the engine, never looked up ambiently by string key.
package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/glorpus-work/ashpkg/pkg/errors"
	"github.com/glorpus-work/ashpkg/pkg/fsutil"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// Root is the managed game installation directory, the parent of
	// addons/, plugins/, docs/ and resources/.
	Root string `yaml:"root"`

	// OfficialRepo is the upstream repository that bundled packages are
	// tracked against.
	OfficialRepo string `yaml:"official_repo"`

	// OfficialBranch is the branch of OfficialRepo that the local
	// installation follows.
	OfficialBranch string `yaml:"official_branch,omitempty"`

	// GitHubToken optionally authenticates hosted-API calls to raise rate
	// limits. The GITHUB_TOKEN environment variable is used when empty.
	GitHubToken string `yaml:"github_token,omitempty"`

	// HTTPTimeout bounds hosted-API requests.
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// LogLevel controls logger verbosity: debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default configuration values.
const (
	// DefaultOfficialRepo is the upstream repository for bundled packages.
	DefaultOfficialRepo = "https://github.com/AshitaXI/Ashita-v4beta"

	// DefaultOfficialBranch is used when branch detection fails.
	DefaultOfficialBranch = "main"

	// DefaultHTTPTimeout is the default timeout for hosted-API requests.
	DefaultHTTPTimeout = 10 * time.Second

	// YAMLIndent is the number of spaces used for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults. The Root is
// left empty and must be set before the engine can be constructed.
func DefaultConfig() *Config {
	return &Config{
		OfficialRepo:   DefaultOfficialRepo,
		OfficialBranch: DefaultOfficialBranch,
		HTTPTimeout:    DefaultHTTPTimeout,
		LogLevel:       "info",
	}
}

// GetDefaultConfigPath returns the default path of the configuration file.
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to determine user config directory")
	}
	return filepath.Join(configDir, "ashpkg", "config.yaml"), nil
}

// LoadConfig loads configuration from a file, returning defaults when the
// file does not exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "invalid config file path")
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveConfig atomically writes the configuration to a file.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "invalid config file path")
	}

	// The file can carry a GitHub token, keep it out of reach of other users.
	if err := fsutil.EnsureDirPrivate(filepath.Dir(absPath)); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeSecure)
	if err != nil {
		return errors.Wrap(err, "failed to create config file")
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to encode config")
	}
	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(err, "failed to rename temporary config file")
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if c.HTTPTimeout < 0 {
		return errors.Wrap(errors.ErrConfigValidation, "http_timeout cannot be negative")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return errors.Wrapf(errors.ErrConfigValidation, "invalid log level %q", c.LogLevel)
	}
	return nil
}

// Token returns the configured API token, falling back to the GITHUB_TOKEN
// environment variable.
func (c *Config) Token() string {
	if c.GitHubToken != "" {
		return c.GitHubToken
	}
	return os.Getenv("GITHUB_TOKEN")
}

// AddonsDir returns the managed addons directory.
func (c *Config) AddonsDir() string { return filepath.Join(c.Root, "addons") }

// PluginsDir returns the managed plugins directory.
func (c *Config) PluginsDir() string { return filepath.Join(c.Root, "plugins") }

// DocsDir returns the managed documentation directory.
func (c *Config) DocsDir() string { return filepath.Join(c.Root, "docs") }

// ResourcesDir returns the managed resources directory.
func (c *Config) ResourcesDir() string { return filepath.Join(c.Root, "resources") }

// LibsDir returns the shared addon library directory.
func (c *Config) LibsDir() string { return filepath.Join(c.Root, "addons", "libs") }

func (c *Config) applyDefaults() {
	if c.OfficialRepo == "" {
		c.OfficialRepo = DefaultOfficialRepo
	}
	if c.OfficialBranch == "" {
		c.OfficialBranch = DefaultOfficialBranch
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
