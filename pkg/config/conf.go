package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mchmarny/cryptorec/pkg/score"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	dirMode        = 0700
	fileMode       = 0600

	DefaultFormat    = "json"
	DefaultThreshold = 30
	DefaultLimit     = 5
	DefaultPort      = 8080
)

// Config holds the defaults the CLI falls back to when a flag is not set.
// An empty KnowledgeBase selects the embedded knowledge base. Database is a
// SQLite file path or a postgres:// URL, empty for the file in the home dir.
type Config struct {
	KnowledgeBase string              `yaml:"knowledgeBase,omitempty"`
	Database      string              `yaml:"database,omitempty"`
	Format        string              `yaml:"format"`
	Threshold     int                 `yaml:"threshold"`
	Limit         int                 `yaml:"limit"`
	Port          int                 `yaml:"port"`
	Requirements  *score.Requirements `yaml:"requirements,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Format:    DefaultFormat,
		Threshold: DefaultThreshold,
		Limit:     DefaultLimit,
		Port:      DefaultPort,
	}
}

// Save writes c into the config file in dirPath.
func Save(dirPath string, c *Config) error {
	if dirPath == "" {
		return errors.New("config directory required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	path := filepath.Join(dirPath, configFileName)
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// ReadOrCreate reads app config from directory or creates a new one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dirPath, dirMode); err != nil {
			return nil, fmt.Errorf("failed to create dir %s: %w", dirPath, err)
		}
	}

	path := filepath.Join(dirPath, configFileName)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating default config", "path", path)
		if err := Save(dirPath, Default()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	return Load(path)
}

// Load reads the config file at path. Values missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return c, nil
}

// Validate checks the values of c.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config required")
	}
	switch c.Format {
	case "json", "yaml", "yml":
	default:
		return fmt.Errorf("unsupported format: %s", c.Format)
	}
	if c.Threshold < 0 {
		return fmt.Errorf("threshold must not be negative: %d", c.Threshold)
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit must not be negative: %d", c.Limit)
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Requirements != nil {
		if err := c.Requirements.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// GetOrCreateHomeDir returns the home directory for the current user.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("failed to get user home dir: %w", err)
	}
	slog.Debug("home dir", "path", home)

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
