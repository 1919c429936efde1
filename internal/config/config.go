// Package config loads LibraryHub settings from file and environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Session SessionConfig `mapstructure:"session"`
	UI      UIConfig      `mapstructure:"ui"`
	Logging LoggingConfig `mapstructure:"logging"`
	Mock    MockConfig    `mapstructure:"mock"`
}

// ServerConfig holds library service connection settings
type ServerConfig struct {
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"timeout"`     // Per-request timeout
	RetryCount int           `mapstructure:"retry_count"` // Retries for GET requests only
}

// SessionConfig holds token storage settings
type SessionConfig struct {
	Path string `mapstructure:"path"` // BoltDB file; empty keeps the token in memory only
}

// UIConfig holds console configuration
type UIConfig struct {
	DefaultPage string `mapstructure:"default_page"` // authors, books, users or borrow
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// MockConfig holds settings for the bundled mock server
type MockConfig struct {
	Addr          string `mapstructure:"addr"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
	Token         string `mapstructure:"token"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:        "http://localhost:8080",
			Timeout:    15 * time.Second,
			RetryCount: 2,
		},
		Session: SessionConfig{
			Path: filepath.Join(defaultDataPath(), "session.db"),
		},
		UI: UIConfig{
			DefaultPage: "books",
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "libraryhub.log"),
			Level: "INFO",
		},
		Mock: MockConfig{
			Addr:          ":8080",
			AdminEmail:    "admin@library.local",
			AdminPassword: "admin",
			Token:         "dev-token",
		},
	}
}

// defaultDataPath returns the default data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "libraryhub")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "libraryhub")
	}
}

// DefaultConfigPath returns the default config directory for the current OS
func DefaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "libraryhub")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "libraryhub")
	}
}

// setDefaults registers every key so environment overrides apply even when
// no config file sets them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("server.url", cfg.Server.URL)
	v.SetDefault("server.timeout", cfg.Server.Timeout)
	v.SetDefault("server.retry_count", cfg.Server.RetryCount)
	v.SetDefault("session.path", cfg.Session.Path)
	v.SetDefault("ui.default_page", cfg.UI.DefaultPage)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("mock.addr", cfg.Mock.Addr)
	v.SetDefault("mock.admin_email", cfg.Mock.AdminEmail)
	v.SetDefault("mock.admin_password", cfg.Mock.AdminPassword)
	v.SetDefault("mock.token", cfg.Mock.Token)
}

// Load reads configuration from file and environment. An empty file uses
// config.yaml from the default config directory or the working directory.
func Load(file string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	setDefaults(v, cfg)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(DefaultConfigPath())
		v.AddConfigPath(".")
	}

	// Environment variable overrides, e.g. LIBRARYHUB_SERVER_URL
	v.SetEnvPrefix("LIBRARYHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	var err error
	if cfg.Session.Path, err = expandHome(cfg.Session.Path); err != nil {
		return nil, err
	}
	if cfg.Logging.File, err = expandHome(cfg.Logging.File); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to file, creating its directory.
func Save(cfg *Config, file string) error {
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("server.url", cfg.Server.URL)
	v.Set("server.timeout", cfg.Server.Timeout.String())
	v.Set("server.retry_count", cfg.Server.RetryCount)
	v.Set("session.path", cfg.Session.Path)
	v.Set("ui.default_page", cfg.UI.DefaultPage)
	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	if err := v.WriteConfigAs(file); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
