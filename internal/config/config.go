package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the root configuration structure
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Client   ClientConfig   `mapstructure:"client"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Snippets SnippetsConfig `mapstructure:"snippets"`
	LogFile  string         `mapstructure:"log_file"`
	Debug    bool           `mapstructure:"debug"`
}

// ServerConfig describes how to reach the browsing API.
type ServerConfig struct {
	URL           string        `mapstructure:"url"`
	APIPrefix     string        `mapstructure:"api_prefix"`
	Timeout       time.Duration `mapstructure:"timeout"`
	SessionHeader string        `mapstructure:"session_header"`
}

// ClientConfig holds client-side navigation defaults.
type ClientConfig struct {
	RowsLimit int `mapstructure:"rows_limit"`
}

// StorageConfig locates the local state database.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// SnippetsConfig locates the saved query file.
type SnippetsConfig struct {
	Path string `mapstructure:"path"`
}

// MaxTimeout bounds server.timeout.
const MaxTimeout = time.Hour

// ConfigDir returns ~/.config/pgnav.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "pgnav")
	}
	return filepath.Join(home, ".config", "pgnav")
}

// LoadConfig loads configuration from defaults, a YAML file and PGNAV_*
// environment variables. An empty path searches $HOME/.config/pgnav and the
// working directory for config.yaml; a missing file there is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	// Environment variable support
	v.AutomaticEnv()
	v.SetEnvPrefix("PGNAV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	applyDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Snippets.Path = expandHome(cfg.Snippets.Path)
	cfg.LogFile = expandHome(cfg.LogFile)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ValidateConfig validates the configuration values
func ValidateConfig(cfg *Config) error {
	if cfg.Server.URL == "" {
		return fmt.Errorf("server.url cannot be empty")
	}
	u, err := url.Parse(cfg.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server.url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("server.url must include a host")
	}

	if cfg.Server.Timeout <= 0 || cfg.Server.Timeout > MaxTimeout {
		return fmt.Errorf("server.timeout must be between 0 and %v, got %v", MaxTimeout, cfg.Server.Timeout)
	}
	if strings.TrimSpace(cfg.Server.SessionHeader) == "" {
		return fmt.Errorf("server.session_header cannot be empty")
	}

	if cfg.Client.RowsLimit < 1 {
		return fmt.Errorf("client.rows_limit must be >= 1, got %d", cfg.Client.RowsLimit)
	}

	return nil
}

// applyDefaults sets default configuration values
func applyDefaults(v *viper.Viper) {
	dir := ConfigDir()

	// Server defaults
	v.SetDefault("server.url", "http://localhost:8081")
	v.SetDefault("server.api_prefix", "/api")
	v.SetDefault("server.timeout", "300s")
	v.SetDefault("server.session_header", "x-session-id")

	v.SetDefault("client.rows_limit", 100)

	v.SetDefault("storage.path", filepath.Join(dir, "pgnav.db"))
	v.SetDefault("snippets.path", filepath.Join(dir, "snippets.yaml"))
	v.SetDefault("log_file", filepath.Join(dir, "pgnav.log"))

	v.SetDefault("debug", false)
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
