// Package config provides configuration management for sitecast using
// Viper for flexible loading from files, environment variables and
// command-line flags.
//
// Configuration is read from .sitecast.yml with environment variable
// overrides using the SITECAST_ prefix (SITECAST_SERVER_PORT, and so on,
// following the SITECAST_<SECTION>_<OPTION> pattern). It manages server
// settings, the document store connection, template and output
// directories, development options and the keep-alive pinger.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Site        SiteConfig        `yaml:"site" mapstructure:"site"`
	Development DevelopmentConfig `yaml:"development" mapstructure:"development"`
	KeepAlive   KeepAliveConfig   `yaml:"keepalive" mapstructure:"keepalive"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	Host           string   `yaml:"host" mapstructure:"host"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	Environment    string   `yaml:"environment" mapstructure:"environment"`
	BaseURL        string   `yaml:"base_url" mapstructure:"base_url"`
}

type StoreConfig struct {
	Backend  string        `yaml:"backend" mapstructure:"backend"` // "mongo" or "memory"
	URI      string        `yaml:"uri" mapstructure:"uri"`
	Database string        `yaml:"database" mapstructure:"database"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

type SiteConfig struct {
	TemplatesDir string `yaml:"templates_dir" mapstructure:"templates_dir"`
	OutputDir    string `yaml:"output_dir" mapstructure:"output_dir"`
	DefaultStyle string `yaml:"default_style" mapstructure:"default_style"`
	SanitizeHTML bool   `yaml:"sanitize_html" mapstructure:"sanitize_html"`
}

type DevelopmentConfig struct {
	WatchTemplates bool `yaml:"watch_templates" mapstructure:"watch_templates"`
	LiveReload     bool `yaml:"live_reload" mapstructure:"live_reload"`
}

type KeepAliveConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	URL       string        `yaml:"url" mapstructure:"url"`
	Endpoints []string      `yaml:"endpoints" mapstructure:"endpoints"`
	Interval  time.Duration `yaml:"interval" mapstructure:"interval"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// EnvKeyReplacer maps nested config keys to environment variable shape
// (server.port -> SERVER_PORT under the SITECAST_ prefix).
func EnvKeyReplacer() *strings.Replacer {
	return strings.NewReplacer(".", "_", "-", "_")
}

// SetDefaults registers every default with viper. Called before any
// config file or environment override is applied.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.base_url", "")
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("store.backend", "mongo")
	v.SetDefault("store.uri", "mongodb://localhost:27017")
	v.SetDefault("store.database", "sitecast")
	v.SetDefault("store.timeout", 10*time.Second)

	v.SetDefault("site.templates_dir", "templates")
	v.SetDefault("site.output_dir", "public/sites")
	v.SetDefault("site.default_style", "standard")
	v.SetDefault("site.sanitize_html", false)

	v.SetDefault("development.watch_templates", false)
	v.SetDefault("development.live_reload", false)

	v.SetDefault("keepalive.enabled", false)
	v.SetDefault("keepalive.url", "")
	v.SetDefault("keepalive.endpoints", []string{"/", "/api/projects"})
	v.SetDefault("keepalive.interval", 14*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load unmarshals the global viper state into a validated Config.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals a specific viper instance into a validated Config.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the configuration for values that would fail later in
// confusing ways if left unchecked.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch c.Store.Backend {
	case "mongo":
		if c.Store.URI == "" {
			return fmt.Errorf("store.uri is required for the mongo backend")
		}
		if c.Store.Database == "" {
			return fmt.Errorf("store.database is required for the mongo backend")
		}
	case "memory":
		// Nothing to validate; everything lives in-process.
	default:
		return fmt.Errorf("unknown store.backend %q (want mongo or memory)", c.Store.Backend)
	}

	if c.Site.TemplatesDir == "" {
		return fmt.Errorf("site.templates_dir must not be empty")
	}
	if c.Site.OutputDir == "" {
		return fmt.Errorf("site.output_dir must not be empty")
	}
	if c.Site.DefaultStyle == "" {
		return fmt.Errorf("site.default_style must not be empty")
	}
	if strings.ContainsAny(c.Site.DefaultStyle, "/\\") {
		return fmt.Errorf("site.default_style %q must be a bare directory name", c.Site.DefaultStyle)
	}

	if c.KeepAlive.Enabled {
		if c.KeepAlive.URL == "" {
			return fmt.Errorf("keepalive.url is required when keepalive is enabled")
		}
		if c.KeepAlive.Interval < time.Minute {
			return fmt.Errorf("keepalive.interval %s is below the one minute floor", c.KeepAlive.Interval)
		}
	}

	return nil
}

// IsProduction reports whether the server runs with production CORS and
// URL defaults.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// PublicBaseURL returns the externally visible base URL, falling back to
// the bind address for local development.
func (c *Config) PublicBaseURL() string {
	if c.Server.BaseURL != "" {
		return strings.TrimRight(c.Server.BaseURL, "/")
	}
	host := c.Server.Host
	if host == "0.0.0.0" || host == "" {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, c.Server.Port)
}
