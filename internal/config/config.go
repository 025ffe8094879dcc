// Package config centralizes application configuration, loaded from an
// optional YAML file, a .env file, and environment variables via viper.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App      App      `mapstructure:"app"`
	Database Database `mapstructure:"database"`
	Server   Server   `mapstructure:"server"`
	Email    Email    `mapstructure:"email"`
	Ingest   Ingest   `mapstructure:"ingest"`
}

// App holds general application configuration.
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
	SiteURL  string `mapstructure:"site_url"`
}

// Database selects and configures the storage backend.
type Database struct {
	Driver           string        `mapstructure:"driver"`            // "postgres" or "sqlite"
	ConnectionString string        `mapstructure:"connection_string"` // postgres DSN; falls back to DATABASE_URL
	Timeout          time.Duration `mapstructure:"timeout"`
}

// Server holds HTTP server configuration.
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AdminSecret     string        `mapstructure:"admin_secret"`  // guards the cron endpoints
	IngestSecret    string        `mapstructure:"ingest_secret"` // guards the ingest endpoints
	CORS            CORS          `mapstructure:"cors"`
}

// CORS holds cross-origin configuration for the HTTP server.
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Email holds transactional email provider configuration. An empty API
// key or from address means the provider is not configured and every
// delivery path is skipped.
type Email struct {
	ResendAPIKey     string        `mapstructure:"resend_api_key"`
	FromEmail        string        `mapstructure:"from_email"`
	AdminReportEmail string        `mapstructure:"admin_report_email"` // signup summary recipient
	Endpoint         string        `mapstructure:"endpoint"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// Ingest holds social read API configuration.
type Ingest struct {
	BlueskyBaseURL string        `mapstructure:"bluesky_base_url"`
	PageSize       int           `mapstructure:"page_size"`   // posts per source fetch
	PostWindow     int           `mapstructure:"post_window"` // recent posts loaded per workspace for briefing
	Timeout        time.Duration `mapstructure:"timeout"`
}

var globalConfig *Config

// Load reads configuration from the given file (or the default search
// path), layered under environment variables. Safe to call repeatedly;
// the first successful load wins.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".briefme")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.Database.ConnectionString == "" {
		config.Database.ConnectionString = os.Getenv("DATABASE_URL")
	}

	if err := validate(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the loaded configuration, loading defaults when Load has
// not been called yet.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			// Fall back to pure defaults so callers always get a value.
			setDefaults()
			cfg = &Config{}
			_ = viper.Unmarshal(cfg)
		}
		globalConfig = cfg
	}
	return globalConfig
}

// Reset clears the cached configuration. Intended for tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", ".briefme-cache")
	viper.SetDefault("app.site_url", "https://briefme.info")

	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.timeout", "5s")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.cors.enabled", false)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})

	viper.SetDefault("email.endpoint", "https://api.resend.com/emails")
	viper.SetDefault("email.timeout", "15s")

	viper.SetDefault("ingest.bluesky_base_url", "https://public.api.bsky.app")
	viper.SetDefault("ingest.page_size", 5)
	viper.SetDefault("ingest.post_window", 120)
	viper.SetDefault("ingest.timeout", "20s")
}

func bindEnvironmentVariables() {
	// Operational secrets keep their historical environment names.
	_ = viper.BindEnv("email.resend_api_key", "RESEND_API_KEY")
	_ = viper.BindEnv("email.from_email", "ALERT_FROM_EMAIL")
	_ = viper.BindEnv("email.admin_report_email", "ADMIN_REPORT_EMAIL")
	_ = viper.BindEnv("server.admin_secret", "ADMIN_REPORT_SECRET")
	_ = viper.BindEnv("server.ingest_secret", "INGEST_SECRET")
	_ = viper.BindEnv("database.connection_string", "DATABASE_URL")
	_ = viper.BindEnv("app.site_url", "SITE_URL")
}

func validate(config *Config) error {
	switch config.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}
	if config.Ingest.PageSize <= 0 {
		return fmt.Errorf("ingest.page_size must be positive, got %d", config.Ingest.PageSize)
	}
	if config.Ingest.PostWindow <= 0 {
		return fmt.Errorf("ingest.post_window must be positive, got %d", config.Ingest.PostWindow)
	}
	return nil
}
