package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Version is reported by the CLI and sent in the default User-Agent.
const Version = "0.3.0"

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	OSRMBaseURL        string        `mapstructure:"osrm_base_url"`
	OSRMProfile        string        `mapstructure:"osrm_profile"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`
	HTTPUserAgent      string        `mapstructure:"http_user_agent"`

	JobsFile             string        `mapstructure:"jobs_file"`
	PublishersFile       string        `mapstructure:"publishers_file"`
	WatchIntervalSeconds int64         `mapstructure:"watch_interval"`
	WatchInterval        time.Duration `mapstructure:"-"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`

	SetupDir     string `mapstructure:"setup_dir"`
	SetupProfile string `mapstructure:"setup_profile"`
	SetupImage   string `mapstructure:"setup_image"`
	GeofabrikURL string `mapstructure:"geofabrik_url"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "osrm-kit")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("osrm_base_url", "http://localhost:5000")
	v.SetDefault("osrm_profile", "driving")
	v.SetDefault("http_timeout_seconds", 30)
	v.SetDefault("http_user_agent", "osrm-kit/"+Version)
	v.SetDefault("jobs_file", "./configs/jobs.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("watch_interval", 300) // seconds
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/results.db")
	v.SetDefault("storage_ttl_seconds", int64((24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64(time.Hour/time.Second))
	v.SetDefault("setup_dir", "./osrm-data")
	v.SetDefault("setup_profile", "car")
	v.SetDefault("setup_image", "ghcr.io/project-osrm/osrm-backend")
	v.SetDefault("geofabrik_url", "https://download.geofabrik.de")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// finalize validates raw values and derives durations.
func (cfg *Config) finalize() error {
	cfg.OSRMBaseURL = strings.TrimRight(strings.TrimSpace(cfg.OSRMBaseURL), "/")
	if cfg.OSRMBaseURL == "" {
		return fmt.Errorf("invalid osrm_base_url (must not be empty)")
	}

	if cfg.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	cfg.HTTPTimeout = time.Duration(cfg.HTTPTimeoutSeconds) * time.Second

	if cfg.WatchIntervalSeconds <= 0 {
		return fmt.Errorf("invalid watch_interval (must be positive seconds)")
	}
	cfg.WatchInterval = time.Duration(cfg.WatchIntervalSeconds) * time.Second

	if cfg.StorageTTLSeconds <= 0 {
		return fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return nil
}
