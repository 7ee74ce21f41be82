// Package config loads smelter.yaml plus SMELTER_* environment overrides
// into the runtime configuration shared by every command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/smelter-dev/smelter/internal/history"
)

// Config is the full smelter configuration.
type Config struct {
	Project string        `mapstructure:"project" validate:"required"`
	Sources []string      `mapstructure:"sources" validate:"min=1,dive,required"`
	Output  string        `mapstructure:"output" validate:"required"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Cache   CacheConfig   `mapstructure:"cache"`
	History HistoryConfig `mapstructure:"history"`
	Daemon  DaemonConfig  `mapstructure:"daemon"`
}

// WatchConfig tunes the daemon's file watcher.
type WatchConfig struct {
	Debounce   time.Duration `mapstructure:"debounce" validate:"min=0"`
	Extensions []string      `mapstructure:"extensions" validate:"min=1,dive,startswith=."`
}

// CacheConfig selects and tunes the source fingerprint cache.
type CacheConfig struct {
	Backend string        `mapstructure:"backend" validate:"oneof=memory redis"`
	TTL     time.Duration `mapstructure:"ttl" validate:"min=0"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig points the cache at a Redis server.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"min=0,max=15"`
}

// HistoryConfig selects and tunes the run-history store.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Backend string `mapstructure:"backend" validate:"oneof=sqlite postgres"`
	Path    string `mapstructure:"path" validate:"required_if=Backend sqlite"`
	DSN     string `mapstructure:"dsn" validate:"required_if=Backend postgres"`
}

// DaemonConfig tunes the watch daemon's control surfaces. An empty Socket
// disables the JSON-RPC channel. Empty AuthToken and JWTSecret leave the
// regenerate endpoint open, which is only sensible on a loopback bind.
type DaemonConfig struct {
	Host      string `mapstructure:"host" validate:"required"`
	Port      int    `mapstructure:"port" validate:"min=1,max=65535"`
	Socket    string `mapstructure:"socket"`
	AuthToken string `mapstructure:"auth_token"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Load reads smelter.yaml from dir and applies environment overrides.
// A missing file leaves the defaults; a malformed file is an error.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("smelter")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("SMELTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, run on defaults.
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("project", "generated")
	v.SetDefault("sources", []string{"crds"})
	v.SetDefault("output", "generated")
	v.SetDefault("watch.debounce", "500ms")
	v.SetDefault("watch.extensions", []string{".yaml", ".yml", ".json"})
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.redis.addr", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.backend", "sqlite")
	v.SetDefault("history.path", history.DefaultPath)
	v.SetDefault("history.dsn", "")
	v.SetDefault("daemon.host", "127.0.0.1")
	v.SetDefault("daemon.port", 7433)
	v.SetDefault("daemon.socket", ".smelter/daemon.sock")
	v.SetDefault("daemon.auth_token", "")
	v.SetDefault("daemon.jwt_secret", "")
}

// Validate checks the struct tags plus the cross-field requirements the
// tags cannot express.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.Cache.Backend == "redis" && cfg.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when cache.backend is redis")
	}
	return nil
}

// InProject reports whether dir carries a smelter config file.
func InProject(dir string) bool {
	if _, err := os.Stat(filepath.Join(dir, "smelter.yaml")); err == nil {
		return true
	}
	if _, err := os.Stat(filepath.Join(dir, "smelter.yml")); err == nil {
		return true
	}
	return false
}

// FindProjectRoot walks up from the working directory looking for a
// smelter config file.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if InProject(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a smelter project (no smelter.yaml found)")
		}
		dir = parent
	}
}
