// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Environment string         `mapstructure:"environment"`
	Signing     SigningConfig  `mapstructure:"signing"`
	Beacon      BeaconConfig   `mapstructure:"beacon"`
	Wager       WagerConfig    `mapstructure:"wager"`
	Games       GamesConfig    `mapstructure:"games"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
}

// SigningConfig holds the session state signing key.
type SigningConfig struct {
	Key string `mapstructure:"key"`
}

// BeaconConfig holds the verifiable randomness beacon endpoint.
type BeaconConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// WagerConfig holds the accepted wager range.
type WagerConfig struct {
	Min int64 `mapstructure:"min"`
	Max int64 `mapstructure:"max"`
}

// GamesConfig holds game-specific configuration.
type GamesConfig struct {
	Blackjack BlackjackConfig `mapstructure:"blackjack"`
	Duel      DuelConfig      `mapstructure:"duel"`
}

// BlackjackConfig holds card game configuration.
type BlackjackConfig struct {
	ShoeDecks int `mapstructure:"shoe_decks"`
}

// DuelConfig holds duel deadline configuration.
type DuelConfig struct {
	MoveDeadline    time.Duration `mapstructure:"move_deadline"`
	SessionDeadline time.Duration `mapstructure:"session_deadline"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds the session store configuration.
type RedisConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Production reports whether the process runs under the production
// environment, where degraded randomness must refuse to serve.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase
	// e.g., SIGNING_KEY, BEACON_URL, DATABASE_HOST
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file not found is OK, env vars can provide all config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Signing.Key == "" {
		return nil, fmt.Errorf("signing.key is required")
	}
	if cfg.Wager.Min < 1 || cfg.Wager.Max < cfg.Wager.Min {
		return nil, fmt.Errorf("invalid wager range [%d, %d]", cfg.Wager.Min, cfg.Wager.Max)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("beacon.url", "https://api.drand.sh")
	v.SetDefault("beacon.timeout", "5s")

	v.SetDefault("wager.min", 1)
	v.SetDefault("wager.max", 1_000_000)

	v.SetDefault("games.blackjack.shoe_decks", 8)
	v.SetDefault("games.duel.move_deadline", "30s")
	v.SetDefault("games.duel.session_deadline", "3m")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "fairgame")
	v.SetDefault("database.name", "fairgame")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.session_ttl", "24h")
}
