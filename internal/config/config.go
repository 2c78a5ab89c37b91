// Package config loads service configuration from an optional file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ruralpay/atmledger/internal/models"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Ledger   LedgerConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Migrate         bool
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

func (c RedisConfig) Addr() string { return c.Host + ":" + c.Port }

type LedgerConfig struct {
	Storage       string
	WithdrawalMax models.Money
	LockTimeout   time.Duration
	EventsQueue   string
}

type LogConfig struct {
	Level  string
	Format string // json or console
}

var defaults = map[string]any{
	"server.port":             "8080",
	"server.read_timeout":     15 * time.Second,
	"server.write_timeout":    15 * time.Second,
	"server.idle_timeout":     60 * time.Second,
	"server.request_timeout":  30 * time.Second,
	"server.shutdown_timeout": 30 * time.Second,

	"database.host":              "localhost",
	"database.port":              "5432",
	"database.user":              "postgres",
	"database.password":          "password",
	"database.name":              "atm_ledger",
	"database.ssl_mode":          "disable",
	"database.max_open_conns":    25,
	"database.max_idle_conns":    5,
	"database.conn_max_lifetime": 5 * time.Minute,
	"database.migrate":           true,

	"redis.enabled":  true,
	"redis.host":     "localhost",
	"redis.port":     "6379",
	"redis.password": "",
	"redis.db":       0,

	"ledger.storage":        StoragePostgres,
	"ledger.withdrawal_max": "10000.00",
	"ledger.lock_timeout":   5 * time.Second,
	"ledger.events_queue":   "ledger_events",

	"log.level":  "info",
	"log.format": "json",
}

// Load reads configFile when it exists, then the environment. Every key can be
// overridden by its upper-cased environment name, e.g. DATABASE_HOST or
// LEDGER_WITHDRAWAL_MAX.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", configFile, err)
			}
		}
	}

	for key := range defaults {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey); err != nil {
			return nil, fmt.Errorf("bind %s: %w", envKey, err)
		}
		// dotenv files are flat: DATABASE_HOST lands under "database_host".
		if flat := strings.ToLower(envKey); v.InConfig(flat) {
			v.SetDefault(key, v.Get(flat))
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            v.GetString("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			RequestTimeout:  v.GetDuration("server.request_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetString("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			Name:            v.GetString("database.name"),
			SSLMode:         v.GetString("database.ssl_mode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("database.conn_max_lifetime"),
			Migrate:         v.GetBool("database.migrate"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Ledger: LedgerConfig{
			Storage:     strings.ToLower(strings.TrimSpace(v.GetString("ledger.storage"))),
			LockTimeout: v.GetDuration("ledger.lock_timeout"),
			EventsQueue: v.GetString("ledger.events_queue"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	ceiling, err := models.ParseMoney(v.GetString("ledger.withdrawal_max"))
	if err != nil {
		return nil, fmt.Errorf("ledger.withdrawal_max: %w", err)
	}
	cfg.Ledger.WithdrawalMax = ceiling

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Ledger.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("ledger.storage must be %q or %q, got %q", StoragePostgres, StorageMemory, c.Ledger.Storage)
	}
	if !c.Ledger.WithdrawalMax.IsPositive() || c.Ledger.WithdrawalMax.Scale() > models.CanonicalScale {
		return fmt.Errorf("ledger.withdrawal_max must be a positive amount with at most %d decimals, got %s",
			models.CanonicalScale, c.Ledger.WithdrawalMax.Decimal().String())
	}
	if c.Ledger.WithdrawalMax.LessThan(models.WithdrawalMinAmount) {
		return fmt.Errorf("ledger.withdrawal_max %s is below the withdrawal minimum %s", c.Ledger.WithdrawalMax, models.WithdrawalMinAmount)
	}
	if c.Ledger.LockTimeout <= 0 {
		return fmt.Errorf("ledger.lock_timeout must be positive, got %s", c.Ledger.LockTimeout)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}
