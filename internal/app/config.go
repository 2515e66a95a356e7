package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/odyssey-erp/crudkit/internal/platform/cache"
	"github.com/odyssey-erp/crudkit/internal/platform/db"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// PGDSN selects PostgreSQL storage. Without it the catalog lives in memory.
	PGDSN            string        `envconfig:"PG_DSN"`
	PGMaxConns       int32         `envconfig:"PG_MAX_CONNS" default:"10"`
	PGMinConns       int32         `envconfig:"PG_MIN_CONNS" default:"0"`
	PGConnectTimeout time.Duration `envconfig:"PG_CONNECT_TIMEOUT" default:"5s"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	AdminURL     string `envconfig:"ADMIN_URL" default:"/admin/"`
	LoginURL     string `envconfig:"LOGIN_URL" default:"/login/"`
	AuthRequired bool   `envconfig:"AUTH_REQUIRED" default:"false"`

	TimeZone  string `envconfig:"TIME_ZONE" default:"Asia/Tokyo"`
	PageSize  int    `envconfig:"PAGE_SIZE" default:"25"`
	RateLimit int    `envconfig:"RATE_LIMIT" default:"60"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Location resolves TIME_ZONE. Archive periods and form dates are interpreted in it.
func (c *Config) Location() (*time.Location, error) {
	if c == nil || c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("app: time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// DBOptions returns the pool settings for PG_DSN.
func (c *Config) DBOptions() db.Options {
	return db.Options{
		DSN:            c.PGDSN,
		MaxConns:       c.PGMaxConns,
		MinConns:       c.PGMinConns,
		ConnectTimeout: c.PGConnectTimeout,
	}
}

// CacheOptions returns the Redis settings used by the session store.
func (c *Config) CacheOptions() cache.Options {
	return cache.Options{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}
