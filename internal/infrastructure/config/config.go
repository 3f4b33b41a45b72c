package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,       default=8080"`
	Env       string `env:"ENV,        default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	LogPretty bool   `env:"LOG_PRETTY, default=false"`

	RefreshDelay time.Duration `env:"REFRESH_DELAY, default=3500ms"`

	Upstream UpstreamConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

type UpstreamConfig struct {
	BaseURL   string        `env:"UPSTREAM_BASE_URL,   default=https://react-assessment-api.herokuapp.com/api"`
	Timeout   time.Duration `env:"UPSTREAM_TIMEOUT,    default=10s"`
	UserAgent string        `env:"UPSTREAM_USER_AGENT, default=dronewatch/1.0"`
}

// MongoConfig is optional; an empty URI disables the journal and snapshots.
type MongoConfig struct {
	URI      string `env:"MONGO_URI"`
	Database string `env:"MONGO_DB, default=dronewatch"`
}

// RedisConfig is optional; an empty Addr disables the location cache.
type RedisConfig struct {
	Addr        string        `env:"REDIS_ADDR"`
	Password    string        `env:"REDIS_PASSWORD"`
	DB          int           `env:"REDIS_DB,           default=0"`
	LocationTTL time.Duration `env:"REDIS_LOCATION_TTL, default=1h"`
}

// Load reads .env files and then the process environment. Without files the
// default .env is loaded when present.
// Variables already set in the environment win over .env entries.
func Load(ctx context.Context, files ...string) (*Config, error) {
	// The default .env is optional; files named explicitly must exist.
	if err := godotenv.Load(files...); err != nil {
		if len(files) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load .env: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	return &cfg, nil
}

// AuthEnabled reports whether command routes require a bearer token.
func (c *Config) AuthEnabled() bool { return c.JWTSecret != "" }

func (c *Config) IsProduction() bool { return c.Env == "production" }

// PrettyLogs reports whether console output was requested. Production
// always logs JSON.
func (c *Config) PrettyLogs() bool { return c.LogPretty && !c.IsProduction() }
