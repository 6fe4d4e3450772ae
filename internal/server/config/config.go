// Package config handles configuration for the server component: defaults,
// an optional config file, environment variables (with .env support) and
// command-line flags, validated once at startup.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Environments accepted in APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config holds runtime settings for the auth server.
//
// The TTL fields keep the raw strings ("15m", "7d"); Load fills the parsed
// AccessTokenTTL and RefreshTokenTTL after validation.
type Config struct {
	Port                  int    `env:"PORT" validate:"required,min=1,max=65535"`
	Environment           string `env:"APP_ENV" validate:"required,oneof=development production test"`
	DatabaseDSN           string `env:"DATABASE_DSN" validate:"required"`
	JWTSecret             string `env:"JWT_SECRET" validate:"required"`
	AccessTokenExpiresIn  string `env:"ACCESS_TOKEN_EXPIRES_IN" validate:"required,ttl"`
	RefreshTokenExpiresIn string `env:"REFRESH_TOKEN_EXPIRES_IN" validate:"required,ttl"`
	CookieSecret          string `env:"COOKIE_SECRET" validate:"required,min=16"`

	CORSOrigin      string `env:"CORS_ORIGIN" validate:"omitempty,url"`
	GRPCHealthAddr  string `env:"GRPC_HEALTH_ADDR" validate:"omitempty,hostname_port"`
	LogLevel        string `env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	LogFormat       string `env:"LOG_FORMAT" validate:"omitempty,oneof=json text console"`
	TraceExporter   string `env:"TRACE_EXPORTER" validate:"omitempty,oneof=none stdout otlp"`
	MetricsEnabled  bool   `env:"METRICS_ENABLED"`
	BcryptCost      int    `env:"BCRYPT_COST" validate:"min=4,max=31"`
	HashConcurrency int    `env:"HASH_CONCURRENCY" validate:"min=0"`

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// LoadDefaults populates the optional settings. Required settings have no
// default and must come from one of the configuration sources.
func (c *Config) LoadDefaults() {
	c.CORSOrigin = "http://localhost:3000"
	c.LogLevel = "info"
	c.LogFormat = "json"
	c.TraceExporter = "none"
	c.BcryptCost = 10
}

// IsProduction reports whether the server runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// Load builds a Config from args (without the program name) and the given
// environment, in increasing precedence: defaults, config file, environment,
// flags. The result is validated.
func Load(args []string, environ map[string]string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, args, environ); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig reads the process command line and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], env.ToMap(os.Environ()))
}
