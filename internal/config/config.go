package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Profiles select defaults for the secret key, log level and log format.
const (
	ProfileDev  = "dev"
	ProfileQA   = "qa"
	ProfileProd = "prod"
)

// Config holds the application configuration.
type Config struct {
	Env        string `env:"APP_ENV" envDefault:"dev"`
	ServerPort int    `env:"PORT" envDefault:"8080"`

	DatabaseURL string `env:"DATABASE_URL" envDefault:"sqlite:////tmp/users.db"`

	SecretKey  string        `env:"SECRET_KEY"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"10m"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"10"`

	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"` // console or json

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	// Rate limiting is enabled only when RedisAddr is set.
	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	RateLimit       int           `env:"RATE_LIMIT" envDefault:"120"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Load reads a .env file when present, then parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse builds a Config from environment variables and applies profile defaults.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.applyProfile(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyProfile() error {
	switch c.Env {
	case ProfileDev:
		setDefault(&c.SecretKey, "dev")
		setDefault(&c.LogLevel, "debug")
		setDefault(&c.LogFormat, "console")
	case ProfileQA:
		setDefault(&c.SecretKey, "qa")
		setDefault(&c.LogLevel, "info")
		setDefault(&c.LogFormat, "json")
	case ProfileProd:
		if c.SecretKey == "" {
			return errors.New("SECRET_KEY is required in the prod profile")
		}
		setDefault(&c.LogLevel, "info")
		setDefault(&c.LogFormat, "json")
	default:
		return fmt.Errorf("unknown APP_ENV %q (want dev, qa or prod)", c.Env)
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("unknown LOG_FORMAT %q (want console or json)", c.LogFormat)
	}
	return nil
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
