package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Development fallbacks, only accepted outside release mode.
const (
	devJWTSecret     = "default_super_secret_key"
	devAdminPassword = "Admin@12345"
)

// Config holds all process-wide settings, read from the environment.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	GinMode  string `env:"GIN_MODE" envDefault:"debug"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DB  DBConfig
	JWT JWTConfig

	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@multitenant.com"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminName     string `env:"ADMIN_NAME" envDefault:"System Administrator"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`
}

type DBConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	Name     string `env:"DB_NAME" envDefault:"multitenant_db"`
	SSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`
}

// JWTConfig is the single secret/algorithm pair shared by token issue and verify.
type JWTConfig struct {
	Secret           string `env:"JWT_SECRET"`
	Algorithm        string `env:"JWT_ALGORITHM" envDefault:"HS256"`
	AccessTTLMinutes int    `env:"JWT_ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
}

// DSN builds the postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// IsRelease reports whether gin runs in release mode.
func (c Config) IsRelease() bool {
	return c.GinMode == "release"
}

// Load reads an optional env file and parses the environment into Config.
func Load(log logrus.FieldLogger, envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{"configs/.env"}
	}
	if err := godotenv.Load(envFiles...); err != nil {
		log.WithError(err).Info("no env file loaded, using process environment")
	}
	return Parse()
}

// Parse builds Config from the current process environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWT.Secret == "" {
		if c.IsRelease() {
			return errors.New("JWT_SECRET environment variable is required in release mode")
		}
		c.JWT.Secret = devJWTSecret
	}
	if c.AdminPassword == "" {
		if c.IsRelease() {
			return errors.New("ADMIN_PASSWORD environment variable is required in release mode")
		}
		c.AdminPassword = devAdminPassword
	}
	switch c.JWT.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return fmt.Errorf("unsupported JWT_ALGORITHM %q: expected HS256, HS384 or HS512", c.JWT.Algorithm)
	}
	if c.JWT.AccessTTLMinutes <= 0 {
		return fmt.Errorf("JWT_ACCESS_TOKEN_EXPIRE_MINUTES must be positive, got %d", c.JWT.AccessTTLMinutes)
	}
	return nil
}
