package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const devJWTSecret = "dev-secret-change-me"

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	HTTP     HTTPConfig     `yaml:"http"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`

	// ShutdownTimeout bounds graceful shutdown of both servers.
	ShutdownTimeout time.Duration `yaml:"-"`
}

// DatabaseConfig contains database-related settings.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite3" or "postgres"
	DSN    string `yaml:"dsn"`    // file path for sqlite3, connection URL for postgres
}

// GRPCConfig contains gRPC server settings.
type GRPCConfig struct {
	Address string `yaml:"address"` // gRPC server listen address (e.g., ":50051")
}

// HTTPConfig contains REST server settings.
type HTTPConfig struct {
	Address string `yaml:"address"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret"` // JWT signing secret
	// TokenTTLHours is the lifetime of tokens minted by the seed tool. Zero means no expiry.
	TokenTTLHours int `yaml:"tokenTTLHours"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load loads configuration from an optional YAML file (CONFIG_FILE) and
// environment variables, which take precedence. JWT_SECRET is required.
func Load() (*Config, error) {
	cfg, err := load("")
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set; required for production")
	}
	return cfg, nil
}

// LoadWithDefaults is like Load but uses a safe default for JWT_SECRET in development.
// WARNING: Only use in development! Use Load() in production.
func LoadWithDefaults() (*Config, error) {
	return load(devJWTSecret)
}

func load(secretDefault string) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "sqlite3", DSN: "app.db"},
		GRPC:     GRPCConfig{Address: ":50051"},
		HTTP:     HTTPConfig{Address: ":3333"},
		Auth:     AuthConfig{JWTSecret: secretDefault, TokenTTLHours: 24},
		Log:      LogConfig{Level: "info", Format: "text"},
	}
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DB_DSN", cfg.Database.DSN)
	cfg.GRPC.Address = getEnv("GRPC_ADDRESS", cfg.GRPC.Address)
	cfg.HTTP.Address = getEnv("HTTP_ADDRESS", cfg.HTTP.Address)
	cfg.Auth.JWTSecret = getEnv("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Log.Level = strings.ToLower(getEnv("LOG_LEVEL", cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(getEnv("LOG_FORMAT", cfg.Log.Format))

	ttl, err := getEnvInt("TOKEN_TTL_HOURS", cfg.Auth.TokenTTLHours)
	if err != nil {
		return nil, err
	}
	cfg.Auth.TokenTTLHours = ttl
	secs, err := getEnvInt("SHUTDOWN_TIMEOUT_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	cfg.ShutdownTimeout = time.Duration(secs) * time.Second

	switch cfg.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
	return cfg, nil
}

// mergeFile overlays the YAML file at path onto c. Keys absent from the file keep their defaults.
func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// TokenTTL is the lifetime of issued tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTTLHours) * time.Hour
}

// getEnv retrieves an environment variable with a default fallback.
func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// getEnvInt retrieves an environment variable as an integer with a default fallback.
func getEnvInt(key string, defaultVal int) (int, error) {
	if value, exists := os.LookupEnv(key); exists {
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
		}
		if intVal < 0 {
			return 0, errors.New(key + " must not be negative")
		}
		return intVal, nil
	}
	return defaultVal, nil
}

// String returns a string representation of the config (sensitive values are masked).
func (c *Config) String() string {
	return fmt.Sprintf("Config{DB: %s %s, gRPC: %s, HTTP: %s, Log: %s/%s, Auth: *** (masked) ***}",
		c.Database.Driver, maskDSN(c.Database.DSN), c.GRPC.Address, c.HTTP.Address, c.Log.Level, c.Log.Format)
}

// maskDSN hides the password part of a URL-style DSN.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		return dsn[:scheme+3] + creds[:i] + ":***" + dsn[at:]
	}
	return dsn
}
