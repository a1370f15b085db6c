package config

import (
	"errors" // Validation errors
	"fmt"    // Error wrapping
	"time"   // Durations

	"github.com/caarlos0/env/v11" // Struct-tag environment parsing
	"github.com/joho/godotenv"    // For loading .env files
	"github.com/shopspring/decimal"
)

// Config holds the application configuration
type Config struct {
	AppPort           string          `env:"APP_PORT" envDefault:"8080"`           // Application port
	APIPrefix         string          `env:"API_PREFIX" envDefault:"/api/v1"`      // Route prefix for the API
	DBDriver          string          `env:"DB_DRIVER" envDefault:"mysql"`         // Database driver: mysql or sqlite
	DBUser            string          `env:"DB_USER"`                              // Database user
	DBPassword        string          `env:"DB_PASSWORD"`                          // Database password
	DBHost            string          `env:"DB_HOST" envDefault:"127.0.0.1"`       // Database host
	DBPort            string          `env:"DB_PORT" envDefault:"3306"`            // Database port
	DBName            string          `env:"DB_NAME" envDefault:"paywallet"`       // Database name
	SQLitePath        string          `env:"SQLITE_PATH" envDefault:"paywallet.db"` // SQLite file when DBDriver is sqlite
	JWTSecret         string          `env:"JWT_SECRET"`                           // JWT secret key
	TokenTTL          time.Duration   `env:"TOKEN_TTL" envDefault:"1h"`            // Session token lifetime
	BcryptCost        int             `env:"BCRYPT_COST" envDefault:"10"`          // bcrypt cost factor
	InitialBalanceMin decimal.Decimal `env:"INITIAL_BALANCE_MIN" envDefault:"1"`   // Lower bound of the signup grant
	InitialBalanceMax decimal.Decimal `env:"INITIAL_BALANCE_MAX" envDefault:"10000"` // Upper bound of the signup grant
	RedisAddr         string          `env:"REDIS_ADDR"`                           // Redis server address, empty disables caching
	RedisPass         string          `env:"REDIS_PASS"`                           // Redis password
	RedisDB           int             `env:"REDIS_DB" envDefault:"0"`              // Redis database number
	CacheTTL          time.Duration   `env:"CACHE_TTL" envDefault:"60s"`           // Lifetime of cached reads
	CORSOrigins       []string        `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","` // Allowed CORS origins
	LogLevel          string          `env:"LOG_LEVEL" envDefault:"info"`          // Logrus level
	IsProd            bool            `env:"IS_PROD" envDefault:"false"`           // Is production environment
}

// LoadConfig loads configuration from environment variables and validates it
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	return Parse(env.Options{})
}

// Parse builds a Config from the process environment, or from opts.Environment when set
func Parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	// Parse environment into the struct
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// Validate before anything uses it
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and value ranges
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	switch c.DBDriver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.InitialBalanceMin.IsNegative() {
		return errors.New("INITIAL_BALANCE_MIN must not be negative")
	}
	if c.InitialBalanceMax.LessThan(c.InitialBalanceMin) {
		return errors.New("INITIAL_BALANCE_MAX must not be below INITIAL_BALANCE_MIN")
	}
	return nil
}

// MySQLDSN builds the Data Source Name for the MySQL driver
func (c *Config) MySQLDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}
