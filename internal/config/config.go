package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type AppConfig struct {
	Port            string        `envconfig:"APP_PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"APP_SHUTDOWN_TIMEOUT" default:"5s"`
}

type PostgresConfig struct {
	Host            string        `envconfig:"DB_HOST" required:"true"`
	Port            string        `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" required:"true"`
	Password        string        `envconfig:"DB_PASSWORD" required:"true"`
	DBName          string        `envconfig:"DB_NAME" required:"true"`
	SSLMode         string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConns        int32         `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns        int32         `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	MigrationsPath  string        `envconfig:"DB_MIGRATIONS_PATH" default:"migrations"`
}

type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// PaymentConfig controls the simulated gateways. FailureProbability is the
// chance a Visa or IBox charge fails transiently; the bank gateway never
// fails. CardNumberLength is the single canonical length for card numbers.
type PaymentConfig struct {
	FailureProbability float64       `envconfig:"PAYMENT_FAILURE_PROBABILITY" default:"0.10"`
	CardNumberLength   int           `envconfig:"PAYMENT_CARD_NUMBER_LENGTH" default:"16"`
	GatewayTimeout     time.Duration `envconfig:"PAYMENT_GATEWAY_TIMEOUT" default:"5s"`
}

type InvoiceConfig struct {
	ValidityDays int `envconfig:"INVOICE_VALIDITY_DAYS" default:"30"`
}

type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Payment  PaymentConfig
	Invoice  InvoiceConfig
}

// Load reads an optional .env file and then populates the config from the
// environment. A missing .env file is not an error; missing required
// variables are.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: failed to load %s: %w", envPath, err)
		}
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("config: failed to process environment: %w", err)
	}

	if cfg.Payment.FailureProbability < 0 || cfg.Payment.FailureProbability > 1 {
		return nil, fmt.Errorf("config: PAYMENT_FAILURE_PROBABILITY must be in [0, 1], got %f", cfg.Payment.FailureProbability)
	}
	if cfg.Invoice.ValidityDays < 1 {
		return nil, fmt.Errorf("config: INVOICE_VALIDITY_DAYS must be at least 1, got %d", cfg.Invoice.ValidityDays)
	}

	return cfg, nil
}
