package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/example/bank-ledger/internal/ledger"
)

// Config holds the application configuration.
type Config struct {
	Environment string `env:"APP_ENV" envDefault:"development"`
	HTTPAddr    string `env:"BANK_HTTP_ADDR" envDefault:":8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	DailyWithdrawalLimit float64 `env:"BANK_DAILY_WITHDRAWAL_LIMIT" envDefault:"5000"`
	MinimumBalance       float64 `env:"BANK_MINIMUM_BALANCE" envDefault:"100"`
	SavingsRate          float64 `env:"BANK_RATE_SAVINGS" envDefault:"0.01"`
	CheckingRate         float64 `env:"BANK_RATE_CHECKING" envDefault:"0"`
	BusinessRate         float64 `env:"BANK_RATE_BUSINESS" envDefault:"0.02"`

	MaxBodyBytes int64 `env:"BANK_MAX_BODY_BYTES" envDefault:"1048576"`
	AuditEnabled bool  `env:"BANK_AUDIT" envDefault:"true"`
}

// Load reads an optional .env file from the working directory, then the
// environment, and validates the result.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return LoadFromEnv()
}

// LoadFromEnv parses configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var problems []string

	if c.HTTPAddr == "" {
		problems = append(problems, "BANK_HTTP_ADDR must not be empty")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if c.MaxBodyBytes <= 0 {
		problems = append(problems, "BANK_MAX_BODY_BYTES must be positive")
	}

	if err := c.Policy().Validate(); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}

	return nil
}

// Policy builds the ledger policy the configuration describes.
func (c *Config) Policy() ledger.Policy {
	return ledger.Policy{
		DailyWithdrawalLimit: c.DailyWithdrawalLimit,
		MinimumBalance:       c.MinimumBalance,
		Rates: map[ledger.AccountType]float64{
			ledger.Savings:  c.SavingsRate,
			ledger.Checking: c.CheckingRate,
			ledger.Business: c.BusinessRate,
		},
	}
}

// ParseLevel maps LOG_LEVEL values to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL %q is not one of debug, info, warn, error", s)
	}
	return level, nil
}
