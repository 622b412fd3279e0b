// Package config loads process configuration from APPROVAL_* environment
// variables, after an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = "APPROVAL"

// Config embeds its sections so every variable is APPROVAL_<NAME>
// without a section infix.
type Config struct {
	HTTP
	DB
	Log
	Policy
	Expense
	Retry
}

type HTTP struct {
	Port            int           `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	AllowedOrigins  []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
	Scenarios       bool          `envconfig:"SCENARIOS" default:"false"`
}

type DB struct {
	// Path of the SQLite database. "memory" selects the in-process store.
	Path string `envconfig:"DB_PATH" default:"approvals.db"`
}

type Log struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
	Output string `envconfig:"LOG_OUTPUT" default:"stdout"`
}

type Policy struct {
	// Limits is "actor:limit,..."; 0 means unlimited.
	Limits string `envconfig:"LIMITS"`

	// File is a JSON rules file. When set it replaces Limits and
	// AccrualDaysPerMonth.
	File string `envconfig:"POLICY_FILE"`

	AccrualDaysPerMonth float64 `envconfig:"ACCRUAL_DAYS_PER_MONTH" default:"2"`
	AllowLeaveOverdraft bool    `envconfig:"ALLOW_LEAVE_OVERDRAFT" default:"false"`

	// AccrualInterval schedules periodic recalculation; 0 disables it.
	AccrualInterval time.Duration `envconfig:"ACCRUAL_INTERVAL" default:"1h"`
	AccrualOwners   []string      `envconfig:"ACCRUAL_OWNERS"`
}

type Expense struct {
	AutoPay        bool `envconfig:"EXPENSE_AUTO_PAY" default:"true"`
	AllowOverdraft bool `envconfig:"EXPENSE_ALLOW_OVERDRAFT" default:"false"`
}

type Retry struct {
	Attempts uint64        `envconfig:"RETRY_ATTEMPTS" default:"3"`
	Base     time.Duration `envconfig:"RETRY_BASE" default:"10ms"`
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("%s_PORT must be between 1 and 65535, got %d", EnvPrefix, c.HTTP.Port)
	}
	if c.DB.Path == "" {
		return fmt.Errorf("%s_DB_PATH is required", EnvPrefix)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%s_LOG_FORMAT must be json or console, got %q", EnvPrefix, c.Log.Format)
	}
	if c.Policy.AccrualDaysPerMonth < 0 {
		return fmt.Errorf("%s_ACCRUAL_DAYS_PER_MONTH must not be negative", EnvPrefix)
	}
	if c.Retry.Attempts == 0 {
		return fmt.Errorf("%s_RETRY_ATTEMPTS must be at least 1", EnvPrefix)
	}
	return nil
}

// InMemory reports whether the in-process store is selected.
func (c *Config) InMemory() bool {
	return c.DB.Path == "memory"
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}
