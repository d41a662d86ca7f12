package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for our application.
// Sections are squashed so every field maps to a flat environment key.
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
	Auth      AuthConfig      `mapstructure:",squash"`
	Gateway   GatewayConfig   `mapstructure:",squash"`
	Mail      MailConfig      `mapstructure:",squash"`
	Health    HealthConfig    `mapstructure:",squash"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL"`
	Driver          string        `mapstructure:"DATABASE_DRIVER"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
	AutoMigrate     bool          `mapstructure:"DATABASE_AUTO_MIGRATE"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type SchedulerConfig struct {
	Timezone        string        `mapstructure:"APP_TIMEZONE"`
	FineSweepSpec   string        `mapstructure:"FINE_SWEEP_CRON"`
	DueSoonSpec     string        `mapstructure:"DUE_SOON_CRON"`
	OverdueSpec     string        `mapstructure:"OVERDUE_CRON"`
	ReservationSpec string        `mapstructure:"RESERVATION_EXPIRY_CRON"`
	JobTimeout      time.Duration `mapstructure:"JOB_TIMEOUT"`
	LockTTL         time.Duration `mapstructure:"SWEEP_LOCK_TTL"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	LoanPeriodDays    int           `mapstructure:"LOAN_PERIOD_DAYS"`
	MaxRenewals       int           `mapstructure:"MAX_RENEWALS"`
	FinePerDay        string        `mapstructure:"FINE_PER_DAY"`
	ReservationHold   time.Duration `mapstructure:"RESERVATION_HOLD"`
	DueSoonWindowDays int           `mapstructure:"DUE_SOON_WINDOW_DAYS"`
}

type AuthConfig struct {
	JWTSecret    string `mapstructure:"JWT_SECRET"`
	WebhookToken string `mapstructure:"WEBHOOK_TOKEN"`
}

type GatewayConfig struct {
	Env     string        `mapstructure:"PAGSEGURO_ENV"`
	Token   string        `mapstructure:"PAGSEGURO_TOKEN"`
	Email   string        `mapstructure:"PAGSEGURO_EMAIL"`
	Timeout time.Duration `mapstructure:"GATEWAY_TIMEOUT"`
}

type MailConfig struct {
	Host     string        `mapstructure:"SMTP_HOST"`
	Port     int           `mapstructure:"SMTP_PORT"`
	User     string        `mapstructure:"SMTP_USER"`
	Password string        `mapstructure:"SMTP_PASSWORD"`
	From     string        `mapstructure:"MAIL_FROM"`
	Timeout  time.Duration `mapstructure:"MAIL_TIMEOUT"`
}

type HealthConfig struct {
	Timeout time.Duration `mapstructure:"HEALTH_CHECK_TIMEOUT"`
}

var defaults = map[string]any{
	"SERVER_PORT":                "8080",
	"SERVER_HOST":                "0.0.0.0",
	"ENV":                        "development",
	"SERVER_READ_TIMEOUT":        "15s",
	"SERVER_WRITE_TIMEOUT":       "15s",
	"DATABASE_URL":               "",
	"DATABASE_DRIVER":            "postgres",
	"DATABASE_MAX_OPEN_CONNS":    25,
	"DATABASE_MAX_IDLE_CONNS":    5,
	"DATABASE_CONN_MAX_LIFETIME": "5m",
	"DATABASE_AUTO_MIGRATE":      false,
	"REDIS_HOST":                 "localhost",
	"REDIS_PORT":                 "6379",
	"REDIS_PASSWORD":             "",
	"REDIS_DB":                   0,
	"APP_TIMEZONE":               "America/Sao_Paulo",
	"FINE_SWEEP_CRON":            "0 5 0 * * *",
	"DUE_SOON_CRON":              "0 0 9 * * *",
	"OVERDUE_CRON":               "0 30 9 * * *",
	"RESERVATION_EXPIRY_CRON":    "0 */15 * * * *",
	"JOB_TIMEOUT":                "10m",
	"SWEEP_LOCK_TTL":             "15m",
	"LOG_LEVEL":                  "info",
	"LOG_FORMAT":                 "json",
	"LOAN_PERIOD_DAYS":           14,
	"MAX_RENEWALS":               1,
	"FINE_PER_DAY":               "2.00",
	"RESERVATION_HOLD":           "48h",
	"DUE_SOON_WINDOW_DAYS":       3,
	"JWT_SECRET":                 "",
	"WEBHOOK_TOKEN":              "",
	"PAGSEGURO_ENV":              "sandbox",
	"PAGSEGURO_TOKEN":            "",
	"PAGSEGURO_EMAIL":            "",
	"GATEWAY_TIMEOUT":            "10s",
	"SMTP_HOST":                  "",
	"SMTP_PORT":                  587,
	"SMTP_USER":                  "",
	"SMTP_PASSWORD":              "",
	"MAIL_FROM":                  "biblioteca@localhost",
	"MAIL_TIMEOUT":               "10s",
	"HEALTH_CHECK_TIMEOUT":       "5s",
}

// Load reads configuration from environment variables and .env files
func Load() (*Config, error) {
	// Don't fail if .env file doesn't exist. Existing env vars win.
	_ = godotenv.Load(".env")
	_ = godotenv.Load("deployments/.env")

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or pgx, got %q", c.Database.Driver)
	}

	if c.Business.LoanPeriodDays <= 0 {
		return fmt.Errorf("LOAN_PERIOD_DAYS must be greater than 0")
	}

	if c.Business.MaxRenewals < 0 {
		return fmt.Errorf("MAX_RENEWALS must not be negative")
	}

	if c.Business.DueSoonWindowDays < 0 {
		return fmt.Errorf("DUE_SOON_WINDOW_DAYS must not be negative")
	}

	if c.Business.ReservationHold <= 0 {
		return fmt.Errorf("RESERVATION_HOLD must be a positive duration")
	}

	rate, err := decimal.NewFromString(c.Business.FinePerDay)
	if err != nil {
		return fmt.Errorf("FINE_PER_DAY must be a valid decimal: %w", err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("FINE_PER_DAY must not be negative")
	}

	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("APP_TIMEZONE must be a valid IANA zone: %w", err)
	}

	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for key, spec := range map[string]string{
		"FINE_SWEEP_CRON":         c.Scheduler.FineSweepSpec,
		"DUE_SOON_CRON":           c.Scheduler.DueSoonSpec,
		"OVERDUE_CRON":            c.Scheduler.OverdueSpec,
		"RESERVATION_EXPIRY_CRON": c.Scheduler.ReservationSpec,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s must be a valid cron spec: %w", key, err)
		}
	}

	if c.IsProduction() && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	if c.IsProduction() && c.Auth.WebhookToken == "" {
		return fmt.Errorf("WEBHOOK_TOKEN is required in production")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetFinePerDay returns the daily fine rate as decimal
func (c *Config) GetFinePerDay() decimal.Decimal {
	rate, _ := decimal.NewFromString(c.Business.FinePerDay)
	return rate
}

// GetLocation returns the canonical time zone used for all date math.
func (c *Config) GetLocation() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// RedisAddr returns host:port for the redis client.
func (c *Config) RedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// GatewayConfigured reports whether real gateway credentials are present.
func (c *Config) GatewayConfigured() bool {
	return c.Gateway.Token != ""
}
