package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/circulation?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 14, cfg.Business.LoanPeriodDays)
	assert.Equal(t, 1, cfg.Business.MaxRenewals)
	assert.Equal(t, 48*time.Hour, cfg.Business.ReservationHold)
	assert.Equal(t, 3, cfg.Business.DueSoonWindowDays)
	assert.True(t, cfg.GetFinePerDay().Equal(decimal.RequireFromString("2.00")))
	assert.False(t, cfg.GatewayConfigured())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/circulation")
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("LOAN_PERIOD_DAYS", "21")
	t.Setenv("FINE_PER_DAY", "1.50")
	t.Setenv("RESERVATION_HOLD", "24h")
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("PAGSEGURO_TOKEN", "tok")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 21, cfg.Business.LoanPeriodDays)
	assert.Equal(t, 24*time.Hour, cfg.Business.ReservationHold)
	assert.True(t, cfg.GetFinePerDay().Equal(decimal.RequireFromString("1.50")))
	assert.Equal(t, time.UTC, cfg.GetLocation())
	assert.True(t, cfg.GatewayConfigured())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing database url", map[string]string{"DATABASE_URL": ""}},
		{"bad driver", map[string]string{"DATABASE_DRIVER": "mysql"}},
		{"bad fine rate", map[string]string{"FINE_PER_DAY": "two"}},
		{"bad timezone", map[string]string{"APP_TIMEZONE": "Mars/Olympus"}},
		{"bad cron", map[string]string{"FINE_SWEEP_CRON": "every day"}},
		{"zero loan period", map[string]string{"LOAN_PERIOD_DAYS": "0"}},
		{"production without jwt secret", map[string]string{"ENV": "production", "WEBHOOK_TOKEN": "hook"}},
		{"production without webhook token", map[string]string{"ENV": "production", "JWT_SECRET": "secret"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://db/circulation")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ProductionSecrets(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/circulation")
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("WEBHOOK_TOKEN", "hook")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "hook", cfg.Auth.WebhookToken)
}
