package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, "approvals.db", cfg.DB.Path)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 2.0, cfg.Policy.AccrualDaysPerMonth)
	assert.True(t, cfg.Expense.AutoPay)
	assert.Equal(t, uint64(3), cfg.Retry.Attempts)
	assert.False(t, cfg.InMemory())
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("APPROVAL_PORT", "9090")
	t.Setenv("APPROVAL_DB_PATH", "memory")
	t.Setenv("APPROVAL_LIMITS", "mgr-1:5000,hr-1:0")
	t.Setenv("APPROVAL_EXPENSE_AUTO_PAY", "false")
	t.Setenv("APPROVAL_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.True(t, cfg.InMemory())
	assert.Equal(t, "mgr-1:5000,hr-1:0", cfg.Policy.Limits)
	assert.False(t, cfg.Expense.AutoPay)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"port out of range": {"APPROVAL_PORT", "70000"},
		"bad log format":    {"APPROVAL_LOG_FORMAT", "xml"},
		"negative accrual":  {"APPROVAL_ACCRUAL_DAYS_PER_MONTH", "-1"},
		"zero attempts":     {"APPROVAL_RETRY_ATTEMPTS", "0"},
		"unparseable port":  {"APPROVAL_PORT", "eighty"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}
