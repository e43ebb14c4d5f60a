package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_USER", "app")
	t.Setenv("POSTGRES_PASSWORD", "pw")
	t.Setenv("POSTGRES_DB", "market")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "5432")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("GO_ENV", "dev")
	t.Setenv("FE_URL", "http://localhost:5173")
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("PUBLIC_BASE_URL", "")
	t.Setenv("VNPAY_RETURN_URL", "")
	t.Setenv("VNPAY_WALLET_RETURN_URL", "")
	t.Setenv("VNPAY_TMN_CODE", "")
	t.Setenv("VNPAY_HASH_SECRET", "")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SMTP_PORT", "")
}

func TestLoad_DefaultsAndDerivedURLs(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.AccessTokenTTL)
	assert.Equal(t, 5432, cfg.PostgresPort)
	assert.True(t, cfg.IsDev())
	assert.False(t, cfg.VNPayEnabled())
	assert.Equal(t, "http://localhost:8080/api/Order/vnpay-callback", cfg.VNPayReturnURL)
	assert.Equal(t, "http://localhost:8080/api/wallet/vnpay-callback", cfg.VNPayWalletReturnURL)
	assert.Equal(t, "host=db user=app password=pw dbname=market port=5432 sslmode=disable TimeZone=UTC", cfg.DSN())
}

// DATABASE_URLがあればPOSTGRES_*は不要
func TestLoad_DatabaseURLWins(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@h/db")
	t.Setenv("POSTGRES_USER", "")
	t.Setenv("POSTGRES_PORT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h/db", cfg.DSN())
}

func TestLoad_MissingRequired(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"PORT", "PORT is required"},
		{"JWT_SECRET", "JWT_SECRET is required"},
		{"GO_ENV", "GO_ENV is required"},
		{"FE_URL", "FE_URL is required"},
		{"POSTGRES_HOST", "POSTGRES_HOST is required"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(tt.key, "")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_InvalidTTL(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ACCESS_TOKEN_TTL", "forever")

	_, err := Load()
	assert.ErrorContains(t, err, "ACCESS_TOKEN_TTL must be duration")
}

func TestVNPayEnabled(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("VNPAY_TMN_CODE", "CODE")
	t.Setenv("VNPAY_HASH_SECRET", "SECRET")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.VNPayEnabled())
}

func TestLoad_SMTP(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.SMTPEnabled())
	assert.Equal(t, 587, cfg.SMTPPort)

	t.Setenv("SMTP_HOST", "smtp.mail.local")
	t.Setenv("SMTP_PORT", "2525")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.SMTPEnabled())
	assert.Equal(t, 2525, cfg.SMTPPort)

	t.Setenv("SMTP_PORT", "abc")
	_, err = Load()
	assert.Error(t, err)
}
