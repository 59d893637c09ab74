package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "10", cfg.Payment.MinDeposit)
	assert.Equal(t, "10", cfg.Rewards.DailyBonus)
	assert.Equal(t, 3, cfg.Rewards.StreakLength)
	assert.Equal(t, int64(10), cfg.Rewards.FreeGamePoints)
	assert.Equal(t, "1000", cfg.Wallet.DailyTransferLimit)
	assert.Equal(t, 15*time.Second, cfg.Payment.Timeout)
	assert.Equal(t, "@every 15m", cfg.Leaderboard.Schedule)
	assert.Empty(t, cfg.Bot.Token)
	assert.Empty(t, cfg.Admin.TelegramIDs)
	assert.Empty(t, cfg.Admin.AccountIDs)
}

func TestLoad_AdminSection(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := []byte(`
admin:
  telegram_ids: [123456789, 42]
  account_ids: ["firebase-uid-1"]
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, []int64{123456789, 42}, cfg.Admin.TelegramIDs)
	assert.Equal(t, []string{"firebase-uid-1"}, cfg.Admin.AccountIDs)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := []byte(`
database:
  host: db.internal
  port: 6543
rewards:
  timezone: Africa/Addis_Ababa
payment:
  min_deposit: "25"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("PAYMENT_SECRET_KEY", "CHASECK_TEST-abc")
	t.Setenv("DATABASE_HOST", "db.override")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "db.override", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "25", cfg.Payment.MinDeposit)
	assert.Equal(t, "CHASECK_TEST-abc", cfg.Payment.SecretKey)

	loc, err := cfg.Rewards.Location()
	require.NoError(t, err)
	assert.Equal(t, "Africa/Addis_Ababa", loc.String())
}

func TestLoad_RejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	t.Setenv("REWARDS_TIMEZONE", "Mars/Olympus")
	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rewards.timezone")
}

func TestValidate_Amounts(t *testing.T) {
	cfg := &Config{
		Payment: PaymentConfig{MinDeposit: "10"},
		Rewards: RewardsConfig{Timezone: "UTC", DailyBonus: "ten", StreakLength: 3},
		Wallet:  WalletConfig{DailyTransferLimit: "1000"},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rewards.daily_bonus")

	cfg.Rewards.DailyBonus = "10"
	cfg.Wallet.DailyTransferLimit = "-1"
	require.Error(t, cfg.Validate())

	cfg.Wallet.DailyTransferLimit = "1000"
	require.NoError(t, cfg.Validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 1, Name: "n"}
	assert.Equal(t, "postgres://u:p@h:1/n?sslmode=disable", d.DSN())

	d.SSLMode = "require"
	assert.Equal(t, "postgres://u:p@h:1/n?sslmode=require", d.DSN())
}
