package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TEST_BOT_TOKEN", "123:abc")
	dbPath := filepath.Join(t.TempDir(), "nested", "bot.db")

	path := writeConfig(t, `
telegram:
  bot_token: ${TEST_BOT_TOKEN}
channel:
  id: -1001234567890
  url: https://t.me/consult_channel
operators: [11, 22]
database:
  path: `+dbPath+`
session:
  hold_ttl_minutes: 5
notify:
  rate_per_second: 10
  burst: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, int64(-1001234567890), cfg.Channel.ID)
	assert.Equal(t, []int64{11, 22}, cfg.Operators)
	assert.Equal(t, 5*time.Minute, cfg.HoldTTL())
	assert.Zero(t, cfg.SessionTTL())
	assert.Equal(t, 16, cfg.Telegram.Workers)
	assert.Equal(t, "consultbot:", cfg.Redis.KeyPrefix)
	assert.Equal(t, 10.0, cfg.Notify.RatePerSecond)
	assert.DirExists(t, filepath.Dir(dbPath))
}

func TestLoad_Invalid(t *testing.T) {
	path := writeConfig(t, "telegram:\n  debug: true\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bot_token")
	assert.Contains(t, err.Error(), "channel.id")
	assert.Contains(t, err.Error(), "operator")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDurations_Defaults(t *testing.T) {
	var cfg Config
	assert.Zero(t, cfg.SessionTTL())
	assert.Equal(t, 30*time.Minute, cfg.HoldTTL())

	cfg.Session.TTLHours = 48
	assert.Equal(t, 48*time.Hour, cfg.SessionTTL())
	assert.Equal(t, 24*time.Hour, cfg.BackupInterval())
	assert.Equal(t, 7*24*time.Hour, cfg.BackupRetention())
}
