package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, 10*time.Second, c.Server.ShutdownTimeout)
	assert.Equal(t, "USD", c.Ledger.Currency)
	assert.Equal(t, "@hourly", c.Jobs.IntegritySchedule)
	assert.Empty(t, c.Database.URL)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "custom.yaml")
	yaml := "server:\n  addr: \":9090\"\nledger:\n  currency: eur\nlog:\n  format: text\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("DATABASE_URL", "postgres://localhost/finledger")
	t.Setenv("FINLEDGER_LOG_LEVEL", "debug")
	t.Setenv("DEV_SEED", "true")
	t.Setenv("FINLEDGER_JOBS_ENABLED", "false")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", c.Server.Addr)
	assert.Equal(t, "EUR", c.Ledger.Currency)
	assert.Equal(t, "text", c.Log.Format)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "postgres://localhost/finledger", c.Database.URL)
	assert.True(t, c.Ledger.DevSeed)
	assert.False(t, c.Jobs.Enabled)
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JWT_HS256_SECRET=s3cret\n"), 0o600))
	t.Setenv("JWT_HS256_SECRET", "") // restored after the test; godotenv does not override set vars
	require.NoError(t, os.Unsetenv("JWT_HS256_SECRET"))

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", c.Auth.JWTSecret)
}

func TestLoadRejectsBadValues(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("FINLEDGER_LEDGER_CURRENCY", "DOLLARS")
	_, err := Load("")
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LogConfig{Level: "WARN", Format: "text"}, &buf)
	l.Info("hidden")
	l.Warn("shown", "k", "v")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.Contains(out, "k=v"), out)

	buf.Reset()
	l = NewLogger(LogConfig{}, &buf)
	assert.False(t, l.Enabled(context.Background(), slog.LevelDebug))
	l.Info("json")
	assert.True(t, strings.HasPrefix(buf.String(), "{"))
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, added in Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
