package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Ledger.Driver)
	assert.Equal(t, "EUR", cfg.Ledger.Currency)
	assert.Equal(t, 20, cfg.Import.PreviewRows)
	assert.Equal(t, 0, cfg.Import.DuplicateWindowDays)
	assert.Equal(t, "@every 15m", cfg.Import.InboxSchedule)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("LEDGER_DRIVER", "Postgres")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("IMPORT_DUPLICATE_WINDOW_DAYS", "2")
	t.Setenv("IMPORT_DUPLICATE_MIN_SIMILARITY", "0.85")
	t.Setenv("IMPORT_DUPLICATE_REQUIRE_SAME_TYPE", "true")
	t.Setenv("IMPORT_PREVIEW_ROWS", "not-a-number")
	t.Setenv("CURRENCY", "usd")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Ledger.Driver)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 2, cfg.Import.DuplicateWindowDays)
	assert.Equal(t, 0.85, cfg.Import.DuplicateMinSimilarity)
	assert.True(t, cfg.Import.DuplicateRequireSameType)
	assert.Equal(t, 20, cfg.Import.PreviewRows)
	assert.Equal(t, "USD", cfg.Ledger.Currency)
	assert.Contains(t, cfg.Database.DSN(), "port=6543")
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("IMPORT_ARCHIVE_DIR=/tmp/statements\nLOG_FORMAT=JSON\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("IMPORT_ARCHIVE_DIR")
		os.Unsetenv("LOG_FORMAT")
	})

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "/tmp/statements", cfg.Archive.Dir)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown driver", "LEDGER_DRIVER", "sqlite"},
		{"negative window", "IMPORT_DUPLICATE_WINDOW_DAYS", "-1"},
		{"similarity above one", "IMPORT_DUPLICATE_MIN_SIMILARITY", "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
