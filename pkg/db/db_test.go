package db

import (
	"io/fs"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		raw, err := fs.ReadFile(migrations, f)
		require.NoError(t, err)
		body := string(raw)
		assert.True(t, strings.Contains(body, "-- +goose Up"), f)
		assert.True(t, strings.Contains(body, "-- +goose Down"), f)
	}
}

func TestNew_InvalidDSN(t *testing.T) {
	_, err := New(Config{DSN: "postgres://%zz"}, slog.Default())
	assert.ErrorContains(t, err, "failed to parse database config")
}
