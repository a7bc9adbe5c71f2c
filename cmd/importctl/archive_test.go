package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-import/internal/domain/ledger"
	"github.com/FACorreiaa/statement-import/pkg/storage"
)

func TestPrintArchive(t *testing.T) {
	var buf bytes.Buffer
	printArchive(&buf, nil)
	assert.Equal(t, "No archived statements.\n", buf.String())

	buf.Reset()
	id := uuid.MustParse("6f1c2f9e-3b7a-4d1e-9a51-0d1f4b3c2a10")
	printArchive(&buf, []*storage.StatementInfo{{
		ID:           id,
		Name:         "extracto.csv",
		RowsImported: 2,
		CreatedAt:    time.Date(2026, 1, 21, 9, 30, 0, 0, time.Local),
	}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[1], id.String())
	assert.Contains(t, lines[1], "2026-01-21 09:30")
	assert.Contains(t, lines[1], " - ")
	assert.True(t, strings.HasSuffix(lines[1], "extracto.csv"))
}

func TestArchive_CommittedStatementCanBeReadBack(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	deps := testDeps(t, dir, ledger.Account{ID: "acc1", Name: "Current", Currency: "USD", Balance: decimal.NewFromInt(1000)})
	defer deps.Cleanup()
	file := writeStatement(t, dir, statement)

	var out bytes.Buffer
	require.NoError(t, runImport(ctx, deps, file, &importOptions{rows: 20}, &out))

	infos, err := deps.Archive.List(ctx, "acc1")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "caixabank", infos[0].BankID)

	rc, _, err := deps.Archive.Open(ctx, "acc1", infos[0].ID)
	require.NoError(t, err)
	raw, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, statement, string(raw))
}
