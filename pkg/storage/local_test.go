package storage

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newArchive(t *testing.T) *LocalArchive {
	t.Helper()
	a, err := NewLocalArchive(t.TempDir())
	require.NoError(t, err)
	tick := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	return a
}

func TestLocalArchive_StoreAndOpen(t *testing.T) {
	ctx := context.Background()
	a := newArchive(t)
	content := []byte("Fecha;Importe;Concepto\n15/01/2026;-45,50;MERCADONA\n")

	info, err := a.Store(ctx, StatementInfo{AccountID: "acc1", SessionID: "s1", Name: "../enero.csv", RowsImported: 1}, bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, Checksum(content), info.Checksum)
	assert.NotContains(t, info.Path, "/")

	rc, got, err := a.Open(ctx, "acc1", info.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.Equal(t, "s1", got.SessionID)
}

func TestLocalArchive_ListAndFind(t *testing.T) {
	ctx := context.Background()
	a := newArchive(t)

	first, err := a.Store(ctx, StatementInfo{AccountID: "acc1", Name: "a.csv"}, bytes.NewReader([]byte("a")))
	require.NoError(t, err)
	_, err = a.Store(ctx, StatementInfo{AccountID: "acc1", Name: "b.csv"}, bytes.NewReader([]byte("b")))
	require.NoError(t, err)
	_, err = a.Store(ctx, StatementInfo{AccountID: "acc2", Name: "c.csv"}, bytes.NewReader([]byte("a")))
	require.NoError(t, err)

	list, err := a.List(ctx, "acc1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a.csv", list[0].Name)

	found, err := a.FindByChecksum(ctx, "acc1", Checksum([]byte("a")))
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = a.FindByChecksum(ctx, "acc1", Checksum([]byte("zzz")))
	assert.ErrorIs(t, err, ErrNotFound)

	empty, err := a.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestLocalArchive_Delete(t *testing.T) {
	ctx := context.Background()
	a := newArchive(t)
	info, err := a.Store(ctx, StatementInfo{AccountID: "acc1", Name: "a.csv"}, bytes.NewReader([]byte("a")))
	require.NoError(t, err)

	require.NoError(t, a.Delete(ctx, "acc1", info.ID))

	_, err = a.GetInfo(ctx, "acc1", info.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, a.Delete(ctx, "acc1", uuid.New()), ErrNotFound)
}

func TestLocalArchive_RequiresAccount(t *testing.T) {
	_, err := newArchive(t).Store(context.Background(), StatementInfo{Name: "a.csv"}, bytes.NewReader(nil))
	assert.Error(t, err)
}
