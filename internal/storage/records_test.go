package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exdform/internal/domain"
	"exdform/internal/storage"
)

func openTestStore(t *testing.T) (*storage.RecordStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "records.db")
	db, err := storage.New(path)
	require.NoError(t, err)
	store := storage.NewRecordStore(db)
	t.Cleanup(func() { store.Close() })
	return store, path
}

func TestRecordStore_AppendReadAll(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	first := domain.Record{"weight": domain.String("12.34"), "smoker": domain.Int(1)}
	second := domain.Record{"Red": domain.Int(0), "comment": domain.String("")}

	id1, err := store.Append(ctx, first)
	require.NoError(t, err)
	id2, err := store.Append(ctx, second)
	require.NoError(t, err)
	assert.Less(t, id1, id2)

	got, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.StoredRecord{ID: id1, Data: first}, got[0])
	assert.Equal(t, domain.StoredRecord{ID: id2, Data: second}, got[1])
}

func TestRecordStore_ClearThenReadAllIsEmpty(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	_, err := store.Append(ctx, domain.Record{"a": domain.String("x")})
	require.NoError(t, err)
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	got, err := store.ReadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	id, err := store.Append(ctx, domain.Record{"a": domain.String("y")})
	require.NoError(t, err)
	assert.Positive(t, id)
}

func TestRecordStore_DurableAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "records.db")

	db, err := storage.New(path)
	require.NoError(t, err)
	store := storage.NewRecordStore(db)
	_, err = store.Append(ctx, domain.Record{"a": domain.String("kept")})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := storage.Open(ctx, domain.DatabaseConnection{Host: path})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.String("kept"), got[0].Data["a"])
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := storage.Open(context.Background(), domain.DatabaseConnection{Driver: "oracle"})
	assert.Error(t, err)

	_, err = storage.Open(context.Background(), domain.DatabaseConnection{Driver: domain.DatabaseDriverSQLite})
	assert.Error(t, err)
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "study.db", storage.NormalizePath("study.db"))
	assert.Equal(t, "study.SQLITE", storage.NormalizePath("study.SQLITE"))
	assert.Equal(t, "study.db", storage.NormalizePath("study"))
	assert.Equal(t, "study.csv.db", storage.NormalizePath("study.csv"))
}
