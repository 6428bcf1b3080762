package settings

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("sqlite", "file::memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_SetAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Set(ctx, "ENVIRONMENT", "staging")
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "ENVIRONMENT", created.Key)
	assert.Equal(t, "staging", created.Value)

	got, err := store.Get(ctx, "ENVIRONMENT")
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestStore_SetOverwritesExistingKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Set(ctx, "REGION", "eu-west-1")
	require.NoError(t, err)
	second, err := store.Set(ctx, "REGION", "us-east-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "us-east-1", second.Value)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestStore_ListOrdersByKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"b", "c", "a"} {
		_, err := store.Set(ctx, key, "v-"+key)
		require.NoError(t, err)
	}

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Key)
	assert.Equal(t, "b", all[1].Key)
	assert.Equal(t, "c", all[2].Key)
}

func TestStore_ListEmpty(t *testing.T) {
	store := newTestStore(t)

	all, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Set(ctx, "FEATURE_FLAG", "on")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "FEATURE_FLAG"))
	_, err = store.Get(ctx, "FEATURE_FLAG")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "FEATURE_FLAG"), ErrNotFound)
}

func TestStore_RejectsEmptyKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = store.Set(ctx, "", "x")
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, store.Delete(ctx, ""), ErrInvalidKey)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "whatever", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported settings driver")
}

func TestOpen_InvalidMySQLDSN(t *testing.T) {
	_, err := Open("mysql", "not a dsn", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse mysql dsn")
}

func TestNewStore_ClosesPoolWhenMigrationFails(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "readonly.db") + "?_pragma=query_only(1)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: newGormLogger(nil)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	store, err := newStore(db, "sqlite", dsn)
	require.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "migrate settings schema")
	assert.ErrorContains(t, sqlDB.Ping(), "database is closed")
}

func TestEnvSetting_TableName(t *testing.T) {
	assert.Equal(t, "EnvSettings", EnvSetting{}.TableName())
}
