package sqlkv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raulpleon95-ctrl/SECUNDARIA/core"
	"github.com/raulpleon95-ctrl/SECUNDARIA/storage/database"
	testutil "github.com/raulpleon95-ctrl/SECUNDARIA/tests"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	conf := testutil.NewConfig()
	conf.Storage.Engine = database.EngineSQLite
	conf.Storage.Path = filepath.Join(t.TempDir(), "test.db")

	db, err := database.Open(conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.Migrate(db, "up"))
	return New(db)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.Get(ctx, "missing")
	assert.Equal(t, core.ErrKeyNotFound, err)
	assert.Equal(t, core.ErrKeyNotFound, s.Delete(ctx, "missing"))

	require.NoError(t, s.Set(ctx, "school_data_local", []byte(`{"name": "x"}`)))
	got, err := s.Get(ctx, "school_data_local")
	require.NoError(t, err)
	assert.Equal(t, `{"name": "x"}`, string(got))

	entries, err := s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].UpdatedAt.Valid)

	require.NoError(t, s.Set(ctx, "school_data_local", []byte(`{"name": "y"}`)))
	got, err = s.Get(ctx, "school_data_local")
	require.NoError(t, err)
	assert.Equal(t, `{"name": "y"}`, string(got))

	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	entries, err = s.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, "school_data_local", entries[1].Key)
	assert.Equal(t, len(`{"name": "y"}`), entries[1].Size)
	assert.True(t, entries[1].UpdatedAt.Valid)

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Get(ctx, "a")
	assert.Equal(t, core.ErrKeyNotFound, err)
}

func TestStore_Durable(t *testing.T) {
	ctx := context.Background()
	conf := testutil.NewConfig()
	conf.Storage.Engine = database.EngineSQLite
	conf.Storage.Path = filepath.Join(t.TempDir(), "durable.db")

	db, err := database.Open(conf)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, "up"))
	require.NoError(t, New(db).Set(ctx, "k", []byte("v")))
	require.NoError(t, db.Close())

	db, err = database.Open(conf)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	require.NoError(t, database.Migrate(db, "up"))
	got, err := New(db).Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
}
