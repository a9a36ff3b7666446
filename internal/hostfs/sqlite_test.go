package hostfs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/sbc-engine/internal/hostfs"
	"github.com/prn-tf/sbc-engine/internal/sbchash"
	"github.com/prn-tf/sbc-engine/internal/store"
)

func openTestSQLite(t *testing.T) *hostfs.SQLite {
	t.Helper()
	db, err := hostfs.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLite_InsertGetContainsRemove(t *testing.T) {
	db := openTestSQLite(t)

	key := store.SimpleKey[sbchash.AronovichHash](sbchash.NewAronovichHash(7))
	require.NoError(t, db.Insert(key, []byte("payload")))
	require.True(t, db.Contains(key))

	got, err := db.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), got)

	db.Remove(key)
	require.False(t, db.Contains(key))
	_, err = db.Get(key)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSQLite_InsertUpsertsOnConflict(t *testing.T) {
	db := openTestSQLite(t)

	key := store.SimpleKey[sbchash.AronovichHash](sbchash.NewAronovichHash(9))
	require.NoError(t, db.Insert(key, []byte("first")))
	require.NoError(t, db.Insert(key, []byte("second")))

	got, err := db.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("second"), got)
}

func TestSQLite_Iterate(t *testing.T) {
	db := openTestSQLite(t)

	simple := store.SimpleKey[sbchash.AronovichHash](sbchash.NewAronovichHash(1))
	deltaKey := store.DeltaKey[sbchash.AronovichHash](sbchash.NewAronovichHash(2), sbchash.NewAronovichHash(1), 0)
	require.NoError(t, db.Insert(simple, []byte("parent")))
	require.NoError(t, db.Insert(deltaKey, []byte("child-delta")))

	records := db.Iterate()
	require.Len(t, records, 2)
}
