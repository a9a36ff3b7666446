package hostfs_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/sbc-engine/internal/hostfs"
	"github.com/prn-tf/sbc-engine/internal/sbchash"
	"github.com/prn-tf/sbc-engine/internal/store"
)

// TestPostgres_InsertGetRemove requires a reachable Postgres at
// SBC_TEST_POSTGRES_DSN; skipped otherwise and in short mode.
func TestPostgres_InsertGetRemove(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := os.Getenv("SBC_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SBC_TEST_POSTGRES_DSN not set")
	}

	db, err := hostfs.NewPostgres(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	key := store.SimpleKey[sbchash.AronovichHash](sbchash.NewAronovichHash(555))
	require.NoError(t, db.Insert(key, []byte("payload")))
	require.True(t, db.Contains(key))

	got, err := db.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), got)

	db.Remove(key)
	require.False(t, db.Contains(key))
}
