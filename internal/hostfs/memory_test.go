package hostfs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/sbc-engine/internal/hostfs"
	"github.com/prn-tf/sbc-engine/internal/sbchash"
	"github.com/prn-tf/sbc-engine/internal/store"
)

func TestMemory_InsertGetContainsRemove(t *testing.T) {
	m := hostfs.NewMemory()
	key := store.SimpleKey[sbchash.AronovichHash](sbchash.NewAronovichHash(42))

	require.False(t, m.Contains(key))
	require.NoError(t, m.Insert(key, []byte("data")))
	require.True(t, m.Contains(key))

	got, err := m.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("data"), got)

	m.Remove(key)
	require.False(t, m.Contains(key))
	_, err = m.Get(key)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemory_GetReturnsACopyNotTheBackingSlice(t *testing.T) {
	m := hostfs.NewMemory()
	key := store.SimpleKey[sbchash.AronovichHash](sbchash.NewAronovichHash(1))
	require.NoError(t, m.Insert(key, []byte("original")))

	got, err := m.Get(key)
	require.NoError(t, err)
	got[0] = 'X'

	got2, err := m.Get(key)
	require.NoError(t, err)
	require.Equal(t, []byte("original"), got2)
}

func TestMemory_Iterate(t *testing.T) {
	m := hostfs.NewMemory()
	k1 := store.SimpleKey[sbchash.AronovichHash](sbchash.NewAronovichHash(1))
	k2 := store.DeltaKey[sbchash.AronovichHash](sbchash.NewAronovichHash(2), sbchash.NewAronovichHash(1), 0)
	require.NoError(t, m.Insert(k1, []byte("a")))
	require.NoError(t, m.Insert(k2, []byte("b")))

	require.Len(t, m.Iterate(), 2)
}
