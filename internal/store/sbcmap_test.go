package store_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/sbc-engine/internal/delta"
	"github.com/prn-tf/sbc-engine/internal/hostfs"
	"github.com/prn-tf/sbc-engine/internal/sbchash"
	"github.com/prn-tf/sbc-engine/internal/store"
)

func newTestMap() *store.SBCMap[sbchash.AronovichHash] {
	return store.New[sbchash.AronovichHash](hostfs.NewMemory(), delta.XdeltaDecoder{})
}

func h(v uint32) sbchash.AronovichHash { return sbchash.NewAronovichHash(v) }

func TestSBCMap_InsertSimpleThenGet(t *testing.T) {
	m := newTestMap()
	data := []byte("hello chunk")

	key, err := m.InsertSimple(h(42), data)
	require.NoError(t, err)
	require.Equal(t, h(42), key.Hash)
	require.Equal(t, store.ChunkSimple, key.Type.Kind)

	got, err := m.Get(key)
	require.NoError(t, err)
	require.Equal(t, data, got)
	require.True(t, m.Contains(key))
}

func TestSBCMap_InsertSimpleCollisionProbesAlternatingNeighbours(t *testing.T) {
	m := newTestMap()

	_, err := m.InsertSimple(h(100), []byte("first"))
	require.NoError(t, err)

	// Second insert at the same signature must land on a neighbouring
	// slot, not overwrite the first.
	key2, err := m.InsertSimple(h(100), []byte("second"))
	require.NoError(t, err)
	require.NotEqual(t, h(100), key2.Hash)

	first, err := m.Get(store.SimpleKey[sbchash.AronovichHash](h(100)))
	require.NoError(t, err)
	require.Equal(t, []byte("first"), first)

	second, err := m.Get(key2)
	require.NoError(t, err)
	require.Equal(t, []byte("second"), second)
}

func TestSBCMap_InsertSimpleCollisionAlternatesNextThenPrev(t *testing.T) {
	m := newTestMap()

	require.NoError(t, insertAt(m, 200))
	// Occupy 200 directly, so a second insert at 200 must probe next (201)
	// first per the findEmptyCell alternation, landing there since it is free.
	key2, err := m.InsertSimple(h(200), []byte("b"))
	require.NoError(t, err)
	require.Equal(t, h(201), key2.Hash)

	// A third insert at 200 probes next again (201, now occupied) then
	// prev (199, free), landing on 199.
	key3, err := m.InsertSimple(h(200), []byte("c"))
	require.NoError(t, err)
	require.Equal(t, h(199), key3.Hash)
}

func insertAt(m *store.SBCMap[sbchash.AronovichHash], v uint32) error {
	_, err := m.InsertSimple(h(v), []byte("a"))
	return err
}

func TestSBCMap_InsertDeltaNumbersSequentially(t *testing.T) {
	m := newTestMap()
	parent := randomParent(4096, 1)

	_, err := m.InsertSimple(h(1), parent)
	require.NoError(t, err)

	enc := delta.XdeltaEncoder{}
	child1 := append(append([]byte(nil), parent[:2048]...), randomParent(256, 2)...)
	child1 = append(child1, parent[2048:]...)
	d1, ok := enc.Encode(child1, parent)
	require.True(t, ok)

	key1, err := m.InsertDelta(h(1), h(1), d1)
	require.NoError(t, err)
	require.Equal(t, uint16(0), key1.Type.Number)

	child2 := append(append([]byte(nil), parent[:1024]...), randomParent(256, 3)...)
	child2 = append(child2, parent[1024:]...)
	d2, ok := enc.Encode(child2, parent)
	require.True(t, ok)

	key2, err := m.InsertDelta(h(1), h(1), d2)
	require.NoError(t, err)
	require.Equal(t, uint16(1), key2.Type.Number)
}

func TestSBCMap_ResolveWalksDeltaToSimpleParent(t *testing.T) {
	m := newTestMap()
	parent := randomParent(4096, 4)

	parentKey, err := m.InsertSimple(h(10), parent)
	require.NoError(t, err)

	enc := delta.XdeltaEncoder{}
	child := append(append([]byte(nil), parent[:2048]...), randomParent(400, 5)...)
	child = append(child, parent[2048:]...)
	d, ok := enc.Encode(child, parent)
	require.True(t, ok)

	childKey, err := m.InsertDelta(h(11), parentKey.Hash, d)
	require.NoError(t, err)

	got, err := m.Resolve(childKey)
	require.NoError(t, err)
	require.Equal(t, child, got)
}

func TestSBCMap_ResolveDetectsCyclicParent(t *testing.T) {
	db := hostfs.NewMemory()
	m := store.New[sbchash.AronovichHash](db, delta.XdeltaDecoder{})

	// Two Delta records whose parents reference each other, and neither
	// is ever Simple: a pathological state findEmptyCell/InsertDelta would
	// never itself construct, but Resolve must still guard against it.
	keyA := store.DeltaKey(h(20), h(21), 0)
	keyB := store.DeltaKey(h(21), h(20), 0)
	require.NoError(t, db.Insert(keyA, []byte("a")))
	require.NoError(t, db.Insert(keyB, []byte("b")))

	_, err := m.Resolve(keyA)
	require.ErrorIs(t, err, delta.ErrCyclicParent)
}

func TestSBCMap_RemoveAndIterate(t *testing.T) {
	m := newTestMap()
	key, err := m.InsertSimple(h(1), []byte("x"))
	require.NoError(t, err)
	require.Len(t, m.Iterate(), 1)

	m.Remove(key)
	require.False(t, m.Contains(key))
	require.Len(t, m.Iterate(), 0)
}

func randomParent(n int, seed uint32) []byte {
	out := make([]byte, n)
	state := seed*2654435761 + 1
	for i := range out {
		state = state*1664525 + 1013904223
		out[i] = byte(state >> 24)
	}
	return out
}
