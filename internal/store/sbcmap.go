package store

import (
	"fmt"
	"sync"

	"github.com/prn-tf/sbc-engine/internal/delta"
	"github.com/prn-tf/sbc-engine/internal/sbchash"
)

// SBCMap is the composite-keyed chunk store: a mutex-guarded Database
// bound to one Decoder at construction. Insertion placement on signature
// collisions and transitive Delta→Simple resolution both live here so
// every store backend in internal/hostfs gets them for free.
type SBCMap[H sbchash.Hash[H]] struct {
	mu      sync.Mutex
	db      Database[H]
	decoder delta.Decoder
}

// New binds db to decoder. decoder is applied to every Delta record this
// map resolves, so a map built with one decoder family cannot correctly
// read Delta records written by a different family — callers are expected
// to pick one encoder/decoder pair per store.
func New[H sbchash.Hash[H]](db Database[H], decoder delta.Decoder) *SBCMap[H] {
	return &SBCMap[H]{db: db, decoder: decoder}
}

// Contains reports whether key has a stored record.
func (m *SBCMap[H]) Contains(key SBCKey[H]) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Contains(key)
}

// Remove deletes key's stored record, if any.
func (m *SBCMap[H]) Remove(key SBCKey[H]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.db.Remove(key)
}

// Iterate returns every stored record. Callers needing a stable ordering
// should sort the result themselves.
func (m *SBCMap[H]) Iterate() []Record[H] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Iterate()
}

// Get returns the raw stored bytes at key, without decoding Delta
// records. Most callers want Resolve instead.
func (m *SBCMap[H]) Get(key SBCKey[H]) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := m.db.Get(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return data, nil
}

// findEmptyCell probes alternating next(hash)/prev(hash) neighbours for a
// free Simple slot. Must be called with m.mu held.
func (m *SBCMap[H]) findEmptyCell(hash H) H {
	left := hash
	right := hash.Next()
	for {
		if m.db.Contains(SimpleKey[H](left)) {
			left = left.Prev()
		} else {
			return left
		}
		if m.db.Contains(SimpleKey[H](right)) {
			right = right.Next()
		} else {
			return right
		}
	}
}

// InsertSimple stores data as a Simple record, shifting to a free
// neighbouring signature if hash is already occupied. Returns the key the
// data actually landed under.
func (m *SBCMap[H]) InsertSimple(hash H, data []byte) (SBCKey[H], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := SimpleKey[H](m.findEmptyCell(hash))
	if err := m.db.Insert(key, data); err != nil {
		return SBCKey[H]{}, fmt.Errorf("%w: %v", ErrStorageInsert, err)
	}
	return key, nil
}

// countDeltaChunksWithHash must be called with m.mu held.
func (m *SBCMap[H]) countDeltaChunksWithHash(hash H) uint16 {
	var count uint16
	for _, rec := range m.db.Iterate() {
		if rec.Key.Hash == hash && rec.Key.Type.Kind == ChunkDelta {
			count++
		}
	}
	return count
}

// InsertDelta stores deltaBytes as the next Delta record under hash,
// referencing parentHash. The Number field is computed from however many
// Delta records already share hash.
func (m *SBCMap[H]) InsertDelta(hash, parentHash H, deltaBytes []byte) (SBCKey[H], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := DeltaKey(hash, parentHash, m.countDeltaChunksWithHash(hash))
	if err := m.db.Insert(key, deltaBytes); err != nil {
		return SBCKey[H]{}, fmt.Errorf("%w: %v", ErrStorageInsert, err)
	}
	return key, nil
}

// Resolve reconstructs the full bytes addressed by key, decoding through
// any Delta indirection. Per invariant §3.3 a Delta references only a
// Simple record (depth ≤ 1); this walk nonetheless guards against a
// pathological cycle with a visited set rather than assuming the
// invariant holds, per design note "Recursive resolution ... an
// iterative loop with a visited-set guard suffices".
func (m *SBCMap[H]) Resolve(key SBCKey[H]) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type pending struct {
		deltaBytes []byte
	}
	var chain []pending
	visited := make(map[SBCKey[H]]bool)
	current := key

	for {
		if visited[current] {
			return nil, delta.ErrCyclicParent
		}
		visited[current] = true

		raw, err := m.db.Get(current)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}

		if current.Type.Kind == ChunkSimple {
			data := raw
			for i := len(chain) - 1; i >= 0; i-- {
				data, err = m.decoder.Decode(data, chain[i].deltaBytes)
				if err != nil {
					return nil, err
				}
			}
			return data, nil
		}

		chain = append(chain, pending{deltaBytes: raw})
		current = SimpleKey[H](current.Type.ParentHash)
	}
}
