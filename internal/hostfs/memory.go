// Package hostfs provides reference store.Database implementations: an
// in-memory baseline plus backends over the host stack's persistence
// collaborators (sqlite, postgres, redis, s3).
package hostfs

import (
	"sync"

	"github.com/prn-tf/sbc-engine/internal/sbchash"
	"github.com/prn-tf/sbc-engine/internal/store"
)

// Memory is the default store.Database[sbchash.AronovichHash]: a
// mutex-guarded map, with no persistence. Used by cmd/sbc-scrub's default
// configuration and by the package test suites throughout this module.
type Memory struct {
	mu      sync.RWMutex
	records map[store.SBCKey[sbchash.AronovichHash]][]byte
}

var _ store.Database[sbchash.AronovichHash] = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{records: make(map[store.SBCKey[sbchash.AronovichHash]][]byte)}
}

func (m *Memory) Insert(key store.SBCKey[sbchash.AronovichHash], data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.records[key] = stored
	return nil
}

func (m *Memory) Get(key store.SBCKey[sbchash.AronovichHash]) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.records[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *Memory) Contains(key store.SBCKey[sbchash.AronovichHash]) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.records[key]
	return ok
}

func (m *Memory) Remove(key store.SBCKey[sbchash.AronovichHash]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
}

func (m *Memory) Iterate() []store.Record[sbchash.AronovichHash] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]store.Record[sbchash.AronovichHash], 0, len(m.records))
	for k, v := range m.records {
		out = append(out, store.Record[sbchash.AronovichHash]{Key: k, Data: v})
	}
	return out
}
