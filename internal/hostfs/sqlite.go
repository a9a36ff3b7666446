package hostfs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/prn-tf/sbc-engine/internal/sbchash"
	"github.com/prn-tf/sbc-engine/internal/store"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sbc_chunks (
	hash_value   INTEGER NOT NULL,
	kind         INTEGER NOT NULL,
	parent_hash  INTEGER NOT NULL,
	number       INTEGER NOT NULL,
	data         BLOB NOT NULL,
	PRIMARY KEY (hash_value, kind, parent_hash, number)
)`

// SQLite is a store.Database[sbchash.AronovichHash] backed by a single
// table in a modernc.org/sqlite database, for a scrub pass that needs a
// durable store without a separate database server.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if absent) the sqlite database at dsn and
// ensures the chunk table exists.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("hostfs: open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("hostfs: create sqlite schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

var _ store.Database[sbchash.AronovichHash] = (*SQLite)(nil)

func (s *SQLite) Insert(key store.SBCKey[sbchash.AronovichHash], data []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO sbc_chunks (hash_value, kind, parent_hash, number, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (hash_value, kind, parent_hash, number) DO UPDATE SET data = excluded.data
	`, key.Hash.Value, key.Type.Kind, key.Type.ParentHash.Value, key.Type.Number, data)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrStorageInsert, err)
	}
	return nil
}

func (s *SQLite) Get(key store.SBCKey[sbchash.AronovichHash]) ([]byte, error) {
	var data []byte
	err := s.db.QueryRow(`
		SELECT data FROM sbc_chunks WHERE hash_value = ? AND kind = ? AND parent_hash = ? AND number = ?
	`, key.Hash.Value, key.Type.Kind, key.Type.ParentHash.Value, key.Type.Number).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("hostfs: get sqlite chunk: %w", err)
	}
	return data, nil
}

func (s *SQLite) Contains(key store.SBCKey[sbchash.AronovichHash]) bool {
	var exists int
	err := s.db.QueryRow(`
		SELECT 1 FROM sbc_chunks WHERE hash_value = ? AND kind = ? AND parent_hash = ? AND number = ?
	`, key.Hash.Value, key.Type.Kind, key.Type.ParentHash.Value, key.Type.Number).Scan(&exists)
	return err == nil
}

func (s *SQLite) Remove(key store.SBCKey[sbchash.AronovichHash]) {
	_, _ = s.db.Exec(`
		DELETE FROM sbc_chunks WHERE hash_value = ? AND kind = ? AND parent_hash = ? AND number = ?
	`, key.Hash.Value, key.Type.Kind, key.Type.ParentHash.Value, key.Type.Number)
}

func (s *SQLite) Iterate() []store.Record[sbchash.AronovichHash] {
	rows, err := s.db.Query(`SELECT hash_value, kind, parent_hash, number, data FROM sbc_chunks`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []store.Record[sbchash.AronovichHash]
	for rows.Next() {
		var hashValue, parentHash uint32
		var kind store.ChunkKind
		var number uint16
		var data []byte
		if err := rows.Scan(&hashValue, &kind, &parentHash, &number, &data); err != nil {
			continue
		}
		out = append(out, store.Record[sbchash.AronovichHash]{
			Key: store.SBCKey[sbchash.AronovichHash]{
				Hash: sbchash.NewAronovichHash(hashValue),
				Type: store.ChunkType[sbchash.AronovichHash]{
					Kind:       kind,
					ParentHash: sbchash.NewAronovichHash(parentHash),
					Number:     number,
				},
			},
			Data: data,
		})
	}
	return out
}
