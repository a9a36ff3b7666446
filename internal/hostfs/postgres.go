package hostfs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prn-tf/sbc-engine/internal/sbchash"
	"github.com/prn-tf/sbc-engine/internal/store"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS sbc_chunks (
	hash_value  BIGINT NOT NULL,
	kind        SMALLINT NOT NULL,
	parent_hash BIGINT NOT NULL,
	number      INTEGER NOT NULL,
	data        BYTEA NOT NULL,
	PRIMARY KEY (hash_value, kind, parent_hash, number)
)`

// Postgres is a store.Database[sbchash.AronovichHash] backed by a pgx
// connection pool, for clusters that want a scrub pass sharing its chunk
// store with the rest of a Postgres-backed deployment.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres connects to dsn and ensures the chunk table exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("hostfs: connect postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("hostfs: create postgres schema: %w", err)
	}
	return &Postgres{Pool: pool}, nil
}

func (p *Postgres) Close() { p.Pool.Close() }

var _ store.Database[sbchash.AronovichHash] = (*Postgres)(nil)

func (p *Postgres) Insert(key store.SBCKey[sbchash.AronovichHash], data []byte) error {
	_, err := p.Pool.Exec(context.Background(), `
		INSERT INTO sbc_chunks (hash_value, kind, parent_hash, number, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (hash_value, kind, parent_hash, number) DO UPDATE SET data = excluded.data
	`, key.Hash.Value, key.Type.Kind, key.Type.ParentHash.Value, key.Type.Number, data)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrStorageInsert, err)
	}
	return nil
}

func (p *Postgres) Get(key store.SBCKey[sbchash.AronovichHash]) ([]byte, error) {
	var data []byte
	err := p.Pool.QueryRow(context.Background(), `
		SELECT data FROM sbc_chunks WHERE hash_value = $1 AND kind = $2 AND parent_hash = $3 AND number = $4
	`, key.Hash.Value, key.Type.Kind, key.Type.ParentHash.Value, key.Type.Number).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("hostfs: get postgres chunk: %w", err)
	}
	return data, nil
}

func (p *Postgres) Contains(key store.SBCKey[sbchash.AronovichHash]) bool {
	var exists int
	err := p.Pool.QueryRow(context.Background(), `
		SELECT 1 FROM sbc_chunks WHERE hash_value = $1 AND kind = $2 AND parent_hash = $3 AND number = $4
	`, key.Hash.Value, key.Type.Kind, key.Type.ParentHash.Value, key.Type.Number).Scan(&exists)
	return err == nil
}

func (p *Postgres) Remove(key store.SBCKey[sbchash.AronovichHash]) {
	_, _ = p.Pool.Exec(context.Background(), `
		DELETE FROM sbc_chunks WHERE hash_value = $1 AND kind = $2 AND parent_hash = $3 AND number = $4
	`, key.Hash.Value, key.Type.Kind, key.Type.ParentHash.Value, key.Type.Number)
}

func (p *Postgres) Iterate() []store.Record[sbchash.AronovichHash] {
	rows, err := p.Pool.Query(context.Background(), `SELECT hash_value, kind, parent_hash, number, data FROM sbc_chunks`)
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
