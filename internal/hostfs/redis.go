package hostfs

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/prn-tf/sbc-engine/internal/sbchash"
	"github.com/prn-tf/sbc-engine/internal/store"
)

const redisKeyPrefix = "sbc:chunk:"

// Redis is a store.Database[sbchash.AronovichHash] backed by a Redis
// keyspace: each record is one Redis key under redisKeyPrefix. It is a
// standalone store; it does not wrap or cache another Database.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

var _ store.Database[sbchash.AronovichHash] = (*Redis)(nil)

func redisKey(key store.SBCKey[sbchash.AronovichHash]) string {
	return fmt.Sprintf("%s%d:%d:%d:%d", redisKeyPrefix, key.Hash.Value, key.Type.Kind, key.Type.ParentHash.Value, key.Type.Number)
}

func (r *Redis) Insert(key store.SBCKey[sbchash.AronovichHash], data []byte) error {
	ctx := context.Background()
	if err := r.client.Set(ctx, redisKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrStorageInsert, err)
	}
	return nil
}

func (r *Redis) Get(key store.SBCKey[sbchash.AronovichHash]) ([]byte, error) {
	data, err := r.client.Get(context.Background(), redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("hostfs: get redis chunk: %w", err)
	}
	return data, nil
}

func (r *Redis) Contains(key store.SBCKey[sbchash.AronovichHash]) bool {
	n, err := r.client.Exists(context.Background(), redisKey(key)).Result()
	return err == nil && n > 0
}

func (r *Redis) Remove(key store.SBCKey[sbchash.AronovichHash]) {
	_ = r.client.Del(context.Background(), redisKey(key)).Err()
}

// Iterate scans the whole chunk keyspace.
func (r *Redis) Iterate() []store.Record[sbchash.AronovichHash] {
	ctx := context.Background()
	var out []store.Record[sbchash.AronovichHash]
	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, redisKeyPrefix+"*", 256).Result()
		if err != nil {
			return out
		}
		for _, k := range keys {
			data, err := r.client.Get(ctx, k).Bytes()
			if err != nil {
				continue
			}
			var hashValue, kind, parentHash uint32
			var number uint16
			if _, err := fmt.Sscanf(k, redisKeyPrefix+"%d:%d:%d:%d", &hashValue, &kind, &parentHash, &number); err != nil {
				continue
			}
			out = append(out, store.Record[sbchash.AronovichHash]{
				Key: store.SBCKey[sbchash.AronovichHash]{
					Hash: sbchash.NewAronovichHash(hashValue),
					Type: store.ChunkType[sbchash.AronovichHash]{
						Kind:       store.ChunkKind(kind),
						ParentHash: sbchash.NewAronovichHash(parentHash),
						Number:     number,
					},
				},
				Data: data,
			})
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return out
}
