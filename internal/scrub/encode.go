package scrub

import (
	"github.com/prn-tf/sbc-engine/internal/clusterer"
	"github.com/prn-tf/sbc-engine/internal/delta"
	"github.com/prn-tf/sbc-engine/internal/sbchash"
	"github.com/prn-tf/sbc-engine/internal/store"
)

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

// insertSimpleWithRetry retries once on ErrStorageInsert: the insert
// failure is non-fatal, retried once, otherwise the chunk is marked
// unprocessed.
func insertSimpleWithRetry[H sbchash.Hash[H]](targetStore *store.SBCMap[H], hash H, data []byte) (store.SBCKey[H], error) {
	key, err := targetStore.InsertSimple(hash, data)
	if err == nil {
		return key, nil
	}
	return targetStore.InsertSimple(hash, data)
}

func insertDeltaWithRetry[H sbchash.Hash[H]](targetStore *store.SBCMap[H], hash, parentHash H, deltaBytes []byte) (store.SBCKey[H], error) {
	key, err := targetStore.InsertDelta(hash, parentHash, deltaBytes)
	if err == nil {
		return key, nil
	}
	return targetStore.InsertDelta(hash, parentHash, deltaBytes)
}

// encodeCluster obtains or promotes the cluster's parent record, then
// encodes every other member against it, falling back to Simple storage
// on an oversized diff or a failed encode. The cluster's root signature is
// already the resolved parent hash (the Graph clusterer's union-find
// root, or the sole shared signature under the Eq clusterer); no
// distance-search re-derives it here.
func (s *Scrubber[H]) encodeCluster(targetStore *store.SBCMap[H], cluster clusterer.Cluster[H], hashed []hashedChunk[H]) (bytesLeftRaw, bytesDelta int64, unprocessed int) {
	parentHash := cluster.Root
	parentKey := store.SimpleKey[H](parentHash)

	var parentData []byte
	skipIndex := -1

	if targetStore.Contains(parentKey) {
		data, err := targetStore.Get(parentKey)
		if err != nil {
			return 0, 0, len(cluster.Points)
		}
		parentData = data
	} else {
		seed := cluster.Points[0]
		seedData := hashed[seed.Chunk.ID].data

		key, err := insertSimpleWithRetry(targetStore, parentHash, seedData)
		if err != nil {
			s.logger.Warn().Int("cluster_size", len(cluster.Points)).Msg("parent promotion failed, cluster unprocessed")
			return 0, 0, len(cluster.Points)
		}
		hashed[seed.Chunk.ID].entry.Container.MakeTarget(key)

		parentData = seedData
		skipIndex = 0
		bytesLeftRaw += int64(len(seedData))
	}

	for i, point := range cluster.Points {
		if i == skipIndex {
			continue
		}
		chunk := hashed[point.Chunk.ID]
		childData := chunk.data

		tooLarge := s.encoderKind == delta.KindLevenshtein && absDiff(len(childData), len(parentData)) > delta.LargeChunkThreshold

		var (
			deltaBytes []byte
			ok         bool
		)
		if !tooLarge {
			deltaBytes, ok = s.encoder.Encode(childData, parentData)
		}

		if ok {
			key, err := insertDeltaWithRetry(targetStore, point.Signature, parentHash, deltaBytes)
			if err != nil {
				unprocessed++
				continue
			}
			chunk.entry.Container.MakeTarget(key)
			bytesDelta += int64(len(deltaBytes))
			continue
		}

		key, err := insertSimpleWithRetry(targetStore, point.Signature, childData)
		if err != nil {
			unprocessed++
			continue
		}
		chunk.entry.Container.MakeTarget(key)
		bytesLeftRaw += int64(len(childData))
	}

	return bytesLeftRaw, bytesDelta, unprocessed
}
