// Package clusterer groups chunks whose similarity signatures are close
// enough to be worth delta-encoding against a shared parent.
package clusterer

import "github.com/prn-tf/sbc-engine/internal/sbchash"

// ChunkRef identifies a chunk pending clustering; it is opaque to the
// clusterer and carried through to the encoder stage unchanged.
type ChunkRef struct {
	// ID is the chunk's position in the batch being scrubbed.
	ID int
	// Len is the chunk's byte length. Neither the clusterer nor the scrub
	// orchestrator's parent selection reads it.
	Len int
}

// Point is a (signature, chunk reference) pair awaiting grouping.
type Point[H sbchash.Hash[H]] struct {
	Signature H
	Chunk     ChunkRef
}

// Cluster is a nonempty, ordered group of points sharing a parent signature.
type Cluster[H sbchash.Hash[H]] struct {
	Root   H
	Points []Point[H]
}

// Report carries aggregate and per-cluster clustering measurements.
// DistanceToVertices and DistanceToOtherClusters are keyed by a cluster
// root's raw GraphKey, not by H itself: H may be a non-numeric signature
// type (Odess), so the distance maps stay uint32-keyed regardless of H.
type Report[H sbchash.Hash[H]] struct {
	TotalClusterSize        int
	NumberOfClusters        int
	VerticesPerCluster      map[H]int
	DistanceToVertices      map[uint32][]uint32
	DistanceToOtherClusters map[uint32][]uint32
}

// Clusterer groups similarity points into clusters and reports on the
// grouping it performed.
type Clusterer[H sbchash.Hash[H]] interface {
	Clusterize(points []Point[H]) ([]Cluster[H], Report[H])
}

func newReport[H sbchash.Hash[H]]() Report[H] {
	return Report[H]{
		VerticesPerCluster:      make(map[H]int),
		DistanceToVertices:      make(map[uint32][]uint32),
		DistanceToOtherClusters: make(map[uint32][]uint32),
	}
}

// distanceToNeighbours computes, for every root, its absolute distance to
// the closest smaller and closest larger root among the given set:
// sorted-neighbour differences, not all-pairs distances.
func distanceToNeighbours(roots []uint32) map[uint32][]uint32 {
	unique := make(map[uint32]struct{}, len(roots))
	for _, r := range roots {
		unique[r] = struct{}{}
	}
	sorted := make([]uint32, 0, len(unique))
	for r := range unique {
		sorted = append(sorted, r)
	}
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}

	out := make(map[uint32][]uint32, len(sorted))
	for i, r := range sorted {
		var dists []uint32
		if i > 0 {
			dists = append(dists, r-sorted[i-1])
		}
		if i < len(sorted)-1 {
			dists = append(dists, sorted[i+1]-r)
		}
		out[r] = dists
	}
	return out
}
