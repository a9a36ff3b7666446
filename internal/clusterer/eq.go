package clusterer

import "github.com/prn-tf/sbc-engine/internal/sbchash"

// Eq groups points strictly by signature equality: all points sharing a
// signature form one cluster, one cluster per distinct signature.
type Eq[H sbchash.Hash[H]] struct {
	// GraphKey projects a signature onto a uint32 for the distance report.
	// AronovichHash supplies this via GraphKey(); Odess has no canonical
	// projection, so callers pairing Eq with Odess must supply one (e.g.
	// the low 32 bits of the first feature word).
	GraphKey func(H) uint32
}

var _ Clusterer[sbchash.AronovichHash] = Eq[sbchash.AronovichHash]{}

// NewEqForGraphKeyable builds an Eq clusterer for any signature that
// natively implements sbchash.GraphKeyable, such as AronovichHash.
func NewEqForGraphKeyable[H sbchash.GraphKeyable[H]]() Eq[H] {
	return Eq[H]{GraphKey: func(h H) uint32 { return h.GraphKey() }}
}

// Clusterize implements Clusterer.
func (c Eq[H]) Clusterize(points []Point[H]) ([]Cluster[H], Report[H]) {
	report := newReport[H]()
	clusterIdx := make(map[H]int)
	var clusters []Cluster[H]
	var roots []uint32

	for _, p := range points {
		report.TotalClusterSize++

		idx, ok := clusterIdx[p.Signature]
		if !ok {
			idx = len(clusters)
			clusterIdx[p.Signature] = idx
			clusters = append(clusters, Cluster[H]{Root: p.Signature})
			report.NumberOfClusters++
			roots = append(roots, c.GraphKey(p.Signature))
		}
		clusters[idx].Points = append(clusters[idx].Points, p)
		report.VerticesPerCluster[p.Signature]++
	}

	report.DistanceToOtherClusters = distanceToNeighbours(roots)
	return clusters, report
}
