package clusterer

import "github.com/prn-tf/sbc-engine/internal/sbchash"

const defaultMaxWeightEdge = 10

// Graph clusters signatures by proximity using a Kruskal-style union-find:
// for every new signature it searches the range [h-W, h+W] for an existing
// vertex's root within distance W and unions into it, otherwise the
// signature starts its own set.
//
// Only GraphKeyable signatures (AronovichHash) can be clustered this way —
// Odess is excluded at compile time, per sbchash.GraphKeyable's doc comment.
type Graph[H sbchash.GraphKeyable[H]] struct {
	maxWeightEdge uint32
	parent        map[uint32]uint32
}

var _ Clusterer[sbchash.AronovichHash] = (*Graph[sbchash.AronovichHash])(nil)

// NewGraph builds a Graph clusterer with the given maximum edge weight.
func NewGraph[H sbchash.GraphKeyable[H]](maxWeightEdge uint32) *Graph[H] {
	return &Graph[H]{
		maxWeightEdge: maxWeightEdge,
		parent:        make(map[uint32]uint32),
	}
}

// NewDefaultGraph builds a Graph clusterer with a default edge weight
// of 10.
func NewDefaultGraph[H sbchash.GraphKeyable[H]]() *Graph[H] {
	return NewGraph[H](defaultMaxWeightEdge)
}

// findSet returns the root of key's set, compressing the path it walks.
func (g *Graph[H]) findSet(key uint32) uint32 {
	parent, ok := g.parent[key]
	if !ok {
		return key
	}
	if parent == key {
		return key
	}
	root := g.findSet(parent)
	g.parent[key] = root
	return root
}

// setParentVertex finds the nearest existing root within maxWeightEdge of
// key and unions key into it, or makes key its own root.
func (g *Graph[H]) setParentVertex(key uint32) uint32 {
	minDist := ^uint32(0)
	parentKey := key

	start := saturatingSub(key, g.maxWeightEdge)
	end := saturatingAdd(key, g.maxWeightEdge)

	for other := start; ; other++ {
		if _, ok := g.parent[other]; ok {
			otherRoot := g.findSet(other)
			dist := absDiffU32(otherRoot, key)
			if dist < minDist && dist <= g.maxWeightEdge {
				minDist = dist
				parentKey = otherRoot
			}
		}
		if other == end {
			break
		}
	}

	g.parent[key] = parentKey
	return parentKey
}

// Clusterize implements Clusterer.
func (g *Graph[H]) Clusterize(points []Point[H]) ([]Cluster[H], Report[H]) {
	report := newReport[H]()
	clusterIdx := make(map[uint32]int)
	var clusters []Cluster[H]
	var roots []uint32

	for _, p := range points {
		report.TotalClusterSize++

		key := p.Signature.GraphKey()
		parentKey := g.setParentVertex(key)

		if key == parentKey {
			roots = append(roots, key)
			report.NumberOfClusters++
		}

		idx, ok := clusterIdx[parentKey]
		if !ok {
			idx = len(clusters)
			clusterIdx[parentKey] = idx

			var rootSig H
			if key == parentKey {
				rootSig = p.Signature
			}
			clusters = append(clusters, Cluster[H]{Root: rootSig})
		}
		clusters[idx].Points = append(clusters[idx].Points, p)

		rootSig := clusters[idx].Root
		if key == parentKey {
			rootSig = p.Signature
			clusters[idx].Root = rootSig
		}
		report.VerticesPerCluster[rootSig]++

		if key != parentKey {
			report.DistanceToVertices[parentKey] = append(report.DistanceToVertices[parentKey], absDiffU32(key, parentKey))
		} else if _, ok := report.DistanceToVertices[parentKey]; !ok {
			report.DistanceToVertices[parentKey] = nil
		}
	}

	report.DistanceToOtherClusters = distanceToNeighbours(roots)
	return clusters, report
}

func saturatingSub(a, b uint32) uint32 {
	if b > a {
		return 0
	}
	return a - b
}

func saturatingAdd(a, b uint32) uint32 {
	sum := a + b
	if sum < a {
		return ^uint32(0)
	}
	return sum
}

func absDiffU32(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
