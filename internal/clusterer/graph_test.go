package clusterer

import (
	"sort"
	"testing"

	"github.com/prn-tf/sbc-engine/internal/sbchash"
	"github.com/stretchr/testify/require"
)

func point(key uint32) Point[sbchash.AronovichHash] {
	return Point[sbchash.AronovichHash]{Signature: sbchash.NewAronovichHash(key)}
}

func TestGraph_ExampleFromSpec(t *testing.T) {
	g := NewDefaultGraph[sbchash.AronovichHash]()

	points := []Point[sbchash.AronovichHash]{point(5), point(12), point(25), point(30)}
	clusters, report := g.Clusterize(points)

	require.Len(t, clusters, 2)
	require.Equal(t, 4, report.TotalClusterSize)
	require.Equal(t, 2, report.NumberOfClusters)

	var roots []uint32
	for _, c := range clusters {
		roots = append(roots, c.Root.GraphKey())
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
	require.Equal(t, []uint32{5, 25}, roots)

	require.Equal(t, []uint32{20}, report.DistanceToOtherClusters[5])
	require.Equal(t, []uint32{20}, report.DistanceToOtherClusters[25])
}

func TestGraph_SaturatesAtBounds(t *testing.T) {
	g := NewDefaultGraph[sbchash.AronovichHash]()
	points := []Point[sbchash.AronovichHash]{point(0), point(5), point(^uint32(0))}
	clusters, report := g.Clusterize(points)

	require.Equal(t, 3, report.TotalClusterSize)
	require.Len(t, clusters, 2)
}

func TestGraph_DistanceToVerticesExcludesParent(t *testing.T) {
	g := NewDefaultGraph[sbchash.AronovichHash]()
	points := []Point[sbchash.AronovichHash]{point(5), point(12), point(8)}
	_, report := g.Clusterize(points)

	dists := report.DistanceToVertices[5]
	require.Len(t, dists, 2)
}
