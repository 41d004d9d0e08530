package waypoint

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-navgen/pkg/formats"
	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

func buildBSP(t *testing.T, grid *formats.AdjGrid) ([]Node, *diagnostics) {
	t.Helper()
	diags := newDiagnostics(zap.NewNop())
	nodes := newBSPBuilder(grid, DefaultConfig(), zap.NewNop(), diags, NopProgress{}).build()
	return nodes, diags
}

func TestBSP_UniformGridIsOneLeaf(t *testing.T) {
	nodes, diags := buildBSP(t, flatGrid(t, 40, 30, 1))

	require.Len(t, nodes, 1)
	root := nodes[0]
	assert.Equal(t, NodeWaypoint, root.State)
	assert.Equal(t, -1, root.Parent)
	assert.InDelta(t, 39.0*29.0, root.Area(), 1e-9)
	assert.Equal(t, float32(0), root.MinHeight)
	assert.Equal(t, float32(0), root.MaxHeight)
	assert.Empty(t, diags.list)
}

func TestBSP_PillarIsIsolated(t *testing.T) {
	grid := blockedGrid(t, 10, 10, func(x, z int) bool { return x == 5 && z == 5 })
	nodes, _ := buildBSP(t, grid)

	require.Equal(t, NodeInternal, nodes[0].State, "root must be split")
	pillar := mathx.HalfPoint{X: 10, Z: 10}
	for i := range nodes {
		n := &nodes[i]
		if n.State != NodeWaypoint {
			continue
		}
		assert.Falsef(t, n.contains(pillar), "waypoint node %d contains the pillar", i)
	}
}

func TestBSP_TreeLinks(t *testing.T) {
	grid := blockedGrid(t, 8, 8, func(x, z int) bool { return x == 3 && z >= 2 && z <= 5 })
	nodes, _ := buildBSP(t, grid)

	for i := range nodes {
		n := &nodes[i]
		require.NotEqualf(t, NodeUnvisited, n.State, "node %d left unvisited", i)
		if n.State != NodeInternal {
			assert.Equal(t, -1, n.Front)
			assert.Equal(t, -1, n.Back)
			continue
		}
		require.Equal(t, i, nodes[n.Front].Parent)
		require.Equal(t, i, nodes[n.Back].Parent)

		// Single layer: every split is across XZ and partitions the node.
		childArea := nodes[n.Front].Area() + nodes[n.Back].Area()
		assert.InDeltaf(t, n.Area(), childArea, 1e-9, "split of node %d must partition it", i)
		assert.Greater(t, nodes[n.Front].Area(), 0.0)
		assert.Greater(t, nodes[n.Back].Area(), 0.0)
	}
}

func TestBSP_StackedFloorsSplitVertically(t *testing.T) {
	// A floor at 0 with a bridge at 5 over columns 3..6.
	grid := buildGrid(t, 10, 10, 1, func(x, z int) []float32 {
		if x >= 3 && x <= 6 {
			return []float32{0, 5}
		}
		return []float32{0}
	})
	nodes, _ := buildBSP(t, grid)

	root := nodes[0]
	require.Equal(t, NodeInternal, root.State)
	front, back := nodes[root.Front], nodes[root.Back]
	assert.InDelta(t, 2.5, front.MinHeight, 1e-6)
	assert.Equal(t, NodeInternal, front.State)

	// The floor below the cut is uniform; its band shrinks to the floor.
	assert.Equal(t, NodeWaypoint, back.State)
	assert.InDelta(t, 81.0, back.Area(), 1e-9)
	assert.Equal(t, float32(0), back.MaxHeight)
}

func TestBSP_HeightRangeIsBounded(t *testing.T) {
	// A uniform ramp rising 0.5 per column.
	grid := buildGrid(t, 20, 5, 1, func(x, z int) []float32 { return []float32{float32(x) * 0.5} })
	nodes, diags := buildBSP(t, grid)

	require.Equal(t, NodeInternal, nodes[0].State)
	leaves := 0
	for i := range nodes {
		if nodes[i].State == NodeWaypoint {
			leaves++
			assert.LessOrEqual(t, nodes[i].MaxHeight-nodes[i].MinHeight, DefaultConfig().MaxHeightRange)
		}
	}
	assert.GreaterOrEqual(t, leaves, 4)
	assert.Zero(t, diags.count(DegenerateGeometry))
}

func TestBSP_EvenSplitOnLargeNodes(t *testing.T) {
	// A single blocked sample in a wide grid still forces an even cut
	// through the middle of the root.
	grid := blockedGrid(t, 60, 10, func(x, z int) bool { return x == 3 && z == 3 })
	nodes, _ := buildBSP(t, grid)

	root := nodes[0]
	require.Equal(t, NodeInternal, root.State)
	front, back := nodes[root.Front], nodes[root.Back]
	assert.InDelta(t, root.Area()/2, front.Area(), 9.0*1)
	assert.InDelta(t, root.Area()/2, back.Area(), 9.0*1)
}

func TestBSP_RandomGridsTerminate(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for round := 0; round < 5; round++ {
		blocked := make(map[[2]int]bool)
		for i := 0; i < 60; i++ {
			blocked[[2]int{r.Intn(16), r.Intn(16)}] = true
		}
		grid := blockedGrid(t, 16, 16, func(x, z int) bool { return blocked[[2]int{x, z}] })
		nodes, _ := buildBSP(t, grid)

		for i := range nodes {
			n := &nodes[i]
			require.NotEqual(t, NodeUnvisited, n.State)
			if n.State != NodeWaypoint {
				continue
			}
			for key := range blocked {
				p := mathx.HalfPoint{X: int32(2 * key[0]), Z: int32(2 * key[1])}
				require.Falsef(t, n.contains(p), "round %d: waypoint %d contains blocked sample %v", round, i, key)
			}
		}
	}
}

func TestBSP_UnlinkableLayerIgnored(t *testing.T) {
	grid := flatGrid(t, 4, 4, 1)
	i := grid.Index(1, 1, formats.MaxLayers-1)
	grid.Adjacency[i] = grid.Adjacency[i].WithLink(formats.North, 1)
	grid.Heights[i] = 20

	nodes, _ := buildBSP(t, grid)
	require.Len(t, nodes, 1)
	assert.Equal(t, NodeWaypoint, nodes[0].State)
	assert.Equal(t, float32(0), nodes[0].MaxHeight)
}

func TestCalcSplitValue(t *testing.T) {
	assert.Equal(t, 1.0, calcSplitValue(0))
	assert.Equal(t, 0.5, calcSplitValue(1))
	assert.Greater(t, calcSplitValue(0.5), calcSplitValue(-2))
}

func TestDirectionFamilies(t *testing.T) {
	tests := []struct {
		dir              formats.Direction
		normal, tangentF int
	}{
		{formats.North, 0, 2},
		{formats.South, 0, 2},
		{formats.East, 2, 0},
		{formats.West, 2, 0},
		{formats.NorthEast, 3, 1},
		{formats.SouthWest, 3, 1},
		{formats.NorthWest, 1, 3},
		{formats.SouthEast, 1, 3},
	}
	for _, tc := range tests {
		assert.Equalf(t, tc.normal, normalFamily(tc.dir), "normal family of %s", tc.dir)
		assert.Equalf(t, tc.tangentF, tangentFamily(tc.dir), "tangent family of %s", tc.dir)
	}
}

// unlink removes the links of layer 0 at (x, z) in the given directions.
func unlink(g *formats.AdjGrid, x, z int, dirs ...formats.Direction) {
	i := g.Index(x, z, 0)
	for _, d := range dirs {
		g.Adjacency[i] = g.Adjacency[i].WithLink(d, 0)
	}
}

// rootBuilder prepares a builder with only the root node.
func rootBuilder(grid *formats.AdjGrid, cfg Config) (*bspBuilder, []sample) {
	b := newBSPBuilder(grid, cfg, zap.NewNop(), newDiagnostics(zap.NewNop()), NopProgress{})
	b.initBSP()
	return b, b.gatherSamples(0)
}

// steppedGrid has a floor at 0 (with one sample at 0.25) in columns 0..2
// and an unconnected ledge at 2 in columns 3..5.
func steppedGrid(t *testing.T) *formats.AdjGrid {
	t.Helper()
	g := buildGrid(t, 6, 3, 1, func(x, z int) []float32 {
		switch {
		case x >= 3:
			return []float32{2}
		case x == 0 && z == 0:
			return []float32{0.25}
		}
		return []float32{0}
	})
	for z := 0; z < 3; z++ {
		unlink(g, 2, z, formats.East, formats.NorthEast, formats.SouthEast)
		unlink(g, 3, z, formats.West, formats.NorthWest, formats.SouthWest)
	}
	return g
}

func TestFindDispoints(t *testing.T) {
	b, samples := rootBuilder(steppedGrid(t), DefaultConfig())

	// The raised sample links N, E and NE; both directions are counted.
	assert.Equal(t, 6, b.findDispoints(0, samples, 0.15))
	assert.Zero(t, b.findDispoints(0, samples, 1))
	assert.Zero(t, b.findDispoints(0, samples, 10))
}

func TestValidateVertical_ProbesForCleanCut(t *testing.T) {
	b, samples := rootBuilder(steppedGrid(t), DefaultConfig())

	c := splitCandidate{family: verticalSplit, height: 0.15, score: 1}
	got, ok := b.validateVertical(0, samples, c, nodeScan{minH: 0, maxH: 2})
	require.True(t, ok)
	assert.Equal(t, verticalSplit, got.family)
	assert.InDelta(t, 0.3, got.height, 1e-4)
	assert.Zero(t, b.findDispoints(0, samples, got.height))
}

func TestValidateVertical_FallsBackToHorizontal(t *testing.T) {
	// A connected ramp: every height cuts a link.
	grid := buildGrid(t, 9, 5, 1, func(x, z int) []float32 { return []float32{float32(x) * 0.5} })
	b, samples := rootBuilder(grid, DefaultConfig())

	c := splitCandidate{family: verticalSplit, height: 2, score: 1}
	got, ok := b.validateVertical(0, samples, c, nodeScan{minH: 0, maxH: 4})
	require.True(t, ok)
	assert.NotEqual(t, verticalSplit, got.family)
}

func TestBestHorizontalSplit_PrefersHeightSeparation(t *testing.T) {
	grid := buildGrid(t, 9, 5, 1, func(x, z int) []float32 { return []float32{float32(x) * 0.5} })
	b, samples := rootBuilder(grid, DefaultConfig())

	c, ok := b.bestHorizontalSplit(0, samples)
	require.True(t, ok)

	// The cut runs across the ramp, through x = 4.
	nx, nz := normal(c.family)
	assert.NotZero(t, nx)
	assert.Zero(t, nz)
	assert.Equal(t, dotN(c.family, mathx.HalfPoint{X: 8, Z: 0}), c.value)
	assert.InDelta(t, 3.0, c.score, 1e-9)
}

func TestProcessNode_RejectsUnbalancedTallNode(t *testing.T) {
	// Every cut through the centre of a 3x3 grid is balanced 1:1, which a
	// minimum ratio of 2 refuses, and the 0..4 ramp is too tall to keep.
	cfg := DefaultConfig()
	cfg.BalanceMin = 2
	grid := buildGrid(t, 3, 3, 1, func(x, z int) []float32 { return []float32{float32(x) * 2} })
	b, _ := rootBuilder(grid, cfg)

	assert.False(t, b.processNode(0))
	assert.Equal(t, NodeRejected, b.nodes[0].State)
	require.Equal(t, 1, b.diags.count(DegenerateGeometry))
	d := b.diags.list[0]
	assert.Equal(t, SeverityWarning, d.Severity)
	assert.Equal(t, 0, d.Node)
}

func TestProcessNode_CornerNeedsDiagonalLink(t *testing.T) {
	// A floor at 0 with a bridge at 5 over columns 3..6. Two diagonal cuts
	// meet at (2.5, 8.5), half a unit west of the bridge samples (3, 8) and
	// (3, 9).
	grid := buildGrid(t, 10, 10, 1, func(x, z int) []float32 {
		if x >= 3 && x <= 6 {
			return []float32{0, 5}
		}
		return []float32{0}
	})
	b := newBSPBuilder(grid, DefaultConfig(), zap.NewNop(), newDiagnostics(zap.NewNop()), NopProgress{})
	corner := []mathx.HalfPoint{{X: 6, Z: 16}, {X: 6, Z: 18}, {X: 5, Z: 17}}
	inf := float32(math.Inf(1))

	bridge := b.newNode(-1, corner, 2.5, inf)
	assert.False(t, b.processNode(bridge))
	assert.Equal(t, NodeRejected, b.nodes[bridge].State, "nothing on the bridge reaches x = 2.5")
	assert.Zero(t, b.diags.count(DegenerateGeometry))

	floor := b.newNode(-1, corner, -inf, 2.5)
	assert.False(t, b.processNode(floor))
	assert.Equal(t, NodeWaypoint, b.nodes[floor].State, "the floor links across the corner")
}
