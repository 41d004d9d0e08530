package waypoint

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/midgard-navgen/pkg/formats"
	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

type progressRecorder struct {
	phases []string
	counts map[string]int
}

func (r *progressRecorder) Filled(int) bool { return false }

func (r *progressRecorder) OnProgress(phase string, n int) {
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	if len(r.phases) == 0 || r.phases[len(r.phases)-1] != phase {
		r.phases = append(r.phases, phase)
	}
	r.counts[phase] = n
}

func TestGenerate_FlatGrid(t *testing.T) {
	tests := []struct {
		name       string
		w, d       int
		resolution float32
	}{
		{"small", 5, 4, 1},
		{"wide", 40, 30, 1},
		{"half resolution", 7, 9, 0.5},
		{"quarter resolution", 3, 3, 0.25},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			grid := flatGrid(t, tc.w, tc.d, tc.resolution)
			res, err := New(DefaultConfig(), nil).Generate(grid, Options{})
			require.NoError(t, err)

			require.Len(t, res.Polygons, 1)
			p := res.Polygons[0]
			cells := float64((tc.w - 1) * (tc.d - 1))
			assert.InDelta(t, cells, p.Area(), 1e-9)

			r := float64(tc.resolution)
			world := mathx.PolygonArea(worldRing(grid, &p))
			assert.InDelta(t, cells*r*r, float64(world), 1e-3)

			assert.Equal(t, 1, p.Set)
			assert.Equal(t, 1, res.Stats.Sets)
			assert.Zero(t, res.Stats.Removed)
			assert.Empty(t, res.Diagnostics)
		})
	}
}

func worldRing(grid *formats.AdjGrid, p *Polygon) []mathx.Vec2 {
	tr := grid.Transform()
	ring := p.Ring()
	out := make([]mathx.Vec2, len(ring))
	for i, v := range ring {
		out[i] = tr.ToWorld2(v)
	}
	return out
}

func TestGenerate_MalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		grid  func(t *testing.T) *formats.AdjGrid
		match error
	}{
		{"nil grid", func(*testing.T) *formats.AdjGrid { return nil }, ErrMalformedInput},
		{"too narrow", func(*testing.T) *formats.AdjGrid {
			return formats.NewAdjGrid(mathx.Vec3{}, 1, 1, 5)
		}, ErrMalformedInput},
		{"zero resolution", func(t *testing.T) *formats.AdjGrid {
			g := flatGrid(t, 4, 4, 1)
			g.Resolution = 0
			return g
		}, ErrMalformedInput},
		{"truncated heights", func(t *testing.T) *formats.AdjGrid {
			g := flatGrid(t, 4, 4, 1)
			g.Heights = g.Heights[:len(g.Heights)-1]
			return g
		}, ErrMalformedInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := New(DefaultConfig(), nil).Generate(tc.grid(t), Options{})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tc.match)

			var genErr *GenerationError
			require.True(t, errors.As(err, &genErr))
			assert.Equal(t, MalformedInput, genErr.Kind)
		})
	}
}

func TestGenerate_BlockedChunkIsEmpty(t *testing.T) {
	grid := formats.NewAdjGrid(mathx.Vec3{}, 1, 4, 4)

	core, logs := observer.New(zapcore.InfoLevel)
	res, err := New(DefaultConfig(), zap.New(core)).Generate(grid, Options{Chunk: "3_3"})
	require.NoError(t, err)
	assert.Empty(t, res.Polygons)
	assert.Zero(t, res.Stats)

	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, DegenerateGeometry, d.Kind)
	assert.Equal(t, SeverityInfo, d.Severity)
	assert.Equal(t, 1, logs.FilterMessage("chunk has no walkable samples").Len())
}

func TestGenerate_OverflowLayerReported(t *testing.T) {
	grid := flatGrid(t, 4, 4, 1)
	i := grid.Index(2, 2, formats.MaxLayers-1)
	grid.Adjacency[i] = grid.Adjacency[i].WithLink(formats.North, 1)
	grid.Heights[i] = 12

	core, logs := observer.New(zapcore.InfoLevel)
	res, err := New(DefaultConfig(), zap.New(core)).Generate(grid, Options{Chunk: "0_0"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Stats.Dropped)
	require.Len(t, res.Diagnostics, 1)
	d := res.Diagnostics[0]
	assert.Equal(t, Overflow, d.Kind)
	assert.Equal(t, SeverityError, d.Severity)

	errs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "overflow", errs[0].ContextMap()["kind"])
	assert.Equal(t, "0_0", errs[0].ContextMap()["chunk"])

	// The dropped sample does not disturb the floor.
	require.Len(t, res.Polygons, 1)
	assert.Equal(t, float32(0), res.Polygons[0].MaxHeight)
}

func TestGenerate_ReportsPhases(t *testing.T) {
	rec := &progressRecorder{}
	_, err := New(DefaultConfig(), nil).Generate(flatGrid(t, 6, 6, 1), Options{Progress: rec})
	require.NoError(t, err)

	assert.Equal(t, []string{"bsp", "points", "polygons", "adjacency", "merge", "connectivity"}, rec.phases)
	assert.Equal(t, 1, rec.counts["bsp"])
	assert.Equal(t, 1, rec.counts["polygons"])
	assert.Equal(t, 1, rec.counts["connectivity"])
}

func TestGenerate_PillarIsCarvedOut(t *testing.T) {
	grid := blockedGrid(t, 10, 10, func(x, z int) bool { return x == 5 && z == 5 })
	res, err := New(DefaultConfig(), nil).Generate(grid, Options{})
	require.NoError(t, err)

	require.Equal(t, NodeInternal, res.Nodes[0].State)
	assert.Greater(t, res.Stats.Leaves, len(res.Polygons), "leaves should merge")
	for i := range res.Polygons {
		assert.Falsef(t, res.Polygons[i].Contains(mathx.Vec2{X: 5, Z: 5}), "polygon %d covers the pillar", i)
	}
	area := totalArea(res.Polygons)
	assert.Greater(t, area, 72.0)
	assert.LessOrEqual(t, area, 79.01)

	requireConvex(t, res.Polygons)
	requireReciprocal(t, res.Polygons)
}

func TestGenerate_StackedFloors(t *testing.T) {
	grid := buildGrid(t, 10, 10, 1, func(x, z int) []float32 {
		if x >= 3 && x <= 6 {
			return []float32{0, 5}
		}
		return []float32{0}
	})
	// One marker on the floor, one on the bridge.
	frontier := []mathx.Vec3{
		grid.Transform().ToWorld(mathx.Vec3{X: 1, Y: 0, Z: 1}),
		grid.Transform().ToWorld(mathx.Vec3{X: 4, Y: 5, Z: 4}),
	}
	res, err := New(DefaultConfig(), nil).Generate(grid, Options{Frontier: frontier})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Stats.Sets)
	var floor, bridge float64
	for i := range res.Polygons {
		p := &res.Polygons[i]
		switch {
		case p.MaxHeight <= 0:
			floor += p.Area()
		case p.MinHeight >= 5:
			bridge += p.Area()
		default:
			t.Fatalf("polygon %d spans both levels: [%v, %v]", i, p.MinHeight, p.MaxHeight)
		}
	}
	assert.InDelta(t, 81.0, floor, 1e-9)
	assert.Greater(t, bridge, 20.0)
	assert.LessOrEqual(t, bridge, 27.0+1e-9)
	requireSupported(t, grid, res.Polygons)
}

func TestGenerate_UnseededIslandRemoved(t *testing.T) {
	// A wall at x == 19 leaves a wide left island and a narrow right one.
	grid := blockedGrid(t, 24, 8, func(x, z int) bool { return x == 19 })
	left, right := mathx.Vec2{X: 5, Z: 3}, mathx.Vec2{X: 21, Z: 3}

	core, logs := observer.New(zapcore.InfoLevel)
	res, err := New(DefaultConfig(), zap.New(core)).Generate(grid, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stats.Sets)
	assert.Greater(t, res.Stats.Removed, 0)
	assert.True(t, coversPoint(res.Polygons, left))
	assert.False(t, coversPoint(res.Polygons, right))
	requireSupported(t, grid, res.Polygons)

	// The seed is the largest polygon, and it survives.
	seeded := logs.FilterMessageSnippet("seeding connectivity").All()
	require.Len(t, seeded, 1)
	seedArea, ok := seeded[0].ContextMap()["area"].(float64)
	require.True(t, ok)
	largest := 0.0
	for i := range res.Polygons {
		largest = max(largest, res.Polygons[i].Area())
	}
	assert.InDelta(t, seedArea, largest, 1e-9)
	assert.Greater(t, seedArea, 3.0*7.0, "the seed must be larger than the whole right island")

	// A marker in the right island keeps that one instead.
	marker := grid.Transform().ToWorld(mathx.Vec3{X: right.X, Y: 0, Z: right.Z})
	res, err = New(DefaultConfig(), nil).Generate(grid, Options{Frontier: []mathx.Vec3{marker}})
	require.NoError(t, err)
	assert.False(t, coversPoint(res.Polygons, left))
	assert.True(t, coversPoint(res.Polygons, right))
}

func coversPoint(polys []Polygon, pt mathx.Vec2) bool {
	for i := range polys {
		if polys[i].Contains(pt) {
			return true
		}
	}
	return false
}

func TestGenerate_HeightBandBounded(t *testing.T) {
	grid := buildGrid(t, 20, 6, 1, func(x, z int) []float32 { return []float32{float32(x) * 0.5} })
	res, err := New(DefaultConfig(), nil).Generate(grid, Options{})
	require.NoError(t, err)

	require.NotEmpty(t, res.Polygons)
	for i := range res.Polygons {
		p := &res.Polygons[i]
		assert.LessOrEqualf(t, p.MaxHeight-p.MinHeight, DefaultConfig().MaxHeightRange, "polygon %d", i)
	}
	assert.InDelta(t, 19.0*5.0, totalArea(res.Polygons), 1e-9)
	requireReciprocal(t, res.Polygons)
}

func TestGenerate_Deterministic(t *testing.T) {
	grid := blockedGrid(t, 14, 14, func(x, z int) bool {
		return (x == 4 && z >= 2 && z <= 10) || (x >= 7 && x <= 9 && z == 7)
	})
	gen := New(DefaultConfig(), nil)
	a, err := gen.Generate(grid, Options{})
	require.NoError(t, err)
	b, err := gen.Generate(grid, Options{})
	require.NoError(t, err)

	assert.Equal(t, a.Polygons, b.Polygons)
	assert.Equal(t, a.Stats, b.Stats)
}

func TestNew_Defaults(t *testing.T) {
	g := New(Config{MaxHeightRange: 2}, nil)
	cfg := g.Config()
	assert.Equal(t, float32(2), cfg.MaxHeightRange)
	assert.Equal(t, DefaultConfig().EvenSplitThreshold, cfg.EvenSplitThreshold)
	assert.Equal(t, DefaultConfig().PointEpsilon, cfg.PointEpsilon)
}
