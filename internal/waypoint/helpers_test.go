package waypoint

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-navgen/pkg/formats"
	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

// layerFunc returns the layer heights present at a sample, indexed by layer.
type layerFunc func(x, z int) []float32

// buildGrid creates a grid where layer l of a sample links to layer l of
// each neighbour that has it. Diagonal links also need layer l on both
// orthogonal cells in between, so nothing cuts corners.
func buildGrid(t *testing.T, w, d int, resolution float32, layers layerFunc) *formats.AdjGrid {
	t.Helper()
	g := formats.NewAdjGrid(mathx.Vec3{X: 10, Y: 0, Z: 20}, resolution, w, d)

	has := func(x, z, l int) bool {
		return g.InBounds(x, z) && l < len(layers(x, z))
	}
	for z := 0; z < d; z++ {
		for x := 0; x < w; x++ {
			for l, h := range layers(x, z) {
				g.SetHeight(x, z, l, h)
				for dir := formats.North; dir <= formats.NorthWest; dir++ {
					dx, dz := dir.Offset()
					if !has(x+dx, z+dz, l) {
						continue
					}
					if dir.IsDiagonal() && (!has(x+dx, z, l) || !has(x, z+dz, l)) {
						continue
					}
					require.NoError(t, g.Connect(x, z, l, dir, l))
				}
			}
		}
	}
	return g
}

// flatGrid is a fully walkable single layer at height 0.
func flatGrid(t *testing.T, w, d int, resolution float32) *formats.AdjGrid {
	return buildGrid(t, w, d, resolution, func(x, z int) []float32 { return []float32{0} })
}

// blockedGrid is a flat grid with the listed samples removed.
func blockedGrid(t *testing.T, w, d int, blocked func(x, z int) bool) *formats.AdjGrid {
	return buildGrid(t, w, d, 1, func(x, z int) []float32 {
		if blocked(x, z) {
			return nil
		}
		return []float32{0}
	})
}

// runPhases runs the pipeline up to adjacency, before any merge.
func runPhases(t *testing.T, grid *formats.AdjGrid) ([]Node, []Polygon, *diagnostics) {
	t.Helper()
	cfg := DefaultConfig()
	diags := newDiagnostics(zap.NewNop())
	nodes := newBSPBuilder(grid, cfg, zap.NewNop(), diags, NopProgress{}).build()
	points := generatePoints(nodes, cfg.PointEpsilon, NopProgress{})
	polys := generatePolygons(nodes, points, NopProgress{})
	resolveAdjacency(polys, cfg.PointEpsilon, NopProgress{})
	return nodes, polys, diags
}

// squarePoly builds a counter-clockwise axis-aligned polygon in grid units.
func squarePoly(x0, z0, x1, z1 int32, minH, maxH float32) Polygon {
	return ringPoly([]mathx.HalfPoint{
		{X: 2 * x0, Z: 2 * z0},
		{X: 2 * x1, Z: 2 * z0},
		{X: 2 * x1, Z: 2 * z1},
		{X: 2 * x0, Z: 2 * z1},
	}, minH, maxH)
}

func ringPoly(ring []mathx.HalfPoint, minH, maxH float32) Polygon {
	p := Polygon{MinHeight: minH, MaxHeight: maxH}
	for i, v := range ring {
		w := ring[(i+1)%len(ring)]
		p.Vertices = append(p.Vertices, Vertex{Pos: v, Angle: angleOf(w.X-v.X, w.Z-v.Z)})
	}
	return p
}

func totalArea(polys []Polygon) float64 {
	sum := 0.0
	for i := range polys {
		sum += polys[i].Area()
	}
	return sum
}

// requireReciprocal checks that every link is matched by the reversed edge
// in the target polygon.
func requireReciprocal(t *testing.T, polys []Polygon) {
	t.Helper()
	for pi := range polys {
		vs := polys[pi].Vertices
		for i, v := range vs {
			if v.AdjNavPoly == 0 {
				continue
			}
			from, to := v.Pos, vs[(i+1)%len(vs)].Pos
			q := polys[v.AdjNavPoly-1]
			found := false
			for j, w := range q.Vertices {
				if w.Pos == to && q.Vertices[(j+1)%len(q.Vertices)].Pos == from {
					found = true
					break
				}
			}
			require.Truef(t, found, "polygon %d edge %v->%v has no reverse edge in polygon %d",
				pi+1, from, to, v.AdjNavPoly)
		}
	}
}

// requireConvex checks every polygon turns counter-clockwise or straight.
func requireConvex(t *testing.T, polys []Polygon) {
	t.Helper()
	for pi := range polys {
		vs := polys[pi].Vertices
		for i := range vs {
			a := vs[(i+len(vs)-1)%len(vs)].Pos
			c := vs[(i+1)%len(vs)].Pos
			require.GreaterOrEqualf(t, cross(a, vs[i].Pos, c), int64(0),
				"polygon %d is not convex at vertex %d", pi+1, i)
		}
	}
}

// requireSupported checks that every polygon vertex lies among samples
// walkable at the polygon's heights: each grid point around the vertex
// must have an active layer within the polygon's band.
func requireSupported(t *testing.T, grid *formats.AdjGrid, polys []Polygon) {
	t.Helper()
	const tol = 1e-4
	for pi := range polys {
		p := &polys[pi]
		for _, v := range p.Vertices {
			for _, x := range []int32{floorDiv(v.Pos.X, 2), floorDiv(v.Pos.X+1, 2)} {
				for _, z := range []int32{floorDiv(v.Pos.Z, 2), floorDiv(v.Pos.Z+1, 2)} {
					found := false
					for l := 0; l <= formats.MaxLinkedLayer && !found; l++ {
						h := grid.Height(int(x), int(z), l)
						found = grid.Elt(int(x), int(z), l).Active() && h >= p.MinHeight-tol && h <= p.MaxHeight+tol
					}
					require.Truef(t, found, "polygon %d vertex %v reaches past the samples at (%d, %d) in band [%v, %v]",
						pi+1, v.Pos.Vec2(), x, z, p.MinHeight, p.MaxHeight)
				}
			}
		}
	}
}
