package waypoint

import (
	"slices"

	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

// Vertex is one corner of a waypoint polygon. Angle is the direction of
// the edge leaving the vertex. AdjNavPoly is the one-based index of the
// polygon across that edge, 0 for none.
type Vertex struct {
	Pos               mathx.HalfPoint
	Angle             int
	AdjNavPoly        int
	AdjToAnotherChunk bool
}

// Position returns the vertex in grid units.
func (v Vertex) Position() mathx.Vec2 {
	return v.Pos.Vec2()
}

// Polygon is a convex waypoint, counter-clockwise, in chunk grid space.
// Set is the connected component id; 0 means undetermined.
type Polygon struct {
	Vertices  []Vertex
	MinHeight float32
	MaxHeight float32
	Set       int
}

// Empty reports whether the polygon was emptied by a merge.
func (p *Polygon) Empty() bool {
	return len(p.Vertices) < 3
}

func (p *Polygon) ring() []mathx.HalfPoint {
	ring := make([]mathx.HalfPoint, len(p.Vertices))
	for i, v := range p.Vertices {
		ring[i] = v.Pos
	}
	return ring
}

// Ring returns the vertex positions in grid units.
func (p *Polygon) Ring() []mathx.Vec2 {
	out := make([]mathx.Vec2, len(p.Vertices))
	for i, v := range p.Vertices {
		out[i] = v.Position()
	}
	return out
}

// Area returns the polygon area in grid units squared.
func (p *Polygon) Area() float64 {
	return ringArea(p.ring())
}

// Contains reports whether a grid-space point lies inside or on the
// boundary of the polygon.
func (p *Polygon) Contains(pt mathx.Vec2) bool {
	if p.Empty() {
		return false
	}
	for i := range p.Vertices {
		a := p.Vertices[i].Position()
		b := p.Vertices[(i+1)%len(p.Vertices)].Position()
		if b.Sub(a).Cross(pt.Sub(a)) < 0 {
			return false
		}
	}
	return true
}

// generatePolygons turns every waypoint leaf into a polygon. Each leaf
// edge emits every point of the global set lying on it whose band overlaps
// the leaf's band, so two leaves sharing a boundary segment enumerate the
// same vertices along it.
func generatePolygons(nodes []Node, ps *pointSet, progress Progress) []Polygon {
	var polys []Polygon
	var ts []int32
	for i := range nodes {
		n := &nodes[i]
		if n.State != NodeWaypoint {
			continue
		}

		poly := Polygon{MinHeight: n.MinHeight, MaxHeight: n.MaxHeight}
		for j := range n.ring {
			angle, k, off := edgeLine(n, j)
			if angle < 0 {
				continue
			}
			t0 := dotT(k, n.ring[j])
			t1 := dotT(k, n.ring[(j+1)%len(n.ring)])

			ts = ts[:0]
			ps.scan(k, off, min(t0, t1), max(t0, t1), func(p PointDef) bool {
				if !bandsOverlap(p.MinHeight, p.MaxHeight, n.MinHeight, n.MaxHeight, ps.eps) {
					return true
				}
				if len(ts) == 0 || ts[len(ts)-1] != p.T {
					ts = append(ts, p.T)
				}
				return true
			})
			if len(ts) < 2 {
				ts = append(ts[:0], min(t0, t1), max(t0, t1))
			}
			if angle >= 4 {
				slices.Reverse(ts)
			}
			for _, t := range ts[:len(ts)-1] {
				poly.Vertices = append(poly.Vertices, Vertex{
					Pos:   linePoint(k, off, t),
					Angle: angle,
				})
			}
		}
		if poly.Empty() {
			continue
		}
		n.WaypointIndex = len(polys)
		polys = append(polys, poly)
	}
	progress.OnProgress("polygons", len(polys))
	return polys
}
