package waypoint

import (
	"go.uber.org/zap"

	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

// connectivity floods the polygon graph from frontier polygons and drops
// everything it cannot reach.
type connectivity struct {
	polys    []Polygon
	frontier []mathx.Vec3 // grid space; Y is world height
	cfg      Config
	log      *zap.Logger
	diags    *diagnostics
}

// calculateSetMembership stamps set ids, removes polygons with Set == 0
// and renumbers links. It returns the surviving polygons, the number of
// sets and the number of polygons removed.
func (c *connectivity) calculateSetMembership() ([]Polygon, int, int) {
	seeds := c.frontierPolygons()
	if len(seeds) == 0 {
		best, bestArea := -1, 0.0
		for i := range c.polys {
			if a := c.polys[i].Area(); !c.polys[i].Empty() && a > bestArea {
				best, bestArea = i, a
			}
		}
		if best < 0 {
			return nil, 0, len(c.polys)
		}
		c.log.Info("no frontier polygons, seeding connectivity from the largest polygon",
			zap.Int("polygon", best), zap.Float64("area", bestArea))
		seeds = []int{best}
	}

	for i := range c.polys {
		c.polys[i].Set = 0
	}
	sets := 0
	for _, s := range seeds {
		if c.polys[s].Set != 0 {
			continue
		}
		sets++
		c.flood(s, sets)
	}

	kept, removed := c.compact()
	c.log.Debug("connectivity resolved",
		zap.Int("sets", sets), zap.Int("kept", len(kept)), zap.Int("removed", removed))
	return kept, sets, removed
}

// frontierPolygons returns the polygons touching another chunk or
// containing a frontier point, in index order.
func (c *connectivity) frontierPolygons() []int {
	var out []int
	for i := range c.polys {
		p := &c.polys[i]
		if p.Empty() {
			continue
		}
		if c.isFrontier(p) {
			out = append(out, i)
		}
	}
	return out
}

func (c *connectivity) isFrontier(p *Polygon) bool {
	for _, v := range p.Vertices {
		if v.AdjToAnotherChunk {
			return true
		}
	}
	for _, pt := range c.frontier {
		if ptNearEnough(p, pt, c.cfg.FrontierHeightTolerance, c.cfg.FrontierInset) {
			return true
		}
	}
	return false
}

// flood stamps set on every polygon reachable from seed. Links that the
// target does not reciprocate are reported and zeroed.
func (c *connectivity) flood(seed, set int) {
	c.polys[seed].Set = set
	queue := []int{seed}
	for qi := 0; qi < len(queue); qi++ {
		pi := queue[qi]
		vs := c.polys[pi].Vertices
		for j := range vs {
			q := vs[j].AdjNavPoly
			if q == 0 {
				continue
			}
			if !c.reciprocated(q-1, pi+1) {
				c.diags.add(UnreciprocatedAdjacency, SeverityWarning, -1, pi,
					"adjacency is not reciprocated, link dropped", zap.Int("target", q-1))
				vs[j].AdjNavPoly = 0
				continue
			}
			if c.polys[q-1].Set == 0 {
				c.polys[q-1].Set = set
				queue = append(queue, q-1)
			}
		}
	}
}

// reciprocated reports whether polygon qi links back to polygon id.
func (c *connectivity) reciprocated(qi, id int) bool {
	if qi < 0 || qi >= len(c.polys) || c.polys[qi].Empty() {
		return false
	}
	for _, v := range c.polys[qi].Vertices {
		if v.AdjNavPoly == id {
			return true
		}
	}
	return false
}

// compact deletes unreached and empty polygons and renumbers links into
// the surviving id space.
func (c *connectivity) compact() ([]Polygon, int) {
	newID := make([]int, len(c.polys))
	kept := make([]Polygon, 0, len(c.polys))
	for i := range c.polys {
		if c.polys[i].Set == 0 || c.polys[i].Empty() {
			continue
		}
		kept = append(kept, c.polys[i])
		newID[i] = len(kept)
	}
	for i := range kept {
		vs := kept[i].Vertices
		for j := range vs {
			if q := vs[j].AdjNavPoly; q != 0 {
				vs[j].AdjNavPoly = newID[q-1]
			}
		}
	}
	return kept, len(c.polys) - len(kept)
}

// ptNearEnough reports whether a grid-space point lies in polygon p. The
// height must be within the band widened by heightTol, and the XZ test runs
// against the polygon grown by inset along each vertex's averaged outward
// edge perpendiculars.
func ptNearEnough(p *Polygon, pt mathx.Vec3, heightTol, inset float32) bool {
	if p.Empty() {
		return false
	}
	if pt.Y < p.MinHeight-heightTol || pt.Y > p.MaxHeight+heightTol {
		return false
	}

	ring := p.Ring()
	n := len(ring)
	grown := make([]mathx.Vec2, n)
	for i := range ring {
		prev := ring[(i+n-1)%n]
		next := ring[(i+1)%n]
		// Outward perpendicular of a counter-clockwise edge is (dz, -dx).
		a := ring[i].Sub(prev).Perp().Scale(-1).Normalize()
		b := next.Sub(ring[i]).Perp().Scale(-1).Normalize()
		grown[i] = ring[i].Add(a.Add(b).Normalize().Scale(inset))
	}

	q := pt.XZ()
	for i := range grown {
		a := grown[i]
		b := grown[(i+1)%n]
		if b.Sub(a).Cross(q.Sub(a)) < 0 {
			return false
		}
	}
	return true
}
