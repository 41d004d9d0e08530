package waypoint

import (
	"math"

	"github.com/google/btree"
)

// PointDef is a boundary point expressed on one of the four line
// families: the line normal(Angle).P + Offset = 0 and the position
// T = tangent(Angle).P along it, both in doubled grid coordinates, tagged
// with the height band of the leaf that produced it.
//
// Positions are exact lattice values; only heights are compared through
// quantization, so the ordering is a strict weak order.
type PointDef struct {
	Angle     int
	Offset    int32
	T         int32
	MinHeight float32
	MaxHeight float32
}

// pointSet is the global ordered set of boundary points.
type pointSet struct {
	tree *btree.BTreeG[PointDef]
	eps  float32
}

func newPointSet(eps float32) *pointSet {
	ps := &pointSet{eps: eps}
	ps.tree = btree.NewG(32, ps.less)
	return ps
}

// quantize maps a height onto the epsilon grid.
func (ps *pointSet) quantize(h float32) int64 {
	switch {
	case math.IsInf(float64(h), -1):
		return math.MinInt64
	case math.IsInf(float64(h), 1):
		return math.MaxInt64
	}
	return int64(math.Round(float64(h) / float64(ps.eps)))
}

func (ps *pointSet) less(a, b PointDef) bool {
	if a.Angle != b.Angle {
		return a.Angle < b.Angle
	}
	if a.Offset != b.Offset {
		return a.Offset < b.Offset
	}
	if a.T != b.T {
		return a.T < b.T
	}
	if qa, qb := ps.quantize(a.MinHeight), ps.quantize(b.MinHeight); qa != qb {
		return qa < qb
	}
	return ps.quantize(a.MaxHeight) < ps.quantize(b.MaxHeight)
}

func (ps *pointSet) insert(p PointDef) {
	ps.tree.ReplaceOrInsert(p)
}

func (ps *pointSet) Len() int {
	return ps.tree.Len()
}

// scan calls fn for every point on line (k, offset) with t in [t0, t1], in
// increasing t.
func (ps *pointSet) scan(k int, offset, t0, t1 int32, fn func(PointDef) bool) {
	lo := PointDef{Angle: k, Offset: offset, T: t0, MinHeight: float32(math.Inf(-1)), MaxHeight: float32(math.Inf(-1))}
	hi := PointDef{Angle: k, Offset: offset, T: t1 + 1, MinHeight: float32(math.Inf(-1)), MaxHeight: float32(math.Inf(-1))}
	ps.tree.AscendRange(lo, hi, fn)
}

// bandsOverlap reports whether two closed height bands overlap within eps.
func bandsOverlap(aMin, aMax, bMin, bMax, eps float32) bool {
	return aMin <= bMax+eps && bMin <= aMax+eps
}

// edgeLine returns the angle of ring edge j of a leaf and the canonical
// line it lies on.
func edgeLine(n *Node, j int) (angle, k int, offset int32) {
	v := n.ring[j]
	w := n.ring[(j+1)%len(n.ring)]
	angle = angleOf(w.X-v.X, w.Z-v.Z)
	k = angle & 3
	return angle, k, -dotN(k, v)
}

// generatePoints inserts both endpoints of every edge of every waypoint
// leaf into a single sorted set. Edges running against their family's
// tangent (angles 4..7) land on the same canonical line as their mirror.
func generatePoints(nodes []Node, eps float32, progress Progress) *pointSet {
	ps := newPointSet(eps)
	for i := range nodes {
		n := &nodes[i]
		if n.State != NodeWaypoint {
			continue
		}
		for j := range n.ring {
			angle, k, off := edgeLine(n, j)
			if angle < 0 {
				continue
			}
			v := n.ring[j]
			w := n.ring[(j+1)%len(n.ring)]
			for _, p := range [2]int32{dotT(k, v), dotT(k, w)} {
				ps.insert(PointDef{Angle: k, Offset: off, T: p, MinHeight: n.MinHeight, MaxHeight: n.MaxHeight})
			}
		}
	}
	progress.OnProgress("points", ps.Len())
	return ps
}
