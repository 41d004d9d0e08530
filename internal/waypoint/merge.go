package waypoint

import (
	"go.uber.org/zap"
)

// merger greedily fuses adjacent convex polygons.
type merger struct {
	polys    []Polygon
	maxRange float32
	log      *zap.Logger
	diags    *diagnostics
}

func newMerger(polys []Polygon, maxRange float32, log *zap.Logger, diags *diagnostics) *merger {
	return &merger{polys: polys, maxRange: maxRange, log: log, diags: diags}
}

// joinPolygons repeats joinPolygon over every polygon until a full pass
// performs no merge. It returns the number of merges.
func (m *merger) joinPolygons() int {
	total := 0
	for {
		pass := 0
		for i := range m.polys {
			pass += m.joinPolygon(i)
		}
		total += pass
		if pass == 0 {
			return total
		}
	}
}

// joinPolygon merges neighbours into polygon i while possible.
func (m *merger) joinPolygon(i int) int {
	n := 0
	for m.joinOnce(i) {
		n++
	}
	return n
}

// joinOnce walks polygon i's boundary in runs of vertices sharing an edge
// angle and tries to merge across the first run whose vertices all link to
// the same polygon.
func (m *merger) joinOnce(i int) bool {
	vs := m.polys[i].Vertices
	nv := len(vs)
	if nv < 3 {
		return false
	}

	start := -1
	for j := 0; j < nv; j++ {
		if vs[j].Angle != vs[(j+nv-1)%nv].Angle {
			start = j
			break
		}
	}
	if start < 0 {
		return false
	}

	for j := 0; j < nv; {
		s := (start + j) % nv
		run := 1
		for j+run < nv && vs[(s+run)%nv].Angle == vs[s].Angle {
			run++
		}
		j += run

		q := vs[s].AdjNavPoly
		if q == 0 || q == i+1 {
			continue
		}
		single := true
		for r := 0; r < run; r++ {
			v := vs[(s+r)%nv]
			if v.AdjNavPoly != q || v.AdjToAnotherChunk {
				single = false
				break
			}
		}
		if single && m.tryMerge(i, s, run, q-1) {
			return true
		}
	}
	return false
}

// tryMerge merges polygon qi into pi across the run of pi's vertices
// [s, s+run). Q must traverse the same vertices in reverse.
func (m *merger) tryMerge(pi, s, run, qi int) bool {
	p, q := &m.polys[pi], &m.polys[qi]
	if q.Empty() {
		m.diags.add(UnreciprocatedAdjacency, SeverityWarning, -1, pi,
			"merge target is an empty polygon", zap.Int("target", qi))
		return false
	}
	P, Q := p.Vertices, q.Vertices
	np, nq := len(P), len(Q)
	if run >= np || run >= nq {
		return false
	}

	e := (s + run) % np
	u := -1
	for j := range Q {
		if Q[j].Pos == P[e].Pos && Q[j].AdjNavPoly == pi+1 {
			u = j
			break
		}
	}
	if u < 0 {
		return false
	}
	for j := 0; j <= run; j++ {
		qv := Q[(u+j)%nq]
		if qv.Pos != P[(e-j+np)%np].Pos {
			return false
		}
		if j < run && qv.AdjNavPoly != pi+1 {
			return false
		}
	}

	if !isConvexJoint(P[(s-1+np)%np], P[s], Q[(u+run+1)%nq]) ||
		!isConvexJoint(Q[(u-1+nq)%nq], P[e], P[(e+1)%np]) {
		return false
	}

	lo, hi := min(p.MinHeight, q.MinHeight), max(p.MaxHeight, q.MaxHeight)
	if hi-lo > m.maxRange {
		return false
	}

	merged := make([]Vertex, 0, np+nq-2*run)
	for j := e; j != s; j = (j + 1) % np {
		merged = append(merged, P[j])
	}
	for j := (u + run) % nq; j != u; j = (j + 1) % nq {
		merged = append(merged, Q[j])
	}
	for _, v := range merged {
		if v.AdjNavPoly == pi+1 || v.AdjNavPoly == qi+1 {
			return false
		}
	}

	p.Vertices = merged
	p.MinHeight, p.MaxHeight = lo, hi
	q.Vertices = nil
	m.retarget(qi+1, pi+1)
	return true
}

// isConvexJoint reports whether the turn a -> b -> c is not clockwise.
func isConvexJoint(a, b, c Vertex) bool {
	return cross(a.Pos, b.Pos, c.Pos) >= 0
}

// retarget points every reference to polygon from at polygon to.
func (m *merger) retarget(from, to int) {
	for i := range m.polys {
		vs := m.polys[i].Vertices
		for j := range vs {
			if vs[j].AdjNavPoly == from {
				vs[j].AdjNavPoly = to
			}
		}
	}
}
