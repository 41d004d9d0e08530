package waypoint

import (
	"math"

	"github.com/google/btree"

	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

// EdgeDef is a directed polygon edge owned by polygon ID (one-based).
type EdgeDef struct {
	From mathx.HalfPoint
	To   mathx.HalfPoint
	ID   int
}

func edgeLess(a, b EdgeDef) bool {
	if a.From != b.From {
		return a.From.Less(b.From)
	}
	if a.To != b.To {
		return a.To.Less(b.To)
	}
	return a.ID < b.ID
}

// resolveAdjacency sets AdjNavPoly on every vertex: the first other
// polygon owning the reversed edge with an overlapping height band. It
// returns the number of links set.
func resolveAdjacency(polys []Polygon, eps float32, progress Progress) int {
	edges := btree.NewG(32, edgeLess)
	for pi := range polys {
		vs := polys[pi].Vertices
		for i := range vs {
			from, to := vs[i].Pos, vs[(i+1)%len(vs)].Pos
			if from == to {
				continue
			}
			edges.ReplaceOrInsert(EdgeDef{From: from, To: to, ID: pi + 1})
		}
	}

	links := 0
	for pi := range polys {
		p := &polys[pi]
		for i := range p.Vertices {
			v := &p.Vertices[i]
			v.AdjNavPoly = 0
			from, to := v.Pos, p.Vertices[(i+1)%len(p.Vertices)].Pos
			if from == to {
				continue
			}
			edges.AscendRange(
				EdgeDef{From: to, To: from, ID: 0},
				EdgeDef{From: to, To: from, ID: math.MaxInt},
				func(e EdgeDef) bool {
					if e.ID == pi+1 {
						return true
					}
					q := &polys[e.ID-1]
					if !bandsOverlap(p.MinHeight, p.MaxHeight, q.MinHeight, q.MaxHeight, eps) {
						return true
					}
					v.AdjNavPoly = e.ID
					links++
					return false
				})
		}
	}
	progress.OnProgress("adjacency", links)
	return links
}
