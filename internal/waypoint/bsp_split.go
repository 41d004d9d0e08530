package waypoint

import (
	"math"
	"slices"

	"github.com/Faultbox/midgard-navgen/pkg/formats"
	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

// verticalSplit marks a split on height rather than across the XZ plane.
const verticalSplit = -1

// splitCandidate is a proposed split. For XZ splits the line is
// normal(family).P = value in doubled coordinates; the front child keeps
// the side where normal(family).P >= value. Vertical splits cut at height.
type splitCandidate struct {
	family int
	value  int32
	height float32
	score  float64
}

// nodeScan summarises the samples of a node.
type nodeScan struct {
	walkable int
	interior bool
	blocked  bool
	minH     float32
	maxH     float32
	best     splitCandidate
}

// normalFamily returns the line family whose normal is parallel to d.
func normalFamily(d formats.Direction) int {
	dx, dz := d.Offset()
	for k := 0; k < 4; k++ {
		nx, nz := normal(k)
		if int(nx)*dz-int(nz)*dx == 0 {
			return k
		}
	}
	return 0
}

// tangentFamily returns the line family running along d.
func tangentFamily(d formats.Direction) int {
	dx, dz := d.Offset()
	return angleOf(int32(dx), int32(dz)) & 3
}

// scanNode examines every sample of node i and collects the best split
// candidate. Candidates are scored by calcSplitValue; on equal scores the
// first one found wins.
func (b *bspBuilder) scanNode(i int, samples []sample) nodeScan {
	n := &b.nodes[i]
	sc := nodeScan{
		minH: float32(math.Inf(1)),
		maxH: float32(math.Inf(-1)),
	}
	for _, s := range samples {
		if s.count == 0 {
			continue
		}
		sc.walkable++
		if n.interior(s.point()) {
			sc.interior = true
		}
		for _, h := range b.heights[s.first : s.first+s.count] {
			sc.minH = min(sc.minH, h)
			sc.maxH = max(sc.maxH, h)
		}
	}
	if sc.walkable == 0 {
		return sc
	}

	cx, cz := ringCentroid(n.ring)
	midH := sc.minH + (sc.maxH-sc.minH)/2

	for _, s := range samples {
		p := s.point()
		switch {
		case s.count == 0:
			// Blocked point: cut along the walkable neighbours.
			sc.blocked = true
			for d := formats.North; d <= formats.NorthWest; d++ {
				dx, dz := d.Offset()
				qx, qz := s.x+dx, s.z+dz
				if !b.grid.InBounds(qx, qz) {
					continue
				}
				q := mathx.HalfPoint{X: int32(2 * qx), Z: int32(2 * qz)}
				if !n.contains(q) || !b.hasLayerInBand(n, qx, qz) {
					continue
				}
				k := normalFamily(d)
				b.considerLine(&sc, n, k, dotN(k, q), cx, cz)
			}

		case s.count > 1:
			// Stacked surfaces: cut between adjacent heights.
			sc.blocked = true
			hs := slices.Clone(b.heights[s.first : s.first+s.count])
			slices.Sort(hs)
			for j := 1; j < len(hs); j++ {
				if hs[j] <= hs[j-1] {
					continue
				}
				h := hs[j-1] + (hs[j]-hs[j-1])/2
				if h <= hs[j-1] || h >= hs[j] {
					continue
				}
				b.considerHeight(&sc, h, midH)
			}

		default:
			l := b.layers[s.first]
			for d := formats.North; d <= formats.NorthWest; d++ {
				ok, inside := b.passable(n, s.x, s.z, l, d)
				if !inside && b.overhangs(n, s.x, s.z, d) {
					ok, inside = b.linked(n, s.x, s.z, l, d), true
				}
				if ok || !inside {
					continue
				}
				sc.blocked = true
				dx, dz := d.Offset()
				q := mathx.HalfPoint{X: int32(2 * (s.x + dx)), Z: int32(2 * (s.z + dz))}
				for _, k := range [3]int{
					tangentFamily(d.CounterClockwise()),
					tangentFamily(d.Clockwise()),
					normalFamily(d),
				} {
					b.considerLine(&sc, n, k, dotN(k, p), cx, cz)
					b.considerLine(&sc, n, k, dotN(k, q), cx, cz)
				}
			}
		}
	}
	return sc
}

// considerLine scores the XZ split normal(k).P = s. Lines must cut the
// region strictly; diagonal lines stay on even offsets so that every
// intersection remains on the half-unit lattice.
func (b *bspBuilder) considerLine(sc *nodeScan, n *Node, k int, s int32, cx, cz float64) {
	if k&1 == 1 && s&1 != 0 {
		return
	}
	lo, hi := n.extent(k)
	if s <= lo || s >= hi {
		return
	}
	c := splitCandidate{family: k, value: s}
	c.score = calcSplitValue(lineDistance(k, s, cx, cz))
	if c.score > sc.best.score {
		sc.best = c
	}
}

func (b *bspBuilder) considerHeight(sc *nodeScan, h, midH float32) {
	c := splitCandidate{family: verticalSplit, height: h}
	c.score = calcSplitValue(float64(h - midH))
	if c.score > sc.best.score {
		sc.best = c
	}
}

// calcSplitValue prefers splits close to the node's centre.
func calcSplitValue(d float64) float64 {
	return 1 / (d*d + 1)
}

// lineDistance is the distance in grid units from (cx, cz) to the line
// normal(k).P = s, where s is in doubled coordinates.
func lineDistance(k int, s int32, cx, cz float64) float64 {
	nx, nz := normal(k)
	v := float64(nx)*cx + float64(nz)*cz - float64(s)/2
	return math.Abs(v) / math.Sqrt(float64(normSq(k)))
}

// validateVertical checks that cutting at c.height keeps every walkable
// link on one side. Otherwise it probes heights upward from the bottom of
// the node, then falls back to doBestHorizontalSplit.
func (b *bspBuilder) validateVertical(i int, samples []sample, c splitCandidate, sc nodeScan) (splitCandidate, bool) {
	if b.findDispoints(i, samples, c.height) == 0 {
		return c, true
	}
	step := b.cfg.VerticalProbeStep
	for h := sc.minH + step; h <= sc.maxH; h += step {
		if h <= b.nodes[i].MinHeight || h >= b.nodes[i].MaxHeight {
			continue
		}
		if b.findDispoints(i, samples, h) == 0 {
			return splitCandidate{family: verticalSplit, height: h, score: c.score}, true
		}
	}
	return b.bestHorizontalSplit(i, samples)
}

// findDispoints counts walkable links inside node i that a vertical cut at
// h would sever.
func (b *bspBuilder) findDispoints(i int, samples []sample, h float32) int {
	n := &b.nodes[i]
	count := 0
	for _, s := range samples {
		for j := s.first; j < s.first+s.count; j++ {
			l, hp := b.layers[j], b.heights[j]
			for d := formats.North; d <= formats.NorthWest; d++ {
				if ok, _ := b.passable(n, s.x, s.z, l, d); !ok {
					continue
				}
				qx, qz, ql, _ := b.grid.Neighbour(s.x, s.z, l, d)
				if (hp < h) != (b.grid.Height(qx, qz, ql) < h) {
					count++
				}
			}
		}
	}
	return count
}

// bestHorizontalSplit tries a cut through the node centroid in each of
// the four line families. A cut qualifies when the ratio of sample counts
// on its two sides is within [BalanceMin, BalanceMax]; among those the one
// with the best balance weighted by the height difference between the
// halves wins.
func (b *bspBuilder) bestHorizontalSplit(i int, samples []sample) (splitCandidate, bool) {
	n := &b.nodes[i]
	cx, cz := ringCentroid(n.ring)

	var best splitCandidate
	for k := 0; k < 4; k++ {
		nx, nz := normal(k)
		s := 2 * int32(math.Round(float64(nx)*cx+float64(nz)*cz))
		lo, hi := n.extent(k)
		if s <= lo || s >= hi {
			continue
		}

		var nf, nb int
		var hf, hb float64
		for _, smp := range samples {
			v := dotN(k, smp.point())
			for _, h := range b.heights[smp.first : smp.first+smp.count] {
				if v >= s {
					nf++
					hf += float64(h)
				}
				if v <= s {
					nb++
					hb += float64(h)
				}
			}
		}
		if nf == 0 || nb == 0 {
			continue
		}
		ratio := float32(nf) / float32(nb)
		if ratio < b.cfg.BalanceMin || ratio > b.cfg.BalanceMax {
			continue
		}
		balance := float64(min(nf, nb)) / float64(max(nf, nb))
		score := balance * (1 + math.Abs(hf/float64(nf)-hb/float64(nb)))
		if score > best.score {
			best = splitCandidate{family: k, value: s, score: score}
		}
	}
	return best, best.score > 0
}
