package waypoint

import (
	"math"

	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

// Edge angles. Angle a has tangent angleTangents[a]; successive angles rotate
// the tangent 45 degrees counter-clockwise, so walking a convex ring
// counter-clockwise visits its edges in increasing angle order. Angles 4..7
// lie on the same line families as 0..3, traversed the other way.
const numAngles = 8

var angleTangents = [numAngles][2]int32{
	{1, 0}, {1, 1}, {0, 1}, {-1, 1},
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1},
}

// tangent returns the (unnormalised) edge direction for an angle.
func tangent(a int) (int32, int32) {
	t := angleTangents[a&7]
	return t[0], t[1]
}

// normal returns the inward normal for an angle: the tangent turned left.
func normal(a int) (int32, int32) {
	tx, tz := tangent(a)
	return -tz, tx
}

// normSq is |n|^2 for the angle's normal (1 for axes, 2 for diagonals).
func normSq(a int) int32 {
	if a&1 == 1 {
		return 2
	}
	return 1
}

// dotN returns n_a . p for a doubled lattice point.
func dotN(a int, p mathx.HalfPoint) int32 {
	nx, nz := normal(a)
	return nx*p.X + nz*p.Z
}

// dotT returns t_a . p for a doubled lattice point.
func dotT(a int, p mathx.HalfPoint) int32 {
	tx, tz := tangent(a)
	return tx*p.X + tz*p.Z
}

// angleOf returns the angle whose tangent points along (dx, dz), or -1.
func angleOf(dx, dz int32) int {
	sx, sz := sign(dx), sign(dz)
	for a := 0; a < numAngles; a++ {
		tx, tz := tangent(a)
		if tx == sx && tz == sz {
			if sx != 0 && sz != 0 && abs32(dx) != abs32(dz) {
				return -1
			}
			return a
		}
	}
	return -1
}

// canonicalLine maps a border (angle, offset) onto its family 0..3. The
// second return reports whether traversal runs against the family tangent.
func canonicalLine(a int, offset int32) (family int, canon int32, reversed bool) {
	if a < 4 {
		return a, offset, false
	}
	return a - 4, -offset, true
}

// linePoint returns the doubled lattice point on family k's line
// n_k.P + offset = 0 at parameter t = t_k.P.
func linePoint(k int, offset, t int32) mathx.HalfPoint {
	nx, nz := normal(k)
	tx, tz := tangent(k)
	s := normSq(k)
	return mathx.HalfPoint{
		X: (-offset*nx + t*tx) / s,
		Z: (-offset*nz + t*tz) / s,
	}
}

// clipRing clips a convex ring (doubled coordinates) to n_a.P + offset >= 0.
// Duplicate and collinear vertices are removed from the result.
func clipRing(ring []mathx.HalfPoint, a int, offset int32) []mathx.HalfPoint {
	if len(ring) == 0 {
		return nil
	}
	side := func(p mathx.HalfPoint) int64 {
		return int64(dotN(a, p)) + int64(offset)
	}

	out := make([]mathx.HalfPoint, 0, len(ring)+1)
	for i := range ring {
		cur := ring[i]
		next := ring[(i+1)%len(ring)]
		sc, sn := side(cur), side(next)
		if sc >= 0 {
			out = append(out, cur)
		}
		if (sc > 0 && sn < 0) || (sc < 0 && sn > 0) {
			// Exact: both segment and clip line lie on lattice families, so
			// the intersection is a half-lattice point.
			f := float64(sc) / float64(sc-sn)
			out = append(out, mathx.HalfPoint{
				X: cur.X + int32(math.Round(f*float64(next.X-cur.X))),
				Z: cur.Z + int32(math.Round(f*float64(next.Z-cur.Z))),
			})
		}
	}
	return simplifyRing(out)
}

// simplifyRing drops repeated and collinear vertices.
func simplifyRing(ring []mathx.HalfPoint) []mathx.HalfPoint {
	for i := 0; len(ring) >= 3 && i < len(ring); {
		prev := ring[(i+len(ring)-1)%len(ring)]
		next := ring[(i+1)%len(ring)]
		if cross(prev, ring[i], next) == 0 {
			ring = append(ring[:i], ring[i+1:]...)
			i = 0
			continue
		}
		i++
	}
	return ring
}

// cross returns (b-a) x (c-b) in doubled units.
func cross(a, b, c mathx.HalfPoint) int64 {
	abx, abz := int64(b.X-a.X), int64(b.Z-a.Z)
	bcx, bcz := int64(c.X-b.X), int64(c.Z-b.Z)
	return abx*bcz - abz*bcx
}

// ringArea returns the area of a doubled-coordinate ring in grid units^2.
func ringArea(ring []mathx.HalfPoint) float64 {
	if len(ring) < 3 {
		return 0
	}
	var sum int64
	for i := range ring {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		sum += int64(a.X)*int64(b.Z) - int64(b.X)*int64(a.Z)
	}
	return float64(sum) / 8
}

// ringCentroid returns the area centroid of a ring in grid units.
func ringCentroid(ring []mathx.HalfPoint) (float64, float64) {
	var a2, cx, cz float64
	for i := range ring {
		p := ring[i]
		q := ring[(i+1)%len(ring)]
		px, pz := float64(p.X)/2, float64(p.Z)/2
		qx, qz := float64(q.X)/2, float64(q.Z)/2
		c := px*qz - qx*pz
		a2 += c
		cx += (px + qx) * c
		cz += (pz + qz) * c
	}
	if a2 == 0 {
		var sx, sz float64
		for _, p := range ring {
			sx += float64(p.X) / 2
			sz += float64(p.Z) / 2
		}
		n := float64(max(len(ring), 1))
		return sx / n, sz / n
	}
	return cx / (3 * a2), cz / (3 * a2)
}

func sign(v int32) int32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
