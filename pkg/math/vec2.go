// Package math provides the small vector and lattice types shared by the
// waypoint generator, the flood sampler and the navigation data export.
package math

import "math"

// Vec2 is a 2D vector on the XZ plane.
type Vec2 struct {
	X, Z float32
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{v.X - other.X, v.Z - other.Z}
}

// Scale returns v * scalar.
func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{v.X * s, v.Z * s}
}

// Dot returns the dot product.
func (v Vec2) Dot(other Vec2) float32 {
	return v.X*other.X + v.Z*other.Z
}

// Cross returns the Z component of the 3D cross product of v and other.
// Positive when other is counter-clockwise from v.
func (v Vec2) Cross(other Vec2) float32 {
	return v.X*other.Z - v.Z*other.X
}

// Perp returns v rotated 90 degrees counter-clockwise.
func (v Vec2) Perp() Vec2 {
	return Vec2{-v.Z, v.X}
}

// Length returns the magnitude.
func (v Vec2) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Z*v.Z)))
}

// Normalize returns a unit vector.
func (v Vec2) Normalize() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{v.X / l, v.Z / l}
}

// Distance returns the distance to another point.
func (v Vec2) Distance(other Vec2) float32 {
	return v.Sub(other).Length()
}

// HalfKey returns the position snapped to the 0.5 lattice.
func (v Vec2) HalfKey() HalfPoint {
	return HalfPoint{
		X: int32(math.Round(float64(v.X) * 2)),
		Z: int32(math.Round(float64(v.Z) * 2)),
	}
}

// HalfPoint is a point on the half-unit lattice, stored doubled so that
// arithmetic stays exact. Two vertices are the same vertex iff their
// HalfPoints are equal.
type HalfPoint struct {
	X, Z int32
}

// Vec2 converts the lattice point back to grid units.
func (p HalfPoint) Vec2() Vec2 {
	return Vec2{float32(p.X) / 2, float32(p.Z) / 2}
}

// Less orders lattice points by X then Z.
func (p HalfPoint) Less(o HalfPoint) bool {
	if p.X != o.X {
		return p.X < o.X
	}
	return p.Z < o.Z
}

// PolygonArea returns the signed area of a ring (positive when CCW).
func PolygonArea(ring []Vec2) float32 {
	var sum float64
	for i := range ring {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		sum += float64(a.X)*float64(b.Z) - float64(b.X)*float64(a.Z)
	}
	return float32(sum / 2)
}
