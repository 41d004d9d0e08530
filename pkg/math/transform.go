package math

import "github.com/go-gl/mathgl/mgl32"

// GridTransform maps between chunk-local grid space (one unit per sample,
// origin at the grid minimum) and world space.
type GridTransform struct {
	toWorld mgl32.Mat4
	toGrid  mgl32.Mat4
}

// NewGridTransform builds the transform for a grid anchored at min with the
// given sample resolution. Heights are not scaled.
func NewGridTransform(min Vec3, resolution float32) GridTransform {
	toWorld := mgl32.Translate3D(min.X, 0, min.Z).Mul4(mgl32.Scale3D(resolution, 1, resolution))
	return GridTransform{
		toWorld: toWorld,
		toGrid:  toWorld.Inv(),
	}
}

// ToWorld converts a grid-space point to world space.
func (t GridTransform) ToWorld(p Vec3) Vec3 {
	return FromMGL(mgl32.TransformCoordinate(p.MGL(), t.toWorld))
}

// ToGrid converts a world-space point to grid space.
func (t GridTransform) ToGrid(p Vec3) Vec3 {
	return FromMGL(mgl32.TransformCoordinate(p.MGL(), t.toGrid))
}

// ToWorld2 converts a grid-space XZ position to world XZ.
func (t GridTransform) ToWorld2(p Vec2) Vec2 {
	return t.ToWorld(Vec3{X: p.X, Z: p.Z}).XZ()
}
