package scene

import (
	"math"

	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

const (
	// dropSlack lets a drop test start exactly at ground level.
	dropSlack = 1e-3
	// headClear is the gap under a wall top that still counts as standing on it.
	headClear = 1e-2
	// moveStep is the sub-step length used by AdjustMove.
	moveStep = 0.05
)

// Girth returns the agent clearance box.
func (s *Scene) Girth() (width, height, depth float32) {
	return s.Agent.Width, s.Agent.Height, s.Agent.Depth
}

// ScrambleHeight returns the largest step the agent can climb.
func (s *Scene) ScrambleHeight() float32 {
	return s.Agent.Scramble
}

// FindDropPoint returns the highest ground at or below pos.
func (s *Scene) FindDropPoint(pos mathx.Vec3) (float32, bool) {
	best := float32(math.Inf(-1))
	found := false
	for i := range s.Surfaces {
		h, ok := s.Surfaces[i].HeightAt(pos.X, pos.Z)
		if ok && h <= pos.Y+dropSlack && h > best {
			best, found = h, true
		}
	}
	for i := range s.Walls {
		w := &s.Walls[i]
		if pos.X < w.Min[0] || pos.X > w.Max[0] || pos.Z < w.Min[2] || pos.Z > w.Max[2] {
			continue
		}
		if top := w.Max[1]; top <= pos.Y+dropSlack && top > best {
			best, found = top, true
		}
	}
	return best, found
}

// IsUnblocked reports whether the agent fits standing at src's XZ with its
// feet at otherY.
func (s *Scene) IsUnblocked(src mathx.Vec3, otherY float32) bool {
	return !s.blocked(src.X, src.Z, otherY+headClear, otherY+s.Agent.Height)
}

// AdjustMove moves the agent from src towards dst and stops in front of
// the first wall it cannot step over. The height stays at src.Y.
func (s *Scene) AdjustMove(src, dst mathx.Vec3) mathx.Vec3 {
	delta := dst.Sub(src)
	dist := delta.XZ().Length()
	if dist == 0 {
		return src
	}
	lo := src.Y + s.Agent.Scramble
	hi := src.Y + s.Agent.Height
	steps := int(math.Ceil(float64(dist / moveStep)))

	pos := src
	for i := 1; i <= steps; i++ {
		f := float32(i) / float32(steps)
		next := mathx.Vec3{X: src.X + delta.X*f, Y: src.Y, Z: src.Z + delta.Z*f}
		if s.blocked(next.X, next.Z, lo, hi) {
			return pos
		}
		pos = next
	}
	return pos
}

// blocked reports whether the agent box centred at (x, z) spanning heights
// (lo, hi) overlaps a wall.
func (s *Scene) blocked(x, z, lo, hi float32) bool {
	hw, hd := s.Agent.Width/2, s.Agent.Depth/2
	for i := range s.Walls {
		w := &s.Walls[i]
		if x+hw <= w.Min[0] || x-hw >= w.Max[0] || z+hd <= w.Min[2] || z-hd >= w.Max[2] {
			continue
		}
		if w.Max[1] <= lo || w.Min[1] >= hi {
			continue
		}
		return true
	}
	return false
}
