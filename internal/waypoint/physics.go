package waypoint

import mathx "github.com/Faultbox/midgard-navgen/pkg/math"

// Physics is the collision capability the generator and the flood sampler
// consume. All positions are in world space.
type Physics interface {
	// Girth returns the clearance box of the agent.
	Girth() (width, height, depth float32)
	// ScrambleHeight is the largest step the agent can climb.
	ScrambleHeight() float32
	// FindDropPoint drops pos straight down and returns the ground height.
	FindDropPoint(pos mathx.Vec3) (float32, bool)
	// IsUnblocked reports whether the agent fits standing at src with its
	// feet moved to otherY.
	IsUnblocked(src mathx.Vec3, otherY float32) bool
	// AdjustMove slides a move from src towards dst against the geometry.
	AdjustMove(src, dst mathx.Vec3) mathx.Vec3
}

// Progress receives progress notifications. Filled is called during flood
// sampling; returning true aborts the flood. OnProgress is advisory.
type Progress interface {
	Filled(points int) bool
	OnProgress(phase string, n int)
}

// NopProgress ignores all notifications.
type NopProgress struct{}

// Filled never aborts.
func (NopProgress) Filled(int) bool { return false }

// OnProgress does nothing.
func (NopProgress) OnProgress(string, int) {}
