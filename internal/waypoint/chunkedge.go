package waypoint

import (
	"go.uber.org/zap"

	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

// OwnerFunc reports whether a world-space position belongs to the chunk
// being generated.
type OwnerFunc func(world mathx.Vec3) bool

// gridOwner owns exactly the sampled rectangle of a grid.
func gridOwner(t mathx.GridTransform, width, depth int) OwnerFunc {
	return func(world mathx.Vec3) bool {
		g := t.ToGrid(world)
		const tol = 1e-3
		return g.X >= -tol && g.Z >= -tol &&
			g.X <= float32(width-1)+tol && g.Z <= float32(depth-1)+tol
	}
}

// chunkEdges flags polygon edges that continue into a neighbouring chunk.
type chunkEdges struct {
	physics   Physics
	transform mathx.GridTransform
	owner     OwnerFunc
	log       *zap.Logger
}

// classify tests every edge without an adjacent polygon. Both endpoints
// must drop onto ground, and a probe one grid unit outward from the
// midpoint must find ground within climbing range that another chunk
// owns. It returns the number of flagged edges.
func (c *chunkEdges) classify(polys []Polygon) int {
	if c.physics == nil {
		return 0
	}
	scramble := c.physics.ScrambleHeight()

	flagged := 0
	for pi := range polys {
		p := &polys[pi]
		top := p.MaxHeight + scramble
		for i := range p.Vertices {
			v := &p.Vertices[i]
			if v.AdjNavPoly != 0 {
				continue
			}
			a := v.Position()
			b := p.Vertices[(i+1)%len(p.Vertices)].Position()
			if a == b {
				continue
			}

			if !c.grounded(a, top) || !c.grounded(b, top) {
				continue
			}

			out := b.Sub(a).Perp().Scale(-1).Normalize()
			probe := a.Add(b).Scale(0.5).Add(out)
			world := c.transform.ToWorld(mathx.Vec3{X: probe.X, Y: top, Z: probe.Z})
			h, ok := c.physics.FindDropPoint(world)
			if !ok || h < p.MinHeight-scramble || h > p.MaxHeight+scramble {
				continue
			}
			if c.owner(world.WithY(h)) {
				continue
			}
			v.AdjToAnotherChunk = true
			flagged++
		}
	}
	c.log.Debug("chunk edges classified", zap.Int("flagged", flagged))
	return flagged
}

func (c *chunkEdges) grounded(p mathx.Vec2, top float32) bool {
	_, ok := c.physics.FindDropPoint(c.transform.ToWorld(mathx.Vec3{X: p.X, Y: top, Z: p.Z}))
	return ok
}
