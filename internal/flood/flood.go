// Package flood samples walkable space into an adjacency grid by walking
// an agent outward from seed positions.
package flood

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-navgen/internal/waypoint"
	"github.com/Faultbox/midgard-navgen/pkg/formats"
	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

// ErrNoSeeds is returned when no seed lands on ground inside the grid.
var ErrNoSeeds = errors.New("no seed landed on ground inside the grid")

// Options describe the sampled lattice.
type Options struct {
	Min        mathx.Vec3
	Resolution float32
	Width      int
	Depth      int
	// MaxLayers caps the layers per cell. Layers past the last linkable
	// one are never allocated.
	MaxLayers int
	// LayerMergeTolerance is how close two heights must be to share a layer.
	LayerMergeTolerance float32
	// ProgressEvery is the number of new samples between Filled calls.
	ProgressEvery int
}

// Result is a flooded grid plus counters.
type Result struct {
	Grid     *formats.AdjGrid
	Points   int
	Links    int
	Overflow int // steps refused because the target cell had no free layer
	Aborted  bool
}

type cellLayer struct {
	x, z, l int
}

// ChunkFlooder floods one chunk.
type ChunkFlooder struct {
	physics  waypoint.Physics
	opts     Options
	log      *zap.Logger
	progress waypoint.Progress

	grid      *formats.AdjGrid
	transform mathx.GridTransform
	counts    []int // layers allocated per cell
	maxLayers int
}

// New creates a flooder.
func New(physics waypoint.Physics, opts Options, log *zap.Logger, progress waypoint.Progress) *ChunkFlooder {
	if log == nil {
		log = zap.NewNop()
	}
	if progress == nil {
		progress = waypoint.NopProgress{}
	}
	maxLayers := opts.MaxLayers
	if maxLayers <= 0 || maxLayers > formats.MaxLinkedLayer+1 {
		maxLayers = formats.MaxLinkedLayer + 1
	}
	return &ChunkFlooder{
		physics:   physics,
		opts:      opts,
		log:       log,
		progress:  progress,
		maxLayers: maxLayers,
	}
}

// Flood samples the chunk breadth first from the seeds. Cancelling ctx
// stops the walk with the context's error; a Progress that asks to stop
// returns the partial grid with Aborted set.
func (f *ChunkFlooder) Flood(ctx context.Context, seeds []mathx.Vec3) (*Result, error) {
	if f.opts.Width < 2 || f.opts.Depth < 2 || f.opts.Resolution <= 0 {
		return nil, fmt.Errorf("invalid flood lattice %dx%d at resolution %v",
			f.opts.Width, f.opts.Depth, f.opts.Resolution)
	}
	f.grid = formats.NewAdjGrid(f.opts.Min, f.opts.Resolution, f.opts.Width, f.opts.Depth)
	f.transform = f.grid.Transform()
	f.counts = make([]int, f.opts.Width*f.opts.Depth)
	res := &Result{Grid: f.grid}

	var queue []cellLayer
	for _, s := range seeds {
		c, created, ok := f.seed(s)
		if !ok {
			f.log.Warn("seed did not land on ground", zap.Float32("x", s.X), zap.Float32("y", s.Y), zap.Float32("z", s.Z))
			continue
		}
		if created {
			queue = append(queue, c)
			res.Points++
		}
	}
	if len(queue) == 0 {
		return nil, ErrNoSeeds
	}

	scramble := f.physics.ScrambleHeight()
	for qi := 0; qi < len(queue); qi++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("flood cancelled after %d points: %w", res.Points, err)
		}
		c := queue[qi]
		h := f.grid.Height(c.x, c.z, c.l)
		src := f.cellWorld(c.x, c.z, h)

		for d := formats.North; d <= formats.NorthWest; d++ {
			dx, dz := d.Offset()
			nx, nz := c.x+dx, c.z+dz
			if !f.grid.InBounds(nx, nz) {
				continue
			}
			nh, ok := f.step(src, nx, nz, scramble)
			if !ok {
				continue
			}
			nl, created, ok := f.layerFor(nx, nz, nh)
			if !ok {
				res.Overflow++
				continue
			}
			if err := f.grid.Connect(c.x, c.z, c.l, d, nl); err != nil {
				res.Overflow++
				continue
			}
			res.Links++
			if !created {
				continue
			}
			queue = append(queue, cellLayer{nx, nz, nl})
			res.Points++
			if f.opts.ProgressEvery > 0 && res.Points%f.opts.ProgressEvery == 0 && f.progress.Filled(res.Points) {
				res.Aborted = true
				f.log.Info("flood aborted by progress callback", zap.Int("points", res.Points))
				return res, nil
			}
		}
	}

	if res.Overflow > 0 {
		f.log.Error("cells ran out of layers", zap.Int("refused", res.Overflow), zap.Int("max_layers", f.maxLayers))
	}
	f.log.Debug("flood finished", zap.Int("points", res.Points), zap.Int("links", res.Links))
	return res, nil
}

// seed drops a world position onto the ground of its nearest cell.
func (f *ChunkFlooder) seed(p mathx.Vec3) (c cellLayer, created, ok bool) {
	g := f.transform.ToGrid(p)
	x, z := int(roundf(g.X)), int(roundf(g.Z))
	if !f.grid.InBounds(x, z) {
		return cellLayer{}, false, false
	}
	pos := f.cellWorld(x, z, p.Y)
	h, ok := f.physics.FindDropPoint(pos)
	if !ok || !f.physics.IsUnblocked(pos.WithY(h), h) {
		return cellLayer{}, false, false
	}
	l, created, ok := f.layerFor(x, z, h)
	if !ok {
		return cellLayer{}, false, false
	}
	return cellLayer{x, z, l}, created, true
}

// step tries to walk from src onto cell (nx, nz) and returns the ground
// height reached.
func (f *ChunkFlooder) step(src mathx.Vec3, nx, nz int, scramble float32) (float32, bool) {
	target := f.cellWorld(nx, nz, src.Y)
	moved := f.physics.AdjustMove(src, target)
	if moved.XZ().Distance(target.XZ()) > 1e-3 {
		return 0, false
	}
	nh, ok := f.physics.FindDropPoint(target.WithY(src.Y + scramble))
	if !ok || nh < src.Y-scramble {
		return 0, false
	}
	if !f.physics.IsUnblocked(target.WithY(nh), nh) {
		return 0, false
	}
	return nh, true
}

// layerFor finds the layer of a cell within the merge tolerance of h, or
// allocates one.
func (f *ChunkFlooder) layerFor(x, z int, h float32) (layer int, created, ok bool) {
	ci := z*f.opts.Width + x
	for l := 0; l < f.counts[ci]; l++ {
		if d := f.grid.Height(x, z, l) - h; d <= f.opts.LayerMergeTolerance && d >= -f.opts.LayerMergeTolerance {
			return l, false, true
		}
	}
	if f.counts[ci] >= f.maxLayers {
		return 0, false, false
	}
	l := f.counts[ci]
	f.counts[ci]++
	f.grid.SetHeight(x, z, l, h)
	return l, true, true
}

func (f *ChunkFlooder) cellWorld(x, z int, y float32) mathx.Vec3 {
	return f.transform.ToWorld(mathx.Vec3{X: float32(x), Y: y, Z: float32(z)})
}

func roundf(v float32) float32 {
	if v < 0 {
		return float32(int(v - 0.5))
	}
	return float32(int(v + 0.5))
}
