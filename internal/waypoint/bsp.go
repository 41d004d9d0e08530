package waypoint

import (
	"math"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-navgen/pkg/formats"
	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

// NodeState is the lifecycle state of a BSP node. A node only ever moves
// out of NodeUnvisited, once.
type NodeState uint8

// Node states.
const (
	NodeUnvisited NodeState = iota
	NodeWaypoint
	NodeRejected
	NodeInternal
)

func (s NodeState) String() string {
	switch s {
	case NodeWaypoint:
		return "waypoint"
	case NodeRejected:
		return "rejected"
	case NodeInternal:
		return "internal"
	default:
		return "unvisited"
	}
}

// Node is a convex region of the sample grid: the intersection of the eight
// half-planes normal(a).P + Border[a] >= 0, with P in doubled grid
// coordinates. Borders are kept tight to the region's polygon. Unresolved
// and internal nodes cover heights in [MinHeight, MaxHeight); waypoint
// leaves carry the closed range of their sample heights.
type Node struct {
	Border        [numAngles]int32
	MinHeight     float32
	MaxHeight     float32
	Parent        int
	Front         int
	Back          int
	State         NodeState
	WaypointIndex int

	ring []mathx.HalfPoint
}

// Ring returns the region polygon, counter-clockwise, in grid units.
func (n *Node) Ring() []mathx.Vec2 {
	out := make([]mathx.Vec2, len(n.ring))
	for i, p := range n.ring {
		out[i] = p.Vec2()
	}
	return out
}

// Area returns the region area in grid units squared.
func (n *Node) Area() float64 {
	return ringArea(n.ring)
}

func (n *Node) contains(p mathx.HalfPoint) bool {
	for a := 0; a < numAngles; a++ {
		if dotN(a, p)+n.Border[a] < 0 {
			return false
		}
	}
	return true
}

func (n *Node) interior(p mathx.HalfPoint) bool {
	for a := 0; a < numAngles; a++ {
		if dotN(a, p)+n.Border[a] <= 0 {
			return false
		}
	}
	return true
}

// extent returns the range of normal(k).P over the region, k in 0..3.
func (n *Node) extent(k int) (lo, hi int32) {
	return -n.Border[k], n.Border[k+4]
}

func (n *Node) inBand(h float32) bool {
	return h >= n.MinHeight && h < n.MaxHeight
}

// tightBorders returns the border offsets of the smallest 8-direction
// region containing ring.
func tightBorders(ring []mathx.HalfPoint) [numAngles]int32 {
	var b [numAngles]int32
	for a := 0; a < numAngles; a++ {
		lo := int32(math.MaxInt32)
		for _, p := range ring {
			lo = min(lo, dotN(a, p))
		}
		b[a] = -lo
	}
	return b
}

// sample is a grid point inside a node with its in-band layers. Layers and
// heights live in the builder's scratch buffers at [first, first+count).
type sample struct {
	x, z  int
	first int
	count int
}

func (s sample) point() mathx.HalfPoint {
	return mathx.HalfPoint{X: int32(2 * s.x), Z: int32(2 * s.z)}
}

// bspBuilder subdivides a grid into convex, uniformly passable leaves.
type bspBuilder struct {
	grid     *formats.AdjGrid
	cfg      Config
	log      *zap.Logger
	diags    *diagnostics
	progress Progress
	nodes    []Node

	samples []sample
	layers  []int
	heights []float32

	waypoints int
	rejected  int
}

func newBSPBuilder(grid *formats.AdjGrid, cfg Config, log *zap.Logger, diags *diagnostics, progress Progress) *bspBuilder {
	return &bspBuilder{
		grid:     grid,
		cfg:      cfg,
		log:      log,
		diags:    diags,
		progress: progress,
	}
}

// initBSP clears the tree and creates the root over the whole grid at
// unbounded height.
func (b *bspBuilder) initBSP() {
	w2 := int32(2 * (b.grid.Width - 1))
	d2 := int32(2 * (b.grid.Depth - 1))
	ring := simplifyRing([]mathx.HalfPoint{{X: 0, Z: 0}, {X: w2, Z: 0}, {X: w2, Z: d2}, {X: 0, Z: d2}})

	b.nodes = b.nodes[:0]
	b.waypoints, b.rejected = 0, 0
	b.newNode(-1, ring, float32(math.Inf(-1)), float32(math.Inf(1)))
}

func (b *bspBuilder) newNode(parent int, ring []mathx.HalfPoint, minH, maxH float32) int {
	b.nodes = append(b.nodes, Node{
		Border:        tightBorders(ring),
		MinHeight:     minH,
		MaxHeight:     maxH,
		Parent:        parent,
		Front:         -1,
		Back:          -1,
		WaypointIndex: -1,
		ring:          ring,
	})
	return len(b.nodes) - 1
}

// build runs processNode over the tree with an explicit stack.
func (b *bspBuilder) build() []Node {
	b.initBSP()

	stack := []int{0}
	processed := 0
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if b.processNode(i) {
			stack = append(stack, b.nodes[i].Back, b.nodes[i].Front)
		}
		processed++
		if processed%256 == 0 {
			b.progress.OnProgress("bsp", processed)
		}
	}
	b.progress.OnProgress("bsp", processed)

	b.log.Debug("bsp built",
		zap.Int("nodes", len(b.nodes)),
		zap.Int("waypoints", b.waypoints),
		zap.Int("rejected", b.rejected))
	return b.nodes
}

// gatherSamples collects the grid points inside node i and their in-band
// layers. The unlinkable top layer is ignored.
func (b *bspBuilder) gatherSamples(i int) []sample {
	n := &b.nodes[i]
	b.samples = b.samples[:0]
	b.layers = b.layers[:0]
	b.heights = b.heights[:0]

	xlo := max(int(-floorDiv(n.Border[6], 2)), 0)
	xhi := min(int(floorDiv(n.Border[2], 2)), b.grid.Width-1)
	zlo := max(int(-floorDiv(n.Border[0], 2)), 0)
	zhi := min(int(floorDiv(n.Border[4], 2)), b.grid.Depth-1)

	for z := zlo; z <= zhi; z++ {
		for x := xlo; x <= xhi; x++ {
			s := sample{x: x, z: z, first: len(b.layers)}
			if !n.contains(s.point()) {
				continue
			}
			for l := 0; l <= formats.MaxLinkedLayer; l++ {
				if !b.grid.Elt(x, z, l).Active() {
					continue
				}
				h := b.grid.Height(x, z, l)
				if !n.inBand(h) {
					continue
				}
				b.layers = append(b.layers, l)
				b.heights = append(b.heights, h)
				s.count++
			}
			b.samples = append(b.samples, s)
		}
	}
	return b.samples
}

// passable reports whether layer l at (x, z) links in direction d to an
// in-band layer of a neighbour inside node n. inside is false when the
// neighbour lies outside the node or the grid.
func (b *bspBuilder) passable(n *Node, x, z, l int, d formats.Direction) (ok, inside bool) {
	dx, dz := d.Offset()
	qx, qz := x+dx, z+dz
	if !b.grid.InBounds(qx, qz) || !n.contains(mathx.HalfPoint{X: int32(2 * qx), Z: int32(2 * qz)}) {
		return false, false
	}
	return b.linked(n, x, z, l, d), true
}

// linked reports whether layer l at (x, z) links in direction d to an
// active layer in n's band, wherever the neighbour lies.
func (b *bspBuilder) linked(n *Node, x, z, l int, d formats.Direction) bool {
	dx, dz := d.Offset()
	link := b.grid.Elt(x, z, l).Link(d)
	if link == 0 || link-1 > formats.MaxLinkedLayer {
		return false
	}
	if !b.grid.Elt(x+dx, z+dz, link-1).Active() {
		return false
	}
	return n.inBand(b.grid.Height(x+dx, z+dz, link-1))
}

// overhangs reports whether node n reaches half a step past (x, z) toward
// its diagonal neighbour in d while leaving out the neighbour and one of
// the two samples beside the step. That is a corner where two diagonal
// borders meet between samples; the region there is only walkable if the
// diagonal link is.
func (b *bspBuilder) overhangs(n *Node, x, z int, d formats.Direction) bool {
	if !d.IsDiagonal() {
		return false
	}
	dx, dz := d.Offset()
	if !b.grid.InBounds(x+dx, z+dz) {
		return false
	}
	half := mathx.HalfPoint{X: int32(2*x + dx), Z: int32(2*z + dz)}
	if !n.contains(half) {
		return false
	}
	return !n.contains(mathx.HalfPoint{X: int32(2 * (x + dx)), Z: int32(2 * z)}) ||
		!n.contains(mathx.HalfPoint{X: int32(2 * x), Z: int32(2 * (z + dz))})
}

// hasLayerInBand reports whether (x, z) has any active layer in n's band.
func (b *bspBuilder) hasLayerInBand(n *Node, x, z int) bool {
	for l := 0; l <= formats.MaxLinkedLayer; l++ {
		if b.grid.Elt(x, z, l).Active() && n.inBand(b.grid.Height(x, z, l)) {
			return true
		}
	}
	return false
}

// processNode classifies node i. It returns true when the node was split;
// the children are then in Front and Back.
func (b *bspBuilder) processNode(i int) bool {
	if b.nodes[i].Area() <= 0 {
		b.reject(i, false, "node has no area")
		return false
	}
	samples := b.gatherSamples(i)
	sc := b.scanNode(i, samples)
	n := &b.nodes[i]

	switch {
	case sc.walkable == 0:
		b.reject(i, false, "node has no walkable samples")
		return false

	case !sc.blocked:
		if sc.maxH-sc.minH > b.cfg.MaxHeightRange {
			if c, ok := b.bestHorizontalSplit(i, samples); ok {
				b.split(i, c)
				return true
			}
			b.reject(i, true, "height range exceeds limit and no balanced split exists",
				zap.Float32("range", sc.maxH-sc.minH))
			return false
		}
		n.State = NodeWaypoint
		n.MinHeight, n.MaxHeight = sc.minH, sc.maxH
		b.waypoints++
		return false
	}

	c := sc.best
	if c.score <= 0 {
		b.reject(i, sc.interior, "no usable split for partially blocked node")
		return false
	}
	if c.family != verticalSplit && b.tooLarge(i) {
		c = b.evenSplit(i)
	}
	if c.family == verticalSplit {
		var ok bool
		if c, ok = b.validateVertical(i, samples, c, sc); !ok {
			b.reject(i, true, "vertical split cuts walkable links at every height",
				zap.Float32("min_height", sc.minH), zap.Float32("max_height", sc.maxH))
			return false
		}
	}
	b.split(i, c)
	return true
}

// reject marks node i as a rejected leaf. Degenerate rejections are
// recorded as diagnostics; the rest are only logged at debug level.
func (b *bspBuilder) reject(i int, degenerate bool, msg string, fields ...zap.Field) {
	b.nodes[i].State = NodeRejected
	b.rejected++
	if degenerate {
		fields = append(fields, zap.Float64("area", b.nodes[i].Area()))
		b.diags.add(DegenerateGeometry, SeverityWarning, i, -1, msg, fields...)
		return
	}
	b.log.Debug(msg, append(fields, zap.Int("node", i))...)
}

// split carves node i into two children.
func (b *bspBuilder) split(i int, c splitCandidate) {
	n := b.nodes[i]
	var front, back int
	if c.family == verticalSplit {
		ring := append([]mathx.HalfPoint(nil), n.ring...)
		front = b.newNode(i, ring, c.height, n.MaxHeight)
		back = b.newNode(i, n.ring, n.MinHeight, c.height)
	} else {
		front = b.newNode(i, clipRing(n.ring, c.family, -c.value), n.MinHeight, n.MaxHeight)
		back = b.newNode(i, clipRing(n.ring, c.family+4, c.value), n.MinHeight, n.MaxHeight)
	}
	b.nodes[i].State = NodeInternal
	b.nodes[i].Front = front
	b.nodes[i].Back = back
}

// tooLarge reports whether node i is wider or deeper than the even split
// threshold.
func (b *bspBuilder) tooLarge(i int) bool {
	n := &b.nodes[i]
	zlo, zhi := n.extent(0)
	xlo, xhi := n.extent(2)
	limit := b.cfg.EvenSplitThreshold
	return float32(zhi-zlo)/2 > limit || float32(xhi-xlo)/2 > limit
}

// evenSplit bisects node i across its larger axis, on a grid line.
func (b *bspBuilder) evenSplit(i int) splitCandidate {
	n := &b.nodes[i]
	k := 0
	lo, hi := n.extent(0)
	if xlo, xhi := n.extent(2); xhi-xlo > hi-lo {
		k, lo, hi = 2, xlo, xhi
	}
	return splitCandidate{family: k, value: 2 * floorDiv(lo+hi, 4), score: 1}
}
