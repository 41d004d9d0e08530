// Package waypoint generates navigation meshes from sampled adjacency
// grids.
//
// A chunk is processed in one synchronous pass: the grid is recursively
// subdivided into convex, uniformly passable BSP leaves, each leaf becomes
// a polygon whose vertices come from a global sorted point set, polygon
// edges are stitched into an adjacency graph, adjacent polygons are merged
// greedily, and polygons unreachable from the chunk's frontier are removed.
//
// Geometry lives on an exact half-unit lattice. Polygon positions are in
// chunk grid space (one unit per sample); heights are world heights.
package waypoint

import (
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-navgen/pkg/formats"
	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

// Options are the per-chunk inputs besides the grid.
type Options struct {
	// Chunk names the chunk in logs.
	Chunk string
	// Physics enables chunk edge classification when set.
	Physics Physics
	// Progress receives phase notifications. May be nil.
	Progress Progress
	// Frontier holds world-space entity markers that seed connectivity.
	Frontier []mathx.Vec3
	// Owner decides whether a world position belongs to this chunk. The
	// default owns the grid's sampled rectangle.
	Owner OwnerFunc
}

// Stats counts what each phase produced.
type Stats struct {
	Nodes      int
	Waypoints  int
	Rejected   int
	Points     int
	Leaves     int
	Links      int
	ChunkEdges int
	Merges     int
	Sets       int
	Removed    int
	Dropped    int // samples on layers that cannot be linked
}

// Result is the output of one chunk.
type Result struct {
	Polygons    []Polygon
	Nodes       []Node
	Diagnostics []Diagnostic
	Stats       Stats
}

// Generator runs the waypoint pipeline.
type Generator struct {
	cfg Config
	log *zap.Logger
}

// New creates a generator. Zero config fields take their defaults.
func New(cfg Config, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{cfg: cfg.withDefaults(), log: log}
}

// Config returns the effective configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// Generate builds the waypoint set of one chunk. Malformed grids fail with
// a *GenerationError; every other problem is recovered and reported in
// Result.Diagnostics. A chunk with nothing walkable yields no polygons.
func (g *Generator) Generate(grid *formats.AdjGrid, opts Options) (*Result, error) {
	if err := checkGrid(grid); err != nil {
		return nil, err
	}
	progress := opts.Progress
	if progress == nil {
		progress = NopProgress{}
	}
	log := g.log
	if opts.Chunk != "" {
		log = log.With(zap.String("chunk", opts.Chunk))
	}
	diags := newDiagnostics(log)
	res := &Result{}

	if grid.CountActive() == 0 {
		diags.add(DegenerateGeometry, SeverityInfo, -1, -1, "chunk has no walkable samples")
		res.Diagnostics = diags.list
		return res, nil
	}

	if n := countUnlinkable(grid); n > 0 {
		res.Stats.Dropped = n
		diags.add(Overflow, SeverityError, -1, -1, "samples on the top layer cannot be linked and were dropped",
			zap.Int("samples", n), zap.Int("layer", formats.MaxLayers-1))
	}

	bsp := newBSPBuilder(grid, g.cfg, log.Named("bsp"), diags, progress)
	nodes := bsp.build()
	res.Stats.Nodes = len(nodes)
	res.Stats.Waypoints = bsp.waypoints
	res.Stats.Rejected = bsp.rejected

	points := generatePoints(nodes, g.cfg.PointEpsilon, progress)
	res.Stats.Points = points.Len()

	polys := generatePolygons(nodes, points, progress)
	res.Stats.Leaves = len(polys)

	res.Stats.Links = resolveAdjacency(polys, g.cfg.PointEpsilon, progress)

	transform := grid.Transform()
	owner := opts.Owner
	if owner == nil {
		owner = gridOwner(transform, grid.Width, grid.Depth)
	}
	edges := &chunkEdges{
		physics:   opts.Physics,
		transform: transform,
		owner:     owner,
		log:       log.Named("chunkedge"),
	}
	res.Stats.ChunkEdges = edges.classify(polys)

	res.Stats.Merges = newMerger(polys, g.cfg.MaxHeightRange, log.Named("merge"), diags).joinPolygons()
	progress.OnProgress("merge", res.Stats.Merges)

	frontier := make([]mathx.Vec3, len(opts.Frontier))
	for i, f := range opts.Frontier {
		frontier[i] = transform.ToGrid(f)
	}
	conn := &connectivity{
		polys:    polys,
		frontier: frontier,
		cfg:      g.cfg,
		log:      log.Named("connectivity"),
		diags:    diags,
	}
	res.Polygons, res.Stats.Sets, res.Stats.Removed = conn.calculateSetMembership()
	progress.OnProgress("connectivity", len(res.Polygons))

	res.Nodes = nodes
	res.Diagnostics = diags.list

	log.Info("chunk generated",
		zap.Int("nodes", res.Stats.Nodes),
		zap.Int("leaves", res.Stats.Leaves),
		zap.Int("merges", res.Stats.Merges),
		zap.Int("polygons", len(res.Polygons)),
		zap.Int("removed", res.Stats.Removed),
		zap.Int("diagnostics", len(res.Diagnostics)))
	return res, nil
}

func checkGrid(grid *formats.AdjGrid) error {
	switch {
	case grid == nil:
		return malformed("nil grid")
	case grid.Width < 2 || grid.Depth < 2:
		return malformed("grid %dx%d is too small", grid.Width, grid.Depth)
	case grid.Resolution <= 0:
		return malformed("resolution %v", grid.Resolution)
	}
	n := formats.MaxLayers * grid.Width * grid.Depth
	if len(grid.Adjacency) != n || len(grid.Heights) != n {
		return malformed("expected %d layer samples, got %d adjacency and %d heights",
			n, len(grid.Adjacency), len(grid.Heights))
	}
	return nil
}

// countUnlinkable counts active samples on the layer no link can address.
func countUnlinkable(grid *formats.AdjGrid) int {
	n := 0
	for z := 0; z < grid.Depth; z++ {
		for x := 0; x < grid.Width; x++ {
			if grid.Elt(x, z, formats.MaxLayers-1).Active() {
				n++
			}
		}
	}
	return n
}
