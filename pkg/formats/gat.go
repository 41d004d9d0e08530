package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

// GAT format errors.
var (
	ErrInvalidGATMagic       = errors.New("invalid GAT magic: expected 'GRAT'")
	ErrUnsupportedGATVersion = errors.New("unsupported GAT version")
	ErrTruncatedGATData      = errors.New("truncated GAT data")
)

// maxGATSide bounds each GAT dimension.
const maxGATSide = 4096

// GATCellType is the walkability class of a ground altitude cell.
type GATCellType uint32

// Cell types.
const (
	GATWalkable      GATCellType = 0
	GATBlocked       GATCellType = 1
	GATWater         GATCellType = 2
	GATWalkableWater GATCellType = 3
	GATSnipeable     GATCellType = 4
	GATBlockedSnipe  GATCellType = 5
)

// IsWalkable reports whether an agent may stand on the cell.
func (t GATCellType) IsWalkable() bool {
	return t == GATWalkable || t == GATWalkableWater
}

// GATCell is one ground altitude cell. Heights are the corner altitudes in
// the order bottom-left, bottom-right, top-left, top-right, with up negative.
type GATCell struct {
	Heights [4]float32
	Type    GATCellType
}

// Altitude returns the mean corner height with up positive.
func (c GATCell) Altitude() float32 {
	return -(c.Heights[0] + c.Heights[1] + c.Heights[2] + c.Heights[3]) / 4
}

// GAT is a ground altitude table: a single-layer walkability map.
type GAT struct {
	Major, Minor uint8
	Width        int
	Depth        int
	Cells        []GATCell
}

// Cell returns the cell at (x, z). Out-of-range coordinates return a
// blocked cell.
func (g *GAT) Cell(x, z int) GATCell {
	if x < 0 || z < 0 || x >= g.Width || z >= g.Depth {
		return GATCell{Type: GATBlocked}
	}
	return g.Cells[z*g.Width+x]
}

type gatHeader struct {
	Magic        [4]byte
	Minor, Major uint8
	Width, Depth uint32
}

// ParseGAT decodes a GAT file. Versions 1 through 3 share the cell layout.
func ParseGAT(data []byte) (*GAT, error) {
	var hdr gatHeader
	r := bytes.NewReader(data)
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: header", ErrTruncatedGATData)
	}
	if string(hdr.Magic[:]) != "GRAT" {
		return nil, ErrInvalidGATMagic
	}
	if hdr.Major < 1 || hdr.Major > 3 {
		return nil, fmt.Errorf("%w: %d.%d", ErrUnsupportedGATVersion, hdr.Major, hdr.Minor)
	}
	if hdr.Width == 0 || hdr.Depth == 0 || hdr.Width > maxGATSide || hdr.Depth > maxGATSide {
		return nil, fmt.Errorf("invalid GAT dimensions: %dx%d", hdr.Width, hdr.Depth)
	}

	g := &GAT{
		Major: hdr.Major,
		Minor: hdr.Minor,
		Width: int(hdr.Width),
		Depth: int(hdr.Depth),
		Cells: make([]GATCell, int(hdr.Width)*int(hdr.Depth)),
	}
	if err := binary.Read(r, binary.LittleEndian, g.Cells); err != nil {
		return nil, fmt.Errorf("%w: expected %d cells", ErrTruncatedGATData, len(g.Cells))
	}
	return g, nil
}

// ParseGATFile reads and decodes a GAT file.
func ParseGATFile(path string) (*GAT, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GAT file: %w", err)
	}
	return ParseGAT(data)
}

// AdjGrid converts the table into a single-layer adjacency grid with one
// sample per cell, cellSize apart. Walkable neighbours link when their
// altitudes differ by at most maxStep. Diagonal links also need both
// orthogonal cells walkable so paths never cut a blocked corner.
func (g *GAT) AdjGrid(cellSize, maxStep float32) *AdjGrid {
	grid := NewAdjGrid(mathx.Vec3{}, cellSize, g.Width, g.Depth)
	for z := 0; z < g.Depth; z++ {
		for x := 0; x < g.Width; x++ {
			c := g.Cell(x, z)
			if !c.Type.IsWalkable() {
				continue
			}
			h := c.Altitude()
			grid.SetHeight(x, z, 0, h)
			for d := North; d <= NorthWest; d++ {
				dx, dz := d.Offset()
				n := g.Cell(x+dx, z+dz)
				if !n.Type.IsWalkable() || absf(n.Altitude()-h) > maxStep {
					continue
				}
				if d.IsDiagonal() && (!g.Cell(x+dx, z).Type.IsWalkable() || !g.Cell(x, z+dz).Type.IsWalkable()) {
					continue
				}
				// Layer 0 is always addressable.
				_ = grid.Connect(x, z, 0, d, 0)
			}
		}
	}
	return grid
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
