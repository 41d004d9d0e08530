package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

// Grid format errors.
var (
	ErrInvalidGridHeader  = errors.New("invalid grid header")
	ErrTruncatedGrid      = errors.New("truncated grid data")
	ErrLayerUnaddressable = errors.New("layer cannot be addressed by a 4-bit link")
)

// MaxLayers is the number of height layers stored per grid cell.
const MaxLayers = 16

// MaxLinkedLayer is the highest layer index a link can reference. Link
// values are layer+1 in four bits, so layer 15 exists but cannot be linked.
const MaxLinkedLayer = 14

// gridExtraSize is the size of the gridMin + resolution block carried in the
// TGA image-ID field.
const gridExtraSize = 16

// Direction is a compass direction on the sample grid. +X is east and +Z is
// north.
type Direction uint8

// Compass directions in clockwise order.
const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest
)

var directionOffsets = [8][2]int{
	{0, 1}, {1, 1}, {1, 0}, {1, -1},
	{0, -1}, {-1, -1}, {-1, 0}, {-1, 1},
}

var directionNames = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Offset returns the (dx, dz) step for the direction.
func (d Direction) Offset() (int, int) {
	o := directionOffsets[d&7]
	return o[0], o[1]
}

// Opposite returns the direction pointing back.
func (d Direction) Opposite() Direction {
	return (d + 4) & 7
}

// Clockwise returns the next direction clockwise.
func (d Direction) Clockwise() Direction {
	return (d + 1) & 7
}

// CounterClockwise returns the next direction counter-clockwise.
func (d Direction) CounterClockwise() Direction {
	return (d + 7) & 7
}

// IsDiagonal reports whether the direction is one of NE, SE, SW, NW.
func (d Direction) IsDiagonal() bool {
	return d&1 == 1
}

// String returns the compass abbreviation.
func (d Direction) String() string {
	return directionNames[d&7]
}

// AdjGridElt packs one 4-bit link per direction. A link value is the
// neighbour's layer index plus one; zero means no adjacency.
type AdjGridElt uint32

// Link returns the raw 4-bit link value for the direction.
func (e AdjGridElt) Link(d Direction) int {
	return int(e>>(4*uint(d&7))) & 0xF
}

// WithLink returns e with the link for d replaced.
func (e AdjGridElt) WithLink(d Direction, link int) AdjGridElt {
	shift := 4 * uint(d&7)
	e &^= 0xF << shift
	return e | AdjGridElt(link&0xF)<<shift
}

// Active reports whether the layer has any adjacency at all.
func (e AdjGridElt) Active() bool {
	return e != 0
}

// AdjGrid is a sampled chunk: per cell and per height layer, a height and
// the adjacency to the neighbouring cells' layers.
type AdjGrid struct {
	Min        mathx.Vec3
	Resolution float32
	Width      int // samples along X
	Depth      int // samples along Z

	// Adjacency and Heights are layer-major: layer*Width*Depth + z*Width + x.
	Adjacency []AdjGridElt
	Heights   []float32
}

// NewAdjGrid allocates an empty grid.
func NewAdjGrid(min mathx.Vec3, resolution float32, width, depth int) *AdjGrid {
	n := MaxLayers * width * depth
	return &AdjGrid{
		Min:        min,
		Resolution: resolution,
		Width:      width,
		Depth:      depth,
		Adjacency:  make([]AdjGridElt, n),
		Heights:    make([]float32, n),
	}
}

// InBounds reports whether (x, z) is a sample of the grid.
func (g *AdjGrid) InBounds(x, z int) bool {
	return x >= 0 && z >= 0 && x < g.Width && z < g.Depth
}

// Index returns the flat index of a layer sample.
func (g *AdjGrid) Index(x, z, layer int) int {
	return layer*g.Width*g.Depth + z*g.Width + x
}

// Elt returns the adjacency of a layer sample, or 0 out of bounds.
func (g *AdjGrid) Elt(x, z, layer int) AdjGridElt {
	if !g.InBounds(x, z) || layer < 0 || layer >= MaxLayers {
		return 0
	}
	return g.Adjacency[g.Index(x, z, layer)]
}

// Height returns the height of a layer sample.
func (g *AdjGrid) Height(x, z, layer int) float32 {
	return g.Heights[g.Index(x, z, layer)]
}

// SetHeight sets the height of a layer sample.
func (g *AdjGrid) SetHeight(x, z, layer int, h float32) {
	g.Heights[g.Index(x, z, layer)] = h
}

// Connect links (x, z, layer) in direction d to layer nl of the neighbour.
func (g *AdjGrid) Connect(x, z, layer int, d Direction, nl int) error {
	if nl < 0 || nl > MaxLinkedLayer {
		return fmt.Errorf("%w: layer %d", ErrLayerUnaddressable, nl)
	}
	i := g.Index(x, z, layer)
	g.Adjacency[i] = g.Adjacency[i].WithLink(d, nl+1)
	return nil
}

// Neighbour follows the link from (x, z, layer) in direction d.
func (g *AdjGrid) Neighbour(x, z, layer int, d Direction) (nx, nz, nl int, ok bool) {
	link := g.Elt(x, z, layer).Link(d)
	if link == 0 {
		return 0, 0, 0, false
	}
	dx, dz := d.Offset()
	nx, nz = x+dx, z+dz
	if !g.InBounds(nx, nz) {
		return 0, 0, 0, false
	}
	return nx, nz, link - 1, true
}

// ActiveLayers appends the active layer indices of a cell to dst.
func (g *AdjGrid) ActiveLayers(dst []int, x, z int) []int {
	for l := 0; l < MaxLayers; l++ {
		if g.Adjacency[g.Index(x, z, l)].Active() {
			dst = append(dst, l)
		}
	}
	return dst
}

// CountActive returns the number of active layer samples.
func (g *AdjGrid) CountActive() int {
	n := 0
	for _, e := range g.Adjacency {
		if e.Active() {
			n++
		}
	}
	return n
}

// HeightRange returns the minimum and maximum height over active layers.
func (g *AdjGrid) HeightRange() (min, max float32) {
	first := true
	for i, e := range g.Adjacency {
		if !e.Active() {
			continue
		}
		h := g.Heights[i]
		if first {
			min, max = h, h
			first = false
			continue
		}
		if h < min {
			min = h
		}
		if h > max {
			max = h
		}
	}
	return min, max
}

// Transform returns the grid-to-world transform of the grid.
func (g *AdjGrid) Transform() mathx.GridTransform {
	return mathx.NewGridTransform(g.Min, g.Resolution)
}

// GridIssue describes a problem found by Validate.
type GridIssue struct {
	X, Z, Layer int
	Message     string
}

// Validate checks link consistency. It reports links leaving the grid,
// links into inactive layers, and active samples on layer 15 which no
// neighbour can link to.
func (g *AdjGrid) Validate() []GridIssue {
	var issues []GridIssue
	for l := 0; l < MaxLayers; l++ {
		for z := 0; z < g.Depth; z++ {
			for x := 0; x < g.Width; x++ {
				e := g.Adjacency[g.Index(x, z, l)]
				if !e.Active() {
					continue
				}
				if l > MaxLinkedLayer {
					issues = append(issues, GridIssue{x, z, l, "layer cannot be linked by neighbours"})
				}
				for d := North; d <= NorthWest; d++ {
					link := e.Link(d)
					if link == 0 {
						continue
					}
					dx, dz := d.Offset()
					nx, nz := x+dx, z+dz
					if !g.InBounds(nx, nz) {
						issues = append(issues, GridIssue{x, z, l, fmt.Sprintf("link %s leaves the grid", d)})
						continue
					}
					if !g.Adjacency[g.Index(nx, nz, link-1)].Active() {
						issues = append(issues, GridIssue{x, z, l, fmt.Sprintf("link %s targets inactive layer %d", d, link-1)})
					}
				}
			}
		}
	}
	return issues
}

// ParseGrid parses a grid file from raw bytes.
func ParseGrid(data []byte) (*AdjGrid, error) {
	hdr, err := parseTGAHeader(data)
	if err != nil {
		return nil, err
	}

	switch {
	case hdr.IDLength != gridExtraSize:
		return nil, fmt.Errorf("%w: id length %d, expected %d", ErrInvalidGridHeader, hdr.IDLength, gridExtraSize)
	case hdr.ColourMapType != 1:
		return nil, fmt.Errorf("%w: colour map type %d", ErrInvalidGridHeader, hdr.ColourMapType)
	case hdr.ImageType != tgaTypeColourMapped:
		return nil, fmt.Errorf("%w: image type %d", ErrInvalidGridHeader, hdr.ImageType)
	case hdr.BPP != 8:
		return nil, fmt.Errorf("%w: %d bits per pixel", ErrInvalidGridHeader, hdr.BPP)
	case hdr.ColourMapLen != 256 || hdr.ColourMapDepth != 24:
		return nil, fmt.Errorf("%w: palette %dx%d", ErrInvalidGridHeader, hdr.ColourMapLen, hdr.ColourMapDepth)
	case hdr.Width == 0 || hdr.Height == 0:
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidGridHeader, hdr.Width, hdr.Height)
	}

	width, depth := int(hdr.Width), int(hdr.Height)
	cells := width * depth
	offset := tgaHeaderSize
	need := offset + gridExtraSize + hdr.paletteSize() + MaxLayers*cells*8
	if len(data) < need {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrTruncatedGrid, need, len(data))
	}

	le := binary.LittleEndian
	readFloat := func() float32 {
		v := math.Float32frombits(le.Uint32(data[offset:]))
		offset += 4
		return v
	}

	min := mathx.Vec3{X: readFloat(), Y: readFloat(), Z: readFloat()}
	resolution := readFloat()
	if !(resolution > 0) {
		return nil, fmt.Errorf("%w: resolution %v", ErrInvalidGridHeader, resolution)
	}
	offset += hdr.paletteSize()

	grid := NewAdjGrid(min, resolution, width, depth)
	for i := range grid.Adjacency {
		grid.Adjacency[i] = AdjGridElt(le.Uint32(data[offset:]))
		offset += 4
	}
	for i := range grid.Heights {
		grid.Heights[i] = readFloat()
	}

	return grid, nil
}

// ParseGridFile parses a grid file from disk.
func ParseGridFile(path string) (*AdjGrid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading grid file: %w", err)
	}
	return ParseGrid(data)
}

// Encode serializes the grid in the on-disk layout.
func (g *AdjGrid) Encode() ([]byte, error) {
	if g.Width <= 0 || g.Depth <= 0 || g.Width > math.MaxUint16 || g.Depth > math.MaxUint16 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidGridHeader, g.Width, g.Depth)
	}
	hdr := tgaHeader{
		IDLength:       gridExtraSize,
		ColourMapType:  1,
		ImageType:      tgaTypeColourMapped,
		ColourMapLen:   256,
		ColourMapDepth: 24,
		Width:          uint16(g.Width),
		Height:         uint16(g.Depth),
		BPP:            8,
	}

	cells := g.Width * g.Depth
	buf := make([]byte, 0, tgaHeaderSize+gridExtraSize+hdr.paletteSize()+MaxLayers*cells*8)
	buf = hdr.encode(buf)

	le := binary.LittleEndian
	for _, f := range []float32{g.Min.X, g.Min.Y, g.Min.Z, g.Resolution} {
		buf = le.AppendUint32(buf, math.Float32bits(f))
	}
	buf = append(buf, greyPalette()...)
	for _, e := range g.Adjacency {
		buf = le.AppendUint32(buf, uint32(e))
	}
	for _, h := range g.Heights {
		buf = le.AppendUint32(buf, math.Float32bits(h))
	}
	return buf, nil
}

// WriteGridFile writes the grid to disk.
func (g *AdjGrid) WriteGridFile(path string) error {
	data, err := g.Encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing grid file: %w", err)
	}
	return nil
}
