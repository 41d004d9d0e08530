// Package navdata converts generated waypoint polygons into the exported
// per-chunk navigation set and encodes it.
package navdata

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-navgen/internal/waypoint"
	mathx "github.com/Faultbox/midgard-navgen/pkg/math"
)

// Navdata errors.
var (
	ErrUnknownFormat = errors.New("unknown navdata format")
	ErrBadSection    = errors.New("malformed navpoly section")
)

// Vertex is an exported polygon corner in world XZ. Adj is the one-based
// index of the polygon across the edge leaving this vertex, 0 for none.
type Vertex struct {
	X         float32 `msgpack:"x"`
	Z         float32 `msgpack:"z"`
	Adj       int     `msgpack:"adj"`
	ChunkEdge bool    `msgpack:"chunk_edge,omitempty"`
}

// Poly is an exported convex polygon.
type Poly struct {
	Vertices  []Vertex `msgpack:"vertices"`
	MinHeight float32  `msgpack:"min_height"`
	MaxHeight float32  `msgpack:"max_height"`
	Set       int      `msgpack:"set"`
}

// Set is the navigation data of one chunk.
type Set struct {
	Chunk string `msgpack:"chunk"`
	Polys []Poly `msgpack:"polys"`
}

// Limits bound what the export format can address.
type Limits struct {
	MaxVertices int
	MaxPolygons int
}

// DefaultLimits returns the limits of the navpoly format.
func DefaultLimits() Limits {
	return Limits{MaxVertices: 255, MaxPolygons: 65535}
}

// FromPolygons builds the exported set. Polygons with too many vertices,
// and polygons past the per-chunk cap, are dropped with an Overflow
// diagnostic; links into dropped polygons become 0.
func FromPolygons(chunk string, polys []waypoint.Polygon, t mathx.GridTransform, lim Limits, log *zap.Logger) (*Set, []waypoint.Diagnostic) {
	if log == nil {
		log = zap.NewNop()
	}
	var diags []waypoint.Diagnostic
	report := func(poly int, msg string, fields ...zap.Field) {
		diags = append(diags, waypoint.Diagnostic{
			Kind:     waypoint.Overflow,
			Severity: waypoint.SeverityError,
			Message:  msg,
			Node:     -1,
			Polygon:  poly,
		})
		fields = append(fields, zap.Stringer("kind", waypoint.Overflow), zap.String("chunk", chunk))
		if poly >= 0 {
			fields = append(fields, zap.Int("polygon", poly))
		}
		log.Error(msg, fields...)
	}

	newID := make([]int, len(polys))
	kept := 0
	capped := 0
	for i := range polys {
		n := len(polys[i].Vertices)
		if lim.MaxVertices > 0 && n > lim.MaxVertices {
			report(i, "polygon has too many vertices and was dropped", zap.Int("vertices", n))
			continue
		}
		if lim.MaxPolygons > 0 && kept >= lim.MaxPolygons {
			capped++
			continue
		}
		kept++
		newID[i] = kept
	}
	if capped > 0 {
		report(-1, fmt.Sprintf("chunk exceeds %d polygons, the rest were dropped", lim.MaxPolygons),
			zap.Int("dropped", capped))
	}

	set := &Set{Chunk: chunk, Polys: make([]Poly, 0, kept)}
	for i := range polys {
		if newID[i] == 0 {
			continue
		}
		p := &polys[i]
		out := Poly{
			Vertices:  make([]Vertex, len(p.Vertices)),
			MinHeight: p.MinHeight,
			MaxHeight: p.MaxHeight,
			Set:       p.Set,
		}
		for j, v := range p.Vertices {
			w := t.ToWorld2(v.Position())
			adj := 0
			if v.AdjNavPoly > 0 && v.AdjNavPoly <= len(newID) {
				adj = newID[v.AdjNavPoly-1]
			}
			out.Vertices[j] = Vertex{X: w.X, Z: w.Z, Adj: adj, ChunkEdge: v.AdjToAnotherChunk}
		}
		set.Polys = append(set.Polys, out)
	}
	return set, diags
}

// Format selects an encoding.
type Format string

// Supported formats.
const (
	FormatSection Format = "section"
	FormatMsgpack Format = "msgpack"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatSection, FormatMsgpack:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Ext returns the file extension written for the format.
func (f Format) Ext() string {
	if f == FormatMsgpack {
		return ".msgpack"
	}
	return ".navpoly"
}

// Marshal encodes a set in the given format.
func Marshal(set *Set, f Format) ([]byte, error) {
	switch f {
	case FormatSection:
		return EncodeSection(set), nil
	case FormatMsgpack:
		return EncodeMsgpack(set)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

// Unmarshal decodes a set in the given format.
func Unmarshal(data []byte, f Format) (*Set, error) {
	switch f {
	case FormatSection:
		return DecodeSection(data)
	case FormatMsgpack:
		return DecodeMsgpack(data)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}
