package navdata

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Section field numbers.
//
//	Set:    1 chunk (bytes), 2 poly (message, repeated)
//	Poly:   1 min_height (fixed32), 2 max_height (fixed32), 3 set (varint),
//	        4 vertex (message, repeated)
//	Vertex: 1 x (fixed32), 2 z (fixed32), 3 adj (varint), 4 chunk_edge (varint)
const (
	fieldSetChunk = 1
	fieldSetPoly  = 2

	fieldPolyMinHeight = 1
	fieldPolyMaxHeight = 2
	fieldPolySet       = 3
	fieldPolyVertex    = 4

	fieldVertexX         = 1
	fieldVertexZ         = 2
	fieldVertexAdj       = 3
	fieldVertexChunkEdge = 4
)

// EncodeSection encodes a set in protobuf wire format.
func EncodeSection(set *Set) []byte {
	var b []byte
	if set.Chunk != "" {
		b = protowire.AppendTag(b, fieldSetChunk, protowire.BytesType)
		b = protowire.AppendString(b, set.Chunk)
	}
	for i := range set.Polys {
		b = protowire.AppendTag(b, fieldSetPoly, protowire.BytesType)
		b = protowire.AppendBytes(b, appendPoly(nil, &set.Polys[i]))
	}
	return b
}

func appendPoly(b []byte, p *Poly) []byte {
	b = protowire.AppendTag(b, fieldPolyMinHeight, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(p.MinHeight))
	b = protowire.AppendTag(b, fieldPolyMaxHeight, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(p.MaxHeight))
	if p.Set != 0 {
		b = protowire.AppendTag(b, fieldPolySet, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(p.Set))
	}
	for _, v := range p.Vertices {
		b = protowire.AppendTag(b, fieldPolyVertex, protowire.BytesType)
		b = protowire.AppendBytes(b, appendVertex(nil, v))
	}
	return b
}

func appendVertex(b []byte, v Vertex) []byte {
	b = protowire.AppendTag(b, fieldVertexX, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(v.X))
	b = protowire.AppendTag(b, fieldVertexZ, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(v.Z))
	if v.Adj != 0 {
		b = protowire.AppendTag(b, fieldVertexAdj, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.Adj))
	}
	if v.ChunkEdge {
		b = protowire.AppendTag(b, fieldVertexChunkEdge, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(true))
	}
	return b
}

// DecodeSection decodes a set encoded by EncodeSection. Unknown fields are
// skipped.
func DecodeSection(data []byte) (*Set, error) {
	set := &Set{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldSetChunk && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			set.Chunk = v
			return n, nil
		case num == fieldSetPoly && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			p, err := decodePoly(v)
			if err != nil {
				return 0, fmt.Errorf("polygon %d: %w", len(set.Polys), err)
			}
			set.Polys = append(set.Polys, *p)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

func decodePoly(data []byte) (*Poly, error) {
	p := &Poly{}
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldPolyMinHeight && typ == protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			p.MinHeight = math.Float32frombits(v)
			return n, nil
		case num == fieldPolyMaxHeight && typ == protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			p.MaxHeight = math.Float32frombits(v)
			return n, nil
		case num == fieldPolySet && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			p.Set = int(v)
			return n, nil
		case num == fieldPolyVertex && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			vx, err := decodeVertex(v)
			if err != nil {
				return 0, fmt.Errorf("vertex %d: %w", len(p.Vertices), err)
			}
			p.Vertices = append(p.Vertices, vx)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func decodeVertex(data []byte) (Vertex, error) {
	var vx Vertex
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case num == fieldVertexX && typ == protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			vx.X = math.Float32frombits(v)
			return n, nil
		case num == fieldVertexZ && typ == protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			vx.Z = math.Float32frombits(v)
			return n, nil
		case num == fieldVertexAdj && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			vx.Adj = int(v)
			return n, nil
		case num == fieldVertexChunkEdge && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			vx.ChunkEdge = protowire.DecodeBool(v)
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	return vx, err
}

// walkFields calls fn for every field of a message. fn consumes the field
// value and returns its length, or a negative protowire error code.
func walkFields(b []byte, fn func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrBadSection, protowire.ParseError(n))
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrBadSection, num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}
