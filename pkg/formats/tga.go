package formats

import (
	"encoding/binary"
	"fmt"
)

// tgaHeaderSize is the size of the fixed TGA header.
const tgaHeaderSize = 18

// TGA image type constants.
const (
	tgaTypeColourMapped = 1 // Uncompressed colour-mapped
	tgaTypeTrueColour   = 2 // Uncompressed true-color
)

// tgaHeader holds the fixed 18-byte TGA header.
type tgaHeader struct {
	IDLength       uint8
	ColourMapType  uint8
	ImageType      uint8
	ColourMapStart uint16
	ColourMapLen   uint16
	ColourMapDepth uint8
	XOrigin        uint16
	YOrigin        uint16
	Width          uint16
	Height         uint16
	BPP            uint8
	Descriptor     uint8
}

// parseTGAHeader decodes the fixed header fields.
func parseTGAHeader(data []byte) (tgaHeader, error) {
	if len(data) < tgaHeaderSize {
		return tgaHeader{}, fmt.Errorf("%w: TGA header needs %d bytes, got %d", ErrTruncatedGrid, tgaHeaderSize, len(data))
	}
	le := binary.LittleEndian
	return tgaHeader{
		IDLength:       data[0],
		ColourMapType:  data[1],
		ImageType:      data[2],
		ColourMapStart: le.Uint16(data[3:5]),
		ColourMapLen:   le.Uint16(data[5:7]),
		ColourMapDepth: data[7],
		XOrigin:        le.Uint16(data[8:10]),
		YOrigin:        le.Uint16(data[10:12]),
		Width:          le.Uint16(data[12:14]),
		Height:         le.Uint16(data[14:16]),
		BPP:            data[16],
		Descriptor:     data[17],
	}, nil
}

// encode appends the header to buf.
func (h tgaHeader) encode(buf []byte) []byte {
	le := binary.LittleEndian
	buf = append(buf, h.IDLength, h.ColourMapType, h.ImageType)
	buf = le.AppendUint16(buf, h.ColourMapStart)
	buf = le.AppendUint16(buf, h.ColourMapLen)
	buf = append(buf, h.ColourMapDepth)
	buf = le.AppendUint16(buf, h.XOrigin)
	buf = le.AppendUint16(buf, h.YOrigin)
	buf = le.AppendUint16(buf, h.Width)
	buf = le.AppendUint16(buf, h.Height)
	buf = append(buf, h.BPP, h.Descriptor)
	return buf
}

// paletteSize returns the byte length of the colour map.
func (h tgaHeader) paletteSize() int {
	return int(h.ColourMapLen) * int(h.ColourMapDepth) / 8
}

// greyPalette returns a 256-entry 24-bit greyscale colour map.
func greyPalette() []byte {
	pal := make([]byte, 0, 256*3)
	for i := 0; i < 256; i++ {
		pal = append(pal, byte(i), byte(i), byte(i))
	}
	return pal
}
