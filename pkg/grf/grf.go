// Package grf reads GRF 0x200 archives, the container Ragnarok Online ships
// its map data in. Only what the GAT importer needs is supported: listing
// entries and reading plain or zlib-compressed files.
package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/encoding/korean"
)

const (
	grfMagic   = "Master of Magic"
	headerSize = 46
	version200 = 0x200
)

// Entry flags.
const (
	flagFile      = 0x01
	flagEncrypted = 0x02
)

// Archive errors.
var (
	ErrInvalidArchive = errors.New("invalid GRF archive")
	ErrNotFound       = errors.New("file not found in archive")
	ErrEncrypted      = errors.New("encrypted GRF entries are not supported")
)

type header struct {
	Magic         [15]byte
	EncryptionKey [15]byte
	TableOffset   uint32
	Seed          uint32
	FileCount     uint32
	Version       uint32
}

// Entry is one file in the archive.
type Entry struct {
	Name             string
	CompressedSize   uint32
	AlignedSize      uint32
	UncompressedSize uint32
	Flags            uint8
	Offset           uint32
}

// Archive is an open GRF file.
type Archive struct {
	r       io.ReaderAt
	closer  io.Closer
	entries map[string]*Entry
}

// Open opens a GRF archive on disk.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive: %w", err)
	}
	a, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.closer = f
	return a, nil
}

// NewReader reads the archive header and file table from r.
func NewReader(r io.ReaderAt) (*Archive, error) {
	var hdr header
	if err := binary.Read(io.NewSectionReader(r, 0, headerSize), binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", ErrInvalidArchive, err)
	}
	if string(hdr.Magic[:]) != grfMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidArchive)
	}
	if hdr.Version != version200 {
		return nil, fmt.Errorf("%w: unsupported version 0x%x", ErrInvalidArchive, hdr.Version)
	}
	if hdr.FileCount < hdr.Seed+7 {
		return nil, fmt.Errorf("%w: file count %d below seed %d", ErrInvalidArchive, hdr.FileCount, hdr.Seed)
	}

	a := &Archive{r: r, entries: make(map[string]*Entry)}
	if err := a.readTable(int64(hdr.TableOffset)+headerSize, int(hdr.FileCount-hdr.Seed-7)); err != nil {
		return nil, err
	}
	return a, nil
}

// Close releases the underlying file, if Open created it.
func (a *Archive) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

func (a *Archive) readTable(off int64, count int) error {
	var sizes [2]uint32 // compressed, uncompressed
	if err := binary.Read(io.NewSectionReader(a.r, off, 8), binary.LittleEndian, &sizes); err != nil {
		return fmt.Errorf("%w: reading table sizes: %v", ErrInvalidArchive, err)
	}
	table, err := inflate(io.NewSectionReader(a.r, off+8, int64(sizes[0])), sizes[1])
	if err != nil {
		return fmt.Errorf("%w: file table: %v", ErrInvalidArchive, err)
	}

	for i := 0; i < count; i++ {
		end := bytes.IndexByte(table, 0)
		if end < 0 || end+1+17 > len(table) {
			return fmt.Errorf("%w: file table truncated at entry %d", ErrInvalidArchive, i)
		}
		name := strings.ReplaceAll(decodeName(table[:end]), "\\", "/")
		rec := table[end+1:]
		e := &Entry{
			Name:             name,
			CompressedSize:   binary.LittleEndian.Uint32(rec[0:]),
			AlignedSize:      binary.LittleEndian.Uint32(rec[4:]),
			UncompressedSize: binary.LittleEndian.Uint32(rec[8:]),
			Flags:            rec[12],
			Offset:           binary.LittleEndian.Uint32(rec[13:]),
		}
		table = rec[17:]
		if e.Flags&flagFile != 0 {
			a.entries[normalizePath(name)] = e
		}
	}
	return nil
}

// List returns the archive's file names, sorted.
func (a *Archive) List() []string {
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Name)
	}
	sort.Strings(out)
	return out
}

// Contains reports whether the archive holds path. Lookup ignores case and
// slash direction.
func (a *Archive) Contains(path string) bool {
	_, ok := a.entries[normalizePath(path)]
	return ok
}

// Read returns the decompressed contents of path.
func (a *Archive) Read(path string) ([]byte, error) {
	e, ok := a.entries[normalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if e.Flags&flagEncrypted != 0 {
		return nil, fmt.Errorf("%w: %s", ErrEncrypted, path)
	}

	sr := io.NewSectionReader(a.r, int64(e.Offset)+headerSize, int64(e.AlignedSize))
	if e.CompressedSize == e.UncompressedSize {
		out := make([]byte, e.UncompressedSize)
		if _, err := io.ReadFull(sr, out); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return out, nil
	}
	out, err := inflate(io.NewSectionReader(sr, 0, int64(e.CompressedSize)), e.UncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return out, nil
}

func inflate(r io.Reader, size uint32) ([]byte, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, err
	}
	// Read through to the trailer so a short stream or bad checksum fails.
	if _, err := io.Copy(io.Discard, zr); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeName converts an EUC-KR entry name to UTF-8, keeping the raw bytes
// when they do not decode.
func decodeName(raw []byte) string {
	s, err := korean.EUCKR.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(s)
}

func normalizePath(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
}
