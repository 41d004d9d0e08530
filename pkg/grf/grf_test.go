package grf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/korean"
)

type testFile struct {
	name  []byte // raw table name, backslash separated
	data  []byte
	store bool // keep uncompressed
	flags uint8
}

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// buildGRF lays out a version 0x200 archive: header, 8-byte aligned file
// bodies, then the compressed file table.
func buildGRF(t *testing.T, files []testFile) []byte {
	t.Helper()
	var body, table bytes.Buffer
	for _, f := range files {
		stored := f.data
		if !f.store {
			stored = deflate(t, f.data)
		}
		aligned := (len(stored) + 7) &^ 7
		offset := uint32(body.Len())
		body.Write(stored)
		body.Write(make([]byte, aligned-len(stored)))

		flags := f.flags
		if flags == 0 {
			flags = flagFile
		}
		table.Write(f.name)
		table.WriteByte(0)
		binary.Write(&table, binary.LittleEndian, uint32(len(stored)))
		binary.Write(&table, binary.LittleEndian, uint32(aligned))
		binary.Write(&table, binary.LittleEndian, uint32(len(f.data)))
		table.WriteByte(flags)
		binary.Write(&table, binary.LittleEndian, offset)
	}

	hdr := header{
		TableOffset: uint32(body.Len()),
		FileCount:   uint32(len(files)) + 7,
		Version:     version200,
	}
	copy(hdr.Magic[:], grfMagic)

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, hdr)
	out.Write(body.Bytes())
	packed := deflate(t, table.Bytes())
	binary.Write(&out, binary.LittleEndian, uint32(len(packed)))
	binary.Write(&out, binary.LittleEndian, uint32(table.Len()))
	out.Write(packed)
	return out.Bytes()
}

func testArchive(t *testing.T) []byte {
	t.Helper()
	korName, err := korean.EUCKR.NewEncoder().String(`data\texture\유저인터페이스\map.bmp`)
	if err != nil {
		t.Fatal(err)
	}
	return buildGRF(t, []testFile{
		{name: []byte(`data\Prontera.gat`), data: bytes.Repeat([]byte("GRAT"), 64)},
		{name: []byte(`data\readme.txt`), data: []byte("stored as is"), store: true},
		{name: []byte(korName), data: []byte("BM")},
		{name: []byte(`data\secret.gat`), data: []byte("x"), flags: flagFile | flagEncrypted},
		{name: []byte(`data\folder`), data: nil, flags: 0x02},
	})
}

func TestReadCompressed(t *testing.T) {
	a, err := NewReader(bytes.NewReader(testArchive(t)))
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	data, err := a.Read("DATA/prontera.GAT")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(data, bytes.Repeat([]byte("GRAT"), 64)) {
		t.Errorf("unexpected contents %q", data[:8])
	}
}

func TestReadStored(t *testing.T) {
	a, err := NewReader(bytes.NewReader(testArchive(t)))
	if err != nil {
		t.Fatal(err)
	}
	data, err := a.Read(`data\readme.txt`)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != "stored as is" {
		t.Errorf("expected stored contents, got %q", data)
	}
}

func TestListAndKoreanNames(t *testing.T) {
	a, err := NewReader(bytes.NewReader(testArchive(t)))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"data/Prontera.gat",
		"data/readme.txt",
		"data/secret.gat",
		"data/texture/유저인터페이스/map.bmp",
	}
	got := a.List()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if !a.Contains("data/texture/유저인터페이스/MAP.bmp") {
		t.Error("expected decoded Korean name to be found")
	}
	if a.Contains("data/folder") {
		t.Error("directory entries should not be listed")
	}
}

func TestReadErrors(t *testing.T) {
	a, err := NewReader(bytes.NewReader(testArchive(t)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Read("data/missing.gat"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := a.Read("data/secret.gat"); !errors.Is(err, ErrEncrypted) {
		t.Errorf("expected ErrEncrypted, got %v", err)
	}
}

func TestInvalidArchive(t *testing.T) {
	valid := testArchive(t)

	badMagic := append([]byte(nil), valid...)
	copy(badMagic, "Master of Mogic")

	badVersion := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(badVersion[42:], 0x103)

	badChecksum := append([]byte(nil), valid...)
	badChecksum[len(badChecksum)-1] ^= 0xff

	tests := map[string][]byte{
		"short":          valid[:20],
		"bad magic":      badMagic,
		"bad version":    badVersion,
		"table cut off":  valid[:len(valid)-6],
		"trailer cut":    valid[:len(valid)-2],
		"table checksum": badChecksum,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewReader(bytes.NewReader(data)); !errors.Is(err, ErrInvalidArchive) {
				t.Errorf("expected ErrInvalidArchive, got %v", err)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.grf")
	if err := os.WriteFile(path, testArchive(t), 0644); err != nil {
		t.Fatal(err)
	}
	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer a.Close()
	if !a.Contains("data/readme.txt") {
		t.Error("expected readme in archive")
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.grf")); err == nil {
		t.Error("expected error for missing archive")
	}
}
