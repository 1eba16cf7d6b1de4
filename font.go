package font

import (
	"encoding/binary"
	"fmt"
)

// FlavorData carries the WOFF2-specific extras that ride alongside the sfnt
// payload: the WOFF2 container version, and the optional metadata/private
// data blocks. MetaData and PrivData are always held decompressed; Read and
// Write handle the Brotli boundary (§4.6 steps 4 and 8).
type FlavorData struct {
	MajorVersion, MinorVersion uint16
	MetaData                  []byte
	PrivData                  []byte
}

// Font is the in-memory font container described in §3: a collection of
// sfnt tables addressed by tag, plus the handful of structured fields the
// glyf/loca/hmtx transforms need to read or mutate. Tables other than head,
// maxp, hhea, hmtx, glyf, and loca are never interpreted by the codec (only
// the read-only Name accessor parses name): they are opaque payloads that
// pass from input to output unchanged.
type Font struct {
	SFNTVersion string // "\x00\x01\x00\x00", "true", or "OTTO"
	Tables      map[Tag][]byte
	TableOrder  []Tag // order tables were declared in, independent of alphabetical directory order
	Flavor      FlavorData
}

// NumGlyphs returns maxp.numGlyphs.
func (f *Font) NumGlyphs() (uint16, error) {
	maxp, ok := f.Tables["maxp"]
	if !ok || len(maxp) < 6 {
		return 0, fmt.Errorf("maxp: %w", ErrInvalidFontData)
	}
	return binary.BigEndian.Uint16(maxp[4:6]), nil
}

// headIndexToLocFormat returns head.indexToLocFormat (0 = short, 1 = long).
func headIndexToLocFormat(head []byte) (int16, error) {
	if len(head) != 54 {
		return 0, fmt.Errorf("head: %w", ErrInvalidFontData)
	}
	format := int16(binary.BigEndian.Uint16(head[50:52]))
	if format != 0 && format != 1 {
		return 0, fmt.Errorf("head: bad indexToLocFormat")
	}
	return format, nil
}

func headSetIndexToLocFormat(head []byte, format int16) error {
	if len(head) != 54 {
		return fmt.Errorf("head: %w", ErrInvalidFontData)
	}
	binary.BigEndian.PutUint16(head[50:52], uint16(format))
	return nil
}

func headFlags(head []byte) (uint16, error) {
	if len(head) != 54 {
		return 0, fmt.Errorf("head: %w", ErrInvalidFontData)
	}
	return binary.BigEndian.Uint16(head[16:18]), nil
}

func headSetFlags(head []byte, flags uint16) error {
	if len(head) != 54 {
		return fmt.Errorf("head: %w", ErrInvalidFontData)
	}
	binary.BigEndian.PutUint16(head[16:18], flags)
	return nil
}

// headClearCheckSumAdjustment zeroes head.checkSumAdjustment in place, the
// precondition for computing table and master checksums (§4.6 step 3).
func headClearCheckSumAdjustment(head []byte) error {
	if len(head) != 54 {
		return fmt.Errorf("head: %w", ErrInvalidFontData)
	}
	binary.BigEndian.PutUint32(head[8:12], 0)
	return nil
}

func headSetCheckSumAdjustment(head []byte, v uint32) error {
	if len(head) != 54 {
		return fmt.Errorf("head: %w", ErrInvalidFontData)
	}
	binary.BigEndian.PutUint32(head[8:12], v)
	return nil
}

// hheaNumberOfHMetrics returns hhea.numberOfHMetrics, needed by the hmtx
// transform (SPEC_FULL.md §D).
func hheaNumberOfHMetrics(hhea []byte) (uint16, error) {
	if len(hhea) != 36 {
		return 0, fmt.Errorf("hhea: %w", ErrInvalidFontData)
	}
	return binary.BigEndian.Uint16(hhea[34:36]), nil
}

// ParseSFNT parses a raw TrueType/OpenType (sfnt) font container into a
// Font. It performs no table-specific validation beyond the sfnt directory
// itself: per-table structure is the concern of whichever transform touches
// that table (glyf/loca/hmtx) or is left entirely to the caller.
func ParseSFNT(b []byte) (*Font, error) {
	if len(b) < 12 {
		return nil, fmt.Errorf("sfnt: %w", ErrInvalidFontData)
	}
	r := NewBinaryReader(b)
	version := r.ReadString(4)
	if version == "ttcf" {
		return nil, fmt.Errorf("sfnt: font collections: %w", ErrUnsupported)
	}
	numTables := r.ReadUint16()
	_ = r.ReadUint16() // searchRange
	_ = r.ReadUint16() // entrySelector
	_ = r.ReadUint16() // rangeShift

	f := &Font{
		SFNTVersion: version,
		Tables:      make(map[Tag][]byte, numTables),
		TableOrder:  make([]Tag, 0, numTables),
	}
	type rawEntry struct {
		tag            Tag
		offset, length uint32
	}
	entries := make([]rawEntry, numTables)
	for i := range entries {
		tag := Tag(r.ReadString(4))
		_ = r.ReadUint32() // checksum
		offset := r.ReadUint32()
		length := r.ReadUint32()
		entries[i] = rawEntry{tag, offset, length}
	}
	if r.EOF() {
		return nil, fmt.Errorf("sfnt: %w", ErrInvalidFontData)
	}
	for _, e := range entries {
		if uint32(len(b)) < e.offset || uint32(len(b))-e.offset < e.length {
			return nil, fmt.Errorf("%s: %w", e.tag, ErrInvalidFontData)
		}
		if _, dup := f.Tables[e.tag]; dup {
			return nil, fmt.Errorf("%s: table defined more than once", e.tag)
		}
		f.Tables[e.tag] = b[e.offset : e.offset+e.length]
		f.TableOrder = append(f.TableOrder, e.tag)
	}
	return f, nil
}
