package font

import (
	"encoding/binary"
	"fmt"
)

// LocaTable is the parsed sfnt loca table: numGlyphs+1 offsets into glyf
// (§3, §4.5).
type LocaTable struct {
	Format int16 // 0 = short (offset/2 as uint16), 1 = long (offset as uint32)
	data   []byte
}

// NewLocaTable wraps raw sfnt loca bytes for the given indexToLocFormat.
func NewLocaTable(format int16, data []byte) *LocaTable {
	return &LocaTable{Format: format, data: data}
}

// Get returns the byte offset into glyf for glyphID, and whether glyphID is
// in range.
func (loca *LocaTable) Get(glyphID uint16) (uint32, bool) {
	if loca.Format == 0 {
		i := int(glyphID) * 2
		if i+2 > len(loca.data) {
			return 0, false
		}
		return 2 * uint32(binary.BigEndian.Uint16(loca.data[i:])), true
	}
	i := int(glyphID) * 4
	if i+4 > len(loca.data) {
		return 0, false
	}
	return binary.BigEndian.Uint32(loca.data[i:]), true
}

// locaOffsets builds a loca table from each glyph's compiled byte offset
// (§4.5 "Reconstruct"). offsets holds numGlyphs+1 entries, the last being
// the total compiled glyf length.
func locaOffsets(format int16, offsets []uint32) ([]byte, error) {
	if format == 0 {
		w := NewBinaryWriter(make([]byte, 0, len(offsets)*2))
		for _, off := range offsets {
			if off%2 != 0 || 0x20000 <= off {
				return nil, fmt.Errorf("loca: %w", ErrInvalidFontData)
			}
			w.WriteUint16(uint16(off / 2))
		}
		return w.Bytes(), nil
	}
	w := NewBinaryWriter(make([]byte, 0, len(offsets)*4))
	for _, off := range offsets {
		w.WriteUint32(off)
	}
	return w.Bytes(), nil
}
