package font

import "fmt"

// hMetric is one entry of the proportional part of an sfnt hmtx table.
type hMetric struct {
	AdvanceWidth    uint16
	LeftSideBearing int16
}

// HmtxTable is the parsed sfnt hmtx table: one (advanceWidth, lsb) pair per
// glyph up to numberOfHMetrics, then a trailing lsb-only array for the
// remaining glyphs that share the last advance width.
type HmtxTable struct {
	HMetrics         []hMetric
	LeftSideBearings []int16
}

// parseHmtx parses raw sfnt hmtx bytes.
func parseHmtx(data []byte, numGlyphs, numHMetrics uint16) (*HmtxTable, error) {
	if numHMetrics == 0 || numGlyphs < numHMetrics {
		return nil, fmt.Errorf("hmtx: %w", ErrInvalidFontData)
	}
	r := NewBinaryReader(data)
	t := &HmtxTable{
		HMetrics:         make([]hMetric, numHMetrics),
		LeftSideBearings: make([]int16, numGlyphs-numHMetrics),
	}
	for i := range t.HMetrics {
		t.HMetrics[i].AdvanceWidth = r.ReadUint16()
		t.HMetrics[i].LeftSideBearing = r.ReadInt16()
	}
	for i := range t.LeftSideBearings {
		t.LeftSideBearings[i] = r.ReadInt16()
	}
	if r.EOF() {
		return nil, fmt.Errorf("hmtx: %w", ErrInvalidFontData)
	}
	return t, nil
}

// transformHmtx implements the hmtx transform of SPEC_FULL.md §D: it omits
// whichever left-side-bearing array is recoverable from glyf's per-glyph
// xMin (via the encode-time xMins computed by transformGlyf), returning nil
// when neither array is omittable (the table should then pass through
// untransformed).
func transformHmtx(hmtx *HmtxTable, xMins []int16) []byte {
	if len(xMins) != len(hmtx.HMetrics)+len(hmtx.LeftSideBearings) {
		return nil
	}

	omitProportional := true
	for i, m := range hmtx.HMetrics {
		if m.LeftSideBearing != xMins[i] {
			omitProportional = false
			break
		}
	}
	omitMonospaced := true
	for i, lsb := range hmtx.LeftSideBearings {
		if lsb != xMins[len(hmtx.HMetrics)+i] {
			omitMonospaced = false
			break
		}
	}
	if !omitProportional && !omitMonospaced {
		return nil
	}

	var flags byte
	n := 1 + len(hmtx.HMetrics)*2
	if omitProportional {
		flags |= 0x01
	} else {
		n += len(hmtx.HMetrics) * 2
	}
	if omitMonospaced {
		flags |= 0x02
	} else {
		n += len(hmtx.LeftSideBearings) * 2
	}

	w := NewBinaryWriter(make([]byte, 0, n))
	w.WriteUint8(flags)
	for _, m := range hmtx.HMetrics {
		w.WriteUint16(m.AdvanceWidth)
	}
	if !omitProportional {
		for _, m := range hmtx.HMetrics {
			w.WriteInt16(m.LeftSideBearing)
		}
	}
	if !omitMonospaced {
		for _, lsb := range hmtx.LeftSideBearings {
			w.WriteInt16(lsb)
		}
	}
	return w.Bytes()
}

// reconstructHmtx implements the hmtx detransform of SPEC_FULL.md §D: it
// rebuilds left-side-bearings omitted at encode time by reading each
// glyph's xMin directly out of the already-reconstructed glyf/loca tables.
func reconstructHmtx(b, head, glyf, loca, maxp, hhea []byte) ([]byte, error) {
	indexFormat, err := headIndexToLocFormat(head)
	if err != nil {
		return nil, err
	}
	if len(maxp) < 6 {
		return nil, fmt.Errorf("maxp: %w", ErrInvalidFontData)
	}
	numGlyphs := NewBinaryReader(maxp[4:6]).ReadUint16()
	numHMetrics, err := hheaNumberOfHMetrics(hhea)
	if err != nil {
		return nil, err
	}
	if numHMetrics < 1 {
		return nil, fmt.Errorf("hmtx: must have at least one entry")
	}
	if numGlyphs < numHMetrics {
		return nil, fmt.Errorf("hmtx: more entries than glyphs in glyf")
	}

	locaLength := (uint32(numGlyphs) + 1) * 2
	if indexFormat != 0 {
		locaLength *= 2
	}
	if locaLength != uint32(len(loca)) {
		return nil, fmt.Errorf("hmtx: %w", ErrInvalidFontData)
	}

	r := NewBinaryReader(b)
	flags := r.ReadByte()
	omitProportional := flags&0x01 != 0
	omitMonospaced := flags&0x02 != 0
	if flags&0xFC != 0 {
		return nil, fmt.Errorf("hmtx: reserved bits in flags must not be set")
	}
	if !omitProportional && !omitMonospaced {
		return nil, fmt.Errorf("hmtx: must reconstruct at least one left side bearing array")
	}

	n := 1 + uint32(numHMetrics)*2
	if !omitProportional {
		n += uint32(numHMetrics) * 2
	}
	if !omitMonospaced {
		n += (uint32(numGlyphs) - uint32(numHMetrics)) * 2
	}
	if n != uint32(len(b)) {
		return nil, fmt.Errorf("hmtx: %w", ErrInvalidFontData)
	}

	advanceWidths := make([]uint16, numHMetrics)
	lsbs := make([]int16, numGlyphs)
	for i := range advanceWidths {
		advanceWidths[i] = r.ReadUint16()
	}
	if !omitProportional {
		for i := range advanceWidths {
			lsbs[i] = r.ReadInt16()
		}
	}
	if !omitMonospaced {
		for i := numHMetrics; i < numGlyphs; i++ {
			lsbs[i] = r.ReadInt16()
		}
	}

	loc := NewLocaTable(indexFormat, loca)
	glyphMin, glyphMax := uint16(0), numGlyphs
	if !omitProportional {
		glyphMin = numHMetrics
	} else if !omitMonospaced {
		glyphMax = numHMetrics
	}
	for g := glyphMin; g < glyphMax; g++ {
		start, ok1 := loc.Get(g)
		end, ok2 := loc.Get(g + 1)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("hmtx: %w", ErrInvalidFontData)
		}
		if end == start {
			lsbs[g] = 0
			continue
		}
		if end-start < 4 || uint32(len(glyf)) < end {
			return nil, fmt.Errorf("hmtx: %w", ErrInvalidFontData)
		}
		lsbs[g] = int16(NewBinaryReader(glyf[start+2 : start+4]).ReadUint16())
	}

	w := NewBinaryWriter(make([]byte, 0, 2*uint32(numGlyphs)+2*uint32(numHMetrics)))
	for i := range advanceWidths {
		w.WriteUint16(advanceWidths[i])
		w.WriteInt16(lsbs[i])
	}
	for i := numHMetrics; i < numGlyphs; i++ {
		w.WriteInt16(lsbs[i])
	}
	return w.Bytes(), nil
}
