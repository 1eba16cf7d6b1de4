package font

import (
	"testing"

	"github.com/tdewolff/test"
)

func buildTestHead() []byte {
	w := NewBinaryWriter(nil)
	w.WriteUint16(1) // majorVersion
	w.WriteUint16(0) // minorVersion
	w.WriteUint32(0) // fontRevision
	w.WriteUint32(0) // checkSumAdjustment
	w.WriteUint32(0x5F0F3CF5)
	w.WriteUint16(0) // flags
	w.WriteUint16(1000)
	w.WriteUint32(0) // created (high)
	w.WriteUint32(0) // created (low)
	w.WriteUint32(0) // modified (high)
	w.WriteUint32(0) // modified (low)
	w.WriteInt16(0)  // xMin
	w.WriteInt16(0)  // yMin
	w.WriteInt16(100) // xMax
	w.WriteInt16(100) // yMax
	w.WriteUint16(0)  // macStyle
	w.WriteUint16(0)  // lowestRecPPEM
	w.WriteInt16(2)   // fontDirectionHint
	w.WriteInt16(0)   // indexToLocFormat
	w.WriteInt16(0)   // glyphDataFormat
	return w.Bytes()
}

func buildTestFont() *Font {
	glyfData, loca, numGlyphs := buildTestGlyf()
	locaBytes := loca.data

	maxp := []byte{0x00, 0x00, 0x50, 0x00, 0x00, byte(numGlyphs)}
	hhea := make([]byte, 36)
	hhea[34], hhea[35] = 0, 2 // numberOfHMetrics = 2

	hmtxW := NewBinaryWriter(nil)
	hmtxW.WriteUint16(500)
	hmtxW.WriteInt16(0) // lsb matches glyph0's xMin (0), chosen so the transform can omit it
	hmtxW.WriteUint16(600)
	hmtxW.WriteInt16(0) // lsb matches glyph1's xMin (0)
	hmtxW.WriteInt16(0) // trailing lsb for glyph2, matches its xMin (0)

	return &Font{
		SFNTVersion: "\x00\x01\x00\x00",
		Tables: map[Tag][]byte{
			"head": buildTestHead(),
			"maxp": maxp,
			"hhea": hhea,
			"hmtx": hmtxW.Bytes(),
			"glyf": glyfData,
			"loca": locaBytes,
			"cmap": {0x00, 0x00, 0x00, 0x00},
			"post": {0x00, 0x03, 0x00, 0x00},
			"DSIG": {0xDE, 0xAD, 0xBE, 0xEF},
		},
		Flavor: FlavorData{MajorVersion: 1, MinorVersion: 0},
	}
}

// assembleSFNT reconstructs the canonical sfnt byte layout implied by f's
// tables (§4.7), matching what computeCheckSumAdjustment assumes.
func assembleSFNT(t *testing.T, f *Font) []byte {
	tags := make([]Tag, 0, len(f.Tables))
	for tag := range f.Tables {
		if tag == "DSIG" {
			continue
		}
		tags = append(tags, tag)
	}
	tags = sortTags(tags)

	searchRange, entrySelector, rangeShift := searchRangeFields(uint16(len(tags)))
	w := NewBinaryWriter(nil)
	w.WriteString(f.SFNTVersion)
	w.WriteUint16(uint16(len(tags)))
	w.WriteUint16(searchRange)
	w.WriteUint16(entrySelector)
	w.WriteUint16(rangeShift)

	offset := uint32(12 + 16*len(tags))
	for _, tag := range tags {
		raw := f.Tables[tag]
		padded := raw
		if n := len(raw) % 4; n != 0 {
			padded = append(append([]byte(nil), raw...), make([]byte, 4-n)...)
		}
		checksum := calcChecksum(padded)
		if tag == "head" {
			// head's directory checksum is taken with checkSumAdjustment zeroed.
			masked := append([]byte(nil), padded...)
			copy(masked[8:12], []byte{0, 0, 0, 0})
			checksum = calcChecksum(masked)
		}
		w.WriteString(string(tag))
		w.WriteUint32(checksum)
		w.WriteUint32(offset)
		w.WriteUint32(uint32(len(raw)))
		offset += uint32(len(padded))
	}
	for _, tag := range tags {
		raw := f.Tables[tag]
		w.WriteBytes(raw)
		for w.Len()%4 != 0 {
			w.WriteByte(0)
		}
	}
	return w.Bytes()
}

func TestWriteReadRoundTrip(t *testing.T) {
	f := buildTestFont()
	b, err := Write(f)
	test.Error(t, err)

	f2, err := Read(b)
	test.Error(t, err)
	test.T(t, f2.SFNTVersion, f.SFNTVersion)

	if _, ok := f2.Tables["DSIG"]; ok {
		t.Fatal("DSIG must not survive a round trip")
	}

	flags, err := headFlags(f2.Tables["head"])
	test.Error(t, err)
	test.That(t, flags&0x0800 != 0)

	rLoca := NewLocaTable(0, f2.Tables["loca"])
	rGlyf := NewGlyfTable(f2.Tables["glyf"], rLoca)
	sg, err := rGlyf.parseSimpleGlyph(1)
	test.Error(t, err)
	test.T(t, sg.X, []int16{0, 100, 50})
	test.T(t, sg.Y, []int16{0, 0, 100})

	hmtx, err := parseHmtx(f2.Tables["hmtx"], 3, 2)
	test.Error(t, err)
	test.T(t, hmtx.HMetrics, []hMetric{{500, 0}, {600, 0}})
	test.T(t, hmtx.LeftSideBearings, []int16{0})

	assembled := assembleSFNT(t, f2)
	test.T(t, calcChecksum(assembled), uint32(0xB1B0AFBA))
}

func TestWriteRejectsMismatchedGlyfLoca(t *testing.T) {
	f := buildTestFont()
	delete(f.Tables, "loca")
	_, err := Write(f)
	if err == nil {
		test.Fail(t)
	}
}

func TestReadRejectsLengthMismatch(t *testing.T) {
	f := buildTestFont()
	b, err := Write(f)
	test.Error(t, err)
	b = append(b, 0x00) // header.Length no longer matches file size
	_, err = Read(b)
	if err == nil {
		test.Fail(t)
	}
}

func TestReadRejectsMissingHeadBit11(t *testing.T) {
	// Write always sets flags bit 11; assemble a minimal WOFF2 file by hand
	// (bypassing Write) to simulate a non-conforming encoder that didn't.
	head := buildTestHead() // flags left at 0
	maxp := []byte{0x00, 0x00, 0x50, 0x00, 0x00, 0x00}
	tables := map[Tag][]byte{"head": head, "maxp": maxp}
	tags := sortTags([]Tag{"head", "maxp"})

	payload := NewBinaryWriter(nil)
	for _, tag := range tags {
		payload.WriteBytes(tables[tag])
	}
	compPayload, err := brotliCompress(payload.Bytes(), true)
	test.Error(t, err)

	dw := NewBinaryWriter(nil)
	writeDirectory(dw, tags, func(tag Tag) uint32 { return uint32(len(tables[tag])) }, nil)

	h := header{
		SFNTVersion:         "OTTO",
		NumTables:           uint16(len(tags)),
		TotalSfntSize:       uint32(12 + 16*len(tags) + len(head) + len(maxp)),
		TotalCompressedSize: uint32(len(compPayload)),
	}
	w := NewBinaryWriter(nil)
	writeHeader(w, h)
	w.WriteBytes(dw.Bytes())
	w.WriteBytes(compPayload)
	h.Length = w.Len()
	buf := w.Bytes()
	rewriteHeader(buf, h)

	_, err = Read(buf)
	if err == nil {
		test.Fail(t)
	}
}
