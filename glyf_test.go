package font

import (
	"testing"

	"github.com/tdewolff/test"
)

// buildTestGlyf returns three raw sfnt glyphs (empty, a simple triangle, and
// a composite referencing the triangle) and the short-format loca offsets
// that index them, as they would appear before the WOFF2 transform.
func buildTestGlyf() (glyf []byte, loca *LocaTable, numGlyphs uint16) {
	empty := []byte{}

	// Triangle: points (0,0), (100,0), (50,100), all on-curve, short deltas.
	triangle := []byte{
		0x00, 0x01, // numberOfContours = 1
		0x00, 0x00, // xMin
		0x00, 0x00, // yMin
		0x00, 0x64, // xMax = 100
		0x00, 0x64, // yMax = 100
		0x00, 0x02, // endPtsOfContours = [2]
		0x00, 0x00, // instructionLength = 0
		0x31, 0x33, 0x27, // flags
		100, 50, // x deltas (point1: +100, point2: -50)
		100, // y deltas (point2: +100)
	}

	// Composite: one component referencing glyph 1 with a (10,20) offset.
	composite := []byte{
		0xFF, 0xFF, // numberOfContours = -1
		0x00, 0x00, // xMin
		0x00, 0x00, // yMin
		0x00, 0x64, // xMax
		0x00, 0x64, // yMax
		0x00, 0x03, // flags: ARG_1_AND_2_ARE_WORDS | ARGS_ARE_XY_VALUES
		0x00, 0x01, // glyphIndex = 1
		0x00, 0x0A, // arg1 (dx) = 10
		0x00, 0x14, // arg2 (dy) = 20
	}

	data := append(append(append([]byte{}, empty...), triangle...), composite...)
	offsets := []uint32{0, uint32(len(empty)), uint32(len(empty) + len(triangle)), uint32(len(data))}
	b, err := locaOffsets(0, offsets)
	if err != nil {
		panic(err)
	}
	return data, NewLocaTable(0, b), 3
}

func TestEncodeDecodeTripletRoundTrip(t *testing.T) {
	deltas := []int16{0, 1, -1, 63, -63, 100, -100, 500, -500, 2000, -2000, 20000, -20000, 32767, -32767}
	for _, dx := range deltas {
		for _, dy := range deltas {
			flag, triplet := encodeTriplet(dx, dy)
			gotDx, gotDy := decodeTriplet(flag, NewBinaryReader(triplet))
			if gotDx != dx || gotDy != dy {
				t.Fatalf("encodeTriplet/decodeTriplet(%d,%d) round-trip: got (%d,%d)", dx, dy, gotDx, gotDy)
			}
		}
	}
}

func TestGlyfCompositeLength(t *testing.T) {
	length, more := glyfCompositeLength(0x0003) // words, no scale, last component
	test.T(t, length, uint32(8))
	test.That(t, !more)

	length, more = glyfCompositeLength(0x0023) // words, MORE_COMPONENTS set
	test.T(t, length, uint32(8))
	test.That(t, more)

	length, _ = glyfCompositeLength(0x0008) // bytes (no words bit) + WE_HAVE_A_SCALE
	test.T(t, length, uint32(8))

	length, _ = glyfCompositeLength(0x0040) // bytes + WE_HAVE_AN_X_AND_Y_SCALE
	test.T(t, length, uint32(10))

	length, _ = glyfCompositeLength(0x0080) // bytes + WE_HAVE_A_TWO_BY_TWO
	test.T(t, length, uint32(14))
}

func TestGlyfTransformRoundTrip(t *testing.T) {
	data, loca, numGlyphs := buildTestGlyf()
	g := NewGlyfTable(data, loca)

	test.That(t, !g.IsComposite(1))
	test.That(t, g.IsComposite(2))

	transformed, xMins, err := transformGlyf(numGlyphs, g, 0)
	test.Error(t, err)
	test.T(t, xMins[1], int16(0)) // triangle's stored xMin
	test.T(t, xMins[2], int16(0)) // composite's stored xMin

	newGlyf, newLoca, err := reconstructGlyfLoca(transformed, 8) // (3+1)*2
	test.Error(t, err)

	rLoca := NewLocaTable(0, newLoca)
	rGlyfTable := NewGlyfTable(newGlyf, rLoca)

	test.T(t, len(rGlyfTable.Get(0)), 0)

	sg, err := rGlyfTable.parseSimpleGlyph(1)
	test.Error(t, err)
	test.T(t, sg.XMin, int16(0))
	test.T(t, sg.XMax, int16(100))
	test.T(t, sg.YMin, int16(0))
	test.T(t, sg.YMax, int16(100))
	test.T(t, sg.X, []int16{0, 100, 50})
	test.T(t, sg.Y, []int16{0, 0, 100})
	test.That(t, sg.OnCurve[0] && sg.OnCurve[1] && sg.OnCurve[2])

	test.That(t, rGlyfTable.IsComposite(2))
	compositeBytes := rGlyfTable.Get(2)
	test.That(t, 18 <= len(compositeBytes))
	r := NewBinaryReader(compositeBytes)
	test.T(t, r.ReadInt16(), int16(-1))
	r.Seek(10) // skip nContours + bbox, to the component flags
	test.T(t, r.ReadUint16(), uint16(0x0003))
	test.T(t, r.ReadUint16(), uint16(1)) // glyphIndex
	test.T(t, r.ReadInt16(), int16(10)) // dx
	test.T(t, r.ReadInt16(), int16(20)) // dy
}

func TestGlyfEmptyBboxNotEncoded(t *testing.T) {
	data, loca, numGlyphs := buildTestGlyf()
	transformed, _, err := transformGlyf(numGlyphs, NewGlyfTable(data, loca), 0)
	test.Error(t, err)

	r := NewBinaryReader(transformed)
	_ = r.ReadUint32() // version
	_ = r.ReadUint16() // numGlyphs
	_ = r.ReadUint16() // indexFormat
	_ = r.ReadUint32() // nContourStreamSize
	_ = r.ReadUint32() // nPointsStreamSize
	_ = r.ReadUint32() // flagStreamSize
	_ = r.ReadUint32() // glyphStreamSize
	_ = r.ReadUint32() // compositeStreamSize
	bboxSize := r.ReadUint32()
	// bbox bitmap is 4 bytes for 3 glyphs (rounded up to a 32-bit word); the
	// triangle's computed bbox matches its stored one so only the composite's
	// (always explicit) bbox is written.
	test.T(t, bboxSize, uint32(4)+8)
}
