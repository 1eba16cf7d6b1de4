package font

import (
	"fmt"
	"math"
)

// GlyfTable is the parsed sfnt glyf table, addressed through its companion
// loca table (§3, §4.5).
type GlyfTable struct {
	data []byte
	loca *LocaTable
}

// NewGlyfTable wraps raw sfnt glyf bytes alongside the loca table that
// indexes them.
func NewGlyfTable(data []byte, loca *LocaTable) *GlyfTable {
	return &GlyfTable{data: data, loca: loca}
}

// Get returns glyphID's raw sfnt glyph bytes, or nil if glyphID is out of
// range.
func (g *GlyfTable) Get(glyphID uint16) []byte {
	start, ok1 := g.loca.Get(glyphID)
	end, ok2 := g.loca.Get(glyphID + 1)
	if !ok1 || !ok2 || end < start || uint32(len(g.data)) < end {
		return nil
	}
	return g.data[start:end]
}

// IsComposite reports whether glyphID's numberOfContours is negative.
func (g *GlyfTable) IsComposite(glyphID uint16) bool {
	b := g.Get(glyphID)
	return len(b) >= 2 && int16(uint16(b[0])<<8|uint16(b[1])) < 0
}

// simpleGlyph is the per-glyph entity described in §3 ("Per-glyph entity
// (simple)").
type simpleGlyph struct {
	XMin, YMin, XMax, YMax int16
	EndPoints              []uint16 // ascending
	OnCurve                []bool
	X, Y                   []int16 // absolute coordinates
	Instructions           []byte
}

// parseSimpleGlyph parses a non-composite, non-empty glyph's raw sfnt bytes.
func (g *GlyfTable) parseSimpleGlyph(glyphID uint16) (*simpleGlyph, error) {
	b := g.Get(glyphID)
	if b == nil {
		return nil, fmt.Errorf("glyf: bad glyphID %d: %w", glyphID, ErrInvalidFontData)
	}
	r := NewBinaryReader(b)
	numberOfContours := r.ReadInt16()
	if numberOfContours < 0 {
		return nil, fmt.Errorf("glyf: glyph %d is composite", glyphID)
	}

	sg := &simpleGlyph{}
	sg.XMin = r.ReadInt16()
	sg.YMin = r.ReadInt16()
	sg.XMax = r.ReadInt16()
	sg.YMax = r.ReadInt16()
	sg.EndPoints = make([]uint16, numberOfContours)
	for i := range sg.EndPoints {
		sg.EndPoints[i] = r.ReadUint16()
	}
	instructionLength := r.ReadUint16()
	sg.Instructions = r.ReadBytes(uint32(instructionLength))

	numPoints := 0
	if len(sg.EndPoints) > 0 {
		numPoints = int(sg.EndPoints[len(sg.EndPoints)-1]) + 1
	}
	flags := make([]byte, numPoints)
	sg.OnCurve = make([]bool, numPoints)
	for i := 0; i < numPoints; i++ {
		flags[i] = r.ReadByte()
		sg.OnCurve[i] = flags[i]&0x01 != 0
		if flags[i]&0x08 != 0 { // REPEAT_FLAG
			repeats := r.ReadByte()
			for j := 1; j <= int(repeats) && i+j < numPoints; j++ {
				flags[i+j] = flags[i]
				sg.OnCurve[i+j] = sg.OnCurve[i]
			}
			i += int(repeats)
		}
	}

	var x int16
	sg.X = make([]int16, numPoints)
	for i := 0; i < numPoints; i++ {
		xShort := flags[i]&0x02 != 0
		xSameOrPos := flags[i]&0x10 != 0
		if xShort {
			b0 := r.ReadByte()
			if xSameOrPos {
				x += int16(b0)
			} else {
				x -= int16(b0)
			}
		} else if !xSameOrPos {
			x += r.ReadInt16()
		}
		sg.X[i] = x
	}

	var y int16
	sg.Y = make([]int16, numPoints)
	for i := 0; i < numPoints; i++ {
		yShort := flags[i]&0x04 != 0
		ySameOrPos := flags[i]&0x20 != 0
		if yShort {
			b0 := r.ReadByte()
			if ySameOrPos {
				y += int16(b0)
			} else {
				y -= int16(b0)
			}
		} else if !ySameOrPos {
			y += r.ReadInt16()
		}
		sg.Y[i] = y
	}
	if r.EOF() {
		return nil, fmt.Errorf("glyf: bad table for glyph %d: %w", glyphID, ErrInvalidFontData)
	}
	return sg, nil
}

func signInt16(flag byte, bit uint) int16 {
	if flag&(1<<bit) != 0 {
		return 1
	}
	return -1
}

// transformGlyf implements the glyf encode transform of §4.4, splitting
// glyf+loca into the seven byte streams plus bbox bitmap of §3. It returns
// the assembled transform payload and, for every glyph, the xMin that a
// proportional hmtx left-side-bearing would need to equal to be omittable
// (SPEC_FULL.md §D).
func transformGlyf(numGlyphs uint16, glyf *GlyfTable, locaFormat int16) ([]byte, []int16, error) {
	bitmapSize := ((uint32(numGlyphs) + 31) >> 5) << 2
	nContourStream := NewBinaryWriter(nil)
	nPointsStream := NewBinaryWriter(nil)
	flagStream := NewBinaryWriter(nil)
	glyphStream := NewBinaryWriter(nil)
	compositeStream := NewBinaryWriter(nil)
	bboxBitmap := NewBitmapWriter(make([]byte, bitmapSize))
	bboxStream := NewBinaryWriter(nil)
	instructionStream := NewBinaryWriter(nil)

	xMins := make([]int16, numGlyphs)
	for glyphID := uint16(0); glyphID < numGlyphs; glyphID++ {
		b := glyf.Get(glyphID)
		if b == nil {
			return nil, nil, fmt.Errorf("glyf: bad glyphID %d: %w", glyphID, ErrInvalidFontData)
		}
		if len(b) == 0 {
			nContourStream.WriteInt16(0)
			bboxBitmap.Write(false)
			continue
		}

		if glyf.IsComposite(glyphID) {
			r := NewBinaryReader(b)
			numberOfContours := r.ReadInt16()
			xMin := r.ReadInt16()
			yMin := r.ReadInt16()
			xMax := r.ReadInt16()
			yMax := r.ReadInt16()
			xMins[glyphID] = xMin

			nContourStream.WriteInt16(numberOfContours)
			bboxBitmap.Write(true)
			bboxStream.WriteInt16(xMin)
			bboxStream.WriteInt16(yMin)
			bboxStream.WriteInt16(xMax)
			bboxStream.WriteInt16(yMax)

			hasInstructions := false
			for {
				flags := r.ReadUint16()
				length, more := glyfCompositeLength(flags)
				if flags&0x0100 != 0 {
					hasInstructions = true
				}
				compositeStream.WriteUint16(flags)
				compositeStream.WriteBytes(r.ReadBytes(length - 2))
				if !more {
					break
				}
			}
			if hasInstructions {
				instructionLength := r.ReadUint16()
				write255Uint16(glyphStream, instructionLength)
				instructionStream.WriteBytes(r.ReadBytes(uint32(instructionLength)))
			}
			if r.EOF() {
				return nil, nil, fmt.Errorf("glyf: bad composite glyph %d: %w", glyphID, ErrInvalidFontData)
			}
			continue
		}

		sg, err := glyf.parseSimpleGlyph(glyphID)
		if err != nil {
			return nil, nil, err
		}
		xMins[glyphID] = sg.XMin

		nContourStream.WriteInt16(int16(len(sg.EndPoints)))
		prevEnd := -1
		for _, end := range sg.EndPoints {
			write255Uint16(nPointsStream, uint16(int(end)-prevEnd))
			prevEnd = int(end)
		}

		var prevX, prevY int16
		for i := range sg.X {
			dx, dy := sg.X[i]-prevX, sg.Y[i]-prevY
			prevX, prevY = sg.X[i], sg.Y[i]

			flag, triplet := encodeTriplet(dx, dy)
			if !sg.OnCurve[i] {
				flag |= 0x80
			}
			flagStream.WriteByte(flag)
			glyphStream.WriteBytes(triplet)
		}

		write255Uint16(glyphStream, uint16(len(sg.Instructions)))
		instructionStream.WriteBytes(sg.Instructions)

		xMin, xMax := sg.X[0], sg.X[0]
		yMin, yMax := sg.Y[0], sg.Y[0]
		for i := 1; i < len(sg.X); i++ {
			if sg.X[i] < xMin {
				xMin = sg.X[i]
			}
			if xMax < sg.X[i] {
				xMax = sg.X[i]
			}
			if sg.Y[i] < yMin {
				yMin = sg.Y[i]
			}
			if yMax < sg.Y[i] {
				yMax = sg.Y[i]
			}
		}
		if xMin == sg.XMin && xMax == sg.XMax && yMin == sg.YMin && yMax == sg.YMax {
			bboxBitmap.Write(false)
		} else {
			bboxBitmap.Write(true)
			bboxStream.WriteInt16(sg.XMin)
			bboxStream.WriteInt16(sg.YMin)
			bboxStream.WriteInt16(sg.XMax)
			bboxStream.WriteInt16(sg.YMax)
		}
	}

	w := NewBinaryWriter(make([]byte, 0, 36+
		nContourStream.Len()+nPointsStream.Len()+flagStream.Len()+glyphStream.Len()+
		compositeStream.Len()+bboxBitmap.Len()+bboxStream.Len()+instructionStream.Len()))
	w.WriteUint32(0) // version
	w.WriteUint16(numGlyphs)
	w.WriteUint16(uint16(locaFormat))
	w.WriteUint32(nContourStream.Len())
	w.WriteUint32(nPointsStream.Len())
	w.WriteUint32(flagStream.Len())
	w.WriteUint32(glyphStream.Len())
	w.WriteUint32(compositeStream.Len())
	w.WriteUint32(bboxBitmap.Len() + bboxStream.Len())
	w.WriteUint32(instructionStream.Len())
	w.WriteBytes(nContourStream.Bytes())
	w.WriteBytes(nPointsStream.Bytes())
	w.WriteBytes(flagStream.Bytes())
	w.WriteBytes(glyphStream.Bytes())
	w.WriteBytes(compositeStream.Bytes())
	w.WriteBytes(bboxBitmap.Bytes())
	w.WriteBytes(bboxStream.Bytes())
	w.WriteBytes(instructionStream.Bytes())
	return w.Bytes(), xMins, nil
}

// encodeTriplet picks the shortest triplet class for (dx,dy) per §4.4.1,
// first match wins.
func encodeTriplet(dx, dy int16) (flag byte, triplet []byte) {
	ax, ay := abs16(dx), abs16(dy)
	xSign, ySign := byte(0), byte(0)
	if 0 <= dx {
		xSign = 1
	}
	if 0 <= dy {
		ySign = 1
	}
	xySigns := xSign + 2*ySign

	switch {
	case dx == 0 && ay < 1280:
		flag = byte((ay&0xf00)>>7) + ySign
		triplet = []byte{byte(ay)}
	case dy == 0 && ax < 1280:
		flag = 10 + byte((ax&0xf00)>>7) + xSign
		triplet = []byte{byte(ax)}
	case ax < 65 && ay < 65:
		flag = 20 + byte((ax-1)&0x30) + byte(((ay-1)&0x30)>>2) + xySigns
		triplet = []byte{byte((ax-1)&0xf)<<4 | byte((ay-1)&0xf)}
	case ax < 769 && ay < 769:
		flag = 84 + 12*byte((ax-1)>>8) + 4*byte((ay-1)>>8) + xySigns
		triplet = []byte{byte((ax - 1) & 0xff), byte((ay - 1) & 0xff)}
	case ax < 4096 && ay < 4096:
		flag = 120 + xySigns
		triplet = []byte{byte(ax >> 4), byte(ax&0xf)<<4 | byte(ay>>8), byte(ay & 0xff)}
	default:
		flag = 124 + xySigns
		triplet = []byte{byte(ax >> 8), byte(ax & 0xff), byte(ay >> 8), byte(ay & 0xff)}
	}
	return
}

func abs16(v int16) int16 {
	if v < 0 {
		return -v
	}
	return v
}

// reconstructGlyfLoca implements the glyf/loca decode transform of §4.3:
// it detransforms the seven-stream payload b into raw sfnt glyf bytes and a
// matching loca table, validating against origLocaLength (§4.5 "Reconstructed
// size invariant").
func reconstructGlyfLoca(b []byte, origLocaLength uint32) ([]byte, []byte, error) {
	r := NewBinaryReader(b)
	version := r.ReadUint32()
	numGlyphs := r.ReadUint16()
	indexFormat := r.ReadUint16()
	nContourSize := r.ReadUint32()
	nPointsSize := r.ReadUint32()
	flagSize := r.ReadUint32()
	glyphSize := r.ReadUint32()
	compositeSize := r.ReadUint32()
	bboxSize := r.ReadUint32()
	instructionSize := r.ReadUint32()
	if r.EOF() || version != 0 || nContourSize != 2*uint32(numGlyphs) {
		return nil, nil, fmt.Errorf("glyf: %w", ErrInvalidFontData)
	}
	if indexFormat != 0 && indexFormat != 1 {
		return nil, nil, fmt.Errorf("glyf: bad indexFormat: %w", ErrInvalidFontData)
	}

	bitmapSize := ((uint32(numGlyphs) + 31) >> 5) << 2
	if bboxSize < bitmapSize {
		return nil, nil, fmt.Errorf("glyf: %w", ErrInvalidFontData)
	}
	nContourStream := NewBinaryReader(r.ReadBytes(nContourSize))
	nPointsStream := NewBinaryReader(r.ReadBytes(nPointsSize))
	flagStream := NewBinaryReader(r.ReadBytes(flagSize))
	glyphStream := NewBinaryReader(r.ReadBytes(glyphSize))
	compositeStream := NewBinaryReader(r.ReadBytes(compositeSize))
	bboxBitmap := NewBitmapReader(r.ReadBytes(bitmapSize))
	bboxStream := NewBinaryReader(r.ReadBytes(bboxSize - bitmapSize))
	instructionStream := NewBinaryReader(r.ReadBytes(instructionSize))
	if r.EOF() {
		return nil, nil, fmt.Errorf("glyf: %w", ErrInvalidFontData)
	}

	locaLength := (uint32(numGlyphs) + 1) * 2
	if indexFormat != 0 {
		locaLength *= 2
	}
	if locaLength != origLocaLength {
		return nil, nil, fmt.Errorf("loca: origLength must match numGlyphs+1 entries: %w", ErrInvalidFontData)
	}

	glyphBuf := NewBinaryWriter(make([]byte, 0, glyphSize*2))
	offsets := make([]uint32, numGlyphs+1)
	for glyphID := uint16(0); glyphID < numGlyphs; glyphID++ {
		offsets[glyphID] = glyphBuf.Len()

		explicitBbox := bboxBitmap.Read()
		nContours := nContourStream.ReadInt16()
		if nContours == 0 {
			if explicitBbox {
				return nil, nil, fmt.Errorf("glyf: empty glyph %d cannot have explicit bbox: %w", glyphID, ErrInvalidFontData)
			}
			continue
		}

		if nContours < 0 {
			if !explicitBbox {
				return nil, nil, fmt.Errorf("glyf: composite glyph %d must have explicit bbox: %w", glyphID, ErrInvalidFontData)
			}
			xMin := bboxStream.ReadInt16()
			yMin := bboxStream.ReadInt16()
			xMax := bboxStream.ReadInt16()
			yMax := bboxStream.ReadInt16()

			glyphBuf.WriteInt16(nContours)
			glyphBuf.WriteInt16(xMin)
			glyphBuf.WriteInt16(yMin)
			glyphBuf.WriteInt16(xMax)
			glyphBuf.WriteInt16(yMax)

			hasInstructions := false
			for {
				flags := compositeStream.ReadUint16()
				length, more := glyfCompositeLength(flags)
				if flags&0x0100 != 0 {
					hasInstructions = true
				}
				componentBytes := compositeStream.ReadBytes(length - 2)
				glyphBuf.WriteUint16(flags)
				glyphBuf.WriteBytes(componentBytes)
				if !more {
					break
				}
			}
			if hasInstructions {
				instructionLength := read255Uint16(glyphStream)
				instructions := instructionStream.ReadBytes(uint32(instructionLength))
				glyphBuf.WriteUint16(instructionLength)
				glyphBuf.WriteBytes(instructions)
			}
			if bboxStream.EOF() || compositeStream.EOF() || instructionStream.EOF() || glyphStream.EOF() {
				return nil, nil, fmt.Errorf("glyf: %w", ErrInvalidFontData)
			}
		} else {
			var nPoints uint16
			endPoints := make([]uint16, nContours)
			for i := int16(0); i < nContours; i++ {
				n := read255Uint16(nPointsStream)
				if math.MaxUint16-nPoints < n {
					return nil, nil, fmt.Errorf("glyf: %w", ErrInvalidFontData)
				}
				nPoints += n
				endPoints[i] = nPoints - 1
			}
			if nPointsStream.EOF() {
				return nil, nil, fmt.Errorf("glyf: %w", ErrInvalidFontData)
			}

			onCurve := make([]bool, nPoints)
			dx := make([]int16, nPoints)
			dy := make([]int16, nPoints)
			for i := uint16(0); i < nPoints; i++ {
				flag := flagStream.ReadByte()
				onCurve[i] = flag&0x80 == 0
				dx[i], dy[i] = decodeTriplet(flag&0x7f, glyphStream)
			}
			if flagStream.EOF() || glyphStream.EOF() {
				return nil, nil, fmt.Errorf("glyf: %w", ErrInvalidFontData)
			}

			var x, y, xMin, yMin, xMax, yMax int16
			for i := uint16(0); i < nPoints; i++ {
				x += dx[i]
				y += dy[i]
				if i == 0 {
					xMin, xMax, yMin, yMax = x, x, y, y
				} else {
					if x < xMin {
						xMin = x
					} else if xMax < x {
						xMax = x
					}
					if y < yMin {
						yMin = y
					} else if yMax < y {
						yMax = y
					}
				}
			}

			if explicitBbox {
				xMin = bboxStream.ReadInt16()
				yMin = bboxStream.ReadInt16()
				xMax = bboxStream.ReadInt16()
				yMax = bboxStream.ReadInt16()
				if bboxStream.EOF() {
					return nil, nil, fmt.Errorf("glyf: %w", ErrInvalidFontData)
				}
			}

			instructionLength := read255Uint16(glyphStream)
			instructions := instructionStream.ReadBytes(uint32(instructionLength))
			if glyphStream.EOF() || instructionStream.EOF() {
				return nil, nil, fmt.Errorf("glyf: %w", ErrInvalidFontData)
			}

			glyphBuf.WriteInt16(nContours)
			glyphBuf.WriteInt16(xMin)
			glyphBuf.WriteInt16(yMin)
			glyphBuf.WriteInt16(xMax)
			glyphBuf.WriteInt16(yMax)
			for _, end := range endPoints {
				glyphBuf.WriteUint16(end)
			}
			glyphBuf.WriteUint16(instructionLength)
			glyphBuf.WriteBytes(instructions)

			for i := uint16(0); i < nPoints; i++ {
				var flag byte
				if onCurve[i] {
					flag = 0x01
				}
				glyphBuf.WriteByte(flag)
			}
			for i := uint16(0); i < nPoints; i++ {
				glyphBuf.WriteInt16(dx[i])
			}
			for i := uint16(0); i < nPoints; i++ {
				glyphBuf.WriteInt16(dy[i])
			}
		}

		for glyphBuf.Len()%GlyfPadding != 0 {
			glyphBuf.WriteByte(0)
		}
	}
	offsets[numGlyphs] = glyphBuf.Len()

	locaBytes, err := locaOffsets(int16(indexFormat), offsets)
	if err != nil {
		return nil, nil, err
	}
	return glyphBuf.Bytes(), locaBytes, nil
}

// decodeTriplet decodes a single point's (dx,dy) from its flag's low 7 bits
// and the following bytes of glyphStream, per §4.3.1.
func decodeTriplet(flag byte, glyphStream *BinaryReader) (dx, dy int16) {
	switch {
	case flag < 10:
		b0 := int16(glyphStream.ReadByte())
		dy = signInt16(flag, 0) * (int16(flag&0x0e)<<7 + b0)
	case flag < 20:
		b0 := int16(glyphStream.ReadByte())
		dx = signInt16(flag, 0) * (int16((flag-10)&0x0e)<<7 + b0)
	case flag < 84:
		b0 := int16(glyphStream.ReadByte())
		dx = signInt16(flag, 0) * (1 + int16((flag-20)&0x30) + b0>>4)
		dy = signInt16(flag, 1) * (1 + int16((flag-20)&0x0c)<<2 + b0&0x0f)
	case flag < 120:
		b0 := int16(glyphStream.ReadByte())
		b1 := int16(glyphStream.ReadByte())
		dx = signInt16(flag, 0) * (1 + int16((flag-84)/12)<<8 + b0)
		dy = signInt16(flag, 1) * (1 + int16((flag-84)%12)>>2<<8 + b1)
	case flag < 124:
		b0 := int16(glyphStream.ReadByte())
		b1 := int16(glyphStream.ReadByte())
		b2 := int16(glyphStream.ReadByte())
		dx = signInt16(flag, 0) * (b0<<4 + b1>>4)
		dy = signInt16(flag, 1) * ((b1&0x0f)<<8 + b2)
	default:
		b0 := int16(glyphStream.ReadByte())
		b1 := int16(glyphStream.ReadByte())
		b2 := int16(glyphStream.ReadByte())
		b3 := int16(glyphStream.ReadByte())
		dx = signInt16(flag, 0) * (b0<<8 + b1)
		dy = signInt16(flag, 1) * (b2<<8 + b3)
	}
	return
}

// glyfCompositeLength returns the byte length (including the 2-byte flags
// word) of a composite component record, and whether another follows.
func glyfCompositeLength(flags uint16) (length uint32, more bool) {
	length = 4 + 2 // flags + glyphIndex, then two byte-sized args
	if flags&0x0001 != 0 {
		length += 2 // ARG_1_AND_2_ARE_WORDS
	}
	if flags&0x0008 != 0 {
		length += 2 // WE_HAVE_A_SCALE
	} else if flags&0x0040 != 0 {
		length += 4 // WE_HAVE_AN_X_AND_Y_SCALE
	} else if flags&0x0080 != 0 {
		length += 8 // WE_HAVE_A_TWO_BY_TWO
	}
	more = flags&0x0020 != 0 // MORE_COMPONENTS
	return
}
