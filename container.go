package font

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/andybalholm/brotli"
)

// Read decodes a WOFF2 file into a Font whose tables are the reconstructed
// (lossless-detransformed) sfnt payloads: glyf/loca are rebuilt from the
// seven-stream transform, hmtx from its left-side-bearing omission, and
// every other table is the opaque decompressed payload (§4.6 "Read path").
func Read(b []byte) (*Font, error) {
	r := NewBinaryReader(b)
	h, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if h.Length != uint32(len(b)) {
		return nil, fmt.Errorf("header: length must match file size")
	}
	if h.SFNTVersion == "ttcf" {
		return nil, fmt.Errorf("sfnt: font collections: %w", ErrUnsupported)
	}

	entries, err := readDirectory(r, h.NumTables)
	if err != nil {
		return nil, err
	}

	var uncompressedSize uint32
	for _, e := range entries {
		uncompressedSize += e.length
	}
	if MaxMemory < uncompressedSize {
		return nil, ErrExceedsMemory
	}

	compData := r.ReadBytes(h.TotalCompressedSize)
	if r.EOF() {
		return nil, fmt.Errorf("container: %w", ErrInvalidFontData)
	}
	data, err := brotliDecompress(compData, uncompressedSize)
	if err != nil {
		return nil, err
	}
	if uint32(len(data)) != uncompressedSize {
		return nil, fmt.Errorf("container: sum of table lengths must match decompressed size")
	}

	raw := make(map[Tag][]byte, len(entries))
	byTag := make(map[Tag]dirEntry, len(entries))
	order := make([]Tag, 0, len(entries))
	for _, e := range entries {
		order = append(order, e.Tag)
		byTag[e.Tag] = e
		if e.Tag == "loca" && e.Transform == transformGlyfLoca {
			continue // reconstructed alongside glyf
		}
		if uint32(len(data))-e.offset < e.length {
			return nil, fmt.Errorf("container: %w", ErrInvalidFontData)
		}
		raw[e.Tag] = data[e.offset : e.offset+e.length]
	}

	glyfEntry, hasGlyf := byTag["glyf"]
	locaEntry, hasLoca := byTag["loca"]
	if hasGlyf != hasLoca {
		return nil, fmt.Errorf("glyf and loca must both be present or both absent")
	}
	if hasGlyf {
		if glyfEntry.Transform != locaEntry.Transform {
			return nil, fmt.Errorf("glyf and loca must share a transform state")
		}
		if glyfEntry.Transform == transformGlyfLoca {
			glyfBytes, locaBytes, err := reconstructGlyfLoca(raw["glyf"], locaEntry.OrigLength)
			if err != nil {
				return nil, err
			}
			raw["glyf"] = glyfBytes
			raw["loca"] = locaBytes
		}
	}

	if hmtxEntry, hasHmtx := byTag["hmtx"]; hasHmtx && hmtxEntry.Transform == transformHmtxLSB {
		head, hasHead := raw["head"]
		maxp, hasMaxp := raw["maxp"]
		hhea, hasHhea := raw["hhea"]
		if !hasHead || !hasMaxp || !hasHhea || !hasGlyf || !hasLoca {
			return nil, fmt.Errorf("hmtx: head, maxp, hhea, glyf, and loca must be present to rebuild hmtx")
		}
		raw["hmtx"], err = reconstructHmtx(raw["hmtx"], head, raw["glyf"], raw["loca"], maxp, hhea)
		if err != nil {
			return nil, err
		}
	}

	head, hasHead := raw["head"]
	if !hasHead || len(head) != 54 {
		return nil, fmt.Errorf("head: %w", ErrInvalidFontData)
	}
	flags, err := headFlags(head)
	if err != nil {
		return nil, err
	}
	if flags&0x0800 == 0 {
		return nil, fmt.Errorf("head: bit 11 in flags must be set")
	}
	if _, hasDSIG := raw["DSIG"]; hasDSIG {
		return nil, fmt.Errorf("DSIG: must not be present")
	}

	if err := headClearCheckSumAdjustment(head); err != nil {
		return nil, err
	}
	sortedTags := make([]Tag, 0, len(raw))
	for tag := range raw {
		sortedTags = append(sortedTags, tag)
	}
	sortedTags = sortTags(sortedTags)
	adjustment := computeCheckSumAdjustment(h.SFNTVersion, sortedTags, func(tag Tag) []byte { return raw[tag] })
	if err := headSetCheckSumAdjustment(head, adjustment); err != nil {
		return nil, err
	}

	f := &Font{
		SFNTVersion: h.SFNTVersion,
		Tables:      raw,
		TableOrder:  order,
		Flavor: FlavorData{
			MajorVersion: h.MajorVersion,
			MinorVersion: h.MinorVersion,
		},
	}

	if h.MetaLength != 0 {
		if uint32(len(b)) < h.MetaOffset || uint32(len(b))-h.MetaOffset < h.MetaLength {
			return nil, fmt.Errorf("metadata: %w", ErrInvalidFontData)
		}
		meta, err := brotliDecompress(b[h.MetaOffset:h.MetaOffset+h.MetaLength], h.MetaOrigLength)
		if err != nil {
			return nil, fmt.Errorf("metadata: %w", err)
		}
		if uint32(len(meta)) != h.MetaOrigLength {
			return nil, fmt.Errorf("metadata: decompressed size must match metaOrigLength")
		}
		f.Flavor.MetaData = meta
	}
	if h.PrivLength != 0 {
		if uint32(len(b)) < h.PrivOffset || uint32(len(b))-h.PrivOffset < h.PrivLength {
			return nil, fmt.Errorf("private data: %w", ErrInvalidFontData)
		}
		f.Flavor.PrivData = append([]byte(nil), b[h.PrivOffset:h.PrivOffset+h.PrivLength]...)
	}
	return f, nil
}

// Write encodes f as a WOFF2 file (§4.6 "Write path").
func Write(f *Font) ([]byte, error) {
	tables := make(map[Tag][]byte, len(f.Tables))
	for tag, data := range f.Tables {
		if tag == "DSIG" {
			continue
		}
		tables[tag] = data
	}

	head, hasHead := tables["head"]
	if !hasHead || len(head) != 54 {
		return nil, fmt.Errorf("head: %w", ErrInvalidFontData)
	}
	head = append([]byte(nil), head...)
	tables["head"] = head

	_, hasGlyf := tables["glyf"]
	_, hasLoca := tables["loca"]
	if hasGlyf != hasLoca {
		return nil, fmt.Errorf("glyf and loca must both be present or both absent")
	}

	var transformedGlyf, transformedHmtx []byte
	if hasGlyf && f.SFNTVersion != "OTTO" {
		numGlyphs, err := f.NumGlyphs()
		if err != nil {
			return nil, err
		}
		locaFormat, err := headIndexToLocFormat(head)
		if err != nil {
			return nil, err
		}
		normGlyf, normLocaFormat, normLoca, err := normalizeGlyfLoca(tables["glyf"], NewLocaTable(locaFormat, tables["loca"]), numGlyphs)
		if err != nil {
			return nil, err
		}
		tables["glyf"] = normGlyf
		tables["loca"] = normLoca
		if err := headSetIndexToLocFormat(head, normLocaFormat); err != nil {
			return nil, err
		}

		var xMins []int16
		transformedGlyf, xMins, err = transformGlyf(numGlyphs, NewGlyfTable(tables["glyf"], NewLocaTable(normLocaFormat, tables["loca"])), normLocaFormat)
		if err != nil {
			return nil, err
		}
		if hmtxData, hasHmtx := tables["hmtx"]; hasHmtx {
			hhea, hasHhea := tables["hhea"]
			if !hasHhea {
				return nil, fmt.Errorf("hmtx: hhea must be present to rebuild hmtx")
			}
			numHMetrics, err := hheaNumberOfHMetrics(hhea)
			if err != nil {
				return nil, err
			}
			hmtx, err := parseHmtx(hmtxData, numGlyphs, numHMetrics)
			if err != nil {
				return nil, err
			}
			transformedHmtx = transformHmtx(hmtx, xMins)
		}
	}
	flags, err := headFlags(head)
	if err != nil {
		return nil, err
	}
	if err := headSetFlags(head, flags|1<<11); err != nil {
		return nil, err
	}

	tags := make([]Tag, 0, len(tables))
	for tag := range tables {
		tags = append(tags, tag)
	}
	tags = sortTags(tags)

	transformed := make(map[Tag]uint32)
	if transformedGlyf != nil {
		transformed["glyf"] = uint32(len(transformedGlyf))
		transformed["loca"] = 0
	}
	if transformedHmtx != nil {
		transformed["hmtx"] = uint32(len(transformedHmtx))
	}

	if err := headClearCheckSumAdjustment(head); err != nil {
		return nil, err
	}
	adjustment := computeCheckSumAdjustment(f.SFNTVersion, tags, func(tag Tag) []byte { return tables[tag] })
	if err := headSetCheckSumAdjustment(head, adjustment); err != nil {
		return nil, err
	}

	payloadOf := func(tag Tag) []byte {
		switch {
		case tag == "glyf" && transformedGlyf != nil:
			return transformedGlyf
		case tag == "loca" && transformedGlyf != nil:
			return nil
		case tag == "hmtx" && transformedHmtx != nil:
			return transformedHmtx
		default:
			return tables[tag]
		}
	}

	transformBuf := NewBinaryWriter(nil)
	for _, tag := range tags {
		transformBuf.WriteBytes(payloadOf(tag))
	}

	compPayload, err := brotliCompress(transformBuf.Bytes(), true)
	if err != nil {
		return nil, err
	}

	var dirBuf bytes.Buffer
	dw := NewBinaryWriter(nil)
	writeDirectory(dw, tags, func(tag Tag) uint32 { return uint32(len(tables[tag])) }, transformed)
	dirBuf.Write(dw.Bytes())

	sfntSize, err := estimateTotalSfntSize(tags, tables)
	if err != nil {
		return nil, err
	}

	h := header{
		SFNTVersion:         f.SFNTVersion,
		NumTables:           uint16(len(tags)),
		TotalSfntSize:       sfntSize,
		TotalCompressedSize: uint32(len(compPayload)),
		MajorVersion:        f.Flavor.MajorVersion,
		MinorVersion:        f.Flavor.MinorVersion,
	}

	w := NewBinaryWriter(nil)
	writeHeader(w, h)
	w.WriteBytes(dirBuf.Bytes())
	w.WriteBytes(compPayload)
	for w.Len()%4 != 0 {
		w.WriteByte(0)
	}

	var metaComp []byte
	if len(f.Flavor.MetaData) != 0 {
		metaComp, err = brotliCompress(f.Flavor.MetaData, false)
		if err != nil {
			return nil, err
		}
		h.MetaOffset = w.Len()
		h.MetaLength = uint32(len(metaComp))
		h.MetaOrigLength = uint32(len(f.Flavor.MetaData))
		w.WriteBytes(metaComp)
	}
	if len(f.Flavor.PrivData) != 0 {
		if len(f.Flavor.MetaData) != 0 {
			for w.Len()%4 != 0 {
				w.WriteByte(0)
			}
		}
		h.PrivOffset = w.Len()
		h.PrivLength = uint32(len(f.Flavor.PrivData))
		w.WriteBytes(f.Flavor.PrivData)
	}

	h.Length = w.Len()
	buf := w.Bytes()
	rewriteHeader(buf, h)
	return buf, nil
}

// rewriteHeader patches the length-dependent header fields (totalSfntSize,
// totalCompressedSize, length, and metadata/private data locations) once the
// final buffer size is known.
func rewriteHeader(buf []byte, h header) {
	w := NewBinaryWriter(nil)
	writeHeader(w, h)
	copy(buf[:w.Len()], w.Bytes())
}

// computeCheckSumAdjustment computes the master sfnt checksum over the
// reconstructed (untransformed) table layout, as both the write path (over
// the about-to-be-compressed tables) and the read path (over the tables just
// decompressed) need to (§4.6 write steps 3 and 5, §4.7). head's own bytes
// must already have checkSumAdjustment cleared to zero in rawOf("head").
func computeCheckSumAdjustment(sfntVersion string, tags []Tag, rawOf func(Tag) []byte) uint32 {
	searchRange, entrySelector, rangeShift := searchRangeFields(uint16(len(tags)))
	dir := NewBinaryWriter(make([]byte, 0, 12+16*len(tags)))
	dir.WriteString(sfntVersion)
	dir.WriteUint16(uint16(len(tags)))
	dir.WriteUint16(searchRange)
	dir.WriteUint16(entrySelector)
	dir.WriteUint16(rangeShift)

	var sum uint32
	sfntOffset := uint32(12 + 16*len(tags))
	for _, tag := range tags {
		raw := rawOf(tag)
		padded := raw
		if n := len(raw) % 4; n != 0 {
			padded = append(append([]byte(nil), raw...), make([]byte, 4-n)...)
		}
		sum += calcChecksum(padded)

		dir.WriteString(string(tag))
		dir.WriteUint32(calcChecksum(padded))
		dir.WriteUint32(sfntOffset)
		dir.WriteUint32(uint32(len(raw)))
		sfntOffset += uint32(len(padded))
	}
	sum += calcChecksum(dir.Bytes())
	return 0xB1B0AFBA - sum
}

// estimateTotalSfntSize computes the reconstructed sfnt's total byte size
// (directory + every table padded to a 4-byte boundary), used for the
// header's totalSfntSize field.
func estimateTotalSfntSize(tags []Tag, tables map[Tag][]byte) (uint32, error) {
	size := uint32(12 + 16*len(tags))
	for _, tag := range tags {
		n := uint32(len(tables[tag]))
		if math.MaxUint32-size < n {
			return 0, fmt.Errorf("sfnt: size overflow")
		}
		size += n
		if pad := (4 - size%4) % 4; pad != 0 {
			size += pad
		}
	}
	return size, nil
}

// normalizeGlyfLoca recompiles glyf so every glyph's bytes are padded to a
// 4-byte boundary, rebuilding loca to match (§4.5 "Encode (pre-transform
// normalization)"). The loca index format is kept unless offsets no longer
// fit the short format, in which case it is upgraded to long.
func normalizeGlyfLoca(glyfData []byte, loca *LocaTable, numGlyphs uint16) ([]byte, int16, []byte, error) {
	g := NewGlyfTable(glyfData, loca)
	buf := NewBinaryWriter(make([]byte, 0, len(glyfData)))
	offsets := make([]uint32, numGlyphs+1)
	for id := uint16(0); id < numGlyphs; id++ {
		offsets[id] = buf.Len()
		b := g.Get(id)
		if b == nil {
			return nil, 0, nil, fmt.Errorf("glyf: bad glyphID %d: %w", id, ErrInvalidFontData)
		}
		buf.WriteBytes(b)
		for buf.Len()%GlyfPadding != 0 {
			buf.WriteByte(0)
		}
	}
	offsets[numGlyphs] = buf.Len()

	format := loca.Format
	if format == 0 && 0x20000 <= offsets[numGlyphs] {
		format = 1
	}
	locaBytes, err := locaOffsets(format, offsets)
	if err != nil {
		return nil, 0, nil, err
	}
	return buf.Bytes(), format, locaBytes, nil
}

func brotliDecompress(compressed []byte, expectedSize uint32) ([]byte, error) {
	r := brotli.NewReader(bytes.NewReader(compressed))
	out := bytes.NewBuffer(make([]byte, 0, expectedSize))
	if _, err := io.Copy(out, r); err != nil {
		return nil, fmt.Errorf("brotli: %w", err)
	}
	return out.Bytes(), nil
}

// brotliCompress compresses data at maximum quality. fontMode distinguishes
// the WOFF2 payload (font-optimized contexts) from metadata (plain text)
// for callers' record-keeping; the andybalholm/brotli encoder does not
// expose WOFF2's BROTLI_MODE_FONT/TEXT knob, so both paths share one
// compression call.
func brotliCompress(data []byte, fontMode bool) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.BestCompression)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("brotli: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("brotli: %w", err)
	}
	return buf.Bytes(), nil
}
