package font

import (
	"fmt"
	"math"
	"sort"
)

// header is the fixed 48-byte WOFF2 file header (§4.2).
type header struct {
	SFNTVersion         string
	Length              uint32
	NumTables           uint16
	TotalSfntSize       uint32
	TotalCompressedSize uint32
	MajorVersion        uint16
	MinorVersion        uint16
	MetaOffset          uint32
	MetaLength          uint32
	MetaOrigLength      uint32
	PrivOffset          uint32
	PrivLength          uint32
}

func readHeader(r *BinaryReader) (header, error) {
	var h header
	if r.Len() < 48 {
		return h, fmt.Errorf("header: %w", ErrInvalidFontData)
	}
	signature := r.ReadString(4)
	if signature != "wOF2" {
		return h, fmt.Errorf("header: bad signature")
	}
	h.SFNTVersion = r.ReadString(4)
	h.Length = r.ReadUint32()
	h.NumTables = r.ReadUint16()
	reserved := r.ReadUint16()
	h.TotalSfntSize = r.ReadUint32()
	h.TotalCompressedSize = r.ReadUint32()
	h.MajorVersion = r.ReadUint16()
	h.MinorVersion = r.ReadUint16()
	h.MetaOffset = r.ReadUint32()
	h.MetaLength = r.ReadUint32()
	h.MetaOrigLength = r.ReadUint32()
	h.PrivOffset = r.ReadUint32()
	h.PrivLength = r.ReadUint32()
	if r.EOF() {
		return h, fmt.Errorf("header: %w", ErrInvalidFontData)
	}
	if reserved != 0 {
		return h, fmt.Errorf("header: reserved field must be zero")
	}
	if h.NumTables == 0 {
		return h, fmt.Errorf("header: numTables must not be zero")
	}
	return h, nil
}

func writeHeader(w *BinaryWriter, h header) {
	w.WriteString("wOF2")
	w.WriteString(h.SFNTVersion)
	w.WriteUint32(h.Length)
	w.WriteUint16(h.NumTables)
	w.WriteUint16(0) // reserved
	w.WriteUint32(h.TotalSfntSize)
	w.WriteUint32(h.TotalCompressedSize)
	w.WriteUint16(h.MajorVersion)
	w.WriteUint16(h.MinorVersion)
	w.WriteUint32(h.MetaOffset)
	w.WriteUint32(h.MetaLength)
	w.WriteUint32(h.MetaOrigLength)
	w.WriteUint32(h.PrivOffset)
	w.WriteUint32(h.PrivLength)
}

// transformKind distinguishes the per-entry transform applied to a table's
// payload (§4.2, §4.3, SPEC_FULL.md §D for hmtx).
type transformKind int

const (
	transformNone transformKind = iota
	transformGlyfLoca
	transformHmtxLSB
)

// dirEntry is one parsed WOFF2 directory entry plus its payload location
// within the decompressed buffer (§3 "Directory entry").
type dirEntry struct {
	Tag             Tag
	Transform       transformKind
	OrigLength      uint32
	TransformLength uint32 // 0 when Transform == transformNone

	offset uint32 // into the decompressed payload
	length uint32 // payload bytes occupied (origLength or transformLength)
}

// readDirectory reads numTables entries following the WOFF2 header (§4.2
// "Read"). It validates known-tag escape bytes and the glyf/loca/hmtx
// transform-version encoding, but does not look at table payload bytes.
func readDirectory(r *BinaryReader, numTables uint16) ([]dirEntry, error) {
	entries := make([]dirEntry, numTables)
	seen := make(map[Tag]bool, numTables)
	for i := range entries {
		flags := r.ReadByte()
		tagIndex := flags & 0x3F
		transformVersion := (flags & 0xC0) >> 6

		var tag Tag
		if tagIndex == 63 {
			tag = Tag(r.ReadString(4))
		} else if int(tagIndex) < len(knownTags) {
			tag = knownTags[tagIndex]
		} else {
			return nil, fmt.Errorf("directory: bad tag index %d", tagIndex)
		}
		if seen[tag] {
			return nil, fmt.Errorf("%s: table defined more than once", tag)
		}
		seen[tag] = true

		origLength, err := readUintBase128(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tag, err)
		}

		e := dirEntry{Tag: tag, OrigLength: origLength, length: origLength}
		switch {
		case (tag == "glyf" || tag == "loca") && transformVersion == 0:
			e.Transform = transformGlyfLoca
			tl, err := readUintBase128(r)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", tag, err)
			}
			if tag == "loca" && tl != 0 {
				return nil, fmt.Errorf("loca: transformLength must be zero")
			}
			e.TransformLength = tl
			if tag == "glyf" {
				e.length = tl
			} else {
				e.length = 0
			}
		case tag == "hmtx" && transformVersion == 1:
			e.Transform = transformHmtxLSB
			tl, err := readUintBase128(r)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", tag, err)
			}
			if tl == 0 {
				return nil, fmt.Errorf("hmtx: transformLength must be set")
			}
			e.TransformLength = tl
			e.length = tl
		case (tag == "glyf" || tag == "loca") && transformVersion == 3:
			// not transformed; origLength already doubles as the payload length
		case transformVersion != 0:
			return nil, fmt.Errorf("%s: invalid transformation %d: %w", tag, transformVersion, ErrUnsupported)
		}
		entries[i] = e
	}
	if r.EOF() {
		return nil, fmt.Errorf("directory: %w", ErrInvalidFontData)
	}

	var offset uint32
	for i := range entries {
		if math.MaxUint32-offset < entries[i].length {
			return nil, fmt.Errorf("directory: %w", ErrInvalidFontData)
		}
		entries[i].offset = offset
		offset += entries[i].length
	}
	return entries, nil
}

// writeDirectory emits one entry per tag, in the order tags are given,
// applying known-tag escape compression (§4.2 "Write"). transformed maps each
// tag that carries a transform to its transformed payload length.
func writeDirectory(w *BinaryWriter, tags []Tag, rawLength func(Tag) uint32, transformed map[Tag]uint32) {
	for _, tag := range tags {
		idx := knownTagIndex(tag)
		var transformVersion byte
		_, isGlyfLoca := transformed[tag]
		if isGlyfLoca && (tag == "glyf" || tag == "loca") {
			transformVersion = 0
		} else if isGlyfLoca && tag == "hmtx" {
			transformVersion = 1
		} else if tag == "glyf" || tag == "loca" {
			transformVersion = 3 // not transformed
		}

		if idx < 0 {
			w.WriteByte(transformVersion<<6 | 0x3F)
			w.WriteString(string(tag))
		} else {
			w.WriteByte(transformVersion<<6 | byte(idx))
		}
		writeUintBase128(w, rawLength(tag))
		if tag == "glyf" {
			if n, ok := transformed["glyf"]; ok {
				writeUintBase128(w, n)
			}
		} else if tag == "loca" {
			if _, ok := transformed["loca"]; ok {
				writeUintBase128(w, 0)
			}
		} else if tag == "hmtx" {
			if n, ok := transformed["hmtx"]; ok {
				writeUintBase128(w, n)
			}
		}
	}
}

// sortTags returns tags in strictly ascending order (§3 invariant, §8 "Sort").
func sortTags(tags []Tag) []Tag {
	out := make([]Tag, len(tags))
	copy(out, tags)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
