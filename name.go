package font

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// PlatformID is a name-table platform identifier (OpenType "Platform ID").
type PlatformID uint16

// NameID is a name-table name identifier, e.g. NameFontFamily.
type NameID uint16

const (
	PlatformUnicode   PlatformID = 0
	PlatformMacintosh PlatformID = 1
	PlatformWindows   PlatformID = 3
)

const (
	NameCopyright NameID = iota
	NameFontFamily
	NameFontSubfamily
	NameUniqueIdentifier
	NameFull
	NameVersion
	NamePostScript
)

// EncodingMacintoshRoman is the one Macintosh-platform name encoding this
// accessor can decode; other Macintosh encodings fall back to raw bytes.
const EncodingMacintoshRoman uint16 = 0

// nameRecord is one entry of the sfnt name table (§3 "other tables" passed
// through opaquely; this accessor reads them without mutating Font.Tables).
type nameRecord struct {
	Platform PlatformID
	Encoding uint16
	Language uint16
	Name     NameID
	Value    []byte
}

func (record nameRecord) String() string {
	var dec *encoding.Decoder
	if record.Platform == PlatformUnicode || record.Platform == PlatformWindows {
		dec = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	} else if record.Platform == PlatformMacintosh && record.Encoding == EncodingMacintoshRoman {
		dec = charmap.Macintosh.NewDecoder()
	}
	if dec == nil {
		return string(record.Value)
	}
	s, _, err := transform.String(dec, string(record.Value))
	if err != nil {
		return string(record.Value)
	}
	return s
}

// parseNameRecords parses the sfnt name table's fixed records (the
// format-1 language-tag extension, never needed by WOFF2 itself, is
// skipped).
func parseNameRecords(b []byte) ([]nameRecord, error) {
	if len(b) < 6 {
		return nil, fmt.Errorf("name: %w", ErrInvalidFontData)
	}
	r := NewBinaryReader(b)
	version := r.ReadUint16()
	if version != 0 && version != 1 {
		return nil, fmt.Errorf("name: bad version")
	}
	count := r.ReadUint16()
	storageOffset := r.ReadUint16()
	if uint32(len(b)) < 6+12*uint32(count) || uint16(len(b)) < storageOffset {
		return nil, fmt.Errorf("name: %w", ErrInvalidFontData)
	}

	records := make([]nameRecord, count)
	for i := range records {
		records[i].Platform = PlatformID(r.ReadUint16())
		records[i].Encoding = r.ReadUint16()
		records[i].Language = r.ReadUint16()
		records[i].Name = NameID(r.ReadUint16())
		length := r.ReadUint16()
		offset := r.ReadUint16()
		if uint16(len(b))-storageOffset < offset || uint16(len(b))-storageOffset-offset < length {
			return nil, fmt.Errorf("name: %w", ErrInvalidFontData)
		}
		records[i].Value = b[storageOffset+offset : storageOffset+offset+length]
	}
	if r.EOF() {
		return nil, fmt.Errorf("name: %w", ErrInvalidFontData)
	}
	return records, nil
}

// Name returns the string of the first Windows- or Unicode-platform record
// for the given name ID, or, if there is none, of the first Macintosh-platform
// record (decoded as Macintosh Roman when its encoding is Roman, raw bytes
// otherwise). It returns "" if the name table is absent, malformed, or has no
// record for id.
func (f *Font) Name(id NameID) string {
	b, ok := f.Tables["name"]
	if !ok {
		return ""
	}
	records, err := parseNameRecords(b)
	if err != nil {
		return ""
	}

	var macRecord *nameRecord
	for i := range records {
		record := records[i]
		if record.Name != id {
			continue
		}
		if record.Platform == PlatformWindows || record.Platform == PlatformUnicode {
			return record.String()
		}
		if record.Platform == PlatformMacintosh && macRecord == nil {
			macRecord = &records[i]
		}
	}
	if macRecord != nil {
		return macRecord.String()
	}
	return ""
}
