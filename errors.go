package font

import "fmt"

// MaxMemory bounds the summed table payload size that Read accepts from the
// directory before it decompresses the payload, so a corrupt or hostile
// length field can't be used to force an out-of-memory condition before the
// input has been validated. Other allocations (metadata, the reconstructed
// glyf/loca/hmtx tables) are not checked against it.
var MaxMemory uint32 = 64 * 1024 * 1024

// GlyfPadding is the byte alignment every compiled glyph is padded to before
// the transform buffer concatenates it (§4.5, §9(b)). The WOFF2 spec itself
// permits arbitrary padding; 4 matches what widely-deployed sanitizers
// expect.
var GlyfPadding uint32 = 4

// ErrInvalidFontData is returned when the input fails a structural or
// consistency check (§7 "Format"/"Consistency" errors).
var ErrInvalidFontData = fmt.Errorf("invalid font data")

// ErrExceedsMemory is returned when a length field in the input would force
// an allocation larger than MaxMemory.
var ErrExceedsMemory = fmt.Errorf("font exceeds memory limit")

// ErrUnsupported is returned when the input requests functionality this
// codec intentionally does not implement (§7 "Unsupported" errors): font
// collections, or a table transform other than glyf/loca/hmtx.
var ErrUnsupported = fmt.Errorf("unsupported font feature")
