package font

// Tag is a 4-byte sfnt table tag, e.g. "glyf" or "head".
type Tag string

// knownTags is the fixed, ordered list of 63 table tags the WOFF2 directory
// codec can reference by a single byte index instead of spelling out all 4
// tag bytes (§4.2). The order is fixed by the WOFF2 specification: encoder
// and decoder must agree on it exactly, so this list is a compile-time
// constant, never derived or reordered at runtime.
var knownTags = [63]Tag{
	"cmap", "head", "hhea", "hmtx",
	"maxp", "name", "OS/2", "post",
	"cvt ", "fpgm", "glyf", "loca",
	"prep", "CFF ", "VORG", "EBDT",
	"EBLC", "gasp", "hdmx", "kern",
	"LTSH", "PCLT", "VDMX", "vhea",
	"vmtx", "BASE", "GDEF", "GPOS",
	"GSUB", "EBSC", "JSTF", "MATH",
	"CBDT", "CBLC", "COLR", "CPAL",
	"SVG ", "sbix", "acnt", "avar",
	"bdat", "bloc", "bsln", "cvar",
	"fdsc", "feat", "fmtx", "fvar",
	"gvar", "hsty", "just", "lcar",
	"mort", "morx", "opbd", "prop",
	"trak", "Zapf", "Silf", "Glat",
	"Gloc", "Feat", "Sill",
}

// knownTagIndex returns the known-tag table index for tag, or -1 (the escape
// value 63) if tag must be spelled out explicitly in the directory entry.
func knownTagIndex(tag Tag) int {
	for i, t := range knownTags {
		if t == tag {
			return i
		}
	}
	return -1
}
