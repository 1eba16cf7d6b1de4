package font

import "encoding/binary"

// calcChecksum computes the sfnt table checksum: the big-endian uint32 sum,
// wrapping modulo 2^32, of b read as a sequence of uint32s. b's length must
// be a multiple of 4 (callers pad tables to a 4-byte boundary first).
func calcChecksum(b []byte) uint32 {
	var sum uint32
	for i := 0; i+4 <= len(b); i += 4 {
		sum += binary.BigEndian.Uint32(b[i:])
	}
	return sum
}

// searchRangeFields computes the sfnt offset-table searchRange,
// entrySelector, and rangeShift fields for a directory of numTables 16-byte
// entries (§4.7).
func searchRangeFields(numTables uint16) (searchRange, entrySelector, rangeShift uint16) {
	searchRange = 1
	for searchRange*2 <= numTables {
		searchRange *= 2
		entrySelector++
	}
	searchRange *= 16
	rangeShift = numTables*16 - searchRange
	return
}
