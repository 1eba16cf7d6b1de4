package font

import (
	"testing"

	"github.com/tdewolff/test"
)

func TestCalcChecksum(t *testing.T) {
	test.T(t, calcChecksum([]byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02}), uint32(3))
	// Sum wraps modulo 2^32.
	test.T(t, calcChecksum([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x00, 0x00, 0x00, 0x01}), uint32(0))
}

func TestSearchRangeFields(t *testing.T) {
	cases := []struct {
		numTables                                  uint16
		searchRange, entrySelector, rangeShift uint16
	}{
		{1, 16, 0, 0},
		{4, 64, 2, 0},
		{9, 128, 3, 16},
	}
	for _, c := range cases {
		sr, es, rs := searchRangeFields(c.numTables)
		test.T(t, sr, c.searchRange)
		test.T(t, es, c.entrySelector)
		test.T(t, rs, c.rangeShift)
	}
}
