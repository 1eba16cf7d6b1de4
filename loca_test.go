package font

import (
	"testing"

	"github.com/tdewolff/test"
)

func TestLocaGetShortFormat(t *testing.T) {
	b, err := locaOffsets(0, []uint32{0, 20, 38})
	test.Error(t, err)
	loca := NewLocaTable(0, b)

	off, ok := loca.Get(0)
	test.That(t, ok)
	test.T(t, off, uint32(0))

	off, ok = loca.Get(1)
	test.That(t, ok)
	test.T(t, off, uint32(20))

	_, ok = loca.Get(10)
	test.That(t, !ok)
}

func TestLocaGetLongFormat(t *testing.T) {
	b, err := locaOffsets(1, []uint32{0, 131072, 131200})
	test.Error(t, err)
	loca := NewLocaTable(1, b)

	off, ok := loca.Get(1)
	test.That(t, ok)
	test.T(t, off, uint32(131072))
}

func TestLocaOffsetsRejectsOddShortOffset(t *testing.T) {
	_, err := locaOffsets(0, []uint32{0, 21})
	if err == nil {
		test.Fail(t)
	}
}

func TestLocaOffsetsRejectsShortOverflow(t *testing.T) {
	_, err := locaOffsets(0, []uint32{0, 0x20000})
	if err == nil {
		test.Fail(t)
	}
}
