package font

import (
	"testing"

	"github.com/tdewolff/test"
)

func TestUintBase128RoundTrip(t *testing.T) {
	for _, n := range []uint32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, 0xFFFFFFFF} {
		w := NewBinaryWriter(nil)
		writeUintBase128(w, n)
		got, err := readUintBase128(NewBinaryReader(w.Bytes()))
		test.Error(t, err)
		test.T(t, got, n)
	}
}

func TestUintBase128Literals(t *testing.T) {
	// 63 encodes as a single byte.
	w := NewBinaryWriter(nil)
	writeUintBase128(w, 63)
	test.T(t, w.Bytes(), []byte{0x3F})

	// 0xFFFFFFFF encodes as five bytes, continuation bit set on the first four.
	w = NewBinaryWriter(nil)
	writeUintBase128(w, 0xFFFFFFFF)
	test.T(t, w.Bytes(), []byte{0x8F, 0xFF, 0xFF, 0xFF, 0x7F})
}

func TestUintBase128RejectsLeadingZero(t *testing.T) {
	_, err := readUintBase128(NewBinaryReader([]byte{0x80, 0x00}))
	if err == nil {
		test.Fail(t)
	}
}

func TestUintBase128RejectsOverlong(t *testing.T) {
	// Five continuation bytes before the terminator: exceeds the five-byte limit.
	_, err := readUintBase128(NewBinaryReader([]byte{0x81, 0x80, 0x80, 0x80, 0x80, 0x00}))
	if err == nil {
		test.Fail(t)
	}
}

func TestUintBase128RejectsOverflow(t *testing.T) {
	// Five bytes whose value exceeds 2^32-1.
	_, err := readUintBase128(NewBinaryReader([]byte{0x90, 0x80, 0x80, 0x80, 0x00}))
	if err == nil {
		test.Fail(t)
	}
}

func Test255Uint16RoundTrip(t *testing.T) {
	for _, v := range []uint16{0, 1, 252, 253, 505, 506, 761, 762, 763, 65535} {
		w := NewBinaryWriter(nil)
		write255Uint16(w, v)
		got := read255Uint16(NewBinaryReader(w.Bytes()))
		test.T(t, got, v)
	}
}

func Test255Uint16Literals(t *testing.T) {
	cases := []struct {
		v    uint16
		want []byte
	}{
		{252, []byte{0xFC}},
		{253, []byte{0xFF, 0x00}},
		{506, []byte{0xFE, 0x00}},
		{762, []byte{0xFD, 0x02, 0xFA}},
	}
	for _, c := range cases {
		w := NewBinaryWriter(nil)
		write255Uint16(w, c.v)
		test.T(t, w.Bytes(), c.want)
	}
}

func Test255Uint16ToleratesAnyEncoding(t *testing.T) {
	// read255Uint16 must accept all three representations of the same value.
	test.T(t, read255Uint16(NewBinaryReader([]byte{0xFE, 0x00})), uint16(506))
	test.T(t, read255Uint16(NewBinaryReader([]byte{0xFF, 0xFD})), uint16(506))
	test.T(t, read255Uint16(NewBinaryReader([]byte{0xFD, 0x01, 0xFA})), uint16(506))
}
