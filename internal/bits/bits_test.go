package bits

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUBitsByteIdentity(t *testing.T) {
	buf := []byte{0x12, 0x34, 0x56, 0x78, 0x9A}
	for k := 0; k < len(buf); k++ {
		assert.Equal(t, uint64(buf[k]), UBits(buf, k*8, 8), "byte %d", k)
	}
}

func TestUBitsWidth1(t *testing.T) {
	buf := []byte{0x80, 0x00}
	assert.Equal(t, uint64(1), UBits(buf, 0, 1))
	assert.Equal(t, uint64(0), UBits(buf, 1, 1))
}

func TestSBitsMatchesUBitsWhenTopBitZero(t *testing.T) {
	buf := []byte{0x35} // 0011 0101, top bit of the 8-bit field is 0
	assert.Equal(t, int64(UBits(buf, 0, 8)), SBits(buf, 0, 8))
}

func TestSBitsSignExtendsWhenTopBitSet(t *testing.T) {
	buf := []byte{0xF5} // 1111 0101
	u := UBits(buf, 0, 8)
	s := SBits(buf, 0, 8)
	assert.Equal(t, int64(u)-(1<<8), s)
	assert.Equal(t, int64(-11), s)
}

func TestUBitsStraddlesByteBoundary(t *testing.T) {
	// bits 4..11 (8 bits) straddling byte 0/1
	buf := []byte{0xAB, 0xCD} // 1010 1011 1100 1101
	got := UBits(buf, 4, 8)
	assert.Equal(t, uint64(0xBC), got)
}

func TestUBits64StackedMask(t *testing.T) {
	buf := make([]byte, 9)
	// Put a known 64-bit pattern starting at bit 8 (byte-aligned for clarity)
	want := uint64(0x0000000000000F00)
	for i := 0; i < 8; i++ {
		buf[1+i] = byte(want >> uint(56-8*i))
	}
	got := UBits64(buf, 8, 64)
	assert.Equal(t, want, got)
}

func TestReaderAdvancesCursor(t *testing.T) {
	buf := []byte{0xFF, 0x00}
	r := NewReader(buf)
	assert.Equal(t, uint64(0xFF), r.U(8))
	assert.Equal(t, 8, r.Pos())
	assert.Equal(t, uint64(0), r.U(8))
}

func TestPopCount(t *testing.T) {
	assert.Equal(t, 4, PopCount64(0x0000000000000F00))
	assert.Equal(t, 1, PopCount32(0x00800000))
}
