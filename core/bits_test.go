package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBit(t *testing.T) {
	b := uint8(0b1010_0101)
	want := []bool{true, false, true, false, false, true, false, true}
	for pos, w := range want {
		assert.Equal(t, w, GetBit(b, uint8(pos)), "bit %d", pos)
	}
}

func TestGetBits(t *testing.T) {
	b := uint8(0b1101_0110)
	assert.Equal(t, uint8(0b0110), GetBits(b, 4, 0))
	assert.Equal(t, uint8(0b1101), GetBits(b, 4, 4))
	assert.Equal(t, uint8(0b011), GetBits(b, 3, 1))
	assert.Equal(t, b, GetBits(b, 8, 0))
	assert.Equal(t, uint8(0), GetBits(b, 0, 3))
}

func TestSetBitPreservesOthers(t *testing.T) {
	for pos := uint8(0); pos < 8; pos++ {
		b := uint8(0x00)
		SetBit(&b, true, pos)
		assert.Equal(t, uint8(1)<<pos, b)

		b = 0xFF
		SetBit(&b, false, pos)
		assert.Equal(t, ^(uint8(1) << pos), b)
	}
}

func TestSetBitsAllFields(t *testing.T) {
	for _, initial := range []uint8{0x00, 0xFF, 0xA5, 0x3C} {
		for pos := uint8(0); pos < 8; pos++ {
			for size := uint8(1); pos+size <= 8; size++ {
				for _, v := range []uint8{0x00, 0xFF, 0x55, 0x01} {
					b := initial
					SetBits(&b, v, size, pos)

					mask := fieldMask(size, pos)
					assert.Equal(t, initial&^mask, b&^mask, "outside bits changed: init=%#x v=%#x size=%d pos=%d", initial, v, size, pos)
					assert.Equal(t, v&fieldMask(size, 0), GetBits(b, size, pos))
				}
			}
		}
	}
}

func TestSetBitsOverflowDoesNotCorrupt(t *testing.T) {
	b := uint8(0b0000_1111)
	// field runs past bit 7; the low nibble must survive
	SetBits(&b, 0xFF, 6, 4)
	assert.Equal(t, uint8(0xFF), b)

	b = 0b0000_1111
	SetBits(&b, 0x00, 6, 4)
	assert.Equal(t, uint8(0b0000_1111), b)
}

func TestValueToBytesLittleEndian(t *testing.T) {
	assert.Equal(t, []byte{0x12}, ValueToBytes(uint8(0x12)))
	assert.Equal(t, []byte{0x34, 0x12}, ValueToBytes(uint16(0x1234)))
	assert.Equal(t, []byte{0x78, 0x56, 0x34, 0x12}, ValueToBytes(uint32(0x12345678)))
	assert.Equal(t, []byte{0xFF, 0xFF}, ValueToBytes(int16(-1)))
}

func TestBytesToValue(t *testing.T) {
	assert.Equal(t, uint16(0x1234), BytesToValue[uint16]([]byte{0x34, 0x12}))
	assert.Equal(t, uint32(0x12345678), BytesToValue[uint32]([]byte{0x78, 0x56, 0x34, 0x12}))
	assert.Equal(t, uint32(0x00000034), BytesToValue[uint32]([]byte{0x34}), "short input zero-extends")
	assert.Equal(t, uint8(0x34), BytesToValue[uint8]([]byte{0x34, 0x12}), "extra input ignored")
}

func TestValueBytesLossless(t *testing.T) {
	assert.Equal(t, float32(math.Pi), BytesToValue[float32](ValueToBytes(float32(math.Pi))))
	assert.Equal(t, -12345.678, BytesToValue[float64](ValueToBytes(-12345.678)))
	assert.Equal(t, int32(math.MinInt32), BytesToValue[int32](ValueToBytes(int32(math.MinInt32))))
	assert.Equal(t, uint64(math.MaxUint64), BytesToValue[uint64](ValueToBytes(uint64(math.MaxUint64))))

	type celsius int16
	assert.Equal(t, celsius(-40), BytesToValue[celsius](ValueToBytes(celsius(-40))))
}

func TestValuesToBytes(t *testing.T) {
	got := ValuesToBytes([]uint16{0x0102, 0x0304})
	assert.Equal(t, []byte{0x02, 0x01, 0x04, 0x03}, got)

	back := BytesToValues[uint16](got, 2)
	require.Len(t, back, 2)
	assert.Equal(t, []uint16{0x0102, 0x0304}, back)

	short := BytesToValues[uint16]([]byte{0x02}, 3)
	assert.Equal(t, []uint16{0x0002, 0, 0}, short)
}

func TestSizeOf(t *testing.T) {
	assert.Equal(t, 1, SizeOf[uint8]())
	assert.Equal(t, 2, SizeOf[int16]())
	assert.Equal(t, 4, SizeOf[float32]())
	assert.Equal(t, 8, SizeOf[uint64]())
}
