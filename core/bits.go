// Bit and byte-order helpers shared by the bus devices and the EEPROM allocator.
package core

import (
	"encoding/binary"
	"unsafe"
)

// ByteOrder is the order in which multi-byte values are laid out on the bus.
// Wide registers are composed from single-byte transfers least significant
// byte first.
var ByteOrder = binary.LittleEndian

// Word is an unsigned register width the bus devices move natively.
type Word interface {
	~uint8 | ~uint16 | ~uint32
}

// Value is any fixed-width numeric that can be stored as raw bytes.
type Value interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~int8 | ~int16 | ~int32 | ~int64 |
		~float32 | ~float64
}

// GetBit reports bit pos of b (0 = least significant).
func GetBit(b uint8, pos uint8) bool {
	return b&(1<<(pos&7)) != 0
}

// GetBits returns the size-bit field starting at pos, right-aligned.
func GetBits(b uint8, size uint8, pos uint8) uint8 {
	return (b & fieldMask(size, pos)) >> (pos & 7)
}

// SetBit sets or clears bit pos of *b, leaving the other bits untouched.
func SetBit(b *uint8, v bool, pos uint8) {
	mask := uint8(1) << (pos & 7)
	if v {
		*b |= mask
	} else {
		*b &^= mask
	}
}

// SetBits writes the low size bits of v into the field at pos.
// Bits of v above size and field bits falling past bit 7 are discarded.
func SetBits(b *uint8, v uint8, size uint8, pos uint8) {
	mask := fieldMask(size, pos)
	*b = (*b &^ mask) | ((v << (pos & 7)) & mask)
}

// fieldMask builds the in-byte mask for a size-bit field at pos, clipped to 8 bits.
func fieldMask(size uint8, pos uint8) uint8 {
	pos &= 7
	if size >= 8 {
		return 0xFF << pos
	}
	return uint8((uint16(1)<<size)-1) << pos
}

// SizeOf returns the encoded width of T in bytes.
func SizeOf[T Value]() int {
	var v T
	return int(unsafe.Sizeof(v))
}

// ValueToBytes encodes v in ByteOrder.
func ValueToBytes[T Value](v T) []byte {
	out, err := binary.Append(make([]byte, 0, SizeOf[T]()), ByteOrder, v)
	if err != nil {
		return make([]byte, SizeOf[T]())
	}
	return out
}

// BytesToValue decodes a T from b. Missing trailing bytes read as zero and
// extra bytes are ignored.
func BytesToValue[T Value](b []byte) T {
	var v T
	buf := make([]byte, SizeOf[T]())
	copy(buf, b)
	if _, err := binary.Decode(buf, ByteOrder, &v); err != nil {
		var zero T
		return zero
	}
	return v
}

// ValuesToBytes flattens values into one byte sequence.
func ValuesToBytes[T Value](values []T) []byte {
	out := make([]byte, 0, len(values)*SizeOf[T]())
	for _, v := range values {
		out = append(out, ValueToBytes(v)...)
	}
	return out
}

// BytesToValues splits b into n values of T. Short input is zero-filled.
func BytesToValues[T Value](b []byte, n int) []T {
	size := SizeOf[T]()
	out := make([]T, n)
	for i := range out {
		start := i * size
		if start >= len(b) {
			break
		}
		end := min(start+size, len(b))
		out[i] = BytesToValue[T](b[start:end])
	}
	return out
}
