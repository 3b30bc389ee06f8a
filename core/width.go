package core

// RegisterIO is the byte-level surface shared by SPIDevice, I2CDevice and
// Endpoint. The width-generic helpers below are written against it.
type RegisterIO interface {
	TransmitBytes(bytes []byte)
	ReceiveBytes(n int) []byte
	ReadBytes(reg uint8, n int) []byte
	WriteBytes(reg uint8, bytes []byte)
}

// Transmit sends values, flattened in ByteOrder, as one transaction.
func Transmit[T Value](d RegisterIO, values ...T) {
	d.TransmitBytes(ValuesToBytes(values))
}

// Receive clocks in n values of T as one transaction.
func Receive[T Value](d RegisterIO, n int) []T {
	if n <= 0 {
		return []T{}
	}
	return BytesToValues[T](d.ReceiveBytes(n*SizeOf[T]()), n)
}

// Read fetches n values of T starting at register reg.
func Read[T Value](d RegisterIO, reg uint8, n int) []T {
	if n <= 0 {
		return []T{}
	}
	return BytesToValues[T](d.ReadBytes(reg, n*SizeOf[T]()), n)
}

// Write stores values at register reg as one transaction.
func Write[T Value](d RegisterIO, reg uint8, values ...T) {
	d.WriteBytes(reg, ValuesToBytes(values))
}

// ReadBit reads register reg and reports bit pos.
func ReadBit(d RegisterIO, reg, pos uint8) bool {
	return GetBit(Read[uint8](d, reg, 1)[0], pos)
}

// ReadBits reads register reg and returns the size-bit field at pos.
func ReadBits(d RegisterIO, reg, pos, size uint8) uint8 {
	return GetBits(Read[uint8](d, reg, 1)[0], size, pos)
}

// WriteBit updates a single bit of register reg. This is a read followed by
// a write; another writer to reg between the two is lost.
func WriteBit(d RegisterIO, reg uint8, bit bool, pos uint8) {
	v := Read[uint8](d, reg, 1)[0]
	SetBit(&v, bit, pos)
	Write(d, reg, v)
}

// WriteBits updates the size-bit field at pos of register reg, with the same
// read-modify-write caveat as WriteBit.
func WriteBits(d RegisterIO, reg, bits, pos, size uint8) {
	v := Read[uint8](d, reg, 1)[0]
	SetBits(&v, bits, size, pos)
	Write(d, reg, v)
}
