package protocol

import "fmt"

// CRC16 is the CCITT checksum carried in every frame trailer.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		b ^= uint8(crc)
		b ^= b << 4
		b16 := uint16(b)
		crc = (b16<<8 | crc>>8) ^ (b16 >> 4) ^ (b16 << 3)
	}
	return crc
}

// AppendFrame wraps payload in a frame with sequence seq and appends it to dst.
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	n := MessageLengthMin + len(payload)
	if n > MessageLengthMax {
		return dst, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLong, n, MessageLengthMax)
	}
	start := len(dst)
	dst = append(dst, uint8(n), seq)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, uint8(crc>>8), uint8(crc), MessageValueSync), nil
}

// Scanner splits a byte stream into frames. Corrupt input is skipped up to
// the next sync byte.
type Scanner struct {
	buf     []byte
	synced  bool
	dropped int
}

// NewScanner returns a Scanner that assumes the stream starts on a frame.
func NewScanner() *Scanner {
	return &Scanner{synced: true}
}

// Write buffers p for later Next calls. It never fails.
func (s *Scanner) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

// Buffered returns the number of bytes not yet consumed.
func (s *Scanner) Buffered() int { return len(s.buf) }

// Dropped returns how many times the scanner lost sync.
func (s *Scanner) Dropped() int { return s.dropped }

// Reset discards buffered input.
func (s *Scanner) Reset() {
	s.buf = s.buf[:0]
	s.synced = true
}

func (s *Scanner) desync() {
	s.synced = false
	s.dropped++
}

// Next returns the next complete frame, or false when more input is needed.
func (s *Scanner) Next() (Message, bool) {
	defer s.compact()
	for len(s.buf) > 0 {
		if !s.synced {
			i := indexSync(s.buf)
			if i < 0 {
				s.buf = s.buf[:0]
				return Message{}, false
			}
			s.buf = s.buf[i+1:]
			s.synced = true
			continue
		}
		if s.buf[0] == MessageValueSync {
			s.buf = s.buf[1:]
			continue
		}
		n := int(s.buf[MessagePositionLen])
		if n < MessageLengthMin || n > MessageLengthMax {
			s.desync()
			continue
		}
		if len(s.buf) < n {
			return Message{}, false
		}
		if s.buf[n-MessageTrailerSync] != MessageValueSync {
			s.desync()
			continue
		}
		want := uint16(s.buf[n-MessageTrailerCRC])<<8 | uint16(s.buf[n-MessageTrailerCRC+1])
		if CRC16(s.buf[:n-MessageTrailerSize]) != want {
			s.desync()
			continue
		}
		msg := Message{
			Sequence: s.buf[MessagePositionSeq],
			Payload:  append([]byte(nil), s.buf[MessageHeaderSize:n-MessageTrailerSize]...),
		}
		s.buf = s.buf[n:]
		return msg, true
	}
	return Message{}, false
}

// compact moves unconsumed bytes to the front so the buffer does not creep.
func (s *Scanner) compact() {
	if cap(s.buf) > 4*MessageLengthMax && len(s.buf) < MessageLengthMax {
		s.buf = append([]byte(nil), s.buf...)
	}
}

func indexSync(b []byte) int {
	for i, c := range b {
		if c == MessageValueSync {
			return i
		}
	}
	return -1
}
