package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC16(t *testing.T) {
	assert.Equal(t, uint16(0xFFFF), CRC16(nil))
	assert.Equal(t, CRC16([]byte{1, 2, 3}), CRC16([]byte{1, 2, 3}))
	assert.NotEqual(t, CRC16([]byte{1, 2, 3}), CRC16([]byte{1, 2, 4}))
}

func TestAppendFrameLayout(t *testing.T) {
	frame, err := AppendFrame(nil, 0x12, []byte{0x01, 0x02})
	require.NoError(t, err)
	require.Len(t, frame, 7)
	assert.Equal(t, uint8(7), frame[0])
	assert.Equal(t, uint8(0x12), frame[1])
	crc := CRC16(frame[:4])
	assert.Equal(t, []byte{uint8(crc >> 8), uint8(crc), MessageValueSync}, frame[4:])

	_, err = AppendFrame(nil, 0x10, make([]byte, MessagePayloadMax+1))
	assert.ErrorIs(t, err, ErrFrameTooLong)
}

func TestScannerSplitsStream(t *testing.T) {
	var stream []byte
	stream, _ = AppendFrame(stream, 0x11, []byte{0xAA})
	stream, _ = AppendFrame(stream, 0x12, nil)

	s := NewScanner()
	// feed one byte at a time
	var got []Message
	for _, b := range stream {
		s.Write([]byte{b})
		for {
			m, ok := s.Next()
			if !ok {
				break
			}
			got = append(got, m)
		}
	}
	require.Len(t, got, 2)
	assert.Equal(t, Message{Sequence: 0x11, Payload: []byte{0xAA}}, got[0])
	assert.True(t, got[1].IsAck())
	assert.Zero(t, s.Buffered())
}

func TestScannerResyncsAfterCorruption(t *testing.T) {
	good, _ := AppendFrame(nil, 0x13, []byte{0x05, 0x06})
	bad := append([]byte(nil), good...)
	bad[2] ^= 0xFF

	s := NewScanner()
	s.Write(bad)
	s.Write(good)

	m, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, []byte{0x05, 0x06}, m.Payload)
	assert.GreaterOrEqual(t, s.Dropped(), 1)

	_, ok = s.Next()
	assert.False(t, ok)
}

func TestScannerSkipsGarbage(t *testing.T) {
	good, _ := AppendFrame(nil, 0x10, []byte{0x01})
	s := NewScanner()
	s.Write([]byte{0x01, 0x02, 0x03, MessageValueSync})
	s.Write(good)

	m, ok := s.Next()
	require.True(t, ok)
	assert.Equal(t, []byte{0x01}, m.Payload)
}

func TestNextSequenceWraps(t *testing.T) {
	assert.Equal(t, uint8(0x11), NextSequence(0x10))
	assert.Equal(t, uint8(0x10), NextSequence(0x1F))
}
