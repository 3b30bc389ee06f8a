// Package protocol implements the host side of the Klipper serial protocol:
// message framing, the VLQ argument codec and a transport that sends
// commands and collects responses.
package protocol

import "errors"

// Version of the bridge protocol implementation.
const Version = "0.1.0"

// Frame layout: length, sequence, payload, crc16 (big endian), sync.
const (
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePayloadMax  = MessageLengthMax - MessageLengthMin
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

var (
	ErrFrameTooLong = errors.New("message exceeds frame size")
	ErrTimeout      = errors.New("timeout")
	ErrClosed       = errors.New("transport closed")
	ErrSequence     = errors.New("sequence mismatch")
)

// Message is one validated frame.
type Message struct {
	Sequence uint8
	Payload  []byte
}

// IsAck reports whether m carries no payload.
func (m Message) IsAck() bool { return len(m.Payload) == 0 }

// NextSequence returns the sequence number that follows seq on the wire.
func NextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}

// Args appends encoded command arguments to dst.
type Args func(dst []byte) []byte
