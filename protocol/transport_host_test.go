package protocol_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regbus/protocol"
	"regbus/protocol/prototest"
)

func TestHostTransportSendAndReceive(t *testing.T) {
	port, mcu := prototest.Pipe()
	defer mcu.Close()
	tr := protocol.NewHostTransport(port)
	defer tr.Close()

	mcu.Handle(7, func(args []byte) [][]byte {
		v, _ := protocol.DecodeVLQUint(&args)
		return [][]byte{protocol.AppendVLQUint(protocol.AppendVLQUint(nil, 8), v+1)}
	})

	payload := protocol.Join(protocol.Uint(7), protocol.Uint(41))(nil)
	require.NoError(t, tr.Send(payload, time.Second))
	assert.Equal(t, uint8(0x11), tr.Sequence())

	msg, err := tr.Receive(time.Second)
	require.NoError(t, err)
	data := msg.Payload
	id, _ := protocol.DecodeVLQUint(&data)
	v, _ := protocol.DecodeVLQUint(&data)
	assert.Equal(t, uint32(8), id)
	assert.Equal(t, uint32(42), v)

	assert.Equal(t, [][]byte{payload}, mcu.Received())
}

func TestHostTransportSequenceWraps(t *testing.T) {
	port, mcu := prototest.Pipe()
	defer mcu.Close()
	tr := protocol.NewHostTransport(port)
	defer tr.Close()

	for i := 0; i < 17; i++ {
		require.NoError(t, tr.Send([]byte{0x01}, time.Second))
	}
	assert.Equal(t, uint8(0x11), tr.Sequence())
}

func TestHostTransportAckTimeout(t *testing.T) {
	port, mcu := prototest.Pipe()
	defer mcu.Close()
	tr := protocol.NewHostTransport(port)
	defer tr.Close()

	mcu.Silence(true)
	err := tr.Send([]byte{0x01}, 20*time.Millisecond)
	assert.ErrorIs(t, err, protocol.ErrTimeout)
	assert.Equal(t, uint8(0x10), tr.Sequence(), "unacknowledged frame keeps its sequence")

	_, err = tr.Receive(10 * time.Millisecond)
	assert.ErrorIs(t, err, protocol.ErrTimeout)
}

func TestHostTransportRejectsOversizedPayload(t *testing.T) {
	port, mcu := prototest.Pipe()
	defer mcu.Close()
	tr := protocol.NewHostTransport(port)
	defer tr.Close()

	err := tr.Send(make([]byte, protocol.MessagePayloadMax+1), time.Second)
	assert.ErrorIs(t, err, protocol.ErrFrameTooLong)
	assert.Empty(t, mcu.Received())
}

func TestHostTransportClose(t *testing.T) {
	port, mcu := prototest.Pipe()
	defer mcu.Close()
	tr := protocol.NewHostTransport(port)

	require.NoError(t, tr.Close())
	assert.NoError(t, tr.Close())
	_, err := tr.Receive(time.Second)
	assert.ErrorIs(t, err, protocol.ErrClosed)
}
