// Package prototest provides an in-memory MCU that speaks the framing in
// package protocol, for tests of host-side code.
package prototest

import (
	"io"
	"net"
	"sync"

	"regbus/protocol"
)

// Handler answers one command. args holds the encoded arguments after the
// command id. Each returned payload is sent as its own response frame.
type Handler func(args []byte) [][]byte

// MCU acknowledges every valid frame and dispatches commands by id.
type MCU struct {
	conn net.Conn

	mu       sync.Mutex
	handlers map[uint32]Handler
	received [][]byte
	silent   bool

	done chan struct{}
}

// Pipe returns the host end of a link and the MCU serving the other end.
func Pipe() (io.ReadWriteCloser, *MCU) {
	host, dev := net.Pipe()
	m := &MCU{
		conn:     dev,
		handlers: make(map[uint32]Handler),
		done:     make(chan struct{}),
	}
	go m.serve()
	return host, m
}

// Handle registers h for command id.
func (m *MCU) Handle(id uint32, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[id] = h
}

// Silence stops acknowledgements when on is true.
func (m *MCU) Silence(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.silent = on
}

// Received returns copies of every command payload seen so far.
func (m *MCU) Received() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.received))
	copy(out, m.received)
	return out
}

// Close shuts the MCU end of the link.
func (m *MCU) Close() error {
	err := m.conn.Close()
	<-m.done
	return err
}

func (m *MCU) serve() {
	defer close(m.done)
	s := protocol.NewScanner()
	buf := make([]byte, 256)
	for {
		n, err := m.conn.Read(buf)
		if err != nil {
			return
		}
		s.Write(buf[:n])
		for {
			msg, ok := s.Next()
			if !ok {
				break
			}
			if !m.handle(msg) {
				return
			}
		}
	}
}

func (m *MCU) handle(msg protocol.Message) bool {
	m.mu.Lock()
	silent := m.silent
	m.received = append(m.received, msg.Payload)
	payload := msg.Payload
	id, err := protocol.DecodeVLQUint(&payload)
	h := m.handlers[id]
	m.mu.Unlock()

	if silent {
		return true
	}
	next := protocol.NextSequence(msg.Sequence)
	if !m.write(next, nil) {
		return false
	}
	if err != nil || h == nil {
		return true
	}
	for _, resp := range h(payload) {
		if !m.write(next, resp) {
			return false
		}
	}
	return true
}

func (m *MCU) write(seq uint8, payload []byte) bool {
	frame, err := protocol.AppendFrame(nil, seq, payload)
	if err != nil {
		return true
	}
	_, err = m.conn.Write(frame)
	return err == nil
}

// Dictionary returns a handler for the identify command that serves data in
// chunks as identify_response (id 0) frames.
func Dictionary(data []byte) Handler {
	return func(args []byte) [][]byte {
		offset, err := protocol.DecodeVLQUint(&args)
		if err != nil {
			return nil
		}
		count, err := protocol.DecodeVLQUint(&args)
		if err != nil {
			return nil
		}
		var chunk []byte
		if int(offset) < len(data) {
			end := min(int(offset)+int(count), len(data))
			chunk = data[offset:end]
		}
		resp := protocol.AppendVLQUint(nil, 0)
		resp = protocol.AppendVLQUint(resp, offset)
		resp = protocol.AppendVLQBytes(resp, chunk)
		return [][]byte{resp}
	}
}
