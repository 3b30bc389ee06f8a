// Package mcu manages a host session with a Klipper protocol MCU: opening
// the link, fetching the command dictionary and exchanging commands by name.
package mcu

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"regbus/host/serial"
	"regbus/protocol"
)

// Identify is fixed by the protocol so a host can bootstrap the dictionary.
const (
	identifyCommand  = 1
	identifyResponse = 0
	identifyChunk    = 40
)

// DefaultTimeout bounds acks and responses unless WithTimeout says otherwise.
const DefaultTimeout = time.Second

var (
	ErrNoDictionary   = errors.New("dictionary not loaded")
	ErrUnknownCommand = errors.New("unknown command")
	ErrUnknownReply   = errors.New("unknown response")
)

// MCU is one session. Query and Send may be called from several goroutines;
// each exchange holds the session for its duration.
type MCU struct {
	transport *protocol.HostTransport
	log       *zap.SugaredLogger
	timeout   time.Duration

	mu   sync.Mutex
	dict *Dictionary
	raw  []byte
}

// Option configures an MCU.
type Option func(*MCU)

// WithLogger sets the session logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(m *MCU) { m.log = l }
}

// WithTimeout sets the default ack and response timeout.
func WithTimeout(d time.Duration) Option {
	return func(m *MCU) { m.timeout = d }
}

// New starts a session over an open port. The session owns port.
func New(port io.ReadWriteCloser, opts ...Option) *MCU {
	m := &MCU{
		transport: protocol.NewHostTransport(port),
		log:       zap.NewNop().Sugar(),
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Connect opens the serial device in cfg and starts a session on it.
func Connect(cfg serial.Config, opts ...Option) (*MCU, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, fmt.Errorf("flush %s: %w", cfg.Device, err)
	}
	return New(port, opts...), nil
}

// Close ends the session and closes the port.
func (m *MCU) Close() error {
	return m.transport.Close()
}

// RetrieveDictionary fetches and parses the MCU's dictionary.
func (m *MCU) RetrieveDictionary() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var buf bytes.Buffer
	for offset := uint32(0); ; {
		chunk, err := m.identify(offset)
		if err != nil {
			return fmt.Errorf("dictionary chunk at %d: %w", offset, err)
		}
		buf.Write(chunk)
		offset += uint32(len(chunk))
		m.log.Debugw("dictionary chunk", "offset", offset, "bytes", len(chunk))
		if len(chunk) < identifyChunk {
			break
		}
	}

	dict, err := ParseDictionary(buf.Bytes())
	if err != nil {
		return err
	}
	m.raw = buf.Bytes()
	m.dict = dict
	m.log.Infow("dictionary loaded",
		"bytes", len(m.raw),
		"version", dict.Version,
		"commands", len(dict.Commands),
		"responses", len(dict.Responses))
	return nil
}

func (m *MCU) identify(offset uint32) ([]byte, error) {
	m.transport.Drain()
	payload := protocol.Join(
		protocol.Uint(identifyCommand),
		protocol.Uint(offset),
		protocol.Uint(identifyChunk),
	)(nil)
	if err := m.transport.Send(payload, m.timeout); err != nil {
		return nil, err
	}
	args, err := m.await(identifyResponse, m.timeout)
	if err != nil {
		return nil, err
	}
	got, err := protocol.DecodeVLQUint(&args)
	if err != nil {
		return nil, err
	}
	if got != offset {
		return nil, fmt.Errorf("identify offset mismatch: asked %d, got %d", offset, got)
	}
	return protocol.DecodeVLQBytes(&args)
}

// await returns the arguments of the next response with the given id,
// skipping any other traffic.
func (m *MCU) await(id uint32, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		left := time.Until(deadline)
		if left <= 0 {
			return nil, fmt.Errorf("response %d: %w", id, protocol.ErrTimeout)
		}
		msg, err := m.transport.Receive(left)
		if err != nil {
			return nil, err
		}
		args := msg.Payload
		got, err := protocol.DecodeVLQUint(&args)
		if err != nil {
			m.log.Debugw("undecodable response", "payload", msg.Payload)
			continue
		}
		if got == id {
			return args, nil
		}
		m.log.Debugw("skipping response", "id", got, "want", id)
	}
}

// Dictionary returns the parsed dictionary, or nil before RetrieveDictionary.
func (m *MCU) Dictionary() *Dictionary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dict
}

// RawDictionary returns the dictionary bytes as received.
func (m *MCU) RawDictionary() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.raw
}

func (m *MCU) encode(name string, args protocol.Args) ([]byte, error) {
	if m.dict == nil {
		return nil, ErrNoDictionary
	}
	id, ok := m.dict.CommandID(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return protocol.Join(protocol.Uint(id), args)(nil), nil
}

// Send issues a command and waits for its acknowledgement.
func (m *MCU) Send(name string, args protocol.Args) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload, err := m.encode(name, args)
	if err != nil {
		return err
	}
	if err := m.transport.Send(payload, m.timeout); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Query issues a command and returns the encoded arguments of the first
// matching response, after its id.
func (m *MCU) Query(name string, args protocol.Args, response string, timeout time.Duration) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload, err := m.encode(name, args)
	if err != nil {
		return nil, err
	}
	id, ok := m.dict.ResponseID(response)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownReply, response)
	}
	if timeout <= 0 {
		timeout = m.timeout
	}
	m.transport.Drain()
	if err := m.transport.Send(payload, timeout); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	reply, err := m.await(id, timeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", response, err)
	}
	return reply, nil
}
