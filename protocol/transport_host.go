package protocol

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// HostTransport drives the host end of a link: it frames commands, waits for
// the MCU to acknowledge them and queues response frames for the caller.
type HostTransport struct {
	port io.ReadWriteCloser

	// writeMu serializes Send so each frame is acknowledged before the next.
	writeMu sync.Mutex
	seq     uint8
	frame   []byte

	scanner *Scanner
	acks    chan Message
	resp    chan Message

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewHostTransport starts reading from port in the background.
func NewHostTransport(port io.ReadWriteCloser) *HostTransport {
	t := &HostTransport{
		port:    port,
		seq:     MessageDest,
		frame:   make([]byte, 0, MessageLengthMax),
		scanner: NewScanner(),
		acks:    make(chan Message, 1),
		resp:    make(chan Message, 16),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// Send frames payload and blocks until the MCU acknowledges it.
func (t *HostTransport) Send(payload []byte, timeout time.Duration) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	frame, err := AppendFrame(t.frame[:0], t.seq, payload)
	if err != nil {
		return err
	}
	t.frame = frame

	t.drainAcks()
	if _, err := t.port.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	want := NextSequence(t.seq)
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case ack := <-t.acks:
		if ack.Sequence != want {
			return fmt.Errorf("%w: expected 0x%02x, got 0x%02x", ErrSequence, want, ack.Sequence)
		}
		t.seq = want
		return nil
	case <-timer.C:
		return fmt.Errorf("ack: %w after %v", ErrTimeout, timeout)
	case <-t.stop:
		return ErrClosed
	}
}

// Receive returns the next response frame.
func (t *HostTransport) Receive(timeout time.Duration) (Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case m := <-t.resp:
		return m, nil
	case <-timer.C:
		return Message{}, fmt.Errorf("response: %w after %v", ErrTimeout, timeout)
	case <-t.stop:
		return Message{}, ErrClosed
	}
}

// Drain discards queued responses.
func (t *HostTransport) Drain() {
	for {
		select {
		case <-t.resp:
		default:
			return
		}
	}
}

func (t *HostTransport) drainAcks() {
	select {
	case <-t.acks:
	default:
	}
}

// Sequence returns the sequence number the next frame will carry.
func (t *HostTransport) Sequence() uint8 {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.seq
}

func (t *HostTransport) readLoop() {
	defer close(t.done)
	buf := make([]byte, 256)
	for {
		n, err := t.port.Read(buf)
		if n > 0 {
			t.scanner.Write(buf[:n])
			for {
				msg, ok := t.scanner.Next()
				if !ok {
					break
				}
				t.dispatch(msg)
			}
		}
		select {
		case <-t.stop:
			return
		default:
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (t *HostTransport) dispatch(msg Message) {
	if msg.IsAck() {
		select {
		case t.acks <- msg:
		default:
		}
		return
	}
	select {
	case t.resp <- msg:
		return
	default:
	}
	// full: drop the oldest response
	select {
	case <-t.resp:
	default:
	}
	select {
	case t.resp <- msg:
	default:
	}
}

// Close stops the reader and closes the port. It is safe to call twice.
func (t *HostTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.stop)
		t.closeErr = t.port.Close()
		<-t.done
	})
	return t.closeErr
}
