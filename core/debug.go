package core

import "sync/atomic"

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// Reason says why a bus or allocator operation was turned into a zero/no-op result
type Reason uint8

const (
	ReasonNone          Reason = iota
	ReasonUninitialized        // device handles missing or device closed
	ReasonValueless            // endpoint holds no device
	ReasonCapacity             // named field does not fit in the memory
	ReasonUnknownField         // named read of a field never declared
	ReasonSizeMismatch         // named read with a type of a different width
	ReasonTransport            // the transport returned an error

	reasonCount
)

var reasonNames = [reasonCount]string{
	ReasonNone:          "none",
	ReasonUninitialized: "uninitialized",
	ReasonValueless:     "valueless",
	ReasonCapacity:      "capacity",
	ReasonUnknownField:  "unknown_field",
	ReasonSizeMismatch:  "size_mismatch",
	ReasonTransport:     "transport",
}

func (r Reason) String() string {
	if r < reasonCount {
		return reasonNames[r]
	}
	return "reason(" + utoa(uint32(r)) + ")"
}

// Event describes one suppressed failure. The caller still receives the
// zero result; the event only makes the suppression observable.
type Event struct {
	Reason Reason
	Op     string // operation name, e.g. "read_bytes"
	Addr   uint8  // register or memory address when meaningful
	Err    error  // transport error for ReasonTransport
}

// Hook observes suppressed failures. It runs synchronously on the caller's
// goroutine and must not call back into the device.
type Hook func(Event)

func (h Hook) emit(ev Event) {
	if h != nil {
		h(ev)
	}
}

// Chain returns a hook calling each non-nil hook in order.
func Chain(hooks ...Hook) Hook {
	return func(ev Event) {
		for _, h := range hooks {
			h.emit(ev)
		}
	}
}

// LogHook formats events onto a DebugWriter without pulling in fmt.
func LogHook(w DebugWriter) Hook {
	return func(ev Event) {
		if w == nil {
			return
		}
		msg := "[REGBUS] " + ev.Op + " suppressed: " + ev.Reason.String() +
			" addr=" + utoa(uint32(ev.Addr))
		if ev.Err != nil {
			msg += " err=" + ev.Err.Error()
		}
		w(msg)
	}
}

// RecentEventsSize is how many events a Counter keeps for post-mortem dumps
const RecentEventsSize = 16

// Counter tallies suppressed failures per reason and keeps the most recent
// events in a ring. Counts are atomic; the ring is best effort and meant to be
// read after the fact.
type Counter struct {
	counts [reasonCount]atomic.Uint32

	ring     [RecentEventsSize]Event
	ringHead uint8
}

// Hook returns the counter's recording function.
func (c *Counter) Hook() Hook {
	return c.Record
}

// Record counts ev and stores it in the ring.
func (c *Counter) Record(ev Event) {
	if ev.Reason >= reasonCount {
		return
	}
	c.counts[ev.Reason].Add(1)
	c.ring[c.ringHead] = ev
	c.ringHead = (c.ringHead + 1) % RecentEventsSize
}

// Count returns how many events with reason r were recorded.
func (c *Counter) Count(r Reason) uint32 {
	if r >= reasonCount {
		return 0
	}
	return c.counts[r].Load()
}

// Total returns the number of recorded events of any reason.
func (c *Counter) Total() uint32 {
	var n uint32
	for i := range c.counts {
		n += c.counts[i].Load()
	}
	return n
}

// Recent returns the stored events from oldest to newest.
func (c *Counter) Recent() []Event {
	out := make([]Event, 0, RecentEventsSize)
	start := c.ringHead
	for i := uint8(0); i < RecentEventsSize; i++ {
		ev := c.ring[(start+i)%RecentEventsSize]
		if ev.Reason == ReasonNone {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Dump writes the counters and the recent events to w.
func (c *Counter) Dump(w DebugWriter) {
	if w == nil {
		return
	}
	w("[REGBUS] === Suppressed operations ===")
	for r := ReasonUninitialized; r < reasonCount; r++ {
		if n := c.Count(r); n > 0 {
			w("[REGBUS] " + r.String() + "=" + utoa(n))
		}
	}
	log := LogHook(w)
	for _, ev := range c.Recent() {
		log(ev)
	}
	w("[REGBUS] === End ===")
}

// Reset clears all counts and the ring.
func (c *Counter) Reset() {
	for i := range c.counts {
		c.counts[i].Store(0)
	}
	c.ring = [RecentEventsSize]Event{}
	c.ringHead = 0
}
