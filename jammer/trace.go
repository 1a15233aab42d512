// Copyright by Thorsten von Eicken 2016, see LICENSE file

// This file implements a trace buffer into which the steps of the listen/jam cycle are pushed
// with a timestamp so the reaction latency can be looked at after the fact.

package jammer

import (
	"fmt"
	"io"
	"sync"
	"time"
)

type traceEvent struct {
	at  time.Time
	txt string
}

// Trace is a bounded ring of timestamped events. Once full the oldest events are
// overwritten. A nil or zero-sized Trace records nothing.
type Trace struct {
	mu   sync.Mutex
	buf  []traceEvent
	next int  // slot for the next event
	full bool // buf has wrapped around
}

func newTrace(size int) *Trace {
	if size <= 0 {
		return nil
	}
	return &Trace{buf: make([]traceEvent, size)}
}

func (t *Trace) push(txt string) { t.pushAt(time.Now(), txt) }

func (t *Trace) pushAt(at time.Time, txt string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf[t.next] = traceEvent{at, txt}
	t.next++
	if t.next == len(t.buf) {
		t.next = 0
		t.full = true
	}
}

// events returns the recorded events oldest first.
func (t *Trace) events() []traceEvent {
	if !t.full {
		return append([]traceEvent(nil), t.buf[:t.next]...)
	}
	return append(append([]traceEvent(nil), t.buf[t.next:]...), t.buf[:t.next]...)
}

// Len returns the number of events recorded.
func (t *Trace) Len() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.full {
		return len(t.buf)
	}
	return t.next
}

// Dump prints the events with times relative to the oldest one and empties the trace.
func (t *Trace) Dump(w io.Writer) {
	if t == nil {
		fmt.Fprintf(w, "Tracing is disabled\n")
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	evs := t.events()
	if len(evs) == 0 {
		fmt.Fprintf(w, "No events were recorded\n")
		return
	}
	t0 := evs[0].at
	for _, ev := range evs {
		fmt.Fprintf(w, "%.6fs: %s\n", ev.at.Sub(t0).Seconds(), ev.txt)
	}
	t.next, t.full = 0, false
}
