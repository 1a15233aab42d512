// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package jammer

import (
	"fmt"
	"sync/atomic"

	"github.com/tve/rzjammer/at86rf230"
)

// Phase selects which handler receives transceiver interrupts.
type Phase uint8

const (
	PhaseNone     Phase = iota // no handler, all interrupts are unknown
	PhaseListen                // frame start goes to the listen handler
	PhaseTransmit              // transmission end goes to the transmit handler
)

func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseListen:
		return "listen"
	case PhaseTransmit:
		return "transmit"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// Dispatcher routes interrupt event masks to the handler of the active phase. There is
// exactly one active phase, registering a phase replaces the previous one.
//
// The dispatcher does no locking of its own: Register, Clear and Dispatch must be
// serialized by the owner. Unknown may be called at any time.
type Dispatcher struct {
	phase      Phase
	frameStart func(mask byte)
	txEnd      func(mask byte)
	unknown    atomic.Uint32
}

// NewDispatcher returns a dispatcher in PhaseNone with the handlers for the listen and
// transmit phases.
func NewDispatcher(frameStart, txEnd func(mask byte)) *Dispatcher {
	return &Dispatcher{frameStart: frameStart, txEnd: txEnd}
}

// Register makes p the active phase.
func (d *Dispatcher) Register(p Phase) { d.phase = p }

// Clear removes the active handler.
func (d *Dispatcher) Clear() { d.phase = PhaseNone }

// Phase returns the active phase.
func (d *Dispatcher) Phase() Phase { return d.phase }

// Dispatch invokes the active handler if the mask carries the event it handles. Events
// arriving with no active phase, and masks carrying neither a frame start nor a transmission
// end, are counted as unknown. A recognized event that belongs to the other phase is ignored.
// The handler runs to completion on the caller's goroutine.
func (d *Dispatcher) Dispatch(mask byte) {
	switch {
	case d.phase == PhaseNone || mask&(at86rf230.IRQ_RX_START|at86rf230.IRQ_TRX_END) == 0:
		d.unknown.Add(1)
	case d.phase == PhaseListen && mask&at86rf230.IRQ_RX_START != 0:
		d.frameStart(mask)
	case d.phase == PhaseTransmit && mask&at86rf230.IRQ_TRX_END != 0:
		d.txEnd(mask)
	}
}

// Unknown returns the number of events counted as unknown.
func (d *Dispatcher) Unknown() uint32 { return d.unknown.Load() }

// ResetUnknown zeroes the unknown event counter.
func (d *Dispatcher) ResetUnknown() { d.unknown.Store(0) }
