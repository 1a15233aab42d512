// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package jammer

import (
	"testing"

	"github.com/tve/rzjammer/at86rf230"
)

func TestDispatch(t *testing.T) {
	var starts, ends int
	d := NewDispatcher(func(byte) { starts++ }, func(byte) { ends++ })

	tests := []struct {
		phase   Phase
		mask    byte
		starts  int
		ends    int
		unknown uint32
	}{
		{PhaseNone, at86rf230.IRQ_RX_START, 0, 0, 1},
		{PhaseNone, at86rf230.IRQ_TRX_END, 0, 0, 2},
		{PhaseListen, at86rf230.IRQ_RX_START, 1, 0, 2},
		{PhaseListen, at86rf230.IRQ_RX_START | at86rf230.IRQ_TRX_END, 2, 0, 2},
		{PhaseListen, at86rf230.IRQ_TRX_END, 2, 0, 2},
		{PhaseListen, 0x40, 2, 0, 3},
		{PhaseTransmit, at86rf230.IRQ_TRX_END, 2, 1, 3},
		{PhaseTransmit, at86rf230.IRQ_RX_START, 2, 1, 3},
		{PhaseTransmit, 0x01, 2, 1, 4},
	}
	for i, tt := range tests {
		d.Register(tt.phase)
		d.Dispatch(tt.mask)
		if starts != tt.starts || ends != tt.ends || d.Unknown() != tt.unknown {
			t.Errorf("case %d: got starts=%d ends=%d unknown=%d, want %d %d %d",
				i, starts, ends, d.Unknown(), tt.starts, tt.ends, tt.unknown)
		}
		if d.Phase() != tt.phase {
			t.Errorf("case %d: dispatch changed the phase to %s", i, d.Phase())
		}
	}

	d.Clear()
	if d.Phase() != PhaseNone {
		t.Errorf("expected no phase after Clear, got %s", d.Phase())
	}
	d.ResetUnknown()
	if d.Unknown() != 0 {
		t.Errorf("unknown counter not reset")
	}
}

func TestPhaseString(t *testing.T) {
	tests := map[Phase]string{
		PhaseNone:     "none",
		PhaseListen:   "listen",
		PhaseTransmit: "transmit",
		Phase(9):      "Phase(9)",
	}
	for p, want := range tests {
		if p.String() != want {
			t.Errorf("expected %q, got %q", want, p.String())
		}
	}
}
