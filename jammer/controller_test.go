// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package jammer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tve/rzjammer/at86rf230"
)

func TestControllerTransitions(t *testing.T) {
	f := newFakeRadio()
	f.Reset()
	var delays []time.Duration
	c := NewController(f, func(d time.Duration) { delays = append(delays, d) })

	steps := map[string]struct {
		op   func() error
		want at86rf230.State
	}{
		"rx on":  {c.EnterReceiveReady, at86rf230.RX_ON},
		"pll on": {c.EnterTransmitReady, at86rf230.PLL_ON},
	}
	for name, s := range steps {
		if err := c.ForceOff(); err != nil {
			t.Fatalf("%s: force off: %s", name, err)
		}
		if err := s.op(); err != nil {
			t.Fatalf("%s: %s", name, err)
		}
		if st := c.Status(); st != s.want {
			t.Errorf("%s: expected %s, got %s", name, s.want, st)
		}
		// Both need TRX_OFF to start from.
		if err := s.op(); !errors.Is(err, ErrVerify) {
			t.Errorf("%s: expected ErrVerify when not off, got %v", name, err)
		}
	}
	for _, d := range delays {
		if d != at86rf230.TIME_P_ON_TO_TRX_OFF && d != at86rf230.TIME_TRX_OFF_TO_PLL_ACTIVE {
			t.Errorf("unexpected settle delay %s", d)
		}
	}
}

func TestControllerAbortTx(t *testing.T) {
	f := newFakeRadio()
	f.Reset()
	var delay time.Duration
	c := NewController(f, func(d time.Duration) { delay = d })
	if err := c.EnterTransmitReady(); err != nil {
		t.Fatal(err)
	}
	f.PulseSLPTR()
	if err := c.AbortTx(); err != nil {
		t.Fatal(err)
	}
	if delay != at86rf230.TIME_CMD_FORCE_TRX_OFF {
		t.Errorf("expected %s settle, got %s", at86rf230.TIME_CMD_FORCE_TRX_OFF, delay)
	}
}

func TestControllerVerify(t *testing.T) {
	f := newFakeRadio() // still in P_ON, FORCE_TRX_OFF is ignored
	c := NewController(f, noDelay)
	err := c.ForceOff()
	if !errors.Is(err, ErrVerify) {
		t.Fatalf("expected ErrVerify, got %v", err)
	}
	if err.Error() != "jammer: transceiver verification failed: force off: got P_ON, want TRX_OFF" {
		t.Errorf("unexpected message: %s", err)
	}
}

func TestControllerSetChannel(t *testing.T) {
	f := newFakeRadio()
	f.Reset()
	c := NewController(f, noDelay)
	if err := c.SetChannel(22); err != nil {
		t.Fatal(err)
	}
	if c.Channel() != 22 {
		t.Errorf("expected channel 22, got %d", c.Channel())
	}
	// The other bits of the register are preserved.
	if r := f.ReadRegister(at86rf230.RG_PHY_CC_CCA); r&0xE0 != 0x20 {
		t.Errorf("PHY_CC_CCA clobbered: %#02x", r)
	}
}

func TestWaitForState(t *testing.T) {
	f := newFakeRadio()
	f.Reset()
	c := NewController(f, noDelay)
	ctx := context.Background()

	if err := c.WaitForState(ctx, at86rf230.TRX_OFF, 0, time.Microsecond); err != nil {
		t.Errorf("state already reached: %s", err)
	}
	if err := c.WaitForState(ctx, at86rf230.BUSY_RX, 2*time.Millisecond, time.Microsecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}

	polls := 0
	c = NewController(f, func(time.Duration) {
		polls++
		if polls == 3 {
			f.WriteSubregister(at86rf230.SR_TRX_CMD, at86rf230.CMD_RX_ON)
		}
	})
	if err := c.WaitForState(ctx, at86rf230.RX_ON, time.Second, time.Microsecond); err != nil {
		t.Fatal(err)
	}
	if polls != 3 {
		t.Errorf("expected 3 polls, got %d", polls)
	}
}
