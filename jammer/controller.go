// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package jammer

import (
	"context"
	"fmt"
	"time"

	"github.com/tve/rzjammer/at86rf230"
)

// Controller moves the transceiver between its operating states. Every transition is
// a command write, a fixed settle delay, and a read-back of TRX_STATUS. Nothing is retried,
// a failed read-back is reported and the caller decides what to do next.
type Controller struct {
	bus   at86rf230.Bus
	delay at86rf230.DelayFunc
}

// NewController returns a Controller for the bus using delay for the settle times, nil
// selects at86rf230.BusyWait.
func NewController(bus at86rf230.Bus, delay at86rf230.DelayFunc) *Controller {
	if delay == nil {
		delay = at86rf230.BusyWait
	}
	return &Controller{bus: bus, delay: delay}
}

// Status reads the transceiver's current state.
func (c *Controller) Status() at86rf230.State {
	return at86rf230.State(c.bus.ReadSubregister(at86rf230.SR_TRX_STATUS))
}

// transition writes cmd, waits settle and verifies that the transceiver reached want.
func (c *Controller) transition(op string, cmd byte, settle time.Duration, want at86rf230.State) error {
	c.bus.WriteSubregister(at86rf230.SR_TRX_CMD, cmd)
	c.delay(settle)
	if got := c.Status(); got != want {
		return fmt.Errorf("%w: %s: got %s, want %s", ErrVerify, op, got, want)
	}
	return nil
}

// requireOff checks the precondition of transitions that start from TRX_OFF.
func (c *Controller) requireOff(op string) error {
	if got := c.Status(); got != at86rf230.TRX_OFF {
		return fmt.Errorf("%w: %s: transceiver in %s, not TRX_OFF", ErrVerify, op, got)
	}
	return nil
}

// ForceOff forces the transceiver into TRX_OFF, aborting any ongoing reception or
// transmission.
func (c *Controller) ForceOff() error {
	return c.transition("force off", at86rf230.CMD_FORCE_TRX_OFF,
		at86rf230.TIME_P_ON_TO_TRX_OFF, at86rf230.TRX_OFF)
}

// AbortTx is ForceOff with the short settle time that applies when the transceiver is
// known to be in PLL_ON or BUSY_TX. It is meant for the interrupt path.
func (c *Controller) AbortTx() error {
	return c.transition("abort tx", at86rf230.CMD_FORCE_TRX_OFF,
		at86rf230.TIME_CMD_FORCE_TRX_OFF, at86rf230.TRX_OFF)
}

// EnterReceiveReady moves the transceiver from TRX_OFF to RX_ON.
func (c *Controller) EnterReceiveReady() error {
	if err := c.requireOff("rx on"); err != nil {
		return err
	}
	return c.transition("rx on", at86rf230.CMD_RX_ON,
		at86rf230.TIME_TRX_OFF_TO_PLL_ACTIVE, at86rf230.RX_ON)
}

// EnterTransmitReady moves the transceiver from TRX_OFF to PLL_ON, from where a pulse on
// SLP_TR starts a transmission.
func (c *Controller) EnterTransmitReady() error {
	if err := c.requireOff("pll on"); err != nil {
		return err
	}
	return c.transition("pll on", at86rf230.CMD_PLL_ON,
		at86rf230.TIME_TRX_OFF_TO_PLL_ACTIVE, at86rf230.PLL_ON)
}

// SetChannel forces the transceiver off and programs the channel, verifying it by
// read-back. The channel range is not checked here.
func (c *Controller) SetChannel(ch byte) error {
	// Could be that we were sleeping before we got here.
	c.delay(at86rf230.TIME_SLEEP_TO_TRX_OFF)
	if err := c.ForceOff(); err != nil {
		return err
	}
	c.bus.WriteSubregister(at86rf230.SR_CHANNEL, ch)
	if got := c.bus.ReadSubregister(at86rf230.SR_CHANNEL); got != ch {
		return fmt.Errorf("%w: set channel: got %d, want %d", ErrVerify, got, ch)
	}
	return nil
}

// Channel reads the channel currently programmed.
func (c *Controller) Channel() byte {
	return c.bus.ReadSubregister(at86rf230.SR_CHANNEL)
}

// WaitForState polls the transceiver every interval until it reports want. It gives up
// with ErrTimeout after timeout, or with the context's error if ctx is done first.
func (c *Controller) WaitForState(ctx context.Context, want at86rf230.State,
	timeout, interval time.Duration,
) error {
	deadline := time.Now().Add(timeout)
	for {
		if c.Status() == want {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w waiting for %s after %s", ErrTimeout, want, timeout)
		}
		c.delay(interval)
	}
}
