// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package jammer

import (
	"sync"
	"testing"
	"time"

	"github.com/tve/rzjammer/at86rf230"
)

// fakeRadio simulates the parts of an AT86RF230 the jammer uses: the TRX state machine driven
// by TRX_CMD and SLP_TR, the channel register, the frame buffer, and the interrupt line.
type fakeRadio struct {
	mu       sync.Mutex
	regs     [0x40]byte
	ignore   map[at86rf230.State]bool // target states the chip refuses to enter
	stuck    bool                     // the chip ignores everything, incl. reset
	noChan   bool                     // channel writes don't stick
	frame    []byte                   // frame being received, PHR first
	sent     [][]byte                 // frames written to the frame buffer
	writes   int                      // register writes
	resets   int
	sleeps   int
	pulses   int
	handler  func(byte)
	watching bool
}

func newFakeRadio() *fakeRadio {
	f := &fakeRadio{ignore: map[at86rf230.State]bool{}}
	f.regs[at86rf230.RG_TRX_STATUS] = byte(at86rf230.P_ON)
	f.regs[at86rf230.RG_PHY_CC_CCA] = 0x2B // reset value, channel 11
	return f
}

func (f *fakeRadio) status() at86rf230.State {
	return at86rf230.State(f.regs[at86rf230.RG_TRX_STATUS] & 0x1F)
}

func (f *fakeRadio) enter(s at86rf230.State) {
	if f.stuck || f.ignore[s] {
		return
	}
	f.regs[at86rf230.RG_TRX_STATUS] = byte(s)
}

func (f *fakeRadio) command(cmd byte) {
	st := f.status()
	switch cmd {
	case at86rf230.CMD_FORCE_TRX_OFF:
		if st != at86rf230.SLEEP && st != at86rf230.P_ON {
			f.enter(at86rf230.TRX_OFF)
		}
	case at86rf230.CMD_RX_ON:
		if st == at86rf230.TRX_OFF || st == at86rf230.PLL_ON {
			f.enter(at86rf230.RX_ON)
		}
	case at86rf230.CMD_PLL_ON:
		if st == at86rf230.TRX_OFF || st == at86rf230.RX_ON {
			f.enter(at86rf230.PLL_ON)
		}
	}
}

func (f *fakeRadio) ReadRegister(addr byte) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[addr&0x3F]
}

func (f *fakeRadio) WriteRegister(addr, value byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	switch addr {
	case at86rf230.RG_TRX_STATUS:
		// read-only
	case at86rf230.RG_TRX_STATE:
		f.regs[addr] = value
		f.command(value & 0x1F)
	case at86rf230.RG_PHY_CC_CCA:
		if !f.noChan {
			f.regs[addr] = value
		}
	default:
		f.regs[addr&0x3F] = value
	}
}

func (f *fakeRadio) ReadSubregister(sr at86rf230.Subregister) byte {
	return sr.Extract(f.ReadRegister(sr.Addr))
}

func (f *fakeRadio) WriteSubregister(sr at86rf230.Subregister, value byte) {
	f.WriteRegister(sr.Addr, sr.Merge(f.ReadRegister(sr.Addr), value))
}

func (f *fakeRadio) ReadFrame(n int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]byte, n+1)
	copy(out, f.frame)
	return out
}

func (f *fakeRadio) WriteFrame(psdu []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, append([]byte(nil), psdu...))
}

func (f *fakeRadio) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.enter(at86rf230.TRX_OFF)
}

func (f *fakeRadio) PulseSLPTR() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulses++
	if f.status() == at86rf230.PLL_ON {
		f.enter(at86rf230.BUSY_TX)
	}
}

func (f *fakeRadio) Sleep() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sleeps++
	f.enter(at86rf230.SLEEP)
}

func (f *fakeRadio) Watch(handler func(byte)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = handler
	f.watching = true
	return nil
}

func (f *fakeRadio) Unwatch() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handler = nil
	f.watching = false
}

// fire delivers an interrupt the way the interrupt goroutine does.
func (f *fakeRadio) fire(mask byte) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	if h != nil {
		h(mask)
	}
}

// receive simulates the start of an inbound frame while in RX_ON, without the interrupt.
func (f *fakeRadio) receive(frame []byte, rssi byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = append([]byte(nil), frame...)
	f.regs[at86rf230.RG_PHY_RSSI] = rssi
	if f.status() == at86rf230.RX_ON {
		f.enter(at86rf230.BUSY_RX)
	}
}

// txEnd simulates the end of the jamming transmission including the interrupt.
func (f *fakeRadio) txEnd() {
	f.mu.Lock()
	if f.status() == at86rf230.BUSY_TX {
		f.enter(at86rf230.PLL_ON)
	}
	f.mu.Unlock()
	f.fire(at86rf230.IRQ_TRX_END)
}

// finishTx ends the transmission without raising the interrupt, as with a broken IRQ line.
func (f *fakeRadio) finishTx() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status() == at86rf230.BUSY_TX {
		f.enter(at86rf230.PLL_ON)
	}
}

func (f *fakeRadio) get(fn func(f *fakeRadio) int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f)
}

func (f *fakeRadio) hwStatus() at86rf230.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status()
}

// testFrame is the start of an 802.15.4 data frame: PHR, FCF, sequence number, PAN id...
var testFrame = []byte{20, 0x41, 0x88, 0x07, 0x34, 0x12, 0xff, 0xff, 0x01, 0x00}

func noDelay(time.Duration) {}

func newTestJammer(t *testing.T, opts Options) (*Jammer, *fakeRadio) {
	f := newFakeRadio()
	opts.Delay = noDelay
	opts.Logger = t.Logf
	return New(f, opts), f
}

// initJammer returns an initialized jammer.
func initJammer(t *testing.T, opts Options) (*Jammer, *fakeRadio) {
	j, f := newTestJammer(t, opts)
	if err := j.Initialize(); err != nil {
		t.Fatalf("Initialize: %s", err)
	}
	return j, f
}

// waitFor polls cond for up to a second.
func waitFor(t *testing.T, what string, cond func() bool) {
	for start := time.Now(); time.Since(start) < time.Second; time.Sleep(time.Millisecond) {
		if cond() {
			return
		}
	}
	t.Fatalf("timeout waiting for %s", what)
}
