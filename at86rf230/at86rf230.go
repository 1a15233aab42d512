// Copyright 2016 by Thorsten von Eicken, see LICENSE file

// The AT86RF230 package interfaces with an Atmel AT86RF230 IEEE 802.15.4 transceiver connected
// to an SPI bus, as found on the RZUSBstick and on various 2.4GHz radio modules.
//
// The package is deliberately low level: it exposes the chip's register and frame buffer
// access modes, the SLP_TR and RST control pins, and the IRQ line. It does not implement a
// MAC or a packet interface, the state sequencing is left to the caller (see the jammer
// package). All register and frame accesses are synchronous and blocking.
//
// The chip signals interrupts on a single active-high IRQ pin. Watch starts an interrupt
// goroutine that waits for rising edges, reads IRQ_STATUS (which clears the pending bits and
// drops the IRQ line) and passes the event mask to a handler. The handler runs on the
// interrupt goroutine and must not block for long since further interrupts are not serviced
// until it returns.
//
// SPI transport errors are not returned from every register access: the first error is
// recorded and can be retrieved using Error.
// A device that has recorded an error should be closed and opened afresh.
package at86rf230

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/tve/rzjammer/thread"
)

// Bus is the register and frame buffer access interface of the transceiver.
type Bus interface {
	ReadRegister(addr byte) byte
	WriteRegister(addr, value byte)
	ReadSubregister(sr Subregister) byte
	WriteSubregister(sr Subregister, value byte)
	// ReadFrame performs a frame buffer read burst of n bytes. The first byte of the result
	// is the PHR (frame length) reported by the chip, followed by n bytes of the frame.
	ReadFrame(n int) []byte
	// WriteFrame loads psdu into the frame buffer, preceded by its length.
	WriteFrame(psdu []byte)
}

// SPI is the part of periph's spi.Conn used by the driver.
type SPI interface {
	Tx(w, r []byte) error
}

// OutPin is an output pin, e.g. a periph gpio.PinIO.
type OutPin interface {
	Out(l gpio.Level) error
}

// IntrPin is an edge-triggered input pin, e.g. a periph gpio.PinIO.
type IntrPin interface {
	In(pull gpio.Pull, edge gpio.Edge) error
	Read() gpio.Level
	WaitForEdge(timeout time.Duration) bool
}

// Pins groups the control pins of the transceiver.
type Pins struct {
	SlpTr OutPin  // SLP_TR: sleep control and TX start
	Rst   OutPin  // RST: active-low reset
	Irq   IntrPin // IRQ: interrupt request, active high
}

// LogPrintf is a function used by the driver to print logging info.
type LogPrintf func(format string, v ...interface{})

// DelayFunc blocks for the duration given.
type DelayFunc func(d time.Duration)

// BusyWait spins until d has elapsed. The settle times of the transceiver are in the
// microsecond range where time.Sleep is far too coarse.
func BusyWait(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}

// Opts contains options used when initializing a Device.
type Opts struct {
	Delay    DelayFunc // settle delay primitive, defaults to BusyWait
	Realtime bool      // run the interrupt goroutine at realtime priority
	Logger   LogPrintf // function to use for logging
}

// Device represents an AT86RF230 transceiver.
type Device struct {
	spi      SPI
	slpTr    OutPin
	rst      OutPin
	irq      IntrPin
	delay    DelayFunc
	realtime bool
	log      LogPrintf
	closer   func() error // releases the SPI port, set by Open

	mu      sync.Mutex    // guards SPI transactions and err
	err     error         // first transport error
	watchMu sync.Mutex    // guards stop
	stop    chan struct{} // closed to stop the interrupt goroutine
}

// New returns a Device using the given SPI connection and pins. The SPI connection must be
// configured for mode 0, 8 bits, at most 8MHz. The chip is not touched.
func New(dev SPI, pins Pins, opts Opts) (*Device, error) {
	if dev == nil {
		return nil, errors.New("at86rf230: no SPI connection")
	}
	if pins.SlpTr == nil || pins.Rst == nil {
		return nil, errors.New("at86rf230: SLP_TR and RST pins are required")
	}
	d := &Device{
		spi: dev, slpTr: pins.SlpTr, rst: pins.Rst, irq: pins.Irq,
		delay:    BusyWait,
		realtime: opts.Realtime,
		log:      func(format string, v ...interface{}) {},
	}
	if opts.Delay != nil {
		d.delay = opts.Delay
	}
	if opts.Logger != nil {
		d.log = func(format string, v ...interface{}) {
			opts.Logger("at86rf230: "+format, v...)
		}
	}
	return d, nil
}

// Error returns the first SPI transport error encountered, if any.
func (d *Device) Error() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Delay waits for a settle time using the configured delay primitive.
func (d *Device) Delay(t time.Duration) { d.delay(t) }

// tx performs one SPI transaction, the caller must hold d.mu.
func (d *Device) tx(w, r []byte) {
	if err := d.spi.Tx(w, r); err != nil && d.err == nil {
		d.err = fmt.Errorf("at86rf230: %w", err)
		d.log("SPI error: %s", err)
	}
}

func (d *Device) readReg(addr byte) byte {
	var buf [2]byte
	d.tx([]byte{CMD_REG_READ | addr&0x3F, 0}, buf[:])
	return buf[1]
}

func (d *Device) writeReg(addr, value byte) {
	var buf [2]byte
	d.tx([]byte{CMD_REG_WRITE | addr&0x3F, value}, buf[:])
}

// ReadRegister reads one register and returns its value.
func (d *Device) ReadRegister(addr byte) byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readReg(addr)
}

// WriteRegister writes one register.
func (d *Device) WriteRegister(addr, value byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeReg(addr, value)
}

// ReadSubregister reads a register and extracts the field described by sr.
func (d *Device) ReadSubregister(sr Subregister) byte {
	return sr.Extract(d.ReadRegister(sr.Addr))
}

// WriteSubregister replaces the field described by sr, leaving the other bits of the
// register untouched. The read-modify-write happens without releasing the bus.
func (d *Device) WriteSubregister(sr Subregister, value byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	reg := d.readReg(sr.Addr)
	d.writeReg(sr.Addr, sr.Merge(reg, value))
}

// ReadFrame performs a frame buffer read burst of n bytes and returns the PHR followed by
// the n bytes. The burst can start while the frame is still being received, the caller is
// responsible for not reading beyond what the PHR announces.
func (d *Device) ReadFrame(n int) []byte {
	if n < 0 {
		n = 0
	}
	w := make([]byte, n+2)
	r := make([]byte, n+2)
	w[0] = CMD_FRAME_READ
	d.mu.Lock()
	d.tx(w, r)
	d.mu.Unlock()
	return r[1:]
}

// WriteFrame loads psdu into the frame buffer. Frames longer than MaxFrameSize are truncated.
func (d *Device) WriteFrame(psdu []byte) {
	if len(psdu) > MaxFrameSize {
		d.log("WriteFrame: truncating %d byte frame", len(psdu))
		psdu = psdu[:MaxFrameSize]
	}
	w := make([]byte, len(psdu)+2)
	r := make([]byte, len(psdu)+2)
	w[0] = CMD_FRAME_WRITE
	w[1] = byte(len(psdu))
	copy(w[2:], psdu)
	d.mu.Lock()
	d.tx(w, r)
	d.mu.Unlock()
}

// Reset pulses the RST line with SLP_TR low so the chip comes up in TRX_OFF, and waits for
// the chip to get there.
func (d *Device) Reset() {
	d.delay(TIME_TO_ENTER_P_ON)
	d.slpTr.Out(gpio.Low)
	d.rst.Out(gpio.Low)
	d.delay(TIME_RESET)
	d.rst.Out(gpio.High)
	// Could be that we were sleeping before we got here.
	d.delay(TIME_SLEEP_TO_TRX_OFF)
}

// PulseSLPTR toggles SLP_TR high and back low. In PLL_ON this starts a transmission.
func (d *Device) PulseSLPTR() {
	d.slpTr.Out(gpio.High)
	d.slpTr.Out(gpio.Low)
}

// Sleep forces the transceiver off and puts it to sleep by raising SLP_TR.
func (d *Device) Sleep() {
	d.WriteSubregister(SR_TRX_CMD, CMD_FORCE_TRX_OFF)
	d.delay(TIME_P_ON_TO_TRX_OFF)
	d.slpTr.Out(gpio.High)
}

// Watch enables the interrupt line and starts the interrupt goroutine which calls handler
// with the IRQ_STATUS value for each interrupt. Only one handler can be watching at a time.
func (d *Device) Watch(handler func(irq byte)) error {
	if d.irq == nil {
		return errors.New("at86rf230: no interrupt pin")
	}
	d.watchMu.Lock()
	defer d.watchMu.Unlock()
	if d.stop != nil {
		return errors.New("at86rf230: interrupts are already being watched")
	}
	if err := d.irq.In(gpio.PullNoChange, gpio.RisingEdge); err != nil {
		return fmt.Errorf("at86rf230: error initializing interrupt pin: %w", err)
	}
	// Discard stale interrupts, reading IRQ_STATUS clears them.
	d.ReadRegister(RG_IRQ_STATUS)
	for d.irq.WaitForEdge(0) {
	}
	d.stop = make(chan struct{})
	go d.intrLoop(handler, d.stop)
	return nil
}

// Unwatch stops the interrupt goroutine: once Unwatch returns the goroutine no longer reads
// IRQ_STATUS nor calls the handler, except for a handler call that is already in progress,
// which Unwatch does not wait for. An interrupt that was pending is left in IRQ_STATUS for
// the next Watch to pick up.
func (d *Device) Unwatch() {
	d.watchMu.Lock()
	defer d.watchMu.Unlock()
	if d.stop == nil {
		return
	}
	close(d.stop)
	d.stop = nil
	if err := d.irq.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		d.log("error disabling interrupt pin: %s", err)
	}
}

// intrLoop is the interrupt goroutine.
func (d *Device) intrLoop(handler func(irq byte), stop <-chan struct{}) {
	if d.realtime {
		if err := thread.Realtime(thread.DefaultPriority); err != nil {
			d.log("cannot switch interrupt goroutine to realtime: %s", err)
		}
	}
	intrCnt := 0
	stopped := func() bool {
		select {
		case <-stop:
			d.log("interrupt goroutine exiting after %d interrupts", intrCnt)
			return true
		default:
			return false
		}
	}
	for !stopped() {
		if !d.irq.WaitForEdge(100 * time.Millisecond) {
			if d.irq.Read() != gpio.High {
				continue
			}
			// The line is active yet no edge was seen, don't leave it hanging.
			d.log("interrupt was missed")
		}
		// Unwatch may have been called while waiting for the edge.
		if stopped() {
			return
		}
		intrCnt++
		if irq := d.ReadRegister(RG_IRQ_STATUS); irq != 0 {
			handler(irq)
		}
	}
}

// Close stops the interrupt goroutine, puts the chip to sleep and releases the SPI port if
// the device was opened using Open.
func (d *Device) Close() error {
	d.Unwatch()
	d.Sleep()
	if d.closer != nil {
		return d.closer()
	}
	return nil
}
