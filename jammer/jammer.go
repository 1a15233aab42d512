// Copyright 2016 by Thorsten von Eicken, see LICENSE file

// The jammer package implements a reactive jammer for IEEE 802.15.4 on top of an AT86RF230
// transceiver: it listens on a channel and, as soon as the transceiver signals the start of
// an inbound frame, aborts the reception and transmits a jamming frame on the same channel
// while the sender's frame is still on the air.
//
// The jammer is driven by transceiver interrupts. Enable puts the transceiver in RX_ON and
// arms the frame start handler; the interrupt goroutine then calls into the jammer, which
// captures the first bytes of the frame, forces the transceiver off, moves it to PLL_ON and
// starts the transmission. The transmission end interrupt brings the transceiver back to
// TRX_OFF and, if the jammer was created with Rearm, starts listening again. JamOnce runs the
// same cycle once without relying on the frame start interrupt.
//
// Each jammer state corresponds to a transceiver state: Idle is TRX_OFF, Listening is RX_ON
// and Jamming is BUSY_TX. Every transition is verified by reading the transceiver's status
// back and the jammer state only advances if the read-back matches. A transceiver that got
// out of sync can be brought back using Reset.
//
// All methods are safe for concurrent use. A single mutex serializes the public operations
// and the interrupt handlers, an interrupt that arrives in the middle of a register sequence
// waits for the sequence to complete, much like masking the interrupt line would.
package jammer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tve/rzjammer/at86rf230"
)

// Radio is the transceiver as seen by the jammer, at86rf230.Device implements it.
type Radio interface {
	at86rf230.Bus
	Reset()                             // hardware reset, ends in TRX_OFF
	PulseSLPTR()                        // start transmission from PLL_ON
	Sleep()                             // power down
	Watch(handler func(irq byte)) error // enable the interrupt line
	Unwatch()                           // disable the interrupt line
}

// supportedIRQs are the interrupts the jammer enables on the transceiver.
const supportedIRQs = at86rf230.IRQ_RX_START | at86rf230.IRQ_TRX_END

const eventChanCap = 16 // queue up to 16 jam events before dropping

// LogPrintf is a function used by the jammer to print logging info.
type LogPrintf func(format string, v ...interface{})

// Options contains options used when creating a Jammer.
type Options struct {
	// Rearm makes the jammer go back to listening after each jamming frame until Disable
	// is called. Without it the jammer stops in Idle after jamming one frame.
	Rearm bool
	// Filter decides whether a captured frame gets jammed, nil jams everything.
	Filter func(Jam) bool
	// Delay implements the settle delays, defaults to at86rf230.BusyWait.
	Delay at86rf230.DelayFunc
	// PollInterval is the cadence of status polls in JamOnce, defaults to 10us.
	PollInterval time.Duration
	// TraceSize is the number of events kept in the trace buffer, 0 disables tracing.
	TraceSize int
	// Logger is the function to use for logging.
	Logger LogPrintf
}

// Jam describes a frame start that was handled.
type Jam struct {
	At      time.Time // time of the frame start interrupt
	Channel byte      // channel the frame was seen on
	RSSI    byte      // RSSI register value at frame start, 3dB steps above -91dBm
	Length  byte      // frame length announced in the PHR
	Header  []byte    // first bytes of the frame, at most HeaderLen
	Jammed  bool      // a jamming frame was transmitted
	Err     error     // why the frame was not jammed, if it wasn't
}

// Stats contains diagnostic counters.
type Stats struct {
	UnknownInterrupts uint32 // interrupts that matched no active handler
	Frames            uint32 // frame starts handled
	Jams              uint32 // jamming transmissions started
	Transmitted       uint32 // jamming transmissions completed
	LastRSSI          byte   // RSSI at the most recent frame start
}

// Jammer is a reactive jammer.
type Jammer struct {
	Events <-chan Jam // jam events, dropped when nobody reads them

	radio  Radio
	ctl    *Controller
	disp   *Dispatcher
	opts   Options
	trace  *Trace
	log    LogPrintf
	events chan Jam

	mu      sync.Mutex // serializes operations and interrupt handlers
	state   State
	channel byte
	armed   bool // Enable was called and Disable wasn't since
	header  [HeaderLen]byte

	frames      atomic.Uint32
	jams        atomic.Uint32
	transmitted atomic.Uint32
	rssi        atomic.Uint32
}

// New returns an uninitialized Jammer for the radio.
func New(radio Radio, opts Options) *Jammer {
	if opts.Delay == nil {
		opts.Delay = at86rf230.BusyWait
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 10 * time.Microsecond
	}
	j := &Jammer{
		radio:  radio,
		ctl:    NewController(radio, opts.Delay),
		opts:   opts,
		trace:  newTrace(opts.TraceSize),
		log:    func(format string, v ...interface{}) {},
		events: make(chan Jam, eventChanCap),
		state:  Uninitialized,
	}
	j.Events = j.events
	j.disp = NewDispatcher(j.onFrameStart, j.onTxEnd)
	if opts.Logger != nil {
		j.log = func(format string, v ...interface{}) {
			opts.Logger("jammer: "+format, v...)
		}
	}
	return j
}

// State returns the jammer's state.
func (j *Jammer) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Channel returns the channel the jammer operates on.
func (j *Jammer) Channel() byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.channel
}

// Phase returns the interrupt phase currently registered.
func (j *Jammer) Phase() Phase {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.disp.Phase()
}

// Stats returns the diagnostic counters.
func (j *Jammer) Stats() Stats {
	return Stats{
		UnknownInterrupts: j.disp.Unknown(),
		Frames:            j.frames.Load(),
		Jams:              j.jams.Load(),
		Transmitted:       j.transmitted.Load(),
		LastRSSI:          byte(j.rssi.Load()),
	}
}

// Trace returns the trace buffer, nil if tracing is disabled.
func (j *Jammer) Trace() *Trace { return j.trace }

// Initialize brings up the transceiver: reset, force it to TRX_OFF, enable automatic CRC
// generation, program the interrupt mask and enable the interrupt line. On failure the
// transceiver is powered down again and the jammer stays uninitialized.
func (j *Jammer) Initialize() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != Uninitialized {
		return fmt.Errorf("%w: initialize in state %s", ErrState, j.state)
	}

	j.disp.ResetUnknown()
	j.frames.Store(0)
	j.jams.Store(0)
	j.transmitted.Store(0)
	j.rssi.Store(0)

	if err := j.bringUp(); err != nil {
		j.teardown()
		return fmt.Errorf("jammer: initialize: %w", err)
	}
	j.state = Idle
	j.log("initialized on channel %d", j.channel)
	return nil
}

// bringUp resets and configures the transceiver, the caller must hold j.mu.
func (j *Jammer) bringUp() error {
	j.radio.Unwatch()
	j.radio.Reset()
	if err := j.ctl.ForceOff(); err != nil {
		return err
	}
	j.radio.WriteSubregister(at86rf230.SR_CLKM_SHA_SEL, 0)
	j.radio.WriteSubregister(at86rf230.SR_CLKM_CTRL, 0)
	j.radio.WriteSubregister(at86rf230.SR_TX_AUTO_CRC_ON, 1)
	j.radio.WriteRegister(at86rf230.RG_IRQ_MASK, supportedIRQs)
	if err := j.radio.Watch(j.interrupt); err != nil {
		return err
	}
	j.channel = j.ctl.Channel()
	return nil
}

// teardown disables interrupts and powers the transceiver down, the caller must hold j.mu.
func (j *Jammer) teardown() {
	j.disp.Clear()
	j.radio.Unwatch()
	j.radio.Sleep()
	j.armed = false
}

// Deinitialize powers the transceiver down. It is a no-op on an uninitialized jammer.
func (j *Jammer) Deinitialize() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == Uninitialized {
		return
	}
	j.teardown()
	j.state = Uninitialized
	j.log("deinitialized")
}

// SetChannel changes the channel, which is only possible while Idle.
func (j *Jammer) SetChannel(ch byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != Idle {
		return fmt.Errorf("%w: set channel in state %s", ErrState, j.state)
	}
	if ch < MinChannel || ch > MaxChannel {
		return fmt.Errorf("%w: %d", ErrChannel, ch)
	}
	if err := j.ctl.SetChannel(ch); err != nil {
		return err
	}
	j.channel = ch
	j.log("channel %d", ch)
	return nil
}

// Enable starts listening for frames to jam.
func (j *Jammer) Enable() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != Idle {
		return fmt.Errorf("%w: enable in state %s", ErrState, j.state)
	}
	if err := j.listen(PhaseListen); err != nil {
		return err
	}
	j.armed = true
	return nil
}

// Disable stops listening. It also cancels re-arming, so a jammer that is currently
// jamming ends up Idle once the transmission completes, even though Disable itself fails
// with ErrState in that case.
func (j *Jammer) Disable() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.armed = false
	if j.state != Listening {
		return fmt.Errorf("%w: disable in state %s", ErrState, j.state)
	}
	return j.unlisten()
}

// Reset forces the transceiver to TRX_OFF and the jammer to Idle regardless of the state
// they are in. If the transceiver does not respond it is reset and configured again, and
// if that fails too the jammer ends up uninitialized.
func (j *Jammer) Reset() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state == Uninitialized {
		return fmt.Errorf("%w: reset in state %s", ErrState, j.state)
	}
	j.armed = false
	j.disp.Clear()
	err := j.ctl.ForceOff()
	if err == nil {
		j.state = Idle
		return nil
	}
	j.log("reset: %s, reinitializing", err)
	if err := j.bringUp(); err != nil {
		j.teardown()
		j.state = Uninitialized
		return fmt.Errorf("jammer: reset: %w", err)
	}
	j.state = Idle
	return nil
}

// listen moves from Idle to Listening and registers phase with the dispatcher, the caller
// must hold j.mu.
func (j *Jammer) listen(phase Phase) error {
	if j.state != Idle {
		return fmt.Errorf("%w: listen in state %s", ErrState, j.state)
	}
	if err := j.ctl.ForceOff(); err != nil {
		return err
	}
	if err := j.ctl.EnterReceiveReady(); err != nil {
		return err
	}
	j.disp.Register(phase)
	j.state = Listening
	j.trace.push("listening")
	return nil
}

// unlisten moves from Listening to Idle, the caller must hold j.mu.
func (j *Jammer) unlisten() error {
	if j.state != Listening {
		return fmt.Errorf("%w: stop listening in state %s", ErrState, j.state)
	}
	if err := j.ctl.ForceOff(); err != nil {
		return err
	}
	j.disp.Clear()
	j.state = Idle
	return nil
}

// transmit starts sending the jamming frame, moving from Idle to Jamming. The caller must
// hold j.mu.
func (j *Jammer) transmit() error {
	if j.state != Idle {
		return fmt.Errorf("%w: transmit in state %s", ErrState, j.state)
	}
	if err := j.ctl.EnterTransmitReady(); err != nil {
		return err
	}
	j.disp.Register(PhaseTransmit)
	// The transmission starts with the preamble, the frame buffer only needs to be loaded
	// before the PHR goes out, which saves the time of the SPI burst.
	j.radio.PulseSLPTR()
	j.radio.WriteFrame(payload[:])
	if got := j.ctl.Status(); got != at86rf230.BUSY_TX {
		j.disp.Clear()
		if err := j.ctl.ForceOff(); err != nil {
			j.log("cannot recover from failed transmission: %s", err)
		}
		return fmt.Errorf("%w: transmit: got %s, want %s", ErrVerify, got, at86rf230.BUSY_TX)
	}
	j.state = Jamming
	j.jams.Add(1)
	return nil
}

// interrupt is called by the radio's interrupt goroutine.
func (j *Jammer) interrupt(mask byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.disp.Dispatch(mask)
}

// onFrameStart is the listen phase handler, it runs with j.mu held.
func (j *Jammer) onFrameStart(mask byte) {
	jam := j.capture()
	if err := j.unlisten(); err != nil {
		j.log("cannot stop listening: %s", err)
		jam.Err = err
		j.emit(jam)
		return
	}
	j.jam(&jam)
	j.emit(jam)
	if !jam.Jammed && j.opts.Rearm && j.armed {
		j.rearm()
	}
}

// capture samples RSSI and reads the frame header, it runs with j.mu held.
func (j *Jammer) capture() Jam {
	at := time.Now()
	j.trace.pushAt(at, "frame start")
	rssi := j.radio.ReadSubregister(at86rf230.SR_RSSI)
	n, length, err := ReadHeader(j.radio, j.header[:])
	j.trace.push("header captured")
	j.frames.Add(1)
	j.rssi.Store(uint32(rssi))
	return Jam{
		At: at, Channel: j.channel, RSSI: rssi, Length: length,
		Header: append([]byte(nil), j.header[:n]...), Err: err,
	}
}

// jam decides whether to jam the captured frame and starts the transmission, it runs
// with j.mu held and the jammer Idle.
func (j *Jammer) jam(jam *Jam) {
	if jam.Err != nil {
		j.log("not jamming: %s", jam.Err)
		return
	}
	if j.opts.Filter != nil && !j.opts.Filter(*jam) {
		return
	}
	if err := j.transmit(); err != nil {
		j.log("cannot jam: %s", err)
		jam.Err = err
		return
	}
	jam.Jammed = true
	j.trace.push("jamming")
}

// onTxEnd is the transmit phase handler, it runs with j.mu held.
func (j *Jammer) onTxEnd(mask byte) {
	j.disp.Clear()
	if err := j.ctl.AbortTx(); err != nil {
		// Leave the state alone, the transceiver is not where Idle says it is.
		j.log("transmission end: %s", err)
		return
	}
	j.state = Idle
	j.transmitted.Add(1)
	j.trace.push("transmission complete")
	if j.opts.Rearm && j.armed {
		j.rearm()
	}
}

// rearm goes back to listening after a frame was handled, it runs with j.mu held.
func (j *Jammer) rearm() {
	if err := j.listen(PhaseListen); err != nil {
		j.log("cannot resume listening: %s", err)
		j.armed = false
	}
}

// emit pushes a jam event without blocking.
func (j *Jammer) emit(jam Jam) {
	select {
	case j.events <- jam:
	default:
		j.log("event channel full")
	}
}

// JamOnce performs a single listen and jam cycle without relying on the IRQ line: it
// listens, polls the transceiver until a frame is being received, captures and jams it,
// and polls until the transmission is complete. Each of the two waits is bounded by timeout.
// Rearm does not apply, the jammer ends up Idle.
func (j *Jammer) JamOnce(ctx context.Context, timeout time.Duration) (Jam, error) {
	j.mu.Lock()
	if j.state != Idle {
		defer j.mu.Unlock()
		return Jam{}, fmt.Errorf("%w: jam once in state %s", ErrState, j.state)
	}
	j.armed = false
	if err := j.listen(PhaseNone); err != nil {
		j.mu.Unlock()
		return Jam{}, err
	}
	j.mu.Unlock()

	// Poll without holding the lock so interrupts and accessors aren't held up.
	werr := j.ctl.WaitForState(ctx, at86rf230.BUSY_RX, timeout, j.opts.PollInterval)

	j.mu.Lock()
	if j.state != Listening || j.disp.Phase() != PhaseNone {
		defer j.mu.Unlock()
		return Jam{}, fmt.Errorf("%w: jammer changed state to %s while listening", ErrState, j.state)
	}
	if werr != nil {
		if err := j.unlisten(); err != nil {
			j.log("cannot stop listening: %s", err)
		}
		j.mu.Unlock()
		return Jam{}, werr
	}
	jam := j.capture()
	if err := j.unlisten(); err != nil {
		jam.Err = err
		j.emit(jam)
		j.mu.Unlock()
		return jam, err
	}
	j.jam(&jam)
	j.emit(jam)
	j.mu.Unlock()
	if !jam.Jammed {
		return jam, jam.Err
	}
	return jam, j.waitTxEnd(ctx, timeout)
}

// waitTxEnd polls until the jamming transmission is over. If the transmission end interrupt
// hasn't been handled by the time the transceiver leaves BUSY_TX the transmit phase handler
// is run from here, a late interrupt then finds no active phase.
func (j *Jammer) waitTxEnd(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		j.mu.Lock()
		if j.state == Jamming && j.disp.Phase() == PhaseTransmit &&
			j.ctl.Status() != at86rf230.BUSY_TX {
			j.onTxEnd(at86rf230.IRQ_TRX_END)
		}
		state := j.state
		j.mu.Unlock()
		switch state {
		case Idle:
			return nil
		case Jamming:
		default:
			return fmt.Errorf("%w: jammer changed state to %s while jamming", ErrState, state)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w waiting for transmission to complete", ErrTimeout)
		}
		j.opts.Delay(j.opts.PollInterval)
	}
}
