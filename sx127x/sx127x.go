// Copyright 2016 by Thorsten von Eicken, see LICENSE file

// The sx127x package interfaces with a Semtech SX1276/77/78/79 radio connected
// to an SPI bus, such as the ones found on HopeRF RFM95/96/97/98 modules.
//
// Unlike most drivers for this chip the package supports both of its
// modulation schemes, FSK and LoRa, behind one interface. The two schemes have
// largely disjoint register sets behind the same addresses, so the driver
// keeps per-scheme caches of everything it has written and re-arms the chip
// when the scheme changes. Register writes are only legal in specific power
// modes, which differ between the schemes; every setter transparently inserts
// the required mode transition before touching a register.
//
// The driver is interrupt driven and requires that the radio's DIO0 pin be
// connected to an interrupt capable GPIO pin. The single DIO0 line signals
// either "TX done" or "RX done" depending on which one the driver last armed;
// a dedicated worker goroutine resolves the pending trigger, sets the matching
// completion flag and invokes the registered callback outside of the interrupt
// path. Completion can also be observed by polling TxDone/RxDone.
//
// In FSK mode payloads are run through a client supplied forward error
// correction codec on their way to and from the FIFO; in LoRa mode the chip's
// own coding is used and payloads travel raw.
//
// There should be no errors during the radio's operation unless there is a
// hardware failure. For this reason radio interface errors are treated as
// fatal: if such an error occurs it is recorded in the Radio struct where it
// can be retrieved using the Error function, and all further register traffic
// is suppressed. The client code will have to create and initialize a fresh
// object to re-establish communication with the radio chip.
//
// The methods on the Radio object are not concurrency safe: the driver assumes
// exclusive, non-reentrant access from one caller goroutine. The completion
// flags, Error and the callback are the only pieces shared with the worker.
package sx127x

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/helijunky/raven"
	"github.com/helijunky/raven/thread"
)

// OpMode selects the modulation scheme. The two schemes are mutually
// exclusive, each with its own register subset.
type OpMode int

const (
	OpModeFSK OpMode = iota
	OpModeLoRa
)

// Output stage wiring of the module. RFO is the low power output (0..14dBm),
// PA_BOOST the high power one (2..17dBm, 20dBm peak).
const (
	OutputRFO = iota
	OutputPABoost
)

// Event is the completion reason delivered to the callback.
type Event int

const (
	EventTxDone Event = iota
	EventRxDone
)

// DIO0 trigger armed by the last send/receive operation.
const (
	trigNone int32 = iota
	trigRxDone
	trigTxDone
)

// LogPrintf is a function used by the driver to print logging info.
type LogPrintf func(format string, v ...interface{})

// RadioOpts contains options used when initializing a Radio.
type RadioOpts struct {
	Output           int            // OutputRFO or OutputPABoost
	Codec            raven.FECCodec // FEC codec for FSK payloads, nil passes payloads through raw
	Clock            raven.Clock    // monotonic clock, nil uses the default
	ModeReadyTimeout time.Duration  // bound on the FSK mode-ready wait, 0 uses 100ms
	Logger           LogPrintf      // function to use for logging, nil disables logging
}

// fskState caches the FSK-mode register values so redundant writes can be
// suppressed. Re-issuing some of these writes mid-operation is unsafe, so the
// caches are a correctness matter, not just a performance one.
type fskState struct {
	freq          uint32
	payloadLength int
	rxBandwidth   uint32
}

// loraState is the LoRa-mode counterpart of fskState.
type loraState struct {
	freq          uint32
	ppmCorrection int8
	payloadLength int
	signalBw      LoRaSignalBw
	sf            int
	bwWorkaround  int
}

// Radio represents one SX127x chip. It is created with New, owned by a single
// caller goroutine, and torn down with Shutdown.
type Radio struct {
	// configuration
	spi              raven.SPI
	resetPin         raven.GPIO
	intrPin          raven.GPIO
	output           int
	codec            raven.FECCodec
	clock            raven.Clock
	modeReadyTimeout time.Duration
	log              LogPrintf

	// state, touched only by the owner goroutine
	opMode OpMode
	mode   byte // last value written to REG_OPMODE
	err    error
	fsk    fskState
	lora   loraState

	// state shared with the event worker
	dio0Trigger atomic.Int32
	txDone      atomic.Bool
	rxDone      atomic.Bool
	callback    atomic.Value // func(Event)

	intrChan chan struct{}
	stopChan chan struct{}
}

// nopCodec passes FSK payloads through unmodified; it stands in when the
// client supplies no FEC codec.
type nopCodec struct{}

func (nopCodec) EncodedSize(n int) int      { return n }
func (nopCodec) Encode(src, dst []byte) int { return copy(dst, src) }
func (nopCodec) Decode(src, dst []byte) int { return copy(dst, src) }

// New resets and initializes an SX127x given its SPI device, reset pin and
// DIO0 interrupt pin, and leaves the radio in standby with DIO0 disarmed.
//
// The SPI device must be configured for mode 0 and at most 9Mhz. New fails if
// the chip identity register does not read back the expected version, which
// indicates the chip is absent, misbehaving or not an SX127x.
func New(dev raven.SPI, reset, intr raven.GPIO, opts RadioOpts) (*Radio, error) {
	r := &Radio{
		spi:              dev,
		resetPin:         reset,
		intrPin:          intr,
		output:           opts.Output,
		codec:            opts.Codec,
		clock:            opts.Clock,
		modeReadyTimeout: opts.ModeReadyTimeout,
		log:              func(format string, v ...interface{}) {},
	}
	if opts.Logger != nil {
		r.log = func(format string, v ...interface{}) {
			opts.Logger("sx127x: "+format, v...)
		}
	}
	if r.codec == nil {
		r.codec = nopCodec{}
	}
	if r.clock == nil {
		r.clock = raven.NewClock()
	}
	if r.modeReadyTimeout == 0 {
		r.modeReadyTimeout = 100 * time.Millisecond
	}

	// Hardware reset pulse, then let the chip come up.
	reset.Out(raven.GpioLow)
	time.Sleep(20 * time.Millisecond)
	reset.Out(raven.GpioHigh)
	time.Sleep(50 * time.Millisecond)

	// Verify the chip identity before touching anything else.
	version := r.readReg(REG_VERSION)
	if r.err != nil {
		return nil, r.err
	}
	if version != CHIP_VERSION {
		return nil, fmt.Errorf("sx127x: unexpected chip version %#x, expecting %#x",
			version, CHIP_VERSION)
	}
	r.log("chip version %#x", version)

	// Adopt whatever mode the chip woke up in so the first setMode diffs
	// against reality, and derive the active modulation scheme from it.
	r.mode = r.readReg(REG_OPMODE)
	if r.mode&MODE_LORA != 0 {
		r.opMode = OpModeLoRa
	} else {
		r.opMode = OpModeFSK
	}

	// Base configuration, written in sleep mode.
	r.Sleep()
	r.writeReg(REG_LORA_FIFO_TX_BASE, TX_FIFO_ADDR)
	r.writeReg(REG_LORA_FIFO_RX_BASE, RX_FIFO_ADDR)
	// LNA boost HF
	r.writeReg(REG_LNA, r.readReg(REG_LNA)|0x03)
	// auto AGC
	r.writeReg(REG_LORA_MODEMCONF3, 0x04)
	r.SetTxPower(17)
	r.Idle()

	// Configure the interrupt pin and make sure DIO0 can't fire yet.
	if err := intr.In(raven.GpioRisingEdge); err != nil {
		return nil, fmt.Errorf("sx127x: error initializing interrupt pin: %v", err)
	}
	r.DisableInterrupt()
	if r.err != nil {
		return nil, r.err
	}

	r.intrChan = make(chan struct{}, 1)
	r.stopChan = make(chan struct{})
	go r.worker()

	return r, nil
}

// Error returns the persistent error, if any register transaction has failed.
func (r *Radio) Error() error { return r.err }

// Sleep puts the chip into sleep mode, preserving the modulation select bit.
func (r *Radio) Sleep() { r.setMode(r.mode&MODE_LORA | MODE_SLEEP) }

// Idle puts the chip into standby mode, preserving the modulation select bit.
func (r *Radio) Idle() { r.setMode(r.mode&MODE_LORA | MODE_STDBY) }

// SetOpMode switches between the FSK and LoRa modulation schemes. It is a
// no-op if the scheme is already active; otherwise the chip is forced through
// sleep (the only state in which the modulation select bit may change) and,
// when entering FSK, the fixed FSK parameters are re-applied.
func (r *Radio) SetOpMode(m OpMode) {
	if r.opMode == m {
		return
	}
	r.setMode(r.mode&MODE_LORA | MODE_SLEEP)
	switch m {
	case OpModeFSK:
		r.setMode(MODE_SLEEP)
		r.setFSKDefaults()
	case OpModeLoRa:
		r.setMode(MODE_LORA | MODE_SLEEP)
	}
	r.opMode = m
}

// SetFrequency changes the center frequency at which the radio transmits and
// receives, compensating for the measured frequency error errorHz. The tuning
// word is scheme specific and only written when it changed; in LoRa mode the
// PPM drift correction is updated as well and the BW500 sensitivity errata
// workaround re-evaluated, since it depends on the frequency.
func (r *Radio) SetFrequency(hz uint32, errorHz int) {
	freq := uint32(int64(hz) - int64(errorHz))

	var frf uint64
	switch r.opMode {
	case OpModeFSK:
		if freq != r.fsk.freq {
			r.fsk.freq = freq
			frf = uint64(math.Round(float64(freq) / fskFreqStep))
		}
	case OpModeLoRa:
		if freq != r.lora.freq {
			r.lora.freq = freq
			// 19-bit fractional PLL resolution: frf = freq * 2^19 / Fxosc.
			frf = uint64(freq) << 19 / FXOSC
		}
	}

	if frf > 0 {
		r.prepareForWrite()
		r.writeReg(REG_FRF_MSB, byte(frf>>16), byte(frf>>8), byte(frf))
		// Wait up to 50us for PLL lock (page 15, table 7).
		for deadline := r.clock.Micros() + 50; r.clock.Micros() < deadline; {
		}
		r.log("frequency %dHz -> frf %#06x", freq, frf)
	}

	if r.opMode == OpModeLoRa {
		ppm := int(math.Round(0.95 * float64(errorHz) / (float64(freq) / 1e6)))
		if ppm < -128 {
			ppm = -128
		} else if ppm > 127 {
			ppm = 127
		}
		if int8(ppm) != r.lora.ppmCorrection {
			r.prepareForWrite()
			r.writeReg(REG_LORA_PPM_CORRECTION, byte(int8(ppm)))
			r.lora.ppmCorrection = int8(ppm)
		}
		r.applyBw500Workaround()
	}
}

// SetTxPower configures the output stage for the requested power in dBm,
// silently clamping to the range the wired output pin supports.
func (r *Radio) SetTxPower(dBm int) {
	r.prepareForWrite()

	var paConfig byte
	paDac := byte(0x84) // default, +17dBm max
	switch r.output {
	case OutputRFO:
		if dBm < 0 {
			dBm = 0
		} else if dBm > 14 {
			dBm = 14
		}
		paConfig = 0x70 | byte(dBm)
	case OutputPABoost:
		if dBm < 2 {
			dBm = 2
		} else if dBm > 17 {
			dBm = 17
			paDac = 0x87 // +20dBm as Pmax on PA_BOOST
		}
		paConfig = PA_BOOST | byte(dBm-2)
	}
	r.writeReg(REG_PACONFIG, paConfig)
	r.writeReg(REG_PADAC, paDac)
}

// SetPayloadSize programs the expected payload length. In FSK mode the length
// on the air is the FEC encoded one. The write is skipped if the length is
// unchanged.
func (r *Radio) SetPayloadSize(n int) {
	switch r.opMode {
	case OpModeFSK:
		n = r.codec.EncodedSize(n)
		if n != r.fsk.payloadLength {
			r.prepareForWrite()
			r.writeReg(REG_FSK_PAYLOAD_LENGTH, byte(n))
			r.fsk.payloadLength = n
		}
	case OpModeLoRa:
		if n != r.lora.payloadLength {
			r.prepareForWrite()
			r.writeReg(REG_LORA_PAYLOAD_LENGTH, byte(n))
			r.lora.payloadLength = n
		}
	}
}

// Send loads the payload into the chip's FIFO and starts transmitting. DIO0 is
// armed for TX-done; completion is reported through the callback or TxDone.
func (r *Radio) Send(payload []byte) {
	var frame []byte
	switch r.opMode {
	case OpModeFSK:
		r.Sleep()
		enc := make([]byte, r.codec.EncodedSize(len(payload)))
		n := r.codec.Encode(payload, enc)
		frame = enc[:n]
		// FIFO writes are ignored until the modem has actually reached
		// sleep mode, see 4.2.10 (page 66).
		r.fskWaitModeReady()
	case OpModeLoRa:
		// The FIFO is not accessible in LoRa sleep mode, standby is the
		// writable state here.
		r.Idle()
		r.writeReg(REG_LORA_FIFO_ADDR_PTR, TX_FIFO_ADDR)
		frame = payload
	}
	r.writeReg(REG_FIFO, frame...)
	r.SetPayloadSize(len(payload))

	r.txDone.Store(false)
	r.dio0Trigger.Store(trigTxDone)

	switch r.opMode {
	case OpModeFSK:
		// The IRQ needs no clearing here, it resets itself when TX mode
		// is exited.
		r.writeReg(REG_DIOMAPPING1, DIO0_FSK_PACKET_SENT)
		// Start transmitting as soon as the FIFO is non-empty. The radio
		// has been in sleep until now so the FIFO already holds the whole
		// frame; the threshold must be re-armed before every send or the
		// sent interrupt never fires.
		r.writeReg(REG_FSK_FIFO_THRESH, 1<<7)
		r.setMode(MODE_TX)
	case OpModeLoRa:
		r.writeReg(REG_LORA_IRQ_FLAGS, IRQ_LORA_TX_DONE)
		r.writeReg(REG_DIOMAPPING1, DIO0_LORA_TX_DONE)
		r.setMode(MODE_LORA | MODE_TX)
	}
}

// Read drains one received payload of len(buf) bytes from the chip's FIFO.
// The read length is caller specified, not chip reported: with fixed-length
// framing both ends know the payload size. In FSK mode the FIFO holds the FEC
// encoded form and the codec recovers the plaintext. Returns len(buf).
func (r *Radio) Read(buf []byte) int {
	switch r.opMode {
	case OpModeLoRa:
		r.prepareForWrite()
		r.writeReg(REG_LORA_FIFO_ADDR_PTR, RX_FIFO_ADDR)
		r.readBurst(REG_FIFO, buf)
		r.rxDone.Store(false)
		// RX-done does not clear on its own in LoRa mode.
		r.writeReg(REG_LORA_IRQ_FLAGS, IRQ_LORA_RX_DONE)
	case OpModeFSK:
		enc := make([]byte, r.codec.EncodedSize(len(buf)))
		r.readBurst(REG_FIFO, enc)
		r.rxDone.Store(false)
		// The IRQ clears itself as the FIFO drains, no register write
		// needed.
		r.codec.Decode(enc, buf)
	}
	return len(buf)
}

// EnableContinuousRx puts the radio into continuous receive mode with DIO0
// armed for RX-done. Each received payload raises the interrupt; the caller
// collects it with Read.
func (r *Radio) EnableContinuousRx() {
	r.rxDone.Store(false)
	r.dio0Trigger.Store(trigRxDone)

	switch r.opMode {
	case OpModeFSK:
		r.Idle()
		r.fskWaitModeReady()
		r.writeReg(REG_DIOMAPPING1, DIO0_FSK_PAYLOAD_READY)
		r.setMode(MODE_RX_CONTINUOUS)
		// Raise the interrupt once a full payload is in the FIFO.
		r.writeReg(REG_FSK_FIFO_THRESH, 1<<7|byte(r.fsk.payloadLength))
	case OpModeLoRa:
		r.prepareForWrite()
		r.writeReg(REG_DIOMAPPING1, DIO0_LORA_RX_DONE)
		r.setMode(MODE_LORA | MODE_RX_CONTINUOUS)
	}
}

// DisableInterrupt disarms DIO0: the trigger is cleared and the mapping
// register is set to the "no interrupt" variant of the active scheme.
func (r *Radio) DisableInterrupt() {
	r.dio0Trigger.Store(trigNone)
	var reg byte
	switch r.opMode {
	case OpModeFSK:
		reg = DIO0_FSK_NONE
	case OpModeLoRa:
		reg = DIO0_LORA_NONE
	}
	r.writeReg(REG_DIOMAPPING1, reg)
}

// TxDone reports whether the transmission armed by the last Send completed.
func (r *Radio) TxDone() bool { return r.txDone.Load() }

// RxDone reports whether a payload arrived since the last Read or
// EnableContinuousRx.
func (r *Radio) RxDone() bool { return r.rxDone.Load() }

// SetCallback registers a completion handler invoked by the event worker, or
// removes it when cb is nil. The callback runs outside of the interrupt path,
// at most one invocation at a time, and must not reconfigure the radio from a
// different goroutine than the owner's.
func (r *Radio) SetCallback(cb func(Event)) { r.callback.Store(cb) }

// Shutdown forces the chip into standby, stops the event worker and holds the
// chip in reset. The Radio is unusable afterwards.
func (r *Radio) Shutdown() {
	r.Idle()
	close(r.stopChan)
	r.intrPin.In(raven.GpioNoEdge)
	r.resetPin.Out(raven.GpioLow)
}

//

// setMode writes the raw power/activity mode, suppressing redundant writes.
func (r *Radio) setMode(mode byte) {
	if r.mode == mode {
		return
	}
	r.writeReg(REG_OPMODE, mode)
	r.mode = mode
}

// prepareForWrite inserts the mode transition required before configuration
// register writes. FSK registers want sleep mode; LoRa registers can be
// written in sleep or standby, so standby is only forced when in neither.
func (r *Radio) prepareForWrite() {
	switch r.opMode {
	case OpModeFSK:
		r.Sleep()
	case OpModeLoRa:
		if m := r.mode &^ MODE_LORA; m != MODE_SLEEP && m != MODE_STDBY {
			r.Idle()
		}
	}
}

// fskWaitModeReady spins until the FSK IRQ flags show nothing but ModeReady,
// i.e. the chip has settled into the requested mode and the FIFO is safe to
// touch. The spin is bounded; a timeout means the chip is wedged and is
// recorded as a fatal error.
func (r *Radio) fskWaitModeReady() {
	for start := time.Now(); time.Since(start) < r.modeReadyTimeout; {
		if r.readReg(REG_FSK_IRQ_FLAGS_1)&^IRQ_FSK_MODE_READY == 0 {
			return
		}
		if r.err != nil {
			return
		}
	}
	r.err = errors.New("sx127x: timeout waiting for FSK mode ready")
}

// worker is the bridge between the DIO0 interrupt line and user-visible
// events. It is the only goroutine running concurrently with the owner and it
// touches nothing but the completion flags and the callback.
func (r *Radio) worker() {
	// Edge-watch goroutine converting WaitForEdge into channel signals. No
	// register I/O happens here, the edge context only wakes the worker.
	go func() {
		// Don't miss an edge that fired before we started watching.
		if r.intrPin.Read() == raven.GpioHigh {
			r.notifyIntr()
		}
		for {
			if r.intrPin.WaitForEdge(time.Second) {
				if r.intrPin.Read() == raven.GpioHigh {
					r.notifyIntr()
				}
			} else if r.intrPin.Read() == raven.GpioHigh {
				// Sometimes WaitForEdge times out yet the pin is
				// active, this means the driver or epoll failed us.
				r.log("interrupt was missed!")
				r.notifyIntr()
			} else {
				select {
				case <-r.stopChan:
					r.log("interrupt goroutine exiting")
					return
				default:
				}
			}
		}
	}()

	// The worker stands in for the original firmware's pinned high-priority
	// task; realtime scheduling keeps completion latency down. Best effort.
	thread.Realtime()

	for {
		select {
		case <-r.stopChan:
			r.log("worker exiting")
			return
		case <-r.intrChan:
			var ev Event
			switch r.dio0Trigger.Load() {
			case trigRxDone:
				r.rxDone.Store(true)
				ev = EventRxDone
			case trigTxDone:
				r.txDone.Store(true)
				ev = EventTxDone
			default:
				r.log("spurious interrupt, DIO0 not armed")
				continue
			}
			if cb, _ := r.callback.Load().(func(Event)); cb != nil {
				cb(ev)
			}
		}
	}
}

// notifyIntr wakes the worker, collapsing bursts into one pending signal.
func (r *Radio) notifyIntr() {
	select {
	case r.intrChan <- struct{}{}:
	default:
	}
}

// writeReg writes one or multiple registers starting at addr; the sx127x
// auto-increments the address (except for the FIFO register where that would
// not be desirable). A transport failure is fatal and latches in r.err; all
// further traffic is suppressed.
func (r *Radio) writeReg(addr byte, data ...byte) {
	if r.err != nil {
		return
	}
	wBuf := make([]byte, len(data)+1)
	rBuf := make([]byte, len(data)+1)
	wBuf[0] = addr | 0x80
	copy(wBuf[1:], data)
	if err := r.spi.Tx(wBuf, rBuf); err != nil {
		r.err = fmt.Errorf("sx127x: write reg %#02x: %v", addr, err)
	}
}

// readReg reads one register and returns its value.
func (r *Radio) readReg(addr byte) byte {
	if r.err != nil {
		return 0
	}
	var buf [2]byte
	if err := r.spi.Tx([]byte{addr & 0x7f, 0}, buf[:]); err != nil {
		r.err = fmt.Errorf("sx127x: read reg %#02x: %v", addr, err)
		return 0
	}
	return buf[1]
}

// readBurst reads len(buf) contiguous bytes starting at addr in a single
// transaction.
func (r *Radio) readBurst(addr byte, buf []byte) {
	if r.err != nil {
		return
	}
	wBuf := make([]byte, len(buf)+1)
	rBuf := make([]byte, len(buf)+1)
	wBuf[0] = addr & 0x7f
	if err := r.spi.Tx(wBuf, rBuf); err != nil {
		r.err = fmt.Errorf("sx127x: burst read reg %#02x: %v", addr, err)
		return
	}
	copy(buf, rBuf[1:])
}
