// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package sx127x

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var errTest = errors.New("bus failure")

// regWrite records one byte written to one register address.
type regWrite struct {
	addr byte
	val  byte
}

// fakeBus implements raven.SPI with a register file behind the sx127x wire
// framing. Writes land in regs and are logged in order; reads are served from
// regs. The FIFO at address 0 does not auto-increment: writes append to fifo,
// reads pop from fifoRd.
type fakeBus struct {
	mu     sync.Mutex
	regs   [0x80]byte
	writes []regWrite
	fifo   []byte
	fifoRd []byte
	txErr  error
}

func (b *fakeBus) Tx(w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.txErr != nil {
		return b.txErr
	}
	addr := w[0] & 0x7f
	if w[0]&0x80 != 0 {
		for _, v := range w[1:] {
			if addr == REG_FIFO {
				b.fifo = append(b.fifo, v)
				continue
			}
			b.regs[addr] = v
			b.writes = append(b.writes, regWrite{addr, v})
			addr++
		}
	} else {
		for i := 1; i < len(r); i++ {
			if addr == REG_FIFO {
				if len(b.fifoRd) > 0 {
					r[i] = b.fifoRd[0]
					b.fifoRd = b.fifoRd[1:]
				}
				continue
			}
			r[i] = b.regs[addr]
			addr++
		}
	}
	return nil
}

func (b *fakeBus) Close() error { return nil }

// clear drops the write log, typically right after New so tests only see the
// writes they provoke.
func (b *fakeBus) clear() {
	b.mu.Lock()
	b.writes = nil
	b.fifo = nil
	b.mu.Unlock()
}

// writesTo returns the values written to addr, in order.
func (b *fakeBus) writesTo(addr byte) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	var vals []byte
	for _, w := range b.writes {
		if w.addr == addr {
			vals = append(vals, w.val)
		}
	}
	return vals
}

// fakePin implements raven.GPIO. raise drives the pin high and delivers an
// edge to a waiting WaitForEdge.
type fakePin struct {
	level atomic.Int32
	edges chan struct{}
}

func newFakePin() *fakePin {
	return &fakePin{edges: make(chan struct{}, 1)}
}

func (p *fakePin) In(edge int) error { return nil }
func (p *fakePin) Read() int         { return int(p.level.Load()) }
func (p *fakePin) Out(level int)     { p.level.Store(int32(level)) }
func (p *fakePin) Number() int       { return 0 }

func (p *fakePin) WaitForEdge(timeout time.Duration) bool {
	select {
	case <-p.edges:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (p *fakePin) raise() {
	p.level.Store(1)
	select {
	case p.edges <- struct{}{}:
	default:
	}
}

// fakeClock advances 10us per reading so bounded busy-waits terminate.
type fakeClock struct{ now int64 }

func (c *fakeClock) Micros() int64 {
	c.now += 10
	return c.now
}

// newTestRadio initializes a Radio against a fresh fakeBus that identifies as
// an SX127x woken up in FSK standby, and drops the initialization writes from
// the log.
func newTestRadio(t *testing.T, opts RadioOpts) (*Radio, *fakeBus) {
	t.Helper()
	bus := &fakeBus{}
	bus.regs[REG_VERSION] = CHIP_VERSION
	bus.regs[REG_OPMODE] = MODE_STDBY
	if opts.Clock == nil {
		opts.Clock = &fakeClock{}
	}
	r, err := New(bus, newFakePin(), newFakePin(), opts)
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
	t.Cleanup(func() {
		select {
		case <-r.stopChan:
		default:
			r.Shutdown()
		}
	})
	bus.clear()
	return r, bus
}

// waitFor polls cond for a while; the event worker delivers asynchronously.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	for start := time.Now(); time.Since(start) < time.Second; {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Timeout waiting for %s", what)
}
