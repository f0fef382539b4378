// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package raven

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// SPI is the register transport consumed by the radio drivers. A transaction
// frames one command bit (0=read, 1=write), 7 address bits and the data bytes;
// the drivers encode the command bit into the top bit of the first byte of w.
type SPI interface {
	Tx(w, r []byte) error
	Close() error
}

// GPIO is a single digital pin. It is deliberately minimal: the drivers only
// need edge-triggered inputs for the radio's interrupt line and a plain output
// for the reset line.
type GPIO interface {
	In(edge int) error
	Read() int
	WaitForEdge(timeout time.Duration) bool
	Out(level int)
	Number() int
}

const (
	GpioLow  = 0
	GpioHigh = 1
)

const (
	GpioNoEdge = iota
	GpioRisingEdge
	GpioFallingEdge
	GpioBothEdges
)

// Clock provides a monotonic microsecond reading. The radio drivers use it for
// short register-mandated settle times, such as the PLL lock delay after
// retuning.
type Clock interface {
	Micros() int64
}

// Init loads the periph host drivers. It must be called once before NewSPI or
// NewGPIO.
func Init() error {
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("raven: cannot init periph host: %v", err)
	}
	return nil
}

// NewSPI opens the named SPI port and connects at the speed the SX127x can
// sustain. 10Mhz causes incorrect reads from the LoRa modem config registers,
// hence 9Mhz.
func NewSPI(name string) (SPI, error) {
	p, err := spireg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("raven: cannot open SPI port %s: %v", name, err)
	}
	c, err := p.Connect(9*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("raven: cannot connect on %s: %v", name, err)
	}
	return &spiPort{port: p, conn: c}, nil
}

type spiPort struct {
	port spi.PortCloser
	conn spi.Conn
}

func (s *spiPort) Tx(w, r []byte) error { return s.conn.Tx(w, r) }
func (s *spiPort) Close() error         { return s.port.Close() }

// NewGPIO looks up a pin by name.
func NewGPIO(name string) (GPIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("raven: cannot open pin %s", name)
	}
	return &pin{p: p}, nil
}

type pin struct {
	p gpio.PinIO
}

func (g *pin) In(edge int) error {
	e := []gpio.Edge{gpio.NoEdge, gpio.RisingEdge, gpio.FallingEdge, gpio.BothEdges}[edge]
	return g.p.In(gpio.Float, e)
}

func (g *pin) Read() int {
	if g.p.Read() == gpio.High {
		return GpioHigh
	}
	return GpioLow
}

func (g *pin) WaitForEdge(timeout time.Duration) bool {
	return g.p.WaitForEdge(timeout)
}

func (g *pin) Out(level int) {
	g.p.Out(gpio.Level(level == GpioHigh))
}

func (g *pin) Number() int { return g.p.Number() }

// NewClock returns the default monotonic clock.
func NewClock() Clock { return &monoClock{t0: time.Now()} }

type monoClock struct {
	t0 time.Time
}

func (c *monoClock) Micros() int64 { return time.Since(c.t0).Microseconds() }
