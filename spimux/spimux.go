// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package spimux

import (
	"sync"

	"github.com/helijunky/raven"
)

// Conn represents a connection to a device on an SPI bus whose chip select
// is shared between two devices using a demultiplexer.
//
// The purpose of spimux.Conn is to allow two radios to be connected to SPI
// buses that only have a single chip select line, such as a dual-band board
// with one FSK-tuned and one LoRa-tuned module. This is accomplished by
// placing a demux on the CS line such that an extra gpio pin can direct the
// chip select to either of the two devices: Tx sets the demux select for its
// device and then performs a standard transaction.
//
// A sample circuit is to use a 74LVC1G19 demux with the SPI CS connected to E,
// the gpio select pin connected to A, and the CS inputs of the two devices
// attached to Y0 and Y1 respectively. A pull-down resistor on the A input of
// the demux is recommended to ensure both CS remain inactive when the SPI CS
// is not driven.
//
// A limitation of the current implementation is that the bus speed and SPI
// mode are shared between the two devices.
type Conn struct {
	mu     *sync.Mutex // prevent concurrent access to the shared SPI bus
	spi    raven.SPI   // underlying SPI device with the shared chip select
	selPin raven.GPIO  // pin driving the demux select input
	sel    int         // select level for this device
}

// New returns two connections for the provided SPI device, the first one
// driving the select pin low, the second driving it high.
func New(dev raven.SPI, selPin raven.GPIO) (*Conn, *Conn) {
	mu := &sync.Mutex{}
	return &Conn{mu, dev, selPin, raven.GpioLow},
		&Conn{mu, dev, selPin, raven.GpioHigh}
}

// Tx sets the select pin to the correct value and calls the underlying Tx.
func (c *Conn) Tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.selPin.Out(c.sel)
	return c.spi.Tx(w, r)
}

// Close closes the underlying SPI device. It must only be called once both
// muxed connections are done with the bus.
func (c *Conn) Close() error {
	return c.spi.Close()
}
