// github.com/helijunky/raven contains the control core for SX127x dual-modulation
// (FSK/LoRa) radio transceivers plus the supporting packages needed to run it on
// Linux SBCs. It uses periph.io for the low level access to the hardware pins.
// The driver itself lives in the sx127x directory; the root package holds the thin
// hardware abstractions (SPI register transport, GPIO, monotonic clock) that the
// driver consumes. Simple commands to exercise the radio can be found in the cmd
// directory tree.
package raven
