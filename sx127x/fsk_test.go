// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package sx127x

import (
	"bytes"
	"testing"
)

var bandwidthCodes = map[string]struct {
	hz  uint32
	reg byte
}{
	"min":       {2600, 0x17},
	"3100":      {3100, 0x0F},
	"25000":     {25000, 0x0C},
	"between":   {110000, 0x0A}, // rounds down to 100khz
	"125000":    {125000, 0x02},
	"max":       {250000, 0x01},
	"below-max": {299999, 0x01},
}

func Test_FSKBandwidthReg(t *testing.T) {
	for n, tc := range bandwidthCodes {
		if got := fskBandwidthReg(tc.hz); got != tc.reg {
			t.Errorf("Bandwidth %s got %#02x expected %#02x", n, got, tc.reg)
		}
	}
}

func Test_FSKBandwidthRegInvalid(t *testing.T) {
	for _, hz := range []uint32{1000, 300000, 500000} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Bandwidth %d should panic", hz)
				}
			}()
			fskBandwidthReg(hz)
		}()
	}
}

func Test_SetFSKBitrate(t *testing.T) {
	r, bus := newTestRadio(t, RadioOpts{})

	// 32Mhz / 49230bps = 650 = 0x028A
	r.SetFSKBitrate(49230)
	if got := bus.writesTo(REG_FSK_BITRATE_MSB); !bytes.Equal(got, []byte{0x02}) {
		t.Errorf("Bitrate MSB got %#v expected [0x02]", got)
	}
	if got := bus.writesTo(REG_FSK_BITRATE_LSB); !bytes.Equal(got, []byte{0x8A}) {
		t.Errorf("Bitrate LSB got %#v expected [0x8A]", got)
	}
	// FSK registers are only writable in sleep
	if got := bus.writesTo(REG_OPMODE); !bytes.Equal(got, []byte{MODE_SLEEP}) {
		t.Errorf("Opmode writes got %#v expected [sleep]", got)
	}
}

func Test_SetFSKFdev(t *testing.T) {
	r, bus := newTestRadio(t, RadioOpts{})

	// 45khz / 61.035Hz = 737 = 0x02E1
	r.SetFSKFdev(45000)
	if got := bus.writesTo(REG_FSK_FDEV_MSB); !bytes.Equal(got, []byte{0x02}) {
		t.Errorf("Fdev MSB got %#v expected [0x02]", got)
	}
	if got := bus.writesTo(REG_FSK_FDEV_LSB); !bytes.Equal(got, []byte{0xE1}) {
		t.Errorf("Fdev LSB got %#v expected [0xE1]", got)
	}
}

func Test_SetFSKRxBandwidth(t *testing.T) {
	r, bus := newTestRadio(t, RadioOpts{})

	r.SetFSKRxBandwidth(100000)
	if got := bus.writesTo(REG_FSK_RX_BW); !bytes.Equal(got, []byte{0x0A}) {
		t.Errorf("RX bandwidth got %#v expected [0x0A]", got)
	}

	r.SetFSKRxAFCBandwidth(200000)
	if got := bus.writesTo(REG_FSK_RX_AFC_BW); !bytes.Equal(got, []byte{0x09}) {
		t.Errorf("AFC bandwidth got %#v expected [0x09]", got)
	}
}

func Test_SetFSKPreambleLength(t *testing.T) {
	r, bus := newTestRadio(t, RadioOpts{})

	r.SetFSKPreambleLength(0x0405)
	if got := bus.writesTo(REG_FSK_PREAMBLE_MSB); !bytes.Equal(got, []byte{0x04}) {
		t.Errorf("Preamble MSB got %#v expected [0x04]", got)
	}
	if got := bus.writesTo(REG_FSK_PREAMBLE_LSB); !bytes.Equal(got, []byte{0x05}) {
		t.Errorf("Preamble LSB got %#v expected [0x05]", got)
	}
}
