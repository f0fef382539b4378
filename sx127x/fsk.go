// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package sx127x

import (
	"fmt"
	"math"
)

// setFSKDefaults applies the fixed FSK receiver parameters. It runs once on
// every entry into FSK mode, while the chip is in sleep.
func (r *Radio) setFSKDefaults() {
	// AFC auto on, AGC auto on, trigger on preamble detect
	r.writeReg(REG_FSK_RX_CONFIG, 0x08|0x06)
	// detector on, detector size 01, tolerance 10
	r.writeReg(REG_FSK_PREAMBLE_DETECT, 1<<7|1<<5|10)
	// maximum sensitivity: RSSI is always considered above threshold
	r.writeReg(REG_FSK_RSSI_THRES, 0xFF)
	// autorestart on with pll wait, sync on, sync size 3+1 = 4
	r.writeReg(REG_FSK_SYNC_CONFIG, 2<<5|1<<4|0x03)
	r.writeReg(REG_FSK_SYNC_VALUE_1, 0x69, 0x81, 0x7E, 0x96)
	// packet mode baseline: fixed length, CRC off, no whitening (the FEC
	// codec takes care of both)
	r.writeReg(REG_FSK_PACKET_CONFIG_1, 1<<5)
}

// fskBandwidth maps a channel bandwidth in Hz to its RxBw register code. The
// codes interleave mantissa/exponent pairs, hence the table.
type fskBandwidth struct {
	hz  uint32
	reg byte
}

// fskBandwidths is ascending by bandwidth; the last entry is an invalid
// sentinel that only serves as the upper bound of the search.
var fskBandwidths = []fskBandwidth{
	{2600, 0x17},
	{3100, 0x0F},
	{3900, 0x07},
	{5200, 0x16},
	{6300, 0x0E},
	{7800, 0x06},
	{10400, 0x15},
	{12500, 0x0D},
	{15600, 0x05},
	{20800, 0x14},
	{25000, 0x0C},
	{31300, 0x04},
	{41700, 0x13},
	{50000, 0x0B},
	{62500, 0x03},
	{83333, 0x12},
	{100000, 0x0A},
	{125000, 0x02},
	{166700, 0x11},
	{200000, 0x09},
	{250000, 0x01},
	{300000, 0x00}, // invalid bandwidth
}

// fskBandwidthReg picks the register code for the widest table bandwidth not
// exceeding hz. A request at or beyond the sentinel is a programming error in
// the caller and panics rather than silently detuning the receiver.
func fskBandwidthReg(hz uint32) byte {
	for i := 0; i < len(fskBandwidths)-1; i++ {
		if hz >= fskBandwidths[i].hz && hz < fskBandwidths[i+1].hz {
			return fskBandwidths[i].reg
		}
	}
	panic(fmt.Sprintf("sx127x: invalid FSK bandwidth %dHz", hz))
}

// SetFSKBitrate programs the FSK bit rate in bits per second.
func (r *Radio) SetFSKBitrate(bps uint32) {
	r.prepareForWrite()
	br := uint16(math.Round(FXOSC / float64(bps)))
	r.writeReg(REG_FSK_BITRATE_MSB, byte(br>>8), byte(br))
}

// SetFSKFdev programs the FSK frequency deviation in Hz.
func (r *Radio) SetFSKFdev(hz uint32) {
	r.prepareForWrite()
	dev := uint16(math.Round(float64(hz) / fskFreqStep))
	r.writeReg(REG_FSK_FDEV_MSB, byte(dev>>8), byte(dev))
}

// SetFSKRxBandwidth programs the receiver channel bandwidth in Hz.
func (r *Radio) SetFSKRxBandwidth(hz uint32) {
	r.prepareForWrite()
	r.writeReg(REG_FSK_RX_BW, fskBandwidthReg(hz))
	r.fsk.rxBandwidth = hz
}

// SetFSKRxAFCBandwidth programs the bandwidth used during AFC in Hz.
func (r *Radio) SetFSKRxAFCBandwidth(hz uint32) {
	r.prepareForWrite()
	r.writeReg(REG_FSK_RX_AFC_BW, fskBandwidthReg(hz))
}

// SetFSKPreambleLength programs the number of preamble bytes to transmit.
func (r *Radio) SetFSKPreambleLength(length uint16) {
	r.prepareForWrite()
	r.writeReg(REG_FSK_PREAMBLE_MSB, byte(length>>8), byte(length))
}
