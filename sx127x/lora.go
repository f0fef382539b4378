// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package sx127x

// LoRaSignalBw selects one of the discrete LoRa channel bandwidths. The
// values are the register codes used in the high nibble of modem config 1.
type LoRaSignalBw int

const (
	LoRaBw7_8   LoRaSignalBw = 0
	LoRaBw10_4  LoRaSignalBw = 1
	LoRaBw15_6  LoRaSignalBw = 2
	LoRaBw20_8  LoRaSignalBw = 3
	LoRaBw31_25 LoRaSignalBw = 4
	LoRaBw41_7  LoRaSignalBw = 5
	LoRaBw62_5  LoRaSignalBw = 6
	LoRaBw125   LoRaSignalBw = 7
	LoRaBw250   LoRaSignalBw = 8
	LoRaBw500   LoRaSignalBw = 9
)

// kHz returns the nominal bandwidth in khz, used by the frequency error
// computation.
func (bw LoRaSignalBw) kHz() float64 {
	switch bw {
	case LoRaBw7_8:
		return 7.8
	case LoRaBw10_4:
		return 10.4
	case LoRaBw15_6:
		return 15.6
	case LoRaBw20_8:
		return 20.8
	case LoRaBw31_25:
		return 31.25
	case LoRaBw41_7:
		return 41.7
	case LoRaBw62_5:
		return 62.5
	case LoRaBw125:
		return 125
	case LoRaBw250:
		return 250
	case LoRaBw500:
		return 500
	}
	return 0
}

// LoRaCodingRate selects the LoRa forward error correction rate 4/(4+n).
type LoRaCodingRate int

const (
	LoRaCR4_5 LoRaCodingRate = 1
	LoRaCR4_6 LoRaCodingRate = 2
	LoRaCR4_7 LoRaCodingRate = 3
	LoRaCR4_8 LoRaCodingRate = 4
)

// LoRaHeaderMode selects between explicit headers (length, coding rate and
// CRC presence on the air) and implicit headers (both ends agree beforehand).
type LoRaHeaderMode int

const (
	LoRaHeaderExplicit LoRaHeaderMode = iota
	LoRaHeaderImplicit
)

// BW500 sensitivity errata classification, see applyBw500Workaround.
const (
	bw500WorkaroundNone = iota
	bw500WorkaroundHighBand
	bw500WorkaroundLowBand
)

// SetLoRaSpreadingFactor programs the spreading factor, clamped to [6,12].
// SF6 needs a different detection optimize/threshold pair than the other
// factors (and implicit headers, which the caller must select separately).
func (r *Radio) SetLoRaSpreadingFactor(sf int) {
	r.prepareForWrite()

	if sf < 6 {
		sf = 6
	} else if sf > 12 {
		sf = 12
	}

	if sf == 6 {
		r.writeReg(REG_LORA_DETECT_OPTIMIZE, 0xC5)
		r.writeReg(REG_LORA_DETECT_THRESHOLD, 0x0C)
	} else {
		r.writeReg(REG_LORA_DETECT_OPTIMIZE, 0xC3)
		r.writeReg(REG_LORA_DETECT_THRESHOLD, 0x0A)
	}
	r.writeReg(REG_LORA_MODEMCONF2,
		r.readReg(REG_LORA_MODEMCONF2)&0x0F|byte(sf)<<4&0xF0)
	r.lora.sf = sf
}

// SetLoRaSignalBandwidth programs the channel bandwidth, clamped to the valid
// codes, and re-evaluates the BW500 errata workaround.
func (r *Radio) SetLoRaSignalBandwidth(bw LoRaSignalBw) {
	r.prepareForWrite()

	if bw < LoRaBw7_8 {
		bw = LoRaBw7_8
	} else if bw > LoRaBw500 {
		bw = LoRaBw500
	}
	reg := r.readReg(REG_LORA_MODEMCONF1)
	r.writeReg(REG_LORA_MODEMCONF1, reg&0x0F|byte(bw)<<4)
	r.lora.signalBw = bw
	r.applyBw500Workaround()
}

// SetLoRaCodingRate programs the coding rate, clamped to the 4 valid values.
func (r *Radio) SetLoRaCodingRate(rate LoRaCodingRate) {
	r.prepareForWrite()

	if rate < LoRaCR4_5 {
		rate = LoRaCR4_5
	} else if rate > LoRaCR4_8 {
		rate = LoRaCR4_8
	}
	reg := r.readReg(REG_LORA_MODEMCONF1)
	r.writeReg(REG_LORA_MODEMCONF1, reg&0xF1|byte(rate)<<1)
}

// SetLoRaPreambleLength programs the preamble length in symbols.
func (r *Radio) SetLoRaPreambleLength(length uint16) {
	r.prepareForWrite()
	r.writeReg(REG_LORA_PREAMBLE_MSB, byte(length>>8), byte(length))
}

// SetLoRaCRC enables or disables the payload CRC, preserving the rest of
// modem config 2.
func (r *Radio) SetLoRaCRC(on bool) {
	r.prepareForWrite()
	reg := r.readReg(REG_LORA_MODEMCONF2)
	if on {
		reg |= 0x04
	} else {
		reg &= 0xFB
	}
	r.writeReg(REG_LORA_MODEMCONF2, reg)
}

// SetLoRaHeaderMode selects implicit or explicit headers. The caller must
// ensure the chip is in a writable mode; this setter is not gated.
func (r *Radio) SetLoRaHeaderMode(mode LoRaHeaderMode) {
	reg := r.readReg(REG_LORA_MODEMCONF1)
	switch mode {
	case LoRaHeaderImplicit:
		reg |= 0x01
	case LoRaHeaderExplicit:
		reg &= 0xFE
	}
	r.writeReg(REG_LORA_MODEMCONF1, reg)
}

// SetLoRaSyncWord programs the network sync word. Zero does not work on this
// chip (page 68) and is remapped to 1; 0x34 is reserved for LoRaWAN and is
// remapped to 0x35.
func (r *Radio) SetLoRaSyncWord(sw byte) {
	switch sw {
	case 0x00:
		sw = 0x01
	case 0x34:
		sw = 0x35
	}
	r.writeReg(REG_LORA_SYNC_WORD, sw)
}

// applyBw500Workaround applies the silicon errata mitigation for degraded
// sensitivity at 500khz bandwidth, see the sx1276_77_78 errata note section
// 2.1. At BW500 in the 862-1020Mhz band registers 0x36/0x3A get one magic
// pair, in the 410-525Mhz band another; everywhere else 0x36 reverts to its
// automatic setting. Only classification changes are written out; it is
// re-evaluated whenever the frequency or the bandwidth changes.
func (r *Radio) applyBw500Workaround() {
	workaround := bw500WorkaroundNone
	switch {
	case r.lora.signalBw == LoRaBw500 &&
		r.lora.freq >= 862000000 && r.lora.freq <= 1020000000:
		workaround = bw500WorkaroundHighBand
	case r.lora.signalBw == LoRaBw500 &&
		r.lora.freq >= 410000000 && r.lora.freq <= 525000000:
		workaround = bw500WorkaroundLowBand
	}
	if workaround == r.lora.bwWorkaround {
		return
	}
	switch workaround {
	case bw500WorkaroundNone:
		r.writeReg(REG_LORA_BW500_OPTIMIZE_1, 0x03)
	case bw500WorkaroundHighBand:
		r.writeReg(REG_LORA_BW500_OPTIMIZE_1, 0x02)
		r.writeReg(REG_LORA_BW500_OPTIMIZE_2, 0x64)
	case bw500WorkaroundLowBand:
		r.writeReg(REG_LORA_BW500_OPTIMIZE_1, 0x02)
		r.writeReg(REG_LORA_BW500_OPTIMIZE_2, 0x7F)
	}
	r.lora.bwWorkaround = workaround
}
