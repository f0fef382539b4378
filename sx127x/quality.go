// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package sx127x

// RxSensitivity returns the receiver sensitivity floor in dBm for the current
// configuration. The FSK figure is a placeholder that really wants a per-unit
// calibration. The LoRa table lists the datasheet sensitivities for BW500 with
// a shared RFIO pin (non-shared is +3dB); other bandwidths are not covered and
// yield 0.
func (r *Radio) RxSensitivity() int {
	switch r.opMode {
	case OpModeFSK:
		return -95
	case OpModeLoRa:
		if r.lora.signalBw == LoRaBw500 {
			switch r.lora.sf {
			case 6:
				return -109
			case 7:
				return -114
			case 8:
				return -117
			case 9:
				return -120
			case 10:
				return -123
			case 11:
				return -125 // -125.5dB actually
			case 12:
				return -128
			}
		}
	}
	return 0
}

// loraMinRSSI is the band dependent floor the packet RSSI register counts up
// from, page 87 section 5.5.5.
func (r *Radio) loraMinRSSI() int {
	if r.lora.freq > 700000 {
		// (HF) 862-1020Mhz port (779-960Mhz*)
		return -157
	}
	// (LF) 410-525Mhz (*480) or 137-175Mhz (*160) port
	return -164
}

// linkQuality maps dbm within the [minDbm,maxDbm] window onto a 0..100 score
// that is deliberately steeper near the floor, where mode switching decisions
// are made.
func linkQuality(minDbm, maxDbm, dbm int) int {
	d := maxDbm - minDbm
	return (100*d*d - (maxDbm-dbm)*(25*d+75*(maxDbm-dbm))) / (d * d)
}

// RSSI returns the received signal strength in dBm for the last packet, along
// with the signal-to-noise ratio in 0.25dB units and a 0..100 link quality
// score.
//
// FSK reports no true SNR, so it is approximated from the distance to the
// sensitivity floor. LoRa reads SNR and raw RSSI in one burst and applies the
// datasheet's sign-dependent corrections: for positive SNR the slope is
// corrected by 16/15, for negative SNR a quarter of the (quarter-dB) SNR is
// folded in.
func (r *Radio) RSSI() (rssi, snr, lq int) {
	rssiMaxDbm := 0
	sensitivity := r.RxSensitivity()

	switch r.opMode {
	case OpModeFSK:
		rssi = int(r.readReg(REG_FSK_RSSI_VALUE)) / -2 // 0.5dB/LSB, negated
		snr = (-sensitivity + rssi) * 4
	case OpModeLoRa:
		// Max RSSI is about 1dBm in practice on the HF port, and the
		// interesting granularity is near the floor anyway.
		rssiMaxDbm = 1
		var buf [2]byte
		r.readBurst(REG_LORA_PKT_SNR_VALUE, buf[:])
		snr = int(int8(buf[0]))
		raw := int(buf[1])
		minRssi := r.loraMinRSSI()
		switch {
		case snr > 0:
			// Page 87: RSSI = -157 + 16/15 * PacketRssi (slope
			// corrected; -164 on the LF port).
			rssi = int(float64(minRssi) + 16.0/15.0*float64(raw))
		case snr < 0:
			// Packet strength (dBm) = -157 + PacketRssi + PacketSnr *
			// 0.25; same for the LF port.
			rssi = int(float64(minRssi) + float64(raw) + float64(snr)*0.25)
		default:
			rssi = minRssi + raw
		}
	}

	lq = linkQuality(sensitivity, rssiMaxDbm, rssi)
	if lq < 0 {
		lq = 0
	} else if lq > 100 {
		lq = 100
	}
	return rssi, snr, lq
}

// FrequencyError returns the measured offset between this receiver and the
// transmitter in Hz. FSK readings are unreliable on this chip, so FSK always
// reports 0. LoRa reads the 20-bit two's complement FEI register burst and
// scales by the channel bandwidth.
func (r *Radio) FrequencyError() int {
	switch r.opMode {
	case OpModeFSK:
		return 0
	case OpModeLoRa:
		var buf [3]byte
		r.readBurst(REG_LORA_FEI_MSB, buf[:])
		ferr := int32(buf[0])<<16 | int32(buf[1])<<8 | int32(buf[2])
		// Sign extend 20-bit two's complement to 32 bit.
		if ferr&0x80000 != 0 {
			ferr |= ^int32(0xFFFFF)
		}
		bw := r.lora.signalBw.kHz()
		return int(float64(ferr) * bw * (float64(int64(1)<<24) / FXOSC / 500.0))
	}
	return 0
}
