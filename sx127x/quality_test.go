// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package sx127x

import "testing"

func Test_LinkQuality(t *testing.T) {
	qualities := map[string]struct {
		min, max, dbm int
		lq            int
	}{
		"ceiling": {-114, 1, 1, 100},
		"floor":   {-114, 1, -114, 0},
		"mid":     {-100, 0, -50, 68},
	}
	for n, tc := range qualities {
		if got := linkQuality(tc.min, tc.max, tc.dbm); got != tc.lq {
			t.Errorf("Quality %s got %d expected %d", n, got, tc.lq)
		}
	}
}

func Test_RxSensitivity(t *testing.T) {
	r, _ := newTestRadio(t, RadioOpts{})
	if got := r.RxSensitivity(); got != -95 {
		t.Errorf("FSK sensitivity got %d expected -95", got)
	}

	r.SetOpMode(OpModeLoRa)
	r.SetLoRaSignalBandwidth(LoRaBw500)
	for sf, want := range map[int]int{
		6: -109, 7: -114, 8: -117, 9: -120, 10: -123, 11: -125, 12: -128,
	} {
		r.SetLoRaSpreadingFactor(sf)
		if got := r.RxSensitivity(); got != want {
			t.Errorf("BW500 SF%d sensitivity got %d expected %d", sf, got, want)
		}
	}

	// other bandwidths are not characterized
	r.SetLoRaSignalBandwidth(LoRaBw250)
	if got := r.RxSensitivity(); got != 0 {
		t.Errorf("BW250 sensitivity got %d expected 0", got)
	}
}

func Test_RSSIFsk(t *testing.T) {
	r, bus := newTestRadio(t, RadioOpts{})
	bus.regs[REG_FSK_RSSI_VALUE] = 180 // 0.5dB/LSB

	rssi, snr, lq := r.RSSI()
	if rssi != -90 {
		t.Errorf("RSSI got %d expected -90", rssi)
	}
	if snr != 20 {
		t.Errorf("SNR got %d expected 20", snr)
	}
	if lq != 9 {
		t.Errorf("Link quality got %d expected 9", lq)
	}
}

func Test_RSSILoRa(t *testing.T) {
	cases := map[string]struct {
		snrReg byte
		rawReg byte
		rssi   int
		snr    int
		lq     int
	}{
		// page 87: three corrections depending on the SNR sign
		"snr-zero": {0, 57, -100, 0, 20},
		"snr-pos":  {40, 57, -96, 40, 25},
		"snr-neg":  {0xD8, 57, -110, -40, 5},
	}
	for n, tc := range cases {
		r, bus := newTestRadio(t, RadioOpts{})
		r.SetOpMode(OpModeLoRa)
		r.SetLoRaSignalBandwidth(LoRaBw500)
		r.SetLoRaSpreadingFactor(7)
		r.SetFrequency(868000000, 0) // HF port, -157 floor
		bus.regs[REG_LORA_PKT_SNR_VALUE] = tc.snrReg
		bus.regs[REG_LORA_PKT_RSSI_VALUE] = tc.rawReg

		rssi, snr, lq := r.RSSI()
		if rssi != tc.rssi {
			t.Errorf("RSSI %s got %d expected %d", n, rssi, tc.rssi)
		}
		if snr != tc.snr {
			t.Errorf("SNR %s got %d expected %d", n, snr, tc.snr)
		}
		if lq != tc.lq {
			t.Errorf("Link quality %s got %d expected %d", n, lq, tc.lq)
		}
	}
}

func Test_RSSILoRa434(t *testing.T) {
	// the band threshold literal is far below any real carrier, so 434Mhz
	// counts up from the HF floor as well
	r, bus := newTestRadio(t, RadioOpts{})
	r.SetOpMode(OpModeLoRa)
	r.SetFrequency(434000000, 0)
	bus.regs[REG_LORA_PKT_SNR_VALUE] = 0
	bus.regs[REG_LORA_PKT_RSSI_VALUE] = 60

	rssi, _, _ := r.RSSI()
	if rssi != -157+60 {
		t.Errorf("RSSI got %d expected %d", rssi, -157+60)
	}
}

func Test_FrequencyError(t *testing.T) {
	r, bus := newTestRadio(t, RadioOpts{})

	// FSK readings are unreliable and always report 0
	bus.regs[REG_FSK_FEI_MSB] = 0x12
	if got := r.FrequencyError(); got != 0 {
		t.Errorf("FSK frequency error got %d expected 0", got)
	}

	r.SetOpMode(OpModeLoRa)
	r.SetLoRaSignalBandwidth(LoRaBw500)
	ferrs := map[string]struct {
		msb, mid, lsb byte
		hz            int
	}{
		"positive": {0x00, 0x10, 0x00, 2147},  // +4096 * 0.524288
		"negative": {0x0F, 0xF8, 0x00, -1073}, // -2048, sign extended
		"zero":     {0, 0, 0, 0},
	}
	for n, tc := range ferrs {
		bus.regs[REG_LORA_FEI_MSB] = tc.msb
		bus.regs[REG_LORA_FEI_MID] = tc.mid
		bus.regs[REG_LORA_FEI_LSB] = tc.lsb
		if got := r.FrequencyError(); got != tc.hz {
			t.Errorf("Frequency error %s got %d expected %d", n, got, tc.hz)
		}
	}

	// the scaling follows the channel bandwidth
	r.SetLoRaSignalBandwidth(LoRaBw125)
	bus.regs[REG_LORA_FEI_MSB] = 0x00
	bus.regs[REG_LORA_FEI_MID] = 0x10
	bus.regs[REG_LORA_FEI_LSB] = 0x00
	if got := r.FrequencyError(); got != 536 { // +4096 * 0.131072
		t.Errorf("BW125 frequency error got %d expected 536", got)
	}
}
