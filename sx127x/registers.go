// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package sx127x

// Oscillator constants. All tuning words are derived from the 32Mhz crystal:
// the synthesizer step is 32Mhz / 2^19 = 61.03515625 Hz.
const (
	FXOSC       = 32000000
	fskFreqStep = 61.03515625
)

// CHIP_VERSION is the value REG_VERSION must read back; anything else means
// the chip is absent or not an SX127x.
const CHIP_VERSION = 0x12

// Registers common to both modulation schemes.
const (
	REG_FIFO        = 0x00
	REG_OPMODE      = 0x01
	REG_FRF_MSB     = 0x06
	REG_FRF_MID     = 0x07
	REG_FRF_LSB     = 0x08
	REG_PACONFIG    = 0x09
	REG_PARAMP      = 0x0A
	REG_LNA         = 0x0C
	REG_DIOMAPPING1 = 0x40
	REG_DIOMAPPING2 = 0x41
	REG_VERSION     = 0x42
	REG_PADAC       = 0x4D
)

// FSK register set.
const (
	REG_FSK_BITRATE_MSB     = 0x02
	REG_FSK_BITRATE_LSB     = 0x03
	REG_FSK_FDEV_MSB        = 0x04
	REG_FSK_FDEV_LSB        = 0x05
	REG_FSK_RX_CONFIG       = 0x0D
	REG_FSK_RSSI_THRES      = 0x10
	REG_FSK_RSSI_VALUE      = 0x11
	REG_FSK_RX_BW           = 0x12
	REG_FSK_RX_AFC_BW       = 0x13
	REG_FSK_FEI_MSB         = 0x1D
	REG_FSK_FEI_LSB         = 0x1E
	REG_FSK_PREAMBLE_DETECT = 0x1F
	REG_FSK_PREAMBLE_MSB    = 0x25
	REG_FSK_PREAMBLE_LSB    = 0x26
	REG_FSK_SYNC_CONFIG     = 0x27
	REG_FSK_SYNC_VALUE_1    = 0x28
	REG_FSK_SYNC_VALUE_2    = 0x29
	REG_FSK_SYNC_VALUE_3    = 0x2A
	REG_FSK_SYNC_VALUE_4    = 0x2B
	REG_FSK_PACKET_CONFIG_1 = 0x30
	REG_FSK_PACKET_CONFIG_2 = 0x31
	REG_FSK_PAYLOAD_LENGTH  = 0x32
	REG_FSK_FIFO_THRESH     = 0x35
	REG_FSK_IRQ_FLAGS_1     = 0x3E
	REG_FSK_IRQ_FLAGS_2     = 0x3F
)

// LoRa register set. Several addresses overlap the FSK set; the active
// modulation scheme selects which register is actually behind the address.
const (
	REG_LORA_FIFO_ADDR_PTR    = 0x0D
	REG_LORA_FIFO_TX_BASE     = 0x0E
	REG_LORA_FIFO_RX_BASE     = 0x0F
	REG_LORA_FIFO_RX_CURRENT  = 0x10
	REG_LORA_IRQ_FLAGS        = 0x12
	REG_LORA_RX_NB_BYTES      = 0x13
	REG_LORA_PKT_SNR_VALUE    = 0x19
	REG_LORA_PKT_RSSI_VALUE   = 0x1A
	REG_LORA_MODEMCONF1       = 0x1D
	REG_LORA_MODEMCONF2       = 0x1E
	REG_LORA_PREAMBLE_MSB     = 0x20
	REG_LORA_PREAMBLE_LSB     = 0x21
	REG_LORA_PAYLOAD_LENGTH   = 0x22
	REG_LORA_MODEMCONF3       = 0x26
	REG_LORA_PPM_CORRECTION   = 0x27
	REG_LORA_FEI_MSB          = 0x28
	REG_LORA_FEI_MID          = 0x29
	REG_LORA_FEI_LSB          = 0x2A
	REG_LORA_RSSI_WIDEBAND    = 0x2C
	REG_LORA_DETECT_OPTIMIZE  = 0x31
	REG_LORA_BW500_OPTIMIZE_1 = 0x36
	REG_LORA_DETECT_THRESHOLD = 0x37
	REG_LORA_SYNC_WORD        = 0x39
	REG_LORA_BW500_OPTIMIZE_2 = 0x3A
)

// Power/activity modes written to REG_OPMODE. MODE_LORA is the modulation
// select bit and is preserved across sleep/standby transitions.
const (
	MODE_LORA          = 0x80
	MODE_SLEEP         = 0x00
	MODE_STDBY         = 0x01
	MODE_TX            = 0x03
	MODE_RX_CONTINUOUS = 0x05
)

// PA_BOOST selects the high-power output pin in REG_PACONFIG.
const PA_BOOST = 0x80

// IRQ bits, FSK flag registers.
const (
	IRQ_FSK_MODE_READY    = 1 << 7 // in REG_FSK_IRQ_FLAGS_1
	IRQ_FSK_RX_READY      = 1 << 6 // in REG_FSK_IRQ_FLAGS_1
	IRQ_FSK_TX_READY      = 1 << 5 // in REG_FSK_IRQ_FLAGS_1
	IRQ_FSK_PACKET_SENT   = 1 << 3 // in REG_FSK_IRQ_FLAGS_2
	IRQ_FSK_PAYLOAD_READY = 1 << 2 // in REG_FSK_IRQ_FLAGS_2
)

// IRQ bits, LoRa flag register.
const (
	IRQ_LORA_RX_DONE     = 0x40
	IRQ_LORA_PAYLOAD_CRC = 0x20
	IRQ_LORA_TX_DONE     = 0x08
)

// DIO0 mappings. Page 46 table 18 lists the DIO0 values, page 92 places DIO0
// in the two most significant bits of REG_DIOMAPPING1.
const (
	DIO0_LORA_RX_DONE = 0 << 6
	DIO0_LORA_TX_DONE = 1 << 6
	DIO0_LORA_NONE    = 3 << 6

	// Packet mode mappings, page 69 table 30. PacketSent and PayloadReady
	// share the 00 mapping; which one fires depends on TX vs RX mode.
	DIO0_FSK_PAYLOAD_READY = 0 << 6
	DIO0_FSK_PACKET_SENT   = 0 << 6
	DIO0_FSK_NONE          = 2 << 6
)

// FIFO base addresses: the 256-byte data buffer is split so TX and RX halves
// can't clobber each other.
const (
	TX_FIFO_ADDR = 0x80
	RX_FIFO_ADDR = 0x00
)
