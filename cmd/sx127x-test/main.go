// Copyright 2016 by Thorsten von Eicken, see LICENSE file

// Command sx127x-test exercises an SX127x radio from the command line. It
// configures the radio for either FSK or LoRa, then sends a couple of packets
// or sits in continuous receive printing what arrives.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/helijunky/raven"
	"github.com/helijunky/raven/sx127x"
)

func panicIf(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	spiName := flag.String("spi", "", "SPI port name, empty for the first available")
	resetName := flag.String("reset", "GPIO17", "reset pin name")
	intrName := flag.String("intr", "GPIO25", "DIO0 interrupt pin name")
	freq := flag.Uint("freq", 868000000, "center frequency in Hz")
	power := flag.Int("power", 14, "output power in dBm")
	lora := flag.Bool("lora", true, "use LoRa modulation instead of FSK")
	sf := flag.Int("sf", 7, "LoRa spreading factor (6..12)")
	size := flag.Int("size", 10, "payload size in bytes (both ends must agree)")
	debug := flag.Bool("debug", false, "enable debug output")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] tx|rx\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
	}

	panicIf(raven.Init())

	spiDev, err := raven.NewSPI(*spiName)
	panicIf(err)
	resetPin, err := raven.NewGPIO(*resetName)
	panicIf(err)
	intrPin, err := raven.NewGPIO(*intrName)
	panicIf(err)

	var logger sx127x.LogPrintf
	if *debug {
		logger = log.Printf
	}

	log.Printf("Initializing radio...")
	t0 := time.Now()
	radio, err := sx127x.New(spiDev, resetPin, intrPin, sx127x.RadioOpts{
		Output: sx127x.OutputPABoost,
		Logger: logger,
	})
	panicIf(err)
	if *lora {
		radio.SetOpMode(sx127x.OpModeLoRa)
		radio.SetLoRaSpreadingFactor(*sf)
		radio.SetLoRaSignalBandwidth(sx127x.LoRaBw125)
		radio.SetLoRaCodingRate(sx127x.LoRaCR4_5)
		radio.SetLoRaCRC(true)
	} else {
		radio.SetOpMode(sx127x.OpModeFSK)
		radio.SetFSKBitrate(49230)
		radio.SetFSKFdev(45000)
		radio.SetFSKRxBandwidth(100000)
	}
	radio.SetFrequency(uint32(*freq), 0)
	radio.SetTxPower(*power)
	radio.SetPayloadSize(*size)
	panicIf(radio.Error())
	log.Printf("Ready (%.1fms)", time.Since(t0).Seconds()*1000)

	if flag.Arg(0) == "tx" {

		for i := 1; i <= 2; i++ {
			log.Printf("Sending packet %d ...", i)
			t0 = time.Now()
			msg := fmt.Sprintf("\x01Hello %03d", i)
			radio.Send([]byte(msg))
			for !radio.TxDone() {
				time.Sleep(time.Millisecond)
			}
			log.Printf("Sent in %.1fms", time.Since(t0).Seconds()*1000)
			time.Sleep(100 * time.Millisecond)
			panicIf(radio.Error())
		}

		radio.Shutdown()
		log.Printf("Bye...")

	} else {

		pktChan := make(chan struct{}, 4)
		radio.SetCallback(func(ev sx127x.Event) {
			if ev == sx127x.EventRxDone {
				pktChan <- struct{}{}
			}
		})
		radio.EnableContinuousRx()
		panicIf(radio.Error())

		log.Printf("Receiving packets ...")
		buf := make([]byte, *size)
		for range pktChan {
			n := radio.Read(buf)
			rssi, snr, lq := radio.RSSI()
			fei := radio.FrequencyError()
			log.Printf("Got len=%d rssi=%ddB snr=%.2fdB lq=%d fei=%dHz %q",
				n, rssi, float64(snr)/4, lq, fei, string(buf[:n]))
		}
	}
}
