// Copyright 2016 by Thorsten von Eicken, see LICENSE file

// Command mqttgw bridges one or two SX127x radios to an MQTT broker. Bytes
// published to <prefix>/tx are transmitted over the air, and each received
// packet is published to <prefix>/rx as a JSON object with payload and signal
// quality info.
//
// Two radios can share a single SPI chip select through a demux, see the
// spimux package; the -muxpin option enables this and radio 1 then uses the
// high select level.
package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/helijunky/raven"
	"github.com/helijunky/raven/spimux"
	"github.com/helijunky/raven/sx127x"
)

type radioFlags struct {
	reset *string
	intr  *string
	mod   *string
	freq  *uint
	power *int
	size  *int
	pref  *string
}

func addRadioFlags(n int, freq uint, pref string) radioFlags {
	s := fmt.Sprint(n)
	return radioFlags{
		reset: flag.String("reset"+s, "", "reset pin name for radio "+s),
		intr:  flag.String("intr"+s, "", "DIO0 interrupt pin name for radio "+s),
		mod:   flag.String("mod"+s, "lora", "modulation for radio "+s+": lora or fsk"),
		freq:  flag.Uint("freq"+s, freq, "center frequency in Hz for radio "+s),
		power: flag.Int("power"+s, 14, "output power in dBm for radio "+s),
		size:  flag.Int("size"+s, 10, "payload size in bytes for radio "+s),
		pref:  flag.String("pref"+s, pref, "MQTT topic prefix for radio "+s),
	}
}

// run instantiates one radio and wires it to the broker: a subscription on
// <prefix>/tx feeds Send, and the radio callback drains packets to
// <prefix>/rx. It returns once the radio is in continuous receive.
func run(spiDev raven.SPI, fl radioFlags, mq *mq, log *logrus.Entry) error {
	resetPin, err := raven.NewGPIO(*fl.reset)
	if err != nil {
		return err
	}
	intrPin, err := raven.NewGPIO(*fl.intr)
	if err != nil {
		return err
	}

	radio, err := sx127x.New(spiDev, resetPin, intrPin, sx127x.RadioOpts{
		Output: sx127x.OutputPABoost,
		Logger: log.Debugf,
	})
	if err != nil {
		return err
	}
	switch strings.ToLower(*fl.mod) {
	case "lora":
		radio.SetOpMode(sx127x.OpModeLoRa)
		radio.SetLoRaSpreadingFactor(7)
		radio.SetLoRaSignalBandwidth(sx127x.LoRaBw125)
		radio.SetLoRaCodingRate(sx127x.LoRaCR4_5)
		radio.SetLoRaCRC(true)
	case "fsk":
		radio.SetOpMode(sx127x.OpModeFSK)
		radio.SetFSKBitrate(49230)
		radio.SetFSKFdev(45000)
		radio.SetFSKRxBandwidth(100000)
	default:
		return fmt.Errorf("unknown modulation %q", *fl.mod)
	}
	radio.SetFrequency(uint32(*fl.freq), 0)
	radio.SetTxPower(*fl.power)
	radio.SetPayloadSize(*fl.size)
	if err := radio.Error(); err != nil {
		return err
	}

	// All radio access funnels through one goroutine, the driver is not
	// concurrency safe.
	txChan := make(chan []byte, 4)
	rxChan := make(chan struct{}, 4)
	radio.SetCallback(func(ev sx127x.Event) {
		if ev == sx127x.EventRxDone {
			select {
			case rxChan <- struct{}{}:
			default:
			}
		}
	})

	// arm reception before the radio goroutine takes over; from here on it
	// has exclusive use of the radio
	radio.EnableContinuousRx()
	if err := radio.Error(); err != nil {
		return err
	}

	err = mq.Subscribe(*fl.pref+"/tx", func(payload []byte) {
		select {
		case txChan <- payload:
		default:
			log.Warn("dropping tx packet, radio busy")
		}
	})
	if err != nil {
		return err
	}

	go func() {
		buf := make([]byte, *fl.size)
		for {
			select {
			case payload := <-txChan:
				// fixed length framing, pad or trim to the agreed size
				if len(payload) > *fl.size {
					payload = payload[:*fl.size]
				}
				for len(payload) < *fl.size {
					payload = append(payload, 0)
				}
				radio.Send(payload)
				for !radio.TxDone() {
					if err := radio.Error(); err != nil {
						log.WithError(err).Error("radio failed")
						return
					}
					time.Sleep(time.Millisecond)
				}
				radio.EnableContinuousRx()
			case <-rxChan:
				n := radio.Read(buf)
				rssi, snr, lq := radio.RSSI()
				msg := RxMessage{
					At:      time.Now(),
					Payload: append([]byte(nil), buf[:n]...),
					Rssi:    rssi,
					Snr:     float64(snr) / 4,
					Lq:      lq,
					Fei:     radio.FrequencyError(),
				}
				log.WithFields(logrus.Fields{
					"len": n, "rssi": rssi, "lq": lq,
				}).Info("packet received")
				mq.Publish(*fl.pref+"/rx", &msg)
			}
		}
	}()

	log.WithFields(logrus.Fields{
		"mod": *fl.mod, "freq": *fl.freq, "prefix": *fl.pref,
	}).Info("radio ready")
	return nil
}

func main() {
	mqttHost := flag.String("mqtt", "localhost:1883", "host:port of MQTT broker")
	mqttUser := flag.String("user", "", "MQTT username")
	mqttPass := flag.String("pass", "", "MQTT password")
	spiName := flag.String("spi", "", "SPI port name, empty for the first available")
	muxPin := flag.String("muxpin", "", "chip select mux pin name, enables radio 1")
	debug := flag.Bool("debug", false, "enable debug output")
	fl0 := addRadioFlags(0, 868000000, "radio/0")
	fl1 := addRadioFlags(1, 434000000, "radio/1")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *debug {
		log.SetLevel(logrus.DebugLevel)
	}

	mq, err := newMQ(*mqttHost, *mqttUser, *mqttPass, log.WithField("mod", "mqtt"))
	if err != nil {
		log.WithError(err).Fatal("cannot connect to MQTT broker")
	}

	if err := raven.Init(); err != nil {
		log.WithError(err).Fatal("cannot initialize host")
	}
	spiDev, err := raven.NewSPI(*spiName)
	if err != nil {
		log.WithError(err).Fatal("cannot open SPI port")
	}

	spi0 := spiDev
	var spi1 raven.SPI
	if *muxPin != "" {
		selPin, err := raven.NewGPIO(*muxPin)
		if err != nil {
			log.WithError(err).Fatal("cannot open mux pin")
		}
		spi0, spi1 = spimux.New(spiDev, selPin)
	}

	if err := run(spi0, fl0, mq, log.WithField("radio", 0)); err != nil {
		log.WithError(err).Fatal("radio 0 failed")
	}
	if spi1 != nil {
		if err := run(spi1, fl1, mq, log.WithField("radio", 1)); err != nil {
			log.WithError(err).Fatal("radio 1 failed")
		}
	}

	log.Info("gateway is ready")
	select {} // everything else happens on the radio goroutines
}
