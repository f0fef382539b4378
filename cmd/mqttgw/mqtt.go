// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// RxMessage is published for each received packet. Payload is JSON encoded as
// base64 per encoding/json's []byte convention.
type RxMessage struct {
	At      time.Time // reception timestamp
	Payload []byte    // packet payload
	Rssi    int       // RSSI in dBm
	Snr     float64   // SNR in dB
	Lq      int       // link quality, 0..100
	Fei     int       // frequency error in Hz
}

// mq is a handle onto an MQTT broker connection. It isolates the gateway code
// from the paho client and does the JSON (un)marshaling in one place.
type mq struct {
	conn mqtt.Client
	log  *logrus.Entry
}

// newMQ connects to a broker and returns a new mq object. The connection is
// persistent, i.e. re-establishes itself if there is a disconnect, and paho
// renews subscriptions after a reconnect.
func newMQ(host, user, pass string, log *logrus.Entry) (*mq, error) {
	hostname, _ := os.Hostname()
	id := "mqttgw-" + hostname
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s", host)).
		SetClientID(id).
		SetUsername(user).
		SetPassword(pass).
		SetAutoReconnect(true)

	conn := mqtt.NewClient(opts)
	if token := conn.Connect(); !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("mqtt connect to %s: %v", host, token.Error())
	}
	log.WithField("broker", host).Info("MQTT connected")
	return &mq{conn: conn, log: log}, nil
}

// Publish JSON encodes payload and publishes it at QoS 1.
func (mq *mq) Publish(topic string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		mq.log.WithField("topic", topic).WithError(err).Error("cannot encode message")
		return
	}
	mq.conn.Publish(topic, 1, false, data)
}

// Subscribe subscribes at QoS 1 and hands each message's raw payload to
// handler on paho's delivery goroutine.
func (mq *mq) Subscribe(topic string, handler func([]byte)) error {
	h := func(c mqtt.Client, m mqtt.Message) { handler(m.Payload()) }
	if token := mq.conn.Subscribe(topic, 1, h); !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("mqtt subscribe to %s: %v", topic, token.Error())
	}
	return nil
}
