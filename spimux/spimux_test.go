// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package spimux

import (
	"testing"
	"time"
)

// recordingSPI logs the select pin level seen at each transaction.
type recordingSPI struct {
	pin    *recordingPin
	levels []int
	closed bool
}

func (s *recordingSPI) Tx(w, r []byte) error {
	s.levels = append(s.levels, s.pin.level)
	return nil
}

func (s *recordingSPI) Close() error {
	s.closed = true
	return nil
}

type recordingPin struct {
	level int
}

func (p *recordingPin) In(edge int) error                      { return nil }
func (p *recordingPin) Read() int                              { return p.level }
func (p *recordingPin) WaitForEdge(timeout time.Duration) bool { return false }
func (p *recordingPin) Out(level int)                          { p.level = level }
func (p *recordingPin) Number() int                            { return 0 }

func Test_Select(t *testing.T) {
	pin := &recordingPin{level: 1}
	dev := &recordingSPI{pin: pin}
	low, high := New(dev, pin)

	low.Tx([]byte{1}, []byte{0})
	high.Tx([]byte{2}, []byte{0})
	low.Tx([]byte{3}, []byte{0})

	want := []int{0, 1, 0}
	if len(dev.levels) != len(want) {
		t.Fatalf("Transactions got %v expected %v", dev.levels, want)
	}
	for i := range want {
		if dev.levels[i] != want[i] {
			t.Errorf("Transaction %d select got %d expected %d", i, dev.levels[i], want[i])
		}
	}
}

func Test_Close(t *testing.T) {
	pin := &recordingPin{}
	dev := &recordingSPI{pin: pin}
	low, _ := New(dev, pin)
	if err := low.Close(); err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
	if !dev.closed {
		t.Errorf("Close should close the underlying device")
	}
}
