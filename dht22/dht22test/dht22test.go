// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dht22test is meant to be used to test drivers of single-wire
// DHT22 style sensors with a simulated sensor.
//
// Sensor keeps its own virtual clock, advanced only by Sensor.Sleep. Pass
// Sleep to the driver so every poll and delay of a transaction moves the
// simulated waveform forward deterministically.
package dht22test

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
)

// Waveform holds the pulse widths produced by the simulated sensor.
type Waveform struct {
	// MinStart is the shortest host low pulse that wakes the sensor.
	MinStart time.Duration
	// Response is the delay between the host releasing the line and the
	// sensor pulling it low.
	Response time.Duration
	// ResponseLow and ResponseHigh are the two halves of the acknowledge.
	ResponseLow  time.Duration
	ResponseHigh time.Duration
	// BitLow precedes every bit and ends the frame.
	BitLow time.Duration
	// Zero and One are the high times of a 0 and a 1 bit.
	Zero time.Duration
	One  time.Duration
}

// DefaultWaveform follows the DHT22 datasheet.
var DefaultWaveform = Waveform{
	MinStart:     time.Millisecond,
	Response:     30 * time.Microsecond,
	ResponseLow:  80 * time.Microsecond,
	ResponseHigh: 80 * time.Microsecond,
	BitLow:       50 * time.Microsecond,
	Zero:         27 * time.Microsecond,
	One:          70 * time.Microsecond,
}

// Fault makes the simulated sensor misbehave at one step of the protocol.
type Fault int

const (
	// NoFault sends the frame as is.
	NoFault Fault = iota
	// Silent ignores the start pulse.
	Silent
	// HoldLow keeps the line low after the response pulse.
	HoldLow
	// HoldHigh keeps the line high after the acknowledge pulse.
	HoldHigh
	// Stall keeps the line high during bit FaultBit.
	Stall
	// Dropout keeps the line low before bit FaultBit.
	Dropout
)

// Op is a change of direction or level requested by the host.
type Op struct {
	At     time.Duration // virtual time
	Output bool          // false when the line was released as input
	L      gpio.Level    // driven level, or the pull when released
}

func (o Op) String() string {
	if o.Output {
		return fmt.Sprintf("%s Out(%s)", o.At, o.L)
	}
	return fmt.Sprintf("%s In", o.At)
}

// forever is longer than any window a driver waits.
const forever = time.Duration(1 << 62)

type segment struct {
	l gpio.Level
	d time.Duration
}

// Sensor implements gpio.PinIO and simulates a DHT22 on the other end of
// the line.
//
// Modify Frame, Waveform and Fault before a transaction to change what the
// next one produces.
type Sensor struct {
	gpiotest.Pin

	// Frame is sent MSB first, byte 0 first. It is not validated.
	Frame [5]byte
	// Waveform holds the pulse widths. The zero value means DefaultWaveform.
	Waveform Waveform
	Fault    Fault
	FaultBit int

	// Grab the Mutex before accessing the following members.
	Now          time.Duration // virtual clock
	Ops          []Op          // every Out and In call
	Reads        int           // number of Read calls
	Transactions int           // start pulses the sensor answered or ignored

	output bool
	lowAt  time.Duration
	start  time.Duration
	wave   []segment
}

// Sleep advances the virtual clock by d.
func (s *Sensor) Sleep(d time.Duration) {
	s.Lock()
	defer s.Unlock()
	s.Now += d
}

// Idle returns true if the line is an output driven high.
func (s *Sensor) Idle() bool {
	s.Lock()
	defer s.Unlock()
	return s.output && s.L == gpio.High
}

// In implements gpio.PinIn. It releases the line.
func (s *Sensor) In(pull gpio.Pull, edge gpio.Edge) error {
	s.Lock()
	defer s.Unlock()
	if edge != gpio.NoEdge {
		return errors.New("dht22test: edge detection is not simulated")
	}
	s.Ops = append(s.Ops, Op{At: s.Now, L: gpio.Level(pull == gpio.PullUp)})
	s.output = false
	s.P = pull
	return nil
}

// Read implements gpio.PinIn.
func (s *Sensor) Read() gpio.Level {
	s.Lock()
	defer s.Unlock()
	s.Reads++
	if s.output {
		return s.L
	}
	return s.levelAt(s.Now)
}

// WaitForEdge implements gpio.PinIn. Edges are not simulated.
func (s *Sensor) WaitForEdge(timeout time.Duration) bool {
	return false
}

// Out implements gpio.PinOut.
func (s *Sensor) Out(l gpio.Level) error {
	s.Lock()
	defer s.Unlock()
	s.Ops = append(s.Ops, Op{At: s.Now, Output: true, L: l})
	wasLow := s.output && s.L == gpio.Low
	switch {
	case l == gpio.Low && !wasLow:
		// The host took the line back; whatever the sensor was sending is lost.
		s.lowAt = s.Now
		s.wave = nil
	case l == gpio.High && wasLow && s.Now-s.lowAt >= s.waveform().MinStart:
		s.trigger()
	}
	s.output = true
	s.L = l
	return nil
}

func (s *Sensor) String() string {
	return fmt.Sprintf("dht22test.Sensor(%s)", s.Pin.String())
}

func (s *Sensor) waveform() Waveform {
	if s.Waveform == (Waveform{}) {
		return DefaultWaveform
	}
	return s.Waveform
}

// trigger schedules the response to a start pulse ending now.
func (s *Sensor) trigger() {
	s.Transactions++
	s.start = s.Now
	s.wave = nil
	if s.Fault == Silent {
		return
	}
	w := s.waveform()
	add := func(l gpio.Level, d time.Duration) {
		s.wave = append(s.wave, segment{l, d})
	}
	add(gpio.High, w.Response)
	if s.Fault == HoldLow {
		add(gpio.Low, forever)
		return
	}
	add(gpio.Low, w.ResponseLow)
	if s.Fault == HoldHigh {
		add(gpio.High, forever)
		return
	}
	add(gpio.High, w.ResponseHigh)
	for i := 0; i < 8*len(s.Frame); i++ {
		if s.Fault == Dropout && s.FaultBit == i {
			add(gpio.Low, forever)
			return
		}
		add(gpio.Low, w.BitLow)
		if s.Fault == Stall && s.FaultBit == i {
			add(gpio.High, forever)
			return
		}
		if s.Frame[i/8]&(0x80>>(i%8)) != 0 {
			add(gpio.High, w.One)
		} else {
			add(gpio.High, w.Zero)
		}
	}
	add(gpio.Low, w.BitLow)
}

// levelAt returns the level of the released line at t. The pull-up holds it
// high whenever the sensor does not drive it.
func (s *Sensor) levelAt(t time.Duration) gpio.Level {
	if s.wave == nil || t < s.start {
		return gpio.High
	}
	t -= s.start
	for _, seg := range s.wave {
		if t < seg.d {
			return seg.l
		}
		t -= seg.d
	}
	return gpio.High
}

var _ gpio.PinIO = &Sensor{}
