// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht22

import (
	"errors"
	"fmt"
	"time"
)

// Timing holds the protocol parameters of a sensor variant. All values come
// from the datasheet, with some margin added on the windows.
type Timing struct {
	// StartLow is how long the host holds the line low to wake the sensor.
	// The datasheet asks for at least 1ms.
	StartLow time.Duration
	// StartHigh is how long the host drives the line high before releasing it.
	StartHigh time.Duration
	// Settle is the wait after switching the line to input.
	Settle time.Duration
	// PollInterval is the sleep between two samples of the line while
	// waiting for an edge.
	PollInterval time.Duration

	// ResponseWindow bounds the wait for the sensor to pull the line low.
	ResponseWindow time.Duration
	// AckWindow bounds the wait for the acknowledge high pulse.
	AckWindow time.Duration
	// DataStartWindow bounds the wait for the low pulse preceding the data.
	DataStartWindow time.Duration
	// BitWindow bounds each of the two edge waits of every data bit.
	BitWindow time.Duration

	// SampleDelay is the time between the rising edge of a bit and the
	// sample. It must lie strictly between ZeroPulse and OnePulse.
	SampleDelay time.Duration
	// ZeroPulse is the nominal high time of a 0 bit.
	ZeroPulse time.Duration
	// OnePulse is the nominal high time of a 1 bit.
	OnePulse time.Duration

	// Stabilize is the wait after driving the line high at initialization.
	Stabilize time.Duration
	// Recovery is the minimum quiet period between two transactions.
	Recovery time.Duration
}

// DefaultTiming holds the DHT22 / AM2302 parameters.
var DefaultTiming = Timing{
	StartLow:        5 * time.Millisecond,
	StartHigh:       30 * time.Microsecond,
	Settle:          10 * time.Microsecond,
	PollInterval:    2 * time.Microsecond,
	ResponseWindow:  120 * time.Microsecond,
	AckWindow:       100 * time.Microsecond,
	DataStartWindow: 100 * time.Microsecond,
	BitWindow:       120 * time.Microsecond,
	SampleDelay:     35 * time.Microsecond,
	ZeroPulse:       28 * time.Microsecond,
	OnePulse:        70 * time.Microsecond,
	Stabilize:       100 * time.Millisecond,
	Recovery:        2 * time.Second,
}

// Validate returns an error if the parameters can't decode a frame.
func (t *Timing) Validate() error {
	if t.StartLow < time.Millisecond {
		return fmt.Errorf("dht22: start pulse %s is shorter than 1ms", t.StartLow)
	}
	if t.PollInterval <= 0 {
		return errors.New("dht22: poll interval must be positive")
	}
	windows := []struct {
		name string
		d    time.Duration
	}{
		{"response", t.ResponseWindow},
		{"ack", t.AckWindow},
		{"data start", t.DataStartWindow},
		{"bit", t.BitWindow},
	}
	for _, w := range windows {
		if w.d < t.PollInterval {
			return fmt.Errorf("dht22: %s window %s is shorter than the poll interval %s", w.name, w.d, t.PollInterval)
		}
	}
	if t.ZeroPulse >= t.OnePulse {
		return fmt.Errorf("dht22: 0 pulse %s must be shorter than 1 pulse %s", t.ZeroPulse, t.OnePulse)
	}
	if t.SampleDelay <= t.ZeroPulse || t.SampleDelay >= t.OnePulse {
		return fmt.Errorf("dht22: sample delay %s must be within (%s, %s)", t.SampleDelay, t.ZeroPulse, t.OnePulse)
	}
	return nil
}

// polls returns how many poll intervals fit in the window.
func (t *Timing) polls(window time.Duration) int {
	return int(window / t.PollInterval)
}
