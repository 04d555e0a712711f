// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package monitor

import (
	"time"

	"github.com/pkg/errors"

	"github.com/GermanBionicSystems/dht/dht22"
)

// Config is the polling policy.
type Config struct {
	// Interval is the quiet period after every poll. It can't be shorter
	// than the sensor recovery time.
	Interval time.Duration
	// FailureHold is added to Interval after a failed poll.
	FailureHold time.Duration
	// ResetAfter is the number of consecutive failures that triggers a
	// sensor reset. 0 disables resets.
	ResetAfter int
	// ResetHold is added to the wait after a reset.
	ResetHold time.Duration

	// HumidityScale multiplies every humidity reading. Some boards need a
	// correction factor; the first firmware of this station used 1/40.
	HumidityScale float64

	// HotAbove and ColdBelow classify temperatures in °C.
	HotAbove  float64
	ColdBelow float64
}

// DefaultConfig mirrors the station firmware, without humidity correction.
var DefaultConfig = Config{
	Interval:      2 * time.Second,
	FailureHold:   2 * time.Second,
	ResetAfter:    5,
	ResetHold:     2 * time.Second,
	HumidityScale: 1,
	HotAbove:      32,
	ColdBelow:     18,
}

// Validate returns an error for a policy that would misuse the sensor.
func (c *Config) Validate() error {
	if c.Interval < dht22.DefaultTiming.Recovery {
		return errors.Errorf("interval %s is shorter than the sensor recovery time %s", c.Interval, dht22.DefaultTiming.Recovery)
	}
	if c.FailureHold < 0 || c.ResetHold < 0 {
		return errors.New("hold durations can't be negative")
	}
	if c.ResetAfter < 0 {
		return errors.Errorf("invalid reset threshold %d", c.ResetAfter)
	}
	if c.HumidityScale <= 0 {
		return errors.Errorf("invalid humidity scale %g", c.HumidityScale)
	}
	if c.ColdBelow >= c.HotAbove {
		return errors.Errorf("cold threshold %g must be below hot threshold %g", c.ColdBelow, c.HotAbove)
	}
	return nil
}

// Classify returns the comfort level of a temperature in °C.
func (c *Config) Classify(celsius float64) Comfort {
	switch {
	case celsius > c.HotAbove:
		return Hot
	case celsius > c.ColdBelow:
		return Comfortable
	default:
		return Cold
	}
}

func (c *Config) wait(st *Status) time.Duration {
	d := c.Interval
	if !st.OK {
		d += c.FailureHold
	}
	if st.Reset {
		d += c.ResetHold
	}
	return d
}

// Comfort is a coarse classification of the temperature.
type Comfort int

const (
	// Unknown is used when there is no reading.
	Unknown Comfort = iota
	Cold
	Comfortable
	Hot
)

var comfortNames = [...]string{"unknown", "cold", "comfortable", "hot"}

var comfortMessages = [...]string{"", "Brr, it's cold!", "Nice and comfy!", "Hot, isn't it?"}

func (c Comfort) String() string {
	if c < Unknown || c > Hot {
		return comfortNames[Unknown]
	}
	return comfortNames[c]
}

// Message returns a short sentence for a display.
func (c Comfort) Message() string {
	if c < Unknown || c > Hot {
		return ""
	}
	return comfortMessages[c]
}
