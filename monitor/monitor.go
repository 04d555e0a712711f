// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package monitor polls a DHT22 forever and applies the policy the driver
// leaves to its caller.
//
// The sensor needs a quiet period between transactions and is reset after
// repeated failures. The last good reading is kept for display.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/GermanBionicSystems/dht/dht22"
)

// Sensor is the part of *dht22.Dev the monitor uses.
type Sensor interface {
	ReadContext(ctx context.Context) (dht22.Reading, error)
	Reset() error
}

// Sink receives every Status produced by Run.
type Sink interface {
	Update(st Status) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(st Status) error

// Update implements Sink.
func (f SinkFunc) Update(st Status) error {
	return f(st)
}

// Status is the outcome of one poll.
type Status struct {
	Time     time.Time
	Duration time.Duration // time spent in the transaction
	OK       bool

	// Reading is calibrated. It is zero unless OK.
	Reading dht22.Reading
	Comfort Comfort

	// Err is set unless OK. Kind is zero for errors that are not protocol
	// failures, like a GPIO error.
	Err  error
	Kind dht22.ErrorKind

	Failures  int  // consecutive failures, including this one
	Successes int  // successful polls since start
	Resets    int  // sensor resets since start
	Reset     bool // the sensor was reset after this poll

	// Last is the last good calibrated reading, valid if HasLast.
	Last    dht22.Reading
	HasLast bool
}

// Label returns the error label to show for a failed poll.
func (st *Status) Label() string {
	if st.OK {
		return "OK"
	}
	if st.Kind != 0 {
		return st.Kind.Message()
	}
	return "ERR:I/O"
}

// Monitor runs the polling loop. Poll and Run must not be called
// concurrently; Last can be called from any goroutine.
type Monitor struct {
	sensor Sensor
	cfg    Config
	clock  clockwork.Clock
	log    logrus.FieldLogger

	mu        sync.Mutex
	last      Status
	polled    bool
	failures  int
	successes int
	resets    int
	good      dht22.Reading
	hasGood   bool
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithClock replaces the real clock, mostly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

// WithLogger sets the logger. Default is the logrus standard logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Monitor) { m.log = l }
}

// New returns a Monitor polling s.
func New(s Sensor, cfg Config, opts ...Option) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "monitor: invalid config")
	}
	m := &Monitor{
		sensor: s,
		cfg:    cfg,
		clock:  clockwork.NewRealClock(),
		log:    logrus.StandardLogger(),
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Last returns the most recent status. ok is false before the first poll.
func (m *Monitor) Last() (st Status, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.polled
}

// Poll runs one transaction and applies the failure policy. A poll
// interrupted by ctx is reported but not counted as a failure.
func (m *Monitor) Poll(ctx context.Context) Status {
	start := m.clock.Now()
	r, err := m.sensor.ReadContext(ctx)
	st := Status{Time: start, Duration: m.clock.Since(start)}

	if err != nil && ctx.Err() != nil {
		st.Err = errors.Wrap(err, "poll interrupted")
		m.mu.Lock()
		defer m.mu.Unlock()
		m.fill(&st)
		return st
	}

	if err == nil {
		r.Humidity *= m.cfg.HumidityScale
		st.OK = true
		st.Reading = r
		st.Comfort = m.cfg.Classify(r.Temperature)
		m.log.WithFields(logrus.Fields{
			"temperature": r.Temperature,
			"humidity":    r.Humidity,
			"comfort":     st.Comfort.String(),
		}).Debug("reading")
	} else {
		st.Err = err
		st.Kind, _ = dht22.KindOf(err)
	}

	m.mu.Lock()
	if st.OK {
		m.successes++
		m.failures = 0
		m.good = r
		m.hasGood = true
	} else {
		m.failures++
	}
	st.Failures = m.failures
	reset := !st.OK && m.cfg.ResetAfter > 0 && m.failures >= m.cfg.ResetAfter
	if reset {
		m.failures = 0
	}
	m.mu.Unlock()

	if !st.OK {
		m.log.WithError(st.Err).WithField("failures", st.Failures).Warn(st.Label())
	}
	if reset {
		if rerr := m.sensor.Reset(); rerr != nil {
			m.log.WithError(errors.Wrap(rerr, "sensor reset")).Error("reset failed")
		} else {
			st.Reset = true
			m.log.WithField("failures", st.Failures).Info("sensor reset")
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if st.Reset {
		m.resets++
	}
	m.fill(&st)
	m.last = st
	m.polled = true
	return st
}

// fill copies the counters into st. m.mu must be held.
func (m *Monitor) fill(st *Status) {
	st.Successes = m.successes
	st.Resets = m.resets
	st.Last = m.good
	st.HasLast = m.hasGood
}

// Run polls until ctx is done and feeds every status to the sinks. Sink
// errors are logged and do not stop the loop. It returns ctx.Err().
func (m *Monitor) Run(ctx context.Context, sinks ...Sink) error {
	for {
		st := m.Poll(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		for _, s := range sinks {
			if err := s.Update(st); err != nil {
				m.log.WithError(err).Warn("sink update failed")
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.clock.After(m.cfg.wait(&st)):
		}
	}
}
