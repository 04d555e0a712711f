// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht22

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
)

// Opts holds the configuration options for the device.
type Opts struct {
	// Timing holds the protocol parameters. The zero value is invalid, start
	// from DefaultTiming.
	Timing Timing
	// Sleep waits for the given duration. Default busy-waits below 1ms,
	// since time.Sleep overshoots by tens of microseconds on most hosts.
	Sleep func(time.Duration)
	// Realtime locks the OS thread and disables the garbage collector for the
	// duration of each transaction. Default is true.
	Realtime bool
}

// DefaultOpts holds the default configuration options for the device.
var DefaultOpts = Opts{
	Timing:   DefaultTiming,
	Realtime: true,
}

// Dev is a handle to a DHT22 sensor wired to a single GPIO line.
type Dev struct {
	pin      gpio.PinIO
	timing   Timing
	sleep    func(time.Duration)
	realtime bool

	mu sync.Mutex // serializes transactions on the line

	smu  sync.Mutex // guards stop
	stop chan struct{}
	wg   sync.WaitGroup
}

// New returns a Dev on the line p. The Opts can be nil.
//
// It drives the line high and waits Timing.Stabilize, so the first
// transaction can start as soon as New returns.
func New(p gpio.PinIO, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if err := opts.Timing.Validate(); err != nil {
		return nil, err
	}
	d := &Dev{pin: p, timing: opts.Timing, sleep: opts.Sleep, realtime: opts.Realtime}
	if d.sleep == nil {
		d.sleep = spin
	}
	if err := d.Reset(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) String() string {
	return "DHT22{" + d.pin.String() + "}"
}

// Reset puts the line back in its idle state and waits for the sensor to
// stabilize. Use it after repeated failures.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.idle(); err != nil {
		return err
	}
	d.sleep(d.timing.Stabilize)
	return nil
}

// Read runs one transaction and returns the decoded measurement.
//
// On failure the error is a *Error; use errors.Is with an ErrorKind or
// KindOf to classify it. Callers must wait Timing.Recovery between reads.
func (d *Dev) Read() (Reading, error) {
	return d.ReadContext(context.Background())
}

// ReadContext is like Read but gives up when ctx is done. The context is
// checked between protocol phases and between bits.
func (d *Dev) ReadContext(ctx context.Context) (Reading, error) {
	f, err := d.ReadFrame(ctx)
	if err != nil {
		return Reading{}, err
	}
	return f.Decode()
}

// ReadFrame runs one transaction and returns the raw frame. The checksum
// is verified.
func (d *Dev) ReadFrame(ctx context.Context) (Frame, error) {
	f, err := d.transact(ctx)
	if err != nil {
		return Frame{}, err
	}
	if !f.Valid() {
		return Frame{}, &Error{Kind: ChecksumMismatch, Bit: -1, Frame: f}
	}
	return f, nil
}

// Sense implements physic.SenseEnv. Pressure is not modified.
func (d *Dev) Sense(e *physic.Env) error {
	f, err := d.ReadFrame(context.Background())
	if err != nil {
		return err
	}
	return f.Env(e)
}

// SenseContinuous implements physic.SenseEnv. The interval must be at least
// Timing.Recovery. Failed transactions are skipped. Call Halt to stop.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < d.timing.Recovery {
		return nil, fmt.Errorf("dht22: invalid interval %s, minimum %s", interval, d.timing.Recovery)
	}
	d.smu.Lock()
	defer d.smu.Unlock()
	if d.stop != nil {
		return nil, errors.New("dht22: sense continuous already running")
	}
	stop := make(chan struct{})
	d.stop = stop
	ch := make(chan physic.Env)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				var e physic.Env
				if err := d.Sense(&e); err != nil {
					continue
				}
				select {
				case ch <- e:
				case <-stop:
					return
				}
			}
		}
	}()
	return ch, nil
}

// Precision implements physic.SenseEnv.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = physic.Celsius / 10
	e.Humidity = physic.MilliRH
}

// Halt implements conn.Resource. It stops SenseContinuous and leaves the
// line idle.
func (d *Dev) Halt() error {
	d.smu.Lock()
	if d.stop != nil {
		close(d.stop)
		d.stop = nil
	}
	d.smu.Unlock()
	d.wg.Wait()

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idle()
}

// idle drives the line high as an output.
func (d *Dev) idle() error {
	if err := d.pin.Out(gpio.High); err != nil {
		return fmt.Errorf("dht22: failed to drive line high: %w", err)
	}
	return nil
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
