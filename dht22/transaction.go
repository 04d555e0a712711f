// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht22

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// transact runs the protocol from the start pulse to the last bit. The
// line is idle again when it returns, whatever the outcome.
func (d *Dev) transact(ctx context.Context) (f Frame, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.realtime {
		// The whole exchange lasts ~5ms; a GC pause or a thread migration in
		// the middle of it loses bits.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer debug.SetGCPercent(debug.SetGCPercent(-1))
	}
	defer func() {
		if ierr := d.idle(); ierr != nil {
			f = Frame{}
			err = errors.Join(err, ierr)
		}
	}()

	if err := ctx.Err(); err != nil {
		return f, fmt.Errorf("dht22: %w", err)
	}
	t := &d.timing

	// Start pulse.
	if err := d.pin.Out(gpio.Low); err != nil {
		return f, fmt.Errorf("dht22: failed to start: %w", err)
	}
	d.sleep(t.StartLow)
	if err := d.pin.Out(gpio.High); err != nil {
		return f, fmt.Errorf("dht22: failed to start: %w", err)
	}
	d.sleep(t.StartHigh)
	if err := d.pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return f, fmt.Errorf("dht22: failed to release line: %w", err)
	}
	d.sleep(t.Settle)

	// Handshake.
	if !d.await(gpio.Low, t.ResponseWindow) {
		return f, timeout(NoResponse)
	}
	if !d.await(gpio.High, t.AckWindow) {
		return f, timeout(NoAck)
	}
	if !d.await(gpio.Low, t.DataStartWindow) {
		return f, timeout(NoDataStart)
	}

	for i := 0; i < FrameBits; i++ {
		if err := ctx.Err(); err != nil {
			return Frame{}, fmt.Errorf("dht22: %w", err)
		}
		if !d.await(gpio.High, t.BitWindow) {
			return Frame{}, &Error{Kind: BitTimeout, Bit: i}
		}
		d.sleep(t.SampleDelay)
		if d.pin.Read() == gpio.High {
			f[i/8] |= 0x80 >> (i % 8)
		}
		if !d.await(gpio.Low, t.BitWindow) {
			return Frame{}, &Error{Kind: BitTimeout, Bit: i}
		}
	}
	return f, nil
}

// await polls the line until it reads l. It gives up after the number of
// poll intervals that fit in window.
func (d *Dev) await(l gpio.Level, window time.Duration) bool {
	for n := d.timing.polls(window); d.pin.Read() != l; n-- {
		if n == 0 {
			return false
		}
		d.sleep(d.timing.PollInterval)
	}
	return true
}
