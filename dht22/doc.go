// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dht22 controls an AOSONG DHT22 (AM2302) temperature and humidity
// sensor over a single bidirectional GPIO line.
//
// The sensor has no bus controller: the host bit-bangs the whole exchange.
// It drives a start pulse, releases the line, waits for the sensor's
// response and acknowledge pulses, then times 40 high pulses. A pulse still
// high after Timing.SampleDelay is a 1, otherwise a 0. The fifth byte is the
// low byte of the sum of the first four.
//
// # Timing
//
// All bounds are expressed in Timing. Every wait is a bounded number of
// polls separated by Timing.PollInterval, so the longest wait of a phase is
// its window. A failed wait aborts the transaction with the matching
// ErrorKind. The line is always returned to output high before Read
// returns.
//
// The sensor needs about 2 seconds between transactions to complete its own
// sampling cycle. Dev does not enforce this on Read; callers polling the
// sensor must wait at least Timing.Recovery between calls. SenseContinuous
// refuses shorter intervals.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/Sensors/Temperature/DHT22.pdf
package dht22
