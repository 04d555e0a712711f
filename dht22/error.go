// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht22

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed transaction by the protocol phase that
// failed. The numeric values are stable.
type ErrorKind uint8

const (
	// NoResponse means the line stayed high after the start pulse.
	NoResponse ErrorKind = iota + 1
	// NoAck means the sensor never released the line after responding.
	NoAck
	// NoDataStart means the line stayed high after the acknowledge pulse.
	NoDataStart
	// BitTimeout means an edge of one of the 40 data bits was missed.
	BitTimeout
	// ChecksumMismatch means all bits were read but the checksum byte is
	// wrong.
	ChecksumMismatch
)

var kindLabels = [...]string{
	NoResponse:       "No Response",
	NoAck:            "No ACK",
	NoDataStart:      "No Data",
	BitTimeout:       "Bit Timeout",
	ChecksumMismatch: "Checksum",
}

func (k ErrorKind) valid() bool {
	return k >= NoResponse && k <= ChecksumMismatch
}

// String returns the human readable label. The labels are meant for small
// displays and log lines and do not change.
func (k ErrorKind) String() string {
	if !k.valid() {
		return "Unknown"
	}
	return kindLabels[k]
}

// Code returns the short code, "ERR1" to "ERR5".
func (k ErrorKind) Code() string {
	if !k.valid() {
		return "ERR"
	}
	return fmt.Sprintf("ERR%d", uint8(k))
}

// Message returns the code and label, e.g. "ERR2:No ACK".
func (k ErrorKind) Message() string {
	return k.Code() + ":" + k.String()
}

// Error implements error so a kind can be used as a target of errors.Is.
func (k ErrorKind) Error() string {
	return "dht22: " + k.String()
}

// Error is returned by a failed transaction.
type Error struct {
	Kind ErrorKind
	// Bit is the index (0..39) of the bit that timed out. It is -1 for
	// other kinds.
	Bit int
	// Frame is the received frame on ChecksumMismatch, zero otherwise.
	Frame Frame
}

func (e *Error) Error() string {
	switch e.Kind {
	case BitTimeout:
		return fmt.Sprintf("dht22: %s at bit %d", e.Kind.String(), e.Bit)
	case ChecksumMismatch:
		return fmt.Sprintf("dht22: %s: got 0x%02x, want 0x%02x", e.Kind.String(), e.Frame[4], e.Frame.Checksum())
	default:
		return e.Kind.Error()
	}
}

// Unwrap returns the ErrorKind.
func (e *Error) Unwrap() error {
	return e.Kind
}

// KindOf returns the ErrorKind carried by err, if any.
func KindOf(err error) (ErrorKind, bool) {
	var k ErrorKind
	if errors.As(err, &k) {
		return k, true
	}
	return 0, false
}

func timeout(k ErrorKind) *Error {
	return &Error{Kind: k, Bit: -1}
}
