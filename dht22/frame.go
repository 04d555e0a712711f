// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht22

import (
	"fmt"

	"github.com/GermanBionicSystems/dht/common"
	"periph.io/x/conn/v3/physic"
)

// FrameBits is the number of bits sent by the sensor in one transaction.
const FrameBits = 40

const signBit = 0x8000

// Frame is the raw data of one transaction, most significant bit first:
//
//	[0:2] relative humidity in tenths of percent, big endian
//	[2:4] temperature in tenths of °C, big endian sign and magnitude
//	[4]   low byte of the sum of bytes 0 to 3
type Frame [5]byte

// NewFrame encodes values in tenths of a unit and sets the checksum.
// Temperatures beyond ±3276.7°C are truncated to 15 bits of magnitude.
func NewFrame(humidity uint16, temperature int16) Frame {
	t := uint16(temperature)
	if temperature < 0 {
		t = uint16(-int32(temperature))&^signBit | signBit
	}
	f := Frame{byte(humidity >> 8), byte(humidity), byte(t >> 8), byte(t)}
	f[4] = f.Checksum()
	return f
}

// Checksum returns the checksum computed over the data bytes.
func (f Frame) Checksum() byte {
	return common.Sum8(f[:4])
}

// Valid returns true if the checksum byte matches the data.
func (f Frame) Valid() bool {
	return f.Checksum() == f[4]
}

// Humidity returns the raw relative humidity in tenths of percent.
func (f Frame) Humidity() uint16 {
	return uint16(f[0])<<8 | uint16(f[1])
}

// Temperature returns the temperature in tenths of °C.
func (f Frame) Temperature() int16 {
	raw := uint16(f[2])<<8 | uint16(f[3])
	if raw&signBit != 0 {
		return -int16(raw &^ signBit)
	}
	return int16(raw)
}

// Decode verifies the checksum and returns the values as real numbers.
func (f Frame) Decode() (Reading, error) {
	if !f.Valid() {
		return Reading{}, &Error{Kind: ChecksumMismatch, Bit: -1, Frame: f}
	}
	return Reading{
		Temperature: float64(f.Temperature()) / 10.0,
		Humidity:    float64(f.Humidity()) / 10.0,
	}, nil
}

// Env verifies the checksum and stores the values in e. Pressure is not
// modified.
func (f Frame) Env(e *physic.Env) error {
	if !f.Valid() {
		return &Error{Kind: ChecksumMismatch, Bit: -1, Frame: f}
	}
	e.Temperature = physic.ZeroCelsius + physic.Temperature(f.Temperature())*(physic.Celsius/10)
	e.Humidity = physic.RelativeHumidity(f.Humidity()) * physic.MilliRH
	return nil
}

func (f Frame) String() string {
	return fmt.Sprintf("%02x%02x %02x%02x %02x", f[0], f[1], f[2], f[3], f[4])
}

// Reading is a decoded measurement.
type Reading struct {
	// Temperature in °C, with a resolution of 0.1°C.
	Temperature float64
	// Humidity in percent of relative humidity, with a resolution of 0.1%.
	Humidity float64
}

func (r Reading) String() string {
	return fmt.Sprintf("%.1f°C %.1f%%rH", r.Temperature, r.Humidity)
}
