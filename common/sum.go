// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, the additive checksum used by single-wire humidity sensors.
package common

// Sum8 returns the low byte of the sum of all bytes. AOSONG single-wire
// sensors (DHT22, AM2302) append it after their data bytes.
func Sum8(bytes []byte) byte {
	var sum byte
	for _, val := range bytes {
		sum += val
	}
	return sum
}
