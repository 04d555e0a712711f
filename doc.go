// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package dht is a container for the DHT22 weather station.
//
// The driver lives in dht22, with a simulated sensor in dht22/dht22test.
// monitor runs the polling policy and feeds screen, metrics, publish and
// httpapi. cmd/dht22mon wires everything to real hardware.
package dht
