// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package dht22_test

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/GermanBionicSystems/dht/dht22"
	"github.com/GermanBionicSystems/dht/dht22/dht22test"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// The data line of the sensor, with a pull-up resistor to 3.3V.
	p := gpioreg.ByName("GPIO4")
	if p == nil {
		log.Fatal("failed to find GPIO4")
	}

	d, err := dht22.New(p, nil) // nil for default options or &dht22.DefaultOpts
	if err != nil {
		log.Fatalf("failed to initialize DHT22: %v", err)
	}
	defer d.Halt()

	for {
		r, err := d.Read()
		if k, ok := dht22.KindOf(err); ok {
			fmt.Println(k.Message())
		} else if err != nil {
			log.Fatal(err)
		} else {
			fmt.Println(r)
		}
		// The sensor needs its recovery time between transactions.
		time.Sleep(dht22.DefaultTiming.Recovery)
	}
}

func Example_simulated() {
	s := &dht22test.Sensor{Frame: dht22.NewFrame(523, -72)}
	d, err := dht22.New(s, &dht22.Opts{Timing: dht22.DefaultTiming, Sleep: s.Sleep})
	if err != nil {
		log.Fatal(err)
	}
	r, err := d.Read()
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(r)

	s.Fault = dht22test.Stall
	s.FaultBit = 9
	_, err = d.Read()
	fmt.Println(err, errors.Is(err, dht22.BitTimeout))
	// Output:
	// -7.2°C 52.3%rH
	// dht22: Bit Timeout at bit 9 true
}
