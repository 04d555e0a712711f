// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package publish sends monitor status to message brokers as JSON.
package publish

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/GermanBionicSystems/dht/monitor"
)

// Message is the JSON document published for every poll.
type Message struct {
	ID          string    `json:"id"`
	StationID   string    `json:"stationId"`
	Timestamp   time.Time `json:"timestamp"`
	OK          bool      `json:"ok"`
	Temperature *float64  `json:"temperatureC,omitempty"`
	Humidity    *float64  `json:"humidityRH,omitempty"`
	Comfort     string    `json:"comfort,omitempty"`
	Error       string    `json:"error,omitempty"`
	ErrorCode   string    `json:"errorCode,omitempty"`
	Failures    int       `json:"failures"`
	Reset       bool      `json:"reset,omitempty"`
}

// NewMessage returns the message describing st.
func NewMessage(station string, st *monitor.Status) Message {
	m := Message{
		ID:        uuid.New().String(),
		StationID: station,
		Timestamp: st.Time.UTC(),
		OK:        st.OK,
		Failures:  st.Failures,
		Reset:     st.Reset,
	}
	if st.OK {
		t, h := st.Reading.Temperature, st.Reading.Humidity
		m.Temperature = &t
		m.Humidity = &h
		m.Comfort = st.Comfort.String()
		return m
	}
	if st.Kind != 0 {
		m.Error = st.Kind.String()
		m.ErrorCode = st.Kind.Code()
	} else {
		m.Error = "I/O"
		m.ErrorCode = "ERR"
	}
	return m
}

func encode(station string, st *monitor.Status) ([]byte, error) {
	return json.Marshal(NewMessage(station, st))
}
