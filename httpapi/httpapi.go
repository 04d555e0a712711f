// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package httpapi serves the station state over HTTP.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/GermanBionicSystems/dht/monitor"
)

// Source returns the last status. *monitor.Monitor implements it.
type Source interface {
	Last() (monitor.Status, bool)
}

// Opts represents the optional parts of the API.
type Opts struct {
	Station string
	// Screen serves GET /screen.png when set.
	Screen http.Handler
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	Log     logrus.FieldLogger
}

type api struct {
	src     Source
	station string
	log     logrus.FieldLogger
}

// NewRouter returns the routes of the API.
func NewRouter(src Source, opts *Opts) *mux.Router {
	a := &api{src: src, station: opts.Station, log: opts.Log}
	if a.log == nil {
		a.log = logrus.StandardLogger()
	}
	r := mux.NewRouter()
	r.HandleFunc("/health", a.health).Methods(http.MethodGet)
	r.HandleFunc("/reading", a.reading).Methods(http.MethodGet)
	if opts.Screen != nil {
		r.Handle("/screen.png", opts.Screen).Methods(http.MethodGet)
	}
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics).Methods(http.MethodGet)
	}
	return r
}

// NewHandler returns the router with an access log in Apache Common Log
// Format written to w.
func NewHandler(w io.Writer, src Source, opts *Opts) http.Handler {
	return handlers.LoggingHandler(w, NewRouter(src, opts))
}

type health struct {
	Status   string `json:"status"`
	Station  string `json:"stationId"`
	Polled   bool   `json:"polled"`
	Failures int    `json:"failures"`
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	st, polled := a.src.Last()
	a.write(w, http.StatusOK, &health{Status: "ok", Station: a.station, Polled: polled, Failures: st.Failures})
}

type values struct {
	Temperature float64 `json:"temperatureC"`
	Humidity    float64 `json:"humidityRH"`
}

type reading struct {
	Station   string    `json:"stationId"`
	Time      time.Time `json:"time"`
	OK        bool      `json:"ok"`
	Current   *values   `json:"reading,omitempty"`
	Comfort   string    `json:"comfort,omitempty"`
	Error     string    `json:"error,omitempty"`
	Failures  int       `json:"failures"`
	Successes int       `json:"successes"`
	Resets    int       `json:"resets"`
	Last      *values   `json:"last,omitempty"`
}

func (a *api) reading(w http.ResponseWriter, r *http.Request) {
	st, polled := a.src.Last()
	if !polled {
		a.write(w, http.StatusServiceUnavailable, map[string]string{"error": "no reading yet"})
		return
	}
	resp := reading{
		Station:   a.station,
		Time:      st.Time.UTC(),
		OK:        st.OK,
		Failures:  st.Failures,
		Successes: st.Successes,
		Resets:    st.Resets,
	}
	if st.OK {
		resp.Current = &values{st.Reading.Temperature, st.Reading.Humidity}
		resp.Comfort = st.Comfort.String()
	} else {
		resp.Error = st.Label()
	}
	if st.HasLast {
		resp.Last = &values{st.Last.Temperature, st.Last.Humidity}
	}
	a.write(w, http.StatusOK, &resp)
}

func (a *api) write(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.WithError(err).Warn("failed to write response")
	}
}
