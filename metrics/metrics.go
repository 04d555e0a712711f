// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package metrics exports monitor status as Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/GermanBionicSystems/dht/dht22"
	"github.com/GermanBionicSystems/dht/monitor"
)

// Metrics is a prometheus.Collector fed by monitor.Sink updates.
type Metrics struct {
	temperature  prometheus.Gauge
	humidity     prometheus.Gauge
	lastSuccess  prometheus.Gauge
	consecutive  prometheus.Gauge
	reads        prometheus.Counter
	failures     *prometheus.CounterVec
	resets       prometheus.Counter
	transactions prometheus.Histogram
}

// failureLabels are the values of the kind label of
// dht22_read_failures_total. Index 0 is for I/O errors.
var failureLabels = [...]string{"io", "no_response", "no_ack", "no_data", "bit_timeout", "checksum"}

// New returns the metrics of one sensor. Every metric carries a constant
// station label.
func New(station string) *Metrics {
	labels := prometheus.Labels{"station": station}
	m := &Metrics{
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "dht22_temperature_celsius",
			Help:        "Last good temperature reading (units: degrees Celsius).",
			ConstLabels: labels,
		}),
		humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "dht22_humidity_percent",
			Help:        "Last good calibrated humidity reading (units: % of relative humidity).",
			ConstLabels: labels,
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "dht22_last_success_timestamp_seconds",
			Help:        "Unix time of the last good reading.",
			ConstLabels: labels,
		}),
		consecutive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "dht22_consecutive_failures",
			Help:        "Failed transactions since the last good reading or reset.",
			ConstLabels: labels,
		}),
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "dht22_reads_total",
			Help:        "Total transactions run, good or not.",
			ConstLabels: labels,
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "dht22_read_failures_total",
			Help:        "Total failed transactions by failure kind.",
			ConstLabels: labels,
		}, []string{"kind"}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "dht22_resets_total",
			Help:        "Total sensor resets after repeated failures.",
			ConstLabels: labels,
		}),
		transactions: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "dht22_transaction_seconds",
			Help:        "Histogram of transaction durations.",
			ConstLabels: labels,
			// A good transaction takes about 10ms.
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 8),
		}),
	}
	for _, l := range failureLabels {
		m.failures.WithLabelValues(l)
	}
	return m
}

// FailureLabel returns the kind label used for k.
func FailureLabel(k dht22.ErrorKind) string {
	if int(k) >= len(failureLabels) {
		return failureLabels[0]
	}
	return failureLabels[k]
}

// Update implements monitor.Sink.
func (m *Metrics) Update(st monitor.Status) error {
	m.reads.Inc()
	m.transactions.Observe(st.Duration.Seconds())
	if st.OK {
		m.temperature.Set(st.Reading.Temperature)
		m.humidity.Set(st.Reading.Humidity)
		m.lastSuccess.Set(float64(st.Time.UnixNano()) / 1e9)
	} else {
		m.failures.WithLabelValues(FailureLabel(st.Kind)).Inc()
	}
	if st.Reset {
		m.resets.Inc()
		m.consecutive.Set(0)
	} else {
		m.consecutive.Set(float64(st.Failures))
	}
	return nil
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.temperature,
		m.humidity,
		m.lastSuccess,
		m.consecutive,
		m.reads,
		m.failures,
		m.resets,
		m.transactions,
	}
}

var _ prometheus.Collector = &Metrics{}
var _ monitor.Sink = &Metrics{}
