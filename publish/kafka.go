// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package publish

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/GermanBionicSystems/dht/monitor"
)

// messageWriter is the part of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes every status to a topic, keyed by station so the
// readings of one station stay ordered.
type Kafka struct {
	w       messageWriter
	station string
	timeout time.Duration
}

// NewKafka returns a publisher writing to topic on brokers.
func NewKafka(brokers []string, topic, station string) (*Kafka, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, errors.New("kafka: brokers and topic are required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Kafka{w: w, station: station, timeout: 5 * time.Second}, nil
}

// Update implements monitor.Sink.
func (k *Kafka) Update(st monitor.Status) error {
	value, err := encode(k.station, &st)
	if err != nil {
		return errors.Wrap(err, "kafka: encoding status")
	}
	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()
	err = k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(k.station),
		Value: value,
		Time:  st.Time,
	})
	return errors.Wrap(err, "kafka: write")
}

// Close flushes pending messages.
func (k *Kafka) Close() error {
	return k.w.Close()
}

var _ monitor.Sink = &Kafka{}
