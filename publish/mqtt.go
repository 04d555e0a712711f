// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package publish

import (
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/GermanBionicSystems/dht/monitor"
)

// MQTTOpts configures an MQTT publisher.
type MQTTOpts struct {
	Station string
	Topic   string
	QoS     byte
	// Retained makes the broker keep the last status for new subscribers.
	Retained bool
	// Timeout bounds the wait for the broker acknowledgement.
	Timeout time.Duration
}

// MQTT publishes every status on one topic.
type MQTT struct {
	client mqtt.Client
	opts   MQTTOpts
}

// DialMQTT connects to broker, like "tcp://localhost:1883".
func DialMQTT(broker, clientID string, timeout time.Duration, log logrus.FieldLogger) (mqtt.Client, error) {
	o := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.WithError(err).Warn("mqtt connection lost")
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			log.WithField("broker", broker).Info("mqtt connected")
		})
	c := mqtt.NewClient(o)
	t := c.Connect()
	if !t.WaitTimeout(timeout) {
		return nil, errors.Errorf("mqtt: timed out connecting to %s", broker)
	}
	if err := t.Error(); err != nil {
		return nil, errors.Wrapf(err, "mqtt: connecting to %s", broker)
	}
	return c, nil
}

// NewMQTT returns a publisher using a connected client.
func NewMQTT(c mqtt.Client, opts *MQTTOpts) (*MQTT, error) {
	if opts.Topic == "" {
		return nil, errors.New("mqtt: empty topic")
	}
	if opts.QoS > 2 {
		return nil, errors.Errorf("mqtt: invalid QoS %d", opts.QoS)
	}
	o := *opts
	if o.Timeout == 0 {
		o.Timeout = 5 * time.Second
	}
	return &MQTT{client: c, opts: o}, nil
}

// Update implements monitor.Sink.
func (m *MQTT) Update(st monitor.Status) error {
	payload, err := encode(m.opts.Station, &st)
	if err != nil {
		return errors.Wrap(err, "mqtt: encoding status")
	}
	t := m.client.Publish(m.opts.Topic, m.opts.QoS, m.opts.Retained, payload)
	if !t.WaitTimeout(m.opts.Timeout) {
		return errors.Errorf("mqtt: publish to %s timed out", m.opts.Topic)
	}
	return errors.Wrapf(t.Error(), "mqtt: publish to %s", m.opts.Topic)
}

// Close disconnects from the broker.
func (m *MQTT) Close() error {
	m.client.Disconnect(250)
	return nil
}

var _ monitor.Sink = &MQTT{}
