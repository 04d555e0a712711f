// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/GermanBionicSystems/dht/dht22"
	"github.com/GermanBionicSystems/dht/monitor"
)

var when = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

var good = monitor.Status{
	Time:    when,
	OK:      true,
	Reading: dht22.Reading{Temperature: -7.2, Humidity: 52.3},
	Comfort: monitor.Cold,
}

var bad = monitor.Status{
	Time:     when,
	Err:      &dht22.Error{Kind: dht22.BitTimeout, Bit: 12},
	Kind:     dht22.BitTimeout,
	Failures: 5,
	Reset:    true,
}

func TestNewMessage(t *testing.T) {
	temp, hum := -7.2, 52.3
	data := []struct {
		st   monitor.Status
		want Message
	}{
		{good, Message{StationID: "lab", Timestamp: when, OK: true, Temperature: &temp, Humidity: &hum, Comfort: "cold"}},
		{bad, Message{StationID: "lab", Timestamp: when, Error: "Bit Timeout", ErrorCode: "ERR4", Failures: 5, Reset: true}},
		{monitor.Status{Time: when, Err: errors.New("gpio"), Failures: 1}, Message{StationID: "lab", Timestamp: when, Error: "I/O", ErrorCode: "ERR", Failures: 1}},
	}
	for i, line := range data {
		got := NewMessage("lab", &line.st)
		if _, err := uuid.Parse(got.ID); err != nil {
			t.Errorf("#%d: invalid id %q", i, got.ID)
		}
		if diff := cmp.Diff(line.want, got, cmpopts.IgnoreFields(Message{}, "ID")); diff != "" {
			t.Errorf("#%d: (-want +got):\n%s", i, diff)
		}
	}
}

func TestMessage_json(t *testing.T) {
	b, err := encode("lab", &bad)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatal(err)
	}
	if _, ok := m["temperatureC"]; ok {
		t.Fatal("temperature sent with a failure")
	}
	if m["stationId"] != "lab" || m["errorCode"] != "ERR4" || m["timestamp"] != "2025-03-14T15:09:26Z" {
		t.Fatalf("unexpected document %s", b)
	}
}

// fakeToken completes immediately unless hang is set.
type fakeToken struct {
	err  error
	hang bool
}

func (t *fakeToken) Wait() bool                     { return !t.hang }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.hang }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	c := make(chan struct{})
	if !t.hang {
		close(c)
	}
	return c
}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient records publications. Other mqtt.Client methods panic.
type fakeClient struct {
	mqtt.Client
	token        fakeToken
	sent         []published
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.sent = append(c.sent, published{topic, qos, retained, payload.([]byte)})
	return &c.token
}

func (c *fakeClient) Disconnect(uint) {
	c.disconnected = true
}

func TestMQTT(t *testing.T) {
	c := &fakeClient{}
	if _, err := NewMQTT(c, &MQTTOpts{}); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewMQTT(c, &MQTTOpts{Topic: "t", QoS: 3}); err == nil {
		t.Fatal("expected error")
	}
	p, err := NewMQTT(c, &MQTTOpts{Station: "lab", Topic: "station/lab", QoS: 1, Retained: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Update(good); err != nil {
		t.Fatal(err)
	}
	if len(c.sent) != 1 || c.sent[0].topic != "station/lab" || c.sent[0].qos != 1 || !c.sent[0].retained {
		t.Fatalf("%+v", c.sent)
	}
	var m Message
	if err := json.Unmarshal(c.sent[0].payload, &m); err != nil {
		t.Fatal(err)
	}
	if !m.OK || *m.Temperature != -7.2 {
		t.Fatalf("%+v", m)
	}

	c.token.err = errors.New("not connected")
	if err := p.Update(good); err == nil {
		t.Fatal("expected error")
	}
	c.token = fakeToken{hang: true}
	if err := p.Update(good); err == nil {
		t.Fatal("expected timeout")
	}
	if err := p.Close(); err != nil || !c.disconnected {
		t.Fatal("not disconnected")
	}
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("no deadline")
	}
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafka(t *testing.T) {
	if _, err := NewKafka(nil, "readings", "lab"); err == nil {
		t.Fatal("expected error")
	}
	k, err := NewKafka([]string{"localhost:9092"}, "readings", "lab")
	if err != nil {
		t.Fatal(err)
	}
	w := &fakeWriter{}
	k.w = w
	if err := k.Update(bad); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "lab" || !w.msgs[0].Time.Equal(when) {
		t.Fatalf("%+v", w.msgs)
	}
	var m Message
	if err := json.Unmarshal(w.msgs[0].Value, &m); err != nil {
		t.Fatal(err)
	}
	if m.OK || m.Error != "Bit Timeout" || !m.Reset {
		t.Fatalf("%+v", m)
	}
	w.err = errors.New("leader not available")
	if err := k.Update(good); err == nil {
		t.Fatal("expected error")
	}
	if err := k.Close(); err != nil || !w.closed {
		t.Fatal("not closed")
	}
}
