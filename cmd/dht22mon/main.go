// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// dht22mon polls a DHT22 and reports the readings on a screen, over HTTP,
// to Prometheus and to MQTT or Kafka brokers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/dht/dht22"
	"github.com/GermanBionicSystems/dht/httpapi"
	"github.com/GermanBionicSystems/dht/metrics"
	"github.com/GermanBionicSystems/dht/monitor"
	"github.com/GermanBionicSystems/dht/publish"
	"github.com/GermanBionicSystems/dht/screen"
)

const screenWidth = 128

type closer func() error

func mainImpl() error {
	pin := flag.String("pin", "GPIO4", "GPIO pin the sensor data line is connected to")
	interval := flag.Duration("interval", monitor.DefaultConfig.Interval, "quiet period between readings, at least 2s")
	resetAfter := flag.Int("reset-after", monitor.DefaultConfig.ResetAfter, "consecutive failures before the sensor is reset, 0 to disable")
	humScale := flag.Float64("humidity-scale", monitor.DefaultConfig.HumidityScale, "humidity calibration factor")
	realtime := flag.Bool("realtime", true, "lock the OS thread and pause the GC during transactions")
	listen := flag.String("listen", ":8080", "HTTP listen address, empty to disable")
	disp := flag.String("display", "none", "status display: none, term or ssd1306")
	i2cBus := flag.String("i2c", "", "I²C bus of the ssd1306")
	oledHeight := flag.Int("oled-height", 32, "ssd1306 height in pixels, 32 or 64")
	mqttBroker := flag.String("mqtt-broker", "", "MQTT broker URL, like tcp://localhost:1883")
	mqttTopic := flag.String("mqtt-topic", "", "MQTT topic, defaults to dht22/<station>")
	mqttQoS := flag.Int("mqtt-qos", 1, "MQTT QoS")
	kafkaBrokers := flag.String("kafka-brokers", "", "comma separated Kafka brokers")
	kafkaTopic := flag.String("kafka-topic", "dht22.readings", "Kafka topic")
	station := flag.String("station", "", "station id, defaults to the host name")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()
	if flag.NArg() != 0 {
		return errors.New("unexpected argument, try -help")
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(*level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)

	if *station == "" {
		if *station, err = os.Hostname(); err != nil {
			*station = uuid.New().String()
		}
	}
	if *mqttTopic == "" {
		*mqttTopic = "dht22/" + *station
	}
	cfg := monitor.DefaultConfig
	cfg.Interval = *interval
	cfg.ResetAfter = *resetAfter
	cfg.HumidityScale = *humScale

	if _, err = host.Init(); err != nil {
		return err
	}
	p := gpioreg.ByName(*pin)
	if p == nil {
		return fmt.Errorf("failed to find pin %q", *pin)
	}
	opts := dht22.DefaultOpts
	opts.Realtime = *realtime
	dev, err := dht22.New(p, &opts)
	if err != nil {
		return err
	}
	var closers []closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.WithError(err).Warn("shutdown")
			}
		}
	}()
	closers = append(closers, dev.Halt)

	m, err := monitor.New(dev, cfg, monitor.WithLogger(log.WithField("sensor", dev.String())))
	if err != nil {
		return err
	}

	stats := metrics.New(*station)
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		stats,
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	snap := screen.NewSnapshot(screenWidth, *oledHeight)
	snapSink, err := screen.NewSink(snap, nil)
	if err != nil {
		return err
	}
	sinks := []monitor.Sink{stats, snapSink}

	d, err := openDisplay(*disp, *i2cBus, *oledHeight, log, &closers)
	if err != nil {
		return err
	}
	if d != nil {
		s, err := screen.NewSink(d, nil)
		if err != nil {
			return err
		}
		sinks = append(sinks, s)
	}

	if *mqttBroker != "" {
		c, err := publish.DialMQTT(*mqttBroker, "dht22mon-"+*station, 10*time.Second, log)
		if err != nil {
			return err
		}
		pub, err := publish.NewMQTT(c, &publish.MQTTOpts{Station: *station, Topic: *mqttTopic, QoS: byte(*mqttQoS)})
		if err != nil {
			c.Disconnect(0)
			return err
		}
		closers = append(closers, pub.Close)
		sinks = append(sinks, pub)
	}
	if *kafkaBrokers != "" {
		pub, err := publish.NewKafka(strings.Split(*kafkaBrokers, ","), *kafkaTopic, *station)
		if err != nil {
			return err
		}
		closers = append(closers, pub.Close)
		sinks = append(sinks, pub)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listen != "" {
		access := log.WriterLevel(logrus.DebugLevel)
		closers = append(closers, access.Close)
		srv := &http.Server{
			Addr: *listen,
			Handler: httpapi.NewHandler(access, m, &httpapi.Opts{
				Station: *station,
				Screen:  snap,
				Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}),
				Log:     log,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("http server")
				stop()
			}
		}()
		closers = append(closers, func() error {
			c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(c)
		})
		log.WithField("addr", *listen).Info("listening")
	}

	log.WithFields(logrus.Fields{"station": *station, "pin": p.Name(), "sinks": len(sinks)}).Info("started")
	if err := m.Run(ctx, sinks...); !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("stopping")
	return nil
}

// openDisplay returns nil when no display is requested or usable.
func openDisplay(kind, bus string, height int, log logrus.FieldLogger, closers *[]closer) (display.Drawer, error) {
	switch kind {
	case "none", "":
		return nil, nil
	case "term":
		if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			log.Warn("stdout is not a terminal, not drawing the status")
			return nil, nil
		}
		t, err := screen.NewTerminal(&screen.TerminalOpts{W: screenWidth, H: height})
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, t.Halt)
		return t, nil
	case "ssd1306":
		b, err := i2creg.Open(bus)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, b.Close)
		opts := ssd1306.DefaultOpts
		opts.H = height
		d, err := ssd1306.NewI2C(b, &opts)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, d.Halt)
		return d, nil
	default:
		return nil, fmt.Errorf("unknown display %q", kind)
	}
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "dht22mon: %s.\n", err)
		os.Exit(1)
	}
}
