// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package screen

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/image/font/basicfont"
	"periph.io/x/conn/v3/display/displaytest"

	"github.com/GermanBionicSystems/dht/dht22"
	"github.com/GermanBionicSystems/dht/monitor"
)

var good = monitor.Status{
	OK:      true,
	Reading: dht22.Reading{Temperature: 23.1, Humidity: 45.5},
	Comfort: monitor.Comfortable,
	Last:    dht22.Reading{Temperature: 23.1, Humidity: 45.5},
	HasLast: true,
}

func failed(kind dht22.ErrorKind, failures int) monitor.Status {
	return monitor.Status{
		Err:      &dht22.Error{Kind: kind, Bit: -1},
		Kind:     kind,
		Failures: failures,
	}
}

func TestLines(t *testing.T) {
	reset := failed(dht22.NoResponse, 5)
	reset.Reset = true
	withLast := failed(dht22.ChecksumMismatch, 2)
	withLast.Last = dht22.Reading{Temperature: -7.2, Humidity: 52.3}
	withLast.HasLast = true
	data := []struct {
		name string
		st   monitor.Status
		want [3]string
	}{
		{"ok", good, [3]string{"Nice and comfy!", "Temp: 23.1 C", "Hum: 45.5 %"}},
		{"failed", failed(dht22.NoAck, 1), [3]string{"FAILED!", "ERR2:No ACK", "Fail:1"}},
		{"reset", reset, [3]string{"Resetting...", "ERR1:No Response", "Fail:5"}},
		{"last", withLast, [3]string{"FAILED!", "ERR5:Checksum", "Fail:2 T:-7.2C H:52.3%"}},
		{"io", monitor.Status{Err: errors.New("gpio"), Failures: 3}, [3]string{"FAILED!", "ERR:I/O", "Fail:3"}},
	}
	for _, line := range data {
		if diff := cmp.Diff(line.want, Lines(&line.st)); diff != "" {
			t.Errorf("%s: (-want +got):\n%s", line.name, diff)
		}
	}
}

// lit returns the number of bright pixels in r.
func lit(img image.Image, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if v, _, _, _ := img.At(x, y).RGBA(); v > 0x8000 {
				n++
			}
		}
	}
	return n
}

func TestRenderer(t *testing.T) {
	if _, err := NewRenderer(&Opts{W: 128}); err == nil {
		t.Fatal("expected error")
	}
	r, err := NewRenderer(&Opts{W: 128, H: 32})
	if err != nil {
		t.Fatal(err)
	}
	img := r.Render(&good)
	if img.Bounds() != r.Bounds() {
		t.Fatalf("bounds %v", img.Bounds())
	}
	for i := 0; i < 3; i++ {
		band := image.Rect(0, i*32/3, 128, (i+1)*32/3)
		if lit(img, band) == 0 {
			t.Fatalf("line %d is empty", i)
		}
	}
	// The right end of the short lines stays dark.
	if n := lit(img, image.Rect(120, 11, 128, 32)); n != 0 {
		t.Fatalf("%d pixels lit past the text", n)
	}
}

func TestRenderer_face(t *testing.T) {
	r, err := NewRenderer(&Opts{W: 128, H: 64, Face: basicfont.Face7x13})
	if err != nil {
		t.Fatal(err)
	}
	st := failed(dht22.BitTimeout, 4)
	if lit(r.Render(&st), r.Bounds()) == 0 {
		t.Fatal("nothing drawn")
	}
}

func TestSink(t *testing.T) {
	if _, err := NewSink(nil, nil); err == nil {
		t.Fatal("expected error")
	}
	d := &displaytest.Drawer{Img: image.NewNRGBA(image.Rect(0, 0, 128, 32))}
	s, err := NewSink(d, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Update(good); err != nil {
		t.Fatal(err)
	}
	if lit(d.Img, d.Bounds()) == 0 {
		t.Fatal("nothing drawn")
	}
	if s.String() != "screen.Sink{Drawer}" {
		t.Fatal(s.String())
	}
}

func TestTerminal(t *testing.T) {
	if _, err := NewTerminalWriter(&bytes.Buffer{}, &TerminalOpts{W: 0, H: 2}); err == nil {
		t.Fatal("expected error")
	}
	buf := bytes.Buffer{}
	d, err := NewTerminalWriter(&buf, &TerminalOpts{W: 4, H: 2})
	if err != nil {
		t.Fatal(err)
	}
	img := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	first := buf.String()
	if strings.Count(first, "\n") != 2 || strings.Contains(first, "\033[2A") {
		t.Fatalf("unexpected first frame %q", first)
	}
	buf.Reset()
	if err := d.Draw(d.Bounds(), img, image.Point{}); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "\033[2A") {
		t.Fatalf("frame not redrawn in place: %q", buf.String())
	}
	if err := d.Draw(d.Bounds(), nil, image.Point{}); err == nil {
		t.Fatal("expected error")
	}
	buf.Reset()
	if err := d.Halt(); err != nil || buf.String() != "\033[0m\n" {
		t.Fatalf("%q %v", buf.String(), err)
	}
}

func TestSnapshot(t *testing.T) {
	s := NewSnapshot(128, 32)
	get := func(url string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
		return w
	}
	if w := get("/screen.png"); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("%d before draw", w.Code)
	}
	sink, err := NewSink(s, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := sink.Update(good); err != nil {
		t.Fatal(err)
	}

	w := get("/screen.png")
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("%d %q", w.Code, w.Header().Get("Content-Type"))
	}
	img, err := png.Decode(w.Body)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 128, 32) || lit(img, img.Bounds()) == 0 {
		t.Fatal("unexpected image")
	}

	if w := get("/screen.png?format=jpg"); w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/jpeg" {
		t.Fatalf("%d %q", w.Code, w.Header().Get("Content-Type"))
	}
	if w := get("/screen.png?format=gif"); w.Code != http.StatusBadRequest {
		t.Fatalf("%d for gif", w.Code)
	}
}

func TestImageFormat(t *testing.T) {
	if f, err := ImageFormatFromString("jpeg"); err != nil || f != JPEG || f.String() != "JPEG" {
		t.Fatal(f, err)
	}
	if ImageFormat(7).String() != "7" {
		t.Fatal("unexpected name")
	}
}
