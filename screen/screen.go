// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package screen renders monitor status on a small monochrome screen.
//
// The layout is made for the 128x32 OLED the weather station shipped with:
// three lines of text. Any display.Drawer works, including the terminal
// emulator and the HTTP snapshot in this package.
package screen

import (
	"errors"
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/conn/v3/display"

	"github.com/GermanBionicSystems/dht/monitor"
)

// Opts represents the options to render a status.
type Opts struct {
	// W and H are the image size in pixels. They default to the bounds of
	// the Drawer when used with NewSink.
	W int
	H int
	// Face is the font. It defaults to Go Regular sized to fit three lines.
	Face font.Face

	_ struct{}
}

// Renderer draws a monitor.Status into an image.
type Renderer struct {
	w, h int
	face font.Face
}

// NewRenderer returns a Renderer for images of opts.W by opts.H pixels.
func NewRenderer(opts *Opts) (*Renderer, error) {
	if opts.W <= 0 || opts.H <= 0 {
		return nil, fmt.Errorf("screen: invalid size %dx%d", opts.W, opts.H)
	}
	r := &Renderer{w: opts.W, h: opts.H, face: opts.Face}
	if r.face == nil {
		f, err := truetype.Parse(goregular.TTF)
		if err != nil {
			return nil, fmt.Errorf("screen: %w", err)
		}
		r.face = truetype.NewFace(f, &truetype.Options{Size: float64(opts.H) / 3, Hinting: font.HintingFull})
	}
	return r, nil
}

// Bounds returns the size of the rendered images.
func (r *Renderer) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.w, r.h)
}

// Render returns the status drawn in white on black.
func (r *Renderer) Render(st *monitor.Status) image.Image {
	dc := gg.NewContext(r.w, r.h)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGB(1, 1, 1)
	dc.SetFontFace(r.face)
	lh := float64(r.h) / 3
	for i, l := range Lines(st) {
		// Baselines leave room for descenders.
		dc.DrawString(l, 0, lh*float64(i+1)-lh/5)
	}
	return dc.Image()
}

// Lines returns the three lines of text shown for st.
func Lines(st *monitor.Status) [3]string {
	if st.OK {
		return [3]string{
			st.Comfort.Message(),
			fmt.Sprintf("Temp: %.1f C", st.Reading.Temperature),
			fmt.Sprintf("Hum: %.1f %%", st.Reading.Humidity),
		}
	}
	l := [3]string{"FAILED!", st.Label(), fmt.Sprintf("Fail:%d", st.Failures)}
	if st.Reset {
		l[0] = "Resetting..."
	}
	if st.HasLast {
		l[2] = fmt.Sprintf("Fail:%d T:%.1fC H:%.1f%%", st.Failures, st.Last.Temperature, st.Last.Humidity)
	}
	return l
}

// Sink draws every status on a display.Drawer.
type Sink struct {
	r *Renderer
	d display.Drawer
}

// NewSink returns a monitor.Sink drawing on d. The image size is the bounds
// of d unless opts sets it.
func NewSink(d display.Drawer, opts *Opts) (*Sink, error) {
	if d == nil {
		return nil, errors.New("screen: nil display")
	}
	o := Opts{}
	if opts != nil {
		o = *opts
	}
	b := d.Bounds()
	if o.W == 0 {
		o.W = b.Dx()
	}
	if o.H == 0 {
		o.H = b.Dy()
	}
	r, err := NewRenderer(&o)
	if err != nil {
		return nil, err
	}
	return &Sink{r: r, d: d}, nil
}

// Update implements monitor.Sink.
func (s *Sink) Update(st monitor.Status) error {
	img := s.r.Render(&st)
	return s.d.Draw(s.d.Bounds(), img, image.Point{})
}

func (s *Sink) String() string {
	return fmt.Sprintf("screen.Sink{%s}", s.d)
}

var _ monitor.Sink = &Sink{}
