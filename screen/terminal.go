// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package screen

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// TerminalOpts represents the options of a Terminal.
type TerminalOpts struct {
	W, H    int
	Palette *ansi256.Palette

	_ struct{}
}

// Terminal is a display.Drawer that outputs to a terminal using ANSI color
// codes, one character per pixel.
//
// Useful to run the station on a host without a screen attached.
type Terminal struct {
	w       io.Writer
	palette ansi256.Palette

	pixels *image.NRGBA
	drawn  bool
	buf    bytes.Buffer
}

// NewTerminal returns a Terminal that displays at the console.
func NewTerminal(opts *TerminalOpts) (*Terminal, error) {
	return NewTerminalWriter(colorable.NewColorableStdout(), opts)
}

// NewTerminalWriter returns a Terminal that writes to w.
func NewTerminalWriter(w io.Writer, opts *TerminalOpts) (*Terminal, error) {
	if opts.W <= 0 || opts.H <= 0 {
		return nil, fmt.Errorf("screen: invalid terminal size %dx%d", opts.W, opts.H)
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	return &Terminal{
		w:       w,
		palette: *p,
		pixels:  image.NewNRGBA(image.Rect(0, 0, opts.W, opts.H)),
	}, nil
}

func (t *Terminal) String() string {
	return "Terminal"
}

// Halt implements conn.Resource.
//
// It resets the colors so the terminal is not corrupted.
func (t *Terminal) Halt() error {
	_, err := t.w.Write([]byte("\033[0m\n"))
	return err
}

// ColorModel implements display.Drawer.
func (t *Terminal) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (t *Terminal) Bounds() image.Rectangle {
	return t.pixels.Bounds()
}

// Draw implements display.Drawer.
func (t *Terminal) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if src == nil {
		return errors.New("screen: nil image")
	}
	draw.Draw(t.pixels, r.Intersect(t.Bounds()), src, sp, draw.Src)
	return t.refresh()
}

func (t *Terminal) refresh() error {
	b := t.pixels.Bounds()
	t.buf.Reset()
	if t.drawn {
		// Redraw in place.
		_, _ = fmt.Fprintf(&t.buf, "\033[%dA", b.Dy())
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		_, _ = t.buf.WriteString("\r\033[0m")
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _ = io.WriteString(&t.buf, t.palette.Block(t.pixels.NRGBAAt(x, y)))
		}
		_, _ = t.buf.WriteString("\033[0m\n")
	}
	t.drawn = true
	_, err := t.buf.WriteTo(t.w)
	return err
}

var _ display.Drawer = &Terminal{}
var _ fmt.Stringer = &Terminal{}
