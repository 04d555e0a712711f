// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package screen

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"net/http"
	"strconv"
	"sync"

	"periph.io/x/conn/v3/display"
)

// ImageFormat is the encoding served by Snapshot.
type ImageFormat int

const (
	PNG ImageFormat = iota
	JPEG
)

func (f ImageFormat) String() string {
	switch f {
	case PNG:
		return "PNG"
	case JPEG:
		return "JPEG"
	default:
		return strconv.Itoa(int(f))
	}
}

func (f ImageFormat) mimeType() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// ImageFormatFromString returns the ImageFormat for the given abbreviation.
func ImageFormatFromString(value string) (ImageFormat, error) {
	switch value {
	case "png":
		return PNG, nil
	case "jpg", "jpeg":
		return JPEG, nil
	}
	return PNG, fmt.Errorf("unrecognized image format %q", value)
}

type pngBufferPool sync.Pool

func (p *pngBufferPool) Get() *png.EncoderBuffer {
	buf, _ := (*sync.Pool)(p).Get().(*png.EncoderBuffer)
	return buf
}

func (p *pngBufferPool) Put(buf *png.EncoderBuffer) {
	(*sync.Pool)(p).Put(buf)
}

var pngEncoder = png.Encoder{CompressionLevel: png.BestSpeed, BufferPool: &pngBufferPool{}}

// Snapshot is a display.Drawer that serves the last drawn image over HTTP.
//
// The "format" URL parameter selects png (default) or jpeg. Encoded images
// are cached until the next Draw.
type Snapshot struct {
	mu      sync.Mutex
	buffer  *image.RGBA
	drawn   bool
	encoded map[ImageFormat][]byte
}

// NewSnapshot returns a Snapshot of w by h pixels.
func NewSnapshot(w, h int) *Snapshot {
	buffer := image.NewRGBA(image.Rect(0, 0, w, h))
	// The zero alpha is fully transparent.
	draw.Draw(buffer, buffer.Bounds(), image.Black, image.Point{}, draw.Src)
	return &Snapshot{buffer: buffer, encoded: map[ImageFormat][]byte{}}
}

func (s *Snapshot) String() string {
	return "Snapshot"
}

// Halt implements conn.Resource.
func (s *Snapshot) Halt() error {
	return nil
}

// ColorModel implements display.Drawer.
func (s *Snapshot) ColorModel() color.Model {
	return s.buffer.ColorModel()
}

// Bounds implements display.Drawer.
func (s *Snapshot) Bounds() image.Rectangle {
	return s.buffer.Bounds()
}

// Draw implements display.Drawer.
func (s *Snapshot) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	draw.Draw(s.buffer, r, src, sp, draw.Src)
	s.drawn = true
	for f := range s.encoded {
		delete(s.encoded, f)
	}
	return nil
}

// Encode returns the current image in the given format.
func (s *Snapshot) Encode(f ImageFormat) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.encoded[f]; ok {
		return b, nil
	}
	var buf bytes.Buffer
	var err error
	switch f {
	case PNG:
		err = pngEncoder.Encode(&buf, s.buffer)
	case JPEG:
		err = jpeg.Encode(&buf, s.buffer, &jpeg.Options{Quality: 95})
	default:
		err = fmt.Errorf("unsupported image format %s", f)
	}
	if err != nil {
		return nil, err
	}
	s.encoded[f] = buf.Bytes()
	return buf.Bytes(), nil
}

// ServeHTTP implements http.Handler. It returns 503 until the first Draw.
func (s *Snapshot) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f := PNG
	if v := r.URL.Query().Get("format"); v != "" {
		var err error
		if f, err = ImageFormatFromString(v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	s.mu.Lock()
	drawn := s.drawn
	s.mu.Unlock()
	if !drawn {
		http.Error(w, "nothing drawn yet", http.StatusServiceUnavailable)
		return
	}
	b, err := s.Encode(f)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", f.mimeType())
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	_, _ = w.Write(b)
}

var _ display.Drawer = (*Snapshot)(nil)
var _ http.Handler = (*Snapshot)(nil)
