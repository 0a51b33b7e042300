// Package glyph maps pixel brightness to display characters.
package glyph

import (
	"errors"
	"unicode/utf8"
)

// DefaultRamp is ordered darkest to brightest
const DefaultRamp = " .,-~:;=!*#$@"

// ErrEmptyRamp is returned when a ramp has no glyphs
var ErrEmptyRamp = errors.New("glyph ramp is empty")

// Ramp is an ordered glyph sequence from darkest to brightest.
// Brightness 0-255 is split into len(ramp) buckets of width 255/len(ramp);
// the final bucket absorbs the rounding remainder.
type Ramp struct {
	glyphs   []rune
	bucket   int
	inverted bool
}

// New creates a ramp from a string, one glyph per rune
func New(ramp string) (*Ramp, error) {
	if !utf8.ValidString(ramp) {
		return nil, errors.New("glyph ramp is not valid UTF-8")
	}
	glyphs := []rune(ramp)
	if len(glyphs) == 0 {
		return nil, ErrEmptyRamp
	}

	bucket := 255 / len(glyphs)
	if bucket < 1 {
		bucket = 1
	}

	return &Ramp{glyphs: glyphs, bucket: bucket}, nil
}

// MustNew is New for compile-time constant ramps
func MustNew(ramp string) *Ramp {
	r, err := New(ramp)
	if err != nil {
		panic(err)
	}
	return r
}

// Glyph returns the character for brightness v.
// Out-of-range input is clamped to the first or last bucket.
func (r *Ramp) Glyph(v int) rune {
	idx := v / r.bucket
	if idx < 0 {
		idx = 0
	}
	if idx >= len(r.glyphs) {
		idx = len(r.glyphs) - 1
	}
	return r.glyphs[idx]
}

// Invert reverses the ramp in place so bright pixels draw with dark glyphs.
// Not safe to call while a frame is being composed.
func (r *Ramp) Invert() {
	for i, j := 0, len(r.glyphs)-1; i < j; i, j = i+1, j-1 {
		r.glyphs[i], r.glyphs[j] = r.glyphs[j], r.glyphs[i]
	}
	r.inverted = !r.inverted
}

// Inverted reports whether the ramp is currently reversed
func (r *Ramp) Inverted() bool {
	return r.inverted
}

// Len returns the number of glyphs
func (r *Ramp) Len() int {
	return len(r.glyphs)
}

// String returns the glyphs in current order
func (r *Ramp) String() string {
	return string(r.glyphs)
}
