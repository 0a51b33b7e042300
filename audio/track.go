// Package audio plays a soundtrack and reports its position so video
// presentation can follow it.
package audio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
)

// ErrDisabled is returned by Open when audio is switched off in config
var ErrDisabled = errors.New("audio: disabled")

// output is the device the track streams to
type output interface {
	Init(sr beep.SampleRate, bufferSize int) error
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Clear()
}

type speakerOutput struct{}

func (speakerOutput) Init(sr beep.SampleRate, n int) error { return speaker.Init(sr, n) }
func (speakerOutput) Play(s beep.Streamer)                 { speaker.Play(s) }
func (speakerOutput) Lock()                                { speaker.Lock() }
func (speakerOutput) Unlock()                              { speaker.Unlock() }
func (speakerOutput) Clear()                               { speaker.Clear() }

// Track is a decoded wav soundtrack.
// Position and IsAdvancing are safe to call while the speaker is streaming.
type Track struct {
	mu sync.Mutex

	cfg    Config
	file   *os.File
	source beep.StreamSeekCloser
	format beep.Format
	ctrl   *beep.Ctrl
	out    output

	started bool
	// Set from the speaker goroutine, which holds the speaker lock
	done atomic.Bool
}

// Open decodes the wav header of path; playback starts with Play
func Open(path string, cfg Config) (*Track, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	source, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	return &Track{
		cfg:    cfg,
		file:   f,
		source: source,
		format: format,
		out:    speakerOutput{},
	}, nil
}

// Play initializes the output device at the track rate and starts streaming
func (t *Track) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return nil
	}

	sr := t.format.SampleRate
	bufMs := t.cfg.BufferMs
	if bufMs <= 0 {
		bufMs = DefaultConfig().BufferMs
	}
	if err := t.out.Init(sr, sr.N(time.Duration(bufMs)*time.Millisecond)); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}

	t.ctrl = &beep.Ctrl{Streamer: newVolume(t.source, t.cfg.Volume), Paused: false}
	t.out.Play(beep.Seq(t.ctrl, beep.Callback(t.finish)))
	t.started = true
	return nil
}

func (t *Track) finish() {
	t.done.Store(true)
}

// newVolume maps linear gain onto beep's log2 volume
func newVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Volume: 0, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(vol), Silent: false}
}

// Position returns the playback position in seconds
func (t *Track) Position() float64 {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	if !started {
		return 0
	}

	t.out.Lock()
	pos := t.source.Position()
	t.out.Unlock()
	return t.format.SampleRate.D(pos).Seconds()
}

// Duration returns the track length, 0 once closed
func (t *Track) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.source == nil {
		return 0
	}
	return t.format.SampleRate.D(t.source.Len())
}

// IsAdvancing reports whether playback is running and not finished
func (t *Track) IsAdvancing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started || t.done.Load() {
		return false
	}

	t.out.Lock()
	defer t.out.Unlock()
	return !t.ctrl.Paused
}

// SetPaused pauses or resumes playback
func (t *Track) SetPaused(paused bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ctrl == nil {
		return
	}
	t.out.Lock()
	t.ctrl.Paused = paused
	t.out.Unlock()
}

// Close stops playback and releases the file
func (t *Track) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		t.out.Clear()
		t.started = false
	}
	if t.source == nil {
		return nil
	}
	err := t.source.Close()
	t.source = nil
	if t.file != nil {
		t.file.Close()
	}
	return err
}
