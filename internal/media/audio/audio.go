// Package audio provides an AUDIO media element that plays WAV files through beep.
//
// The decoded stream is wrapped as ctrl(volume(resampler(stream))): the [beep.Ctrl] handles pause,
// the [beep.Resampler] turns the playback rate into a resampling ratio, and seeking goes straight to the
// decoder. Every mutation of the chain happens under the output's lock.
package audio

import (
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/desertthunder/vsync/internal/dom"
	"github.com/desertthunder/vsync/internal/media"
	"github.com/desertthunder/vsync/internal/shared"
	"github.com/faiface/beep"
	"github.com/faiface/beep/effects"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
	"github.com/jonboulle/clockwork"
)

const resampleQuality = 4

// Output is where elements send their streams. [Speaker] is the real implementation.
type Output interface {
	SampleRate() beep.SampleRate
	Play(s beep.Streamer)
	Lock()
	Unlock()
}

type speakerOutput struct {
	rate beep.SampleRate
}

var (
	speakerOnce sync.Once
	speakerOut  *speakerOutput
	speakerErr  error
)

// Speaker initialises the system speaker at rate once and returns it as an [Output].
func Speaker(rate beep.SampleRate) (Output, error) {
	speakerOnce.Do(func() {
		if err := speaker.Init(rate, rate.N(100*time.Millisecond)); err != nil {
			speakerErr = fmt.Errorf("%w: speaker: %v", shared.ErrServiceUnavailable, err)
			return
		}
		speakerOut = &speakerOutput{rate: rate}
	})
	if speakerErr != nil {
		return nil, speakerErr
	}
	return speakerOut, nil
}

func (s *speakerOutput) SampleRate() beep.SampleRate { return s.rate }
func (s *speakerOutput) Play(st beep.Streamer)       { speaker.Play(st) }
func (s *speakerOutput) Lock()                       { speaker.Lock() }
func (s *speakerOutput) Unlock()                     { speaker.Unlock() }

// Element is a beep-backed [media.Element].
type Element struct {
	*dom.Element
	media.EventTarget

	clock  clockwork.Clock
	out    Output
	stream beep.StreamSeekCloser
	format beep.Format

	ctrl      *beep.Ctrl
	resampler *beep.Resampler
	volume    *effects.Volume

	mu      sync.Mutex
	rate    float64
	queued  bool
	ended   bool
	closing bool
}

var _ media.Element = (*Element)(nil)

// Open decodes the WAV file at path into a paused element.
func Open(path, id string, out Output, d media.Dispatcher) (*Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	stream, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrUnsupportedFormat, path, err)
	}
	return New(id, stream, format, out, d), nil
}

// New wraps an already decoded stream. The element owns stream and closes it in [Element.Close].
func New(id string, stream beep.StreamSeekCloser, format beep.Format, out Output, d media.Dispatcher) *Element {
	e := &Element{
		Element: dom.NewElement("audio", id),
		clock:   clockwork.NewRealClock(),
		out:     out,
		stream:  stream,
		format:  format,
		rate:    1,
	}
	e.SetDispatcher(d)

	e.resampler = beep.ResampleRatio(resampleQuality, e.ratio(1), stream)
	e.volume = &effects.Volume{Streamer: e.resampler, Base: 2}
	e.ctrl = &beep.Ctrl{Streamer: e.volume, Paused: true}
	return e
}

func (e *Element) ratio(rate float64) float64 {
	return float64(e.format.SampleRate) / float64(e.out.SampleRate()) * rate
}

func (e *Element) CurrentTime() float64 {
	e.out.Lock()
	pos := e.stream.Position()
	e.out.Unlock()
	return e.format.SampleRate.D(pos).Seconds()
}

// SetCurrentTime seeks the decoder, clamped to the stream bounds, and raises seeked.
func (e *Element) SetCurrentTime(seconds float64) {
	if math.IsNaN(seconds) || seconds < 0 {
		seconds = 0
	}
	n := e.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))

	e.out.Lock()
	n = min(n, e.stream.Len())
	err := e.stream.Seek(n)
	e.out.Unlock()
	if err != nil {
		return
	}

	e.mu.Lock()
	e.ended = false
	e.mu.Unlock()
	e.raise(media.EventSeeked)
}

func (e *Element) PlaybackRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}

// SetPlaybackRate changes the resampling ratio. Non-positive and unchanged rates are ignored.
func (e *Element) SetPlaybackRate(rate float64) {
	e.mu.Lock()
	if rate <= 0 || math.IsNaN(rate) || rate == e.rate {
		e.mu.Unlock()
		return
	}
	e.rate = rate
	e.mu.Unlock()

	e.out.Lock()
	e.resampler.SetRatio(e.ratio(rate))
	e.out.Unlock()
	e.raise(media.EventRateChange)
}

func (e *Element) Duration() float64 {
	e.out.Lock()
	n := e.stream.Len()
	e.out.Unlock()
	return e.format.SampleRate.D(n).Seconds()
}

func (e *Element) Paused() bool {
	e.out.Lock()
	defer e.out.Unlock()
	return e.ctrl.Paused
}

// SetVolume sets the gain in decibel-like steps of base 2, 0 being unchanged.
func (e *Element) SetVolume(level float64) {
	e.out.Lock()
	defer e.out.Unlock()
	e.volume.Volume = level
	e.volume.Silent = math.IsInf(level, -1)
}

// Play unpauses the element, queueing it on the output the first time and after it ended.
func (e *Element) Play() {
	e.mu.Lock()
	if e.ended {
		e.ended = false
		e.out.Lock()
		_ = e.stream.Seek(0)
		e.out.Unlock()
	}
	enqueue := !e.queued
	e.queued = true
	e.mu.Unlock()

	e.out.Lock()
	wasPaused := e.ctrl.Paused
	e.ctrl.Paused = false
	e.out.Unlock()

	if enqueue {
		e.out.Play(beep.Seq(e.ctrl, beep.Callback(func() { go e.finish() })))
	}
	if wasPaused {
		e.raise(media.EventPlay)
	}
}

func (e *Element) Pause() {
	e.out.Lock()
	wasPaused := e.ctrl.Paused
	e.ctrl.Paused = true
	e.out.Unlock()

	if !wasPaused {
		e.raise(media.EventPause)
	}
}

// Close releases the decoder. The element must not be used afterwards.
func (e *Element) Close() error {
	e.mu.Lock()
	e.closing = true
	e.mu.Unlock()

	e.out.Lock()
	e.ctrl.Streamer = nil
	e.ctrl.Paused = true
	e.out.Unlock()
	return e.stream.Close()
}

// finish runs once the output drained the stream.
func (e *Element) finish() {
	e.mu.Lock()
	if e.closing {
		e.mu.Unlock()
		return
	}
	e.queued = false
	e.ended = true
	e.mu.Unlock()

	e.out.Lock()
	e.ctrl.Paused = true
	e.out.Unlock()

	e.raise(media.EventPause)
	e.raise(media.EventEnded)
}

func (e *Element) raise(kind media.EventKind) {
	e.Dispatch(media.Event{Kind: kind, Target: e, At: e.clock.Now()})
}
