package media

import (
	"math"
	"sync"
	"time"

	"github.com/desertthunder/vsync/internal/dom"
	"github.com/jonboulle/clockwork"
)

// SimElement is a media element whose position is derived from a clock.
//
// While playing, the position advances by elapsed × rate × (1 + skew). A non-zero skew models a decoder that
// runs slightly fast or slow, which is the drift the sync loop has to correct. When the position reaches the
// duration the element pauses and raises pause followed by ended.
type SimElement struct {
	*dom.Element
	EventTarget

	clock clockwork.Clock

	mu       sync.Mutex
	base     float64
	anchor   time.Time
	rate     float64
	skew     float64
	duration float64
	paused   bool
	ended    bool
}

var _ Element = (*SimElement)(nil)

// SimOption configures a [SimElement].
type SimOption func(*SimElement)

// WithDuration sets the media length in seconds. Without it the element never ends.
func WithDuration(seconds float64) SimOption {
	return func(e *SimElement) {
		if seconds > 0 {
			e.duration = seconds
		}
	}
}

// WithSkew sets the fractional speed error, e.g. 0.004 for a clock running 0.4% fast.
func WithSkew(skew float64) SimOption {
	return func(e *SimElement) {
		if skew > -1 {
			e.skew = skew
		}
	}
}

// WithPosition sets the initial position in seconds.
func WithPosition(seconds float64) SimOption {
	return func(e *SimElement) { e.base = seconds }
}

// WithClasses sets the node's class list.
func WithClasses(classes ...string) SimOption {
	return func(e *SimElement) { e.Element = dom.NewElement(e.TagName(), e.ID(), classes...) }
}

// NewSimElement creates a paused element at position zero with rate 1. Events are delivered through d.
func NewSimElement(tag, id string, clock clockwork.Clock, d Dispatcher, opts ...SimOption) *SimElement {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	e := &SimElement{
		Element:  dom.NewElement(tag, id),
		clock:    clock,
		rate:     1,
		duration: math.Inf(1),
		paused:   true,
	}
	e.SetDispatcher(d)
	for _, opt := range opts {
		opt(e)
	}
	e.base = e.clamp(e.base)
	e.anchor = clock.Now()
	return e
}

func (e *SimElement) CurrentTime() float64 {
	e.mu.Lock()
	pos, ended := e.settleLocked()
	e.mu.Unlock()
	if ended {
		e.raiseEnd()
	}
	return pos
}

// SetCurrentTime seeks to seconds, clamped to [0, duration], and raises seeked.
func (e *SimElement) SetCurrentTime(seconds float64) {
	e.mu.Lock()
	e.base = e.clamp(seconds)
	e.anchor = e.clock.Now()
	e.ended = false
	e.mu.Unlock()

	e.raise(EventSeeked)
}

func (e *SimElement) PlaybackRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}

// SetPlaybackRate changes the rate and raises ratechange. Non-positive rates and unchanged rates are ignored.
func (e *SimElement) SetPlaybackRate(rate float64) {
	e.mu.Lock()
	if rate <= 0 || rate == e.rate || math.IsNaN(rate) {
		e.mu.Unlock()
		return
	}
	pos, ended := e.settleLocked()
	e.base = pos
	e.anchor = e.clock.Now()
	e.rate = rate
	e.mu.Unlock()

	if ended {
		e.raiseEnd()
	}
	e.raise(EventRateChange)
}

func (e *SimElement) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *SimElement) Paused() bool {
	e.mu.Lock()
	_, ended := e.settleLocked()
	paused := e.paused
	e.mu.Unlock()
	if ended {
		e.raiseEnd()
	}
	return paused
}

// Ended reports whether playback reached the end of the media.
func (e *SimElement) Ended() bool {
	e.mu.Lock()
	_, ended := e.settleLocked()
	done := e.ended
	e.mu.Unlock()
	if ended {
		e.raiseEnd()
	}
	return done
}

// Play starts playback and raises play. Playing an ended element restarts it from zero.
// Calling Play while already playing does nothing.
func (e *SimElement) Play() {
	e.mu.Lock()
	if _, ended := e.settleLocked(); ended {
		e.mu.Unlock()
		e.raiseEnd()
		e.mu.Lock()
	}
	if !e.paused {
		e.mu.Unlock()
		return
	}
	if e.ended {
		e.base = 0
		e.ended = false
	}
	e.paused = false
	e.anchor = e.clock.Now()
	e.mu.Unlock()

	e.raise(EventPlay)
}

// Pause stops playback and raises pause. Calling Pause while paused does nothing.
func (e *SimElement) Pause() {
	e.mu.Lock()
	pos, ended := e.settleLocked()
	if ended {
		e.mu.Unlock()
		e.raiseEnd()
		return
	}
	if e.paused {
		e.mu.Unlock()
		return
	}
	e.base = pos
	e.anchor = e.clock.Now()
	e.paused = true
	e.mu.Unlock()

	e.raise(EventPause)
}

// settleLocked returns the current position. When playback has just run past the duration it freezes the
// element at the end and reports true so the caller raises the end events after unlocking.
func (e *SimElement) settleLocked() (float64, bool) {
	if e.paused {
		return e.base, false
	}
	elapsed := e.clock.Since(e.anchor).Seconds()
	pos := e.base + elapsed*e.rate*(1+e.skew)
	if pos < e.duration {
		return pos, false
	}
	e.base = e.duration
	e.anchor = e.clock.Now()
	e.paused = true
	e.ended = true
	return e.duration, true
}

func (e *SimElement) clamp(seconds float64) float64 {
	if seconds < 0 || math.IsNaN(seconds) {
		return 0
	}
	return math.Min(seconds, e.duration)
}

func (e *SimElement) raise(kind EventKind) {
	e.Dispatch(Event{Kind: kind, Target: e, At: e.clock.Now()})
}

func (e *SimElement) raiseEnd() {
	e.raise(EventPause)
	e.raise(EventEnded)
}
