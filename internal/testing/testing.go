// package testing contains shared testing utilities
package testing

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"testing"

	"github.com/desertthunder/vsync/internal/dom"
	"github.com/desertthunder/vsync/internal/media"
	"github.com/jonboulle/clockwork"
)

// RecordingElement is a [media.Element] test double with a position and rate set by hand.
// It never advances on its own and logs every call made to it.
type RecordingElement struct {
	*dom.Element
	media.EventTarget

	clock clockwork.Clock

	mu       sync.Mutex
	time     float64
	rate     float64
	duration float64
	paused   bool
	calls    []string
}

var _ media.Element = (*RecordingElement)(nil)

// NewRecordingElement creates a paused element at position zero and rate 1 that delivers events through d.
func NewRecordingElement(tag, id string, d media.Dispatcher) *RecordingElement {
	e := &RecordingElement{
		Element:  dom.NewElement(tag, id),
		clock:    clockwork.NewFakeClock(),
		rate:     1,
		duration: 600,
		paused:   true,
	}
	e.SetDispatcher(d)
	return e
}

// Set moves the element without recording a call or raising an event.
func (e *RecordingElement) Set(seconds, rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.time = seconds
	e.rate = rate
}

// SetDuration changes the reported duration.
func (e *RecordingElement) SetDuration(seconds float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.duration = seconds
}

// SetPaused changes the paused state without recording a call or raising an event.
func (e *RecordingElement) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = paused
}

// Calls returns the recorded calls, e.g. "play", "pause", "seek 10.000", "rate 2.00".
func (e *RecordingElement) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.calls)
}

// CountCalls returns how many recorded calls start with prefix.
func (e *RecordingElement) CountCalls(prefix string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// ResetCalls clears the call log.
func (e *RecordingElement) ResetCalls() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = nil
}

func (e *RecordingElement) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.time
}

func (e *RecordingElement) SetCurrentTime(seconds float64) {
	e.mu.Lock()
	e.time = seconds
	e.calls = append(e.calls, fmt.Sprintf("seek %.3f", seconds))
	e.mu.Unlock()
	e.raise(media.EventSeeked)
}

func (e *RecordingElement) PlaybackRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}

func (e *RecordingElement) SetPlaybackRate(rate float64) {
	e.mu.Lock()
	e.rate = rate
	e.calls = append(e.calls, fmt.Sprintf("rate %.2f", rate))
	e.mu.Unlock()
	e.raise(media.EventRateChange)
}

func (e *RecordingElement) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.duration
}

func (e *RecordingElement) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Play records the call and raises play when the element was paused.
func (e *RecordingElement) Play() {
	e.mu.Lock()
	e.calls = append(e.calls, "play")
	changed := e.paused
	e.paused = false
	e.mu.Unlock()
	if changed {
		e.raise(media.EventPlay)
	}
}

// Pause records the call and raises pause when the element was playing.
func (e *RecordingElement) Pause() {
	e.mu.Lock()
	e.calls = append(e.calls, "pause")
	changed := !e.paused
	e.paused = true
	e.mu.Unlock()
	if changed {
		e.raise(media.EventPause)
	}
}

func (e *RecordingElement) raise(kind media.EventKind) {
	e.Dispatch(media.Event{Kind: kind, Target: e, At: e.clock.Now()})
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
