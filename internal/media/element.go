package media

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/vsync/internal/dom"
	"github.com/desertthunder/vsync/internal/shared"
)

// EventKind names an event raised by an [Element].
type EventKind string

const (
	EventPlay       EventKind = "play"
	EventPause      EventKind = "pause"
	EventSeeked     EventKind = "seeked"
	EventRateChange EventKind = "ratechange"
	EventEnded      EventKind = "ended"
)

// ParseEventKind maps an event name to its [EventKind].
func ParseEventKind(name string) (EventKind, error) {
	switch k := EventKind(strings.ToLower(strings.TrimSpace(name))); k {
	case EventPlay, EventPause, EventSeeked, EventRateChange, EventEnded:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown event %q", shared.ErrInvalidArgument, name)
}

// Event is delivered to listeners registered with [Element.AddEventListener].
type Event struct {
	Kind   EventKind
	Target Element
	At     time.Time
}

// Listener handles an [Event].
type Listener func(Event)

// ListenerID identifies a registered [Listener] so it can be removed.
type ListenerID string

// Element is a playable media handle. Positions and durations are in seconds.
//
// Implementations raise events asynchronously: Play, Pause, SetCurrentTime and SetPlaybackRate
// must return before any listener observes the resulting event.
type Element interface {
	dom.Node

	CurrentTime() float64
	SetCurrentTime(seconds float64)
	PlaybackRate() float64
	SetPlaybackRate(rate float64)
	Duration() float64
	Paused() bool
	Play()
	Pause()

	AddEventListener(kind EventKind, fn Listener) ListenerID
	RemoveEventListener(kind EventKind, id ListenerID)
}

// IsMediaElement reports whether v can be synchronized: it must implement [Element]
// and carry a VIDEO or AUDIO tag.
func IsMediaElement(v any) bool {
	_, ok := AsElement(v)
	return ok
}

// AsElement returns v as an [Element] when [IsMediaElement] holds.
func AsElement(v any) (Element, bool) {
	el, ok := v.(Element)
	if !ok || dom.IsNil(el) {
		return nil, false
	}
	switch strings.ToUpper(el.TagName()) {
	case "VIDEO", "AUDIO":
		return el, true
	}
	return nil, false
}

// Label returns a short human readable name for el: its id when set, otherwise its tag.
func Label(el dom.Node) string {
	if el == nil {
		return "<nil>"
	}
	if id := el.ID(); id != "" {
		return "#" + id
	}
	return strings.ToLower(el.TagName())
}
