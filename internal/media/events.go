package media

import (
	"slices"
	"sync"

	"github.com/desertthunder/vsync/internal/shared"
)

// Dispatcher runs event delivery outside the caller's stack. [host.Loop] satisfies it.
type Dispatcher interface {
	Post(fn func())
}

type registration struct {
	id ListenerID
	fn Listener
}

// EventTarget is an embeddable listener registry.
//
// Listeners are looked up when the event is delivered, not when it is raised, so a listener removed
// in the meantime is not called.
type EventTarget struct {
	mu         sync.Mutex
	listeners  map[EventKind][]registration
	dispatcher Dispatcher
}

// SetDispatcher sets where events are delivered. Without one each event is delivered on its own goroutine.
func (t *EventTarget) SetDispatcher(d Dispatcher) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dispatcher = d
}

func (t *EventTarget) AddEventListener(kind EventKind, fn Listener) ListenerID {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.listeners == nil {
		t.listeners = make(map[EventKind][]registration)
	}
	id := ListenerID(shared.GenerateID())
	t.listeners[kind] = append(t.listeners[kind], registration{id: id, fn: fn})
	return id
}

func (t *EventTarget) RemoveEventListener(kind EventKind, id ListenerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	regs := t.listeners[kind]
	idx := slices.IndexFunc(regs, func(r registration) bool { return r.id == id })
	if idx < 0 {
		return
	}
	t.listeners[kind] = slices.Delete(regs, idx, idx+1)
}

// ListenerCount reports how many listeners are registered for kind.
func (t *EventTarget) ListenerCount(kind EventKind) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.listeners[kind])
}

// Dispatch queues ev for delivery to the listeners of ev.Kind.
func (t *EventTarget) Dispatch(ev Event) {
	t.mu.Lock()
	d := t.dispatcher
	t.mu.Unlock()

	deliver := func() {
		t.mu.Lock()
		regs := slices.Clone(t.listeners[ev.Kind])
		t.mu.Unlock()
		for _, r := range regs {
			if t.registered(ev.Kind, r.id) {
				r.fn(ev)
			}
		}
	}

	if d == nil {
		go deliver()
		return
	}
	d.Post(deliver)
}

// registered guards against a listener removed by an earlier listener of the same event.
func (t *EventTarget) registered(kind EventKind, id ListenerID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.ContainsFunc(t.listeners[kind], func(r registration) bool { return r.id == id })
}
