package vsync

import (
	"fmt"
	"slices"

	"github.com/desertthunder/vsync/internal/media"
	"github.com/desertthunder/vsync/internal/shared"
)

var relayKinds = []media.EventKind{media.EventPlay, media.EventPause, media.EventSeeked}

func (g *Group) attachLocked() {
	for _, kind := range relayKinds {
		id := g.primary.AddEventListener(kind, g.handleEvent)
		g.listeners = append(g.listeners, relayListener{kind: kind, id: id})
	}
}

func (g *Group) detachLocked() {
	for _, l := range g.listeners {
		g.primary.RemoveEventListener(l.kind, l.id)
	}
	g.listeners = nil
}

// handleEvent relays an event raised by the primary to the other members.
func (g *Group) handleEvent(ev media.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if ev.Target == nil || ev.Target != g.primary {
		return
	}
	g.log.Debug("primary event", "event", ev.Kind, "element", media.Label(ev.Target))

	if g.consumeIgnoreLocked(ev.Kind, ev.Target) {
		g.log.Debug("event ignored", "event", ev.Kind, "element", media.Label(ev.Target))
		return
	}

	switch ev.Kind {
	case media.EventPlay:
		g.playLocked(ev.Target)
	case media.EventPause:
		g.pauseLocked(ev.Target)
	case media.EventSeeked:
		g.seekLocked(ev.Target.CurrentTime(), ev.Target)
	}
}

func relayKind(kind media.EventKind) error {
	if !slices.Contains(relayKinds, kind) {
		return fmt.Errorf("%w: %q is not a relayed event", shared.ErrInvalidArgument, kind)
	}
	return nil
}

// AddIgnoreNextEvent swallows the next kind event raised by the first element target resolves to.
// Use it before driving an element directly so its echo is not relayed back to the group.
func (g *Group) AddIgnoreNextEvent(kind media.EventKind, target any) error {
	if err := relayKind(kind); err != nil {
		return err
	}
	el, err := g.first(target, shared.ErrInvalidArgument)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if !slices.Contains(g.ignore[kind], el) {
		g.ignore[kind] = append(g.ignore[kind], el)
	}
	return nil
}

// RemoveIgnoreNextEvent withdraws an entry added by [Group.AddIgnoreNextEvent]. Missing entries are ignored.
func (g *Group) RemoveIgnoreNextEvent(kind media.EventKind, target any) error {
	if err := relayKind(kind); err != nil {
		return err
	}
	el, err := g.first(target, shared.ErrInvalidArgument)
	if err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeIgnoreLocked(kind, el)
	return nil
}

// Ignoring reports whether el's next kind event will be swallowed.
func (g *Group) Ignoring(kind media.EventKind, el media.Element) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Contains(g.ignore[kind], el)
}

func (g *Group) consumeIgnoreLocked(kind media.EventKind, el media.Element) bool {
	if !slices.Contains(g.ignore[kind], el) {
		return false
	}
	g.removeIgnoreLocked(kind, el)
	return true
}

func (g *Group) removeIgnoreLocked(kind media.EventKind, el media.Element) {
	list := g.ignore[kind]
	if idx := slices.Index(list, el); idx >= 0 {
		g.ignore[kind] = slices.Delete(list, idx, idx+1)
	}
}
