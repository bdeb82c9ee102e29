package vsync

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vsync/internal/dom"
	"github.com/desertthunder/vsync/internal/host"
	"github.com/desertthunder/vsync/internal/media"
	"github.com/desertthunder/vsync/internal/shared"
)

type relayListener struct {
	kind media.EventKind
	id   media.ListenerID
}

// Group keeps a set of media elements in step with its primary.
type Group struct {
	mu sync.Mutex

	host     host.Scheduler
	doc      dom.Resolver
	log      *log.Logger
	policy   Policy
	recorder Recorder

	interval        time.Duration
	minRate         float64
	maxRate         float64
	exactWhenPaused bool

	elements  []media.Element
	primary   media.Element
	listeners []relayListener
	ignore    map[media.EventKind][]media.Element
	timer     host.TimerID
}

// New validates opts and builds a group from opts.Elements.
//
// Fails with [shared.ErrInvalidConfig] for a bad setting, [shared.ErrInvalidArgument] when an element is not
// a media element and [shared.ErrInvalidElement] when opts.Primary is not one of the elements.
func New(opts Options) (*Group, error) {
	interval, err := opts.interval()
	if err != nil {
		return nil, err
	}
	minRate, err := opts.minimumRate()
	if err != nil {
		return nil, err
	}
	maxRate, err := opts.maximumRate()
	if err != nil {
		return nil, err
	}

	g := &Group{
		host:            opts.Host,
		doc:             opts.Document,
		log:             opts.logger(),
		policy:          opts.Policy,
		recorder:        opts.Recorder,
		interval:        interval,
		minRate:         minRate,
		maxRate:         maxRate,
		exactWhenPaused: opts.ExactSyncWhenPaused,
		ignore:          make(map[media.EventKind][]media.Element),
	}
	if g.host == nil {
		g.host = host.Default()
	}
	if g.policy == nil {
		g.policy = OffsetPolicy{}
	}

	if err := g.SetElements(opts.Elements); err != nil {
		return nil, err
	}
	if opts.Primary != nil {
		if err := g.SetPrimary(opts.Primary); err != nil {
			return nil, err
		}
	}

	g.log.Debug("group created",
		"members", len(g.elements),
		"interval", g.interval,
		"min", g.minRate,
		"max", g.maxRate,
		"policy", g.policy.Name(),
	)
	return g, nil
}

func (g *Group) resolve(input any) []dom.Node {
	if g.doc != nil {
		return g.doc.Resolve(input)
	}
	return dom.Normalize(nil, input)
}

// first returns the first element input resolves to, or an error wrapping sentinel.
func (g *Group) first(input any, sentinel error) (media.Element, error) {
	nodes := g.resolve(input)
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %v does not resolve to an element", sentinel, input)
	}
	el, ok := media.AsElement(nodes[0])
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a video or audio element", sentinel, media.Label(nodes[0]))
	}
	return el, nil
}

// SetElements replaces the members with the elements input resolves to. The primary is cleared and the
// first new member becomes primary. Input that resolves to nothing leaves the group empty. Pending
// ignore entries survive only for elements that are members of the new set.
//
// Every resolved node must be a media element; otherwise nothing changes and the error wraps
// [shared.ErrInvalidArgument].
func (g *Group) SetElements(input any) error {
	nodes := g.resolve(input)
	els := make([]media.Element, 0, len(nodes))
	for _, n := range nodes {
		el, ok := media.AsElement(n)
		if !ok {
			return fmt.Errorf("%w: %s is not a video or audio element", shared.ErrInvalidArgument, media.Label(n))
		}
		els = append(els, el)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.setPrimaryLocked(nil)
	g.elements = nil
	for kind, list := range g.ignore {
		g.ignore[kind] = slices.DeleteFunc(list, func(e media.Element) bool { return !slices.Contains(els, e) })
	}

	if len(els) == 0 {
		g.log.Debug("no elements found to add")
		return nil
	}
	for _, el := range els {
		g.addLocked(el)
	}
	return nil
}

// Add appends the first element target resolves to. It returns the added element, or nil when it was
// already a member. The first member of an empty group becomes primary.
func (g *Group) Add(target any) (media.Element, error) {
	el, err := g.first(target, shared.ErrInvalidArgument)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addLocked(el), nil
}

func (g *Group) addLocked(el media.Element) media.Element {
	if slices.Contains(g.elements, el) {
		g.log.Debug("element already synced", "element", media.Label(el))
		return nil
	}

	g.elements = append(g.elements, el)
	g.log.Debug("element added", "element", media.Label(el), "members", len(g.elements))

	if g.primary == nil {
		g.log.Debug("no primary, electing new member", "element", media.Label(el))
		g.setPrimaryLocked(el)
	}
	return el
}

// Remove drops the first element target resolves to and returns it, or nil when it was not a member.
//
// Removing the primary stops the sync loop and elects the earliest remaining member. The loop also stops
// when fewer than two members remain.
func (g *Group) Remove(target any) (media.Element, error) {
	el, err := g.first(target, shared.ErrInvalidArgument)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	idx := slices.Index(g.elements, el)
	if idx < 0 {
		g.log.Debug("element to remove is not synced", "element", media.Label(el))
		return nil, nil
	}

	g.elements = slices.Delete(g.elements, idx, idx+1)
	for kind, list := range g.ignore {
		g.ignore[kind] = slices.DeleteFunc(list, func(e media.Element) bool { return e == el })
	}
	g.log.Debug("element removed", "element", media.Label(el), "members", len(g.elements))

	if g.primary == el {
		g.setPrimaryLocked(nil)
		if len(g.elements) > 0 {
			g.setPrimaryLocked(g.elements[0])
		} else {
			g.log.Debug("no members left to elect")
		}
	}
	if len(g.elements) < 2 {
		g.stopLocked()
	}
	return el, nil
}

// SetPrimary moves the relay listeners onto the first element target resolves to, which must already be
// a member ([shared.ErrInvalidElement] otherwise). A nil target, typed or not, detaches the listeners and
// stops the loop.
func (g *Group) SetPrimary(target any) error {
	if dom.IsNil(target) {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.setPrimaryLocked(nil)
		return nil
	}

	var el media.Element
	if nodes := g.resolve(target); len(nodes) > 0 {
		el, _ = media.AsElement(nodes[0])
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if el == nil || !slices.Contains(g.elements, el) {
		return fmt.Errorf("%w: primary must be one of the synced elements", shared.ErrInvalidElement)
	}
	g.setPrimaryLocked(el)
	return nil
}

func (g *Group) setPrimaryLocked(el media.Element) {
	if el == nil {
		if g.primary != nil {
			g.detachLocked()
			g.log.Debug("primary removed", "element", media.Label(g.primary))
		}
		g.stopLocked()
		g.primary = nil
		return
	}
	if el == g.primary {
		return
	}
	if g.primary != nil {
		g.detachLocked()
	}
	g.primary = el
	g.attachLocked()
	g.log.Debug("primary set", "element", media.Label(el))
}

// Elements returns the members in insertion order.
func (g *Group) Elements() []media.Element {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.elements)
}

// Primary returns the primary element, or nil.
func (g *Group) Primary() media.Element {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.primary
}

func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.elements)
}

func (g *Group) SyncInterval() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.interval
}

func (g *Group) MinimumPlaybackRate() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.minRate
}

func (g *Group) MaximumPlaybackRate() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxRate
}

// SetSyncInterval changes the tick period. A running loop is re-armed at the new period without a hard sync.
func (g *Group) SetSyncInterval(d time.Duration) error {
	if err := validInterval(d); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.interval = d
	if g.timer != 0 {
		g.host.ClearInterval(g.timer)
		g.timer = g.host.SetInterval(d, g.tick)
	}
	g.log.Debug("sync interval set", "interval", d)
	return nil
}

func (g *Group) SetMinimumPlaybackRate(r float64) error {
	if err := validRate("minimum playback rate", r); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.minRate = r
	g.log.Debug("minimum playback rate set", "rate", r)
	return nil
}

func (g *Group) SetMaximumPlaybackRate(r float64) error {
	if err := validRate("maximum playback rate", r); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.maxRate = r
	g.log.Debug("maximum playback rate set", "rate", r)
	return nil
}

// SetPolicy swaps the convergence policy. nil restores [OffsetPolicy].
func (g *Group) SetPolicy(p Policy) {
	if p == nil {
		p = OffsetPolicy{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.policy = p
	g.log.Debug("policy set", "policy", p.Name())
}

// SetRecorder installs r to receive every loop decision. nil disables recording.
func (g *Group) SetRecorder(r Recorder) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recorder = r
}

// Close detaches the relay and stops the loop. Events still queued for the group are dropped.
func (g *Group) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.setPrimaryLocked(nil)
	g.log.Debug("group closed")
}
