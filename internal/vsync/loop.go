package vsync

import (
	"time"

	"github.com/desertthunder/vsync/internal/media"
)

// Adjustment is one decision taken by the sync loop for one follower.
type Adjustment struct {
	At      time.Time
	Element media.Element
	Offset  float64 // primary time minus follower time, in seconds
	Raw     float64 // policy output before clamping
	Rate    float64 // corrected rate
	Snapped bool    // rate fell in the snap band and was forced to 1
	Written bool    // the follower's rate was assigned
	Exact   bool    // hard sync: time and rate copied from the primary
}

// Recorder receives sync loop decisions. It is called with the group locked and must not call back into it.
type Recorder interface {
	Record(a Adjustment)
}

// RecorderFunc adapts a function to [Recorder].
type RecorderFunc func(a Adjustment)

func (f RecorderFunc) Record(a Adjustment) { f(a) }

// Running reports whether the sync loop is armed.
func (g *Group) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timer != 0
}

// StartSyncLoop hard syncs the followers and arms the sync interval. It does nothing when the loop already
// runs, when there is no primary or when the group has fewer than two members.
func (g *Group) StartSyncLoop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.startLocked()
}

// StopSyncLoop clears the sync interval. Stopping a stopped loop does nothing.
func (g *Group) StopSyncLoop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
}

// ForceExactSync copies the primary's time and rate onto every follower.
// It does nothing without a primary or with fewer than two members.
func (g *Group) ForceExactSync() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.forceExactSyncLocked()
}

func (g *Group) startLocked() {
	switch {
	case g.timer != 0:
		g.log.Debug("sync loop already started")
		return
	case g.primary == nil:
		g.log.Debug("sync loop needs a primary")
		return
	case len(g.elements) < 2:
		g.log.Debug("sync loop needs at least 2 members", "members", len(g.elements))
		return
	}

	g.forceExactSyncLocked()
	g.timer = g.host.SetInterval(g.interval, g.tick)
	g.log.Debug("sync loop started", "interval", g.interval)
}

func (g *Group) stopLocked() {
	if g.timer == 0 {
		return
	}
	g.host.ClearInterval(g.timer)
	g.timer = 0
	g.log.Debug("sync loop stopped")
}

func (g *Group) forceExactSyncLocked() {
	if g.primary == nil {
		g.log.Debug("exact sync needs a primary")
		return
	}
	if len(g.elements) < 2 {
		g.log.Debug("exact sync needs at least 2 members", "members", len(g.elements))
		return
	}

	t := g.primary.CurrentTime()
	r := g.primary.PlaybackRate()
	now := g.host.Now()
	for _, el := range g.elements {
		if el == g.primary {
			continue
		}
		offset := t - el.CurrentTime()
		el.SetCurrentTime(t)
		el.SetPlaybackRate(r)
		g.record(Adjustment{At: now, Element: el, Offset: offset, Raw: r, Rate: r, Written: true, Exact: true})
	}
	g.log.Debug("exact sync", "time", t, "rate", r)
}

func (g *Group) tick() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.primary == nil {
		g.log.Debug("no primary, stopping sync loop")
		g.stopLocked()
		return
	}
	if g.exactWhenPaused && g.primary.Paused() {
		g.log.Debug("primary paused, forcing exact sync")
		g.forceExactSyncLocked()
		return
	}

	m := Measurement{
		PrimaryTime:     g.primary.CurrentTime(),
		PrimaryRate:     g.primary.PlaybackRate(),
		PrimaryDuration: g.primary.Duration(),
	}
	now := g.host.Now()

	for _, el := range g.elements {
		if el == g.primary {
			continue
		}
		m.FollowerTime = el.CurrentTime()
		m.FollowerDuration = el.Duration()

		raw, ok := g.policy.Rate(m)
		if !ok {
			g.log.Debug("no correction possible", "element", media.Label(el), "policy", g.policy.Name())
			continue
		}

		rate, snapped := CorrectedRate(raw, g.minRate, g.maxRate)
		adj := Adjustment{At: now, Element: el, Offset: m.Offset(), Raw: raw, Rate: rate, Snapped: snapped}
		switch {
		case snapped && el.PlaybackRate() == 1:
			g.log.Debug("in sync", "element", media.Label(el), "offset", adj.Offset)
		case snapped:
			el.SetPlaybackRate(1)
			adj.Written = true
			g.log.Debug("in sync, restoring rate", "element", media.Label(el), "offset", adj.Offset)
		default:
			el.SetPlaybackRate(rate)
			adj.Written = true
			g.log.Debug("new playback rate", "element", media.Label(el), "offset", adj.Offset, "rate", rate)
		}
		g.record(adj)
	}
}

func (g *Group) record(a Adjustment) {
	if g.recorder != nil {
		g.recorder.Record(a)
	}
}
