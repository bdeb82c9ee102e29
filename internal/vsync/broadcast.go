package vsync

import "github.com/desertthunder/vsync/internal/media"

// Play starts the sync loop and plays every member except skip, which may be nil.
//
// The primary raises its own play event in response. Register it with [Group.AddIgnoreNextEvent] first
// when that echo should not be relayed.
func (g *Group) Play(skip media.Element) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.playLocked(skip)
}

// Pause pauses every member except skip and stops the sync loop.
func (g *Group) Pause(skip media.Element) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pauseLocked(skip)
}

// SeekTo moves every member except skip to seconds.
func (g *Group) SeekTo(seconds float64, skip media.Element) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seekLocked(seconds, skip)
}

// SetRate sets the playback rate of every member except skip.
func (g *Group) SetRate(rate float64, skip media.Element) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rateLocked(rate, skip)
}

func (g *Group) playLocked(skip media.Element) {
	g.startLocked()
	for _, el := range g.elements {
		if el == skip {
			continue
		}
		g.log.Debug("play", "element", media.Label(el))
		el.Play()
	}
}

func (g *Group) pauseLocked(skip media.Element) {
	for _, el := range g.elements {
		if el == skip {
			continue
		}
		g.log.Debug("pause", "element", media.Label(el))
		el.Pause()
	}
	g.stopLocked()
	if g.exactWhenPaused {
		g.forceExactSyncLocked()
	}
}

func (g *Group) seekLocked(seconds float64, skip media.Element) {
	for _, el := range g.elements {
		if el == skip {
			continue
		}
		g.log.Debug("seek", "element", media.Label(el), "time", seconds)
		el.SetCurrentTime(seconds)
	}
}

func (g *Group) rateLocked(rate float64, skip media.Element) {
	for _, el := range g.elements {
		if el == skip {
			continue
		}
		g.log.Debug("playback rate", "element", media.Label(el), "rate", rate)
		el.SetPlaybackRate(rate)
	}
}
