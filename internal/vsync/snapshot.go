package vsync

import (
	"time"

	"github.com/desertthunder/vsync/internal/media"
)

// MemberStatus describes one member at the time of a [Group.Snapshot].
type MemberStatus struct {
	Element      media.Element
	Label        string
	Primary      bool
	CurrentTime  float64
	PlaybackRate float64
	Duration     float64
	Paused       bool
	Drift        float64 // primary time minus member time; zero for the primary or without one
}

// Status is a point-in-time view of a group, for monitors and reports.
type Status struct {
	Members             []MemberStatus
	Running             bool
	Interval            time.Duration
	MinimumPlaybackRate float64
	MaximumPlaybackRate float64
	Policy              string
}

// MaxDrift returns the largest absolute drift among the members.
func (s Status) MaxDrift() float64 {
	var worst float64
	for _, m := range s.Members {
		d := m.Drift
		if d < 0 {
			d = -d
		}
		worst = max(worst, d)
	}
	return worst
}

// PrimaryStatus returns the primary's entry, if any.
func (s Status) PrimaryStatus() (MemberStatus, bool) {
	for _, m := range s.Members {
		if m.Primary {
			return m, true
		}
	}
	return MemberStatus{}, false
}

func (g *Group) Snapshot() Status {
	g.mu.Lock()
	defer g.mu.Unlock()

	st := Status{
		Running:             g.timer != 0,
		Interval:            g.interval,
		MinimumPlaybackRate: g.minRate,
		MaximumPlaybackRate: g.maxRate,
		Policy:              g.policy.Name(),
		Members:             make([]MemberStatus, 0, len(g.elements)),
	}

	var primaryTime float64
	if g.primary != nil {
		primaryTime = g.primary.CurrentTime()
	}
	for _, el := range g.elements {
		m := MemberStatus{
			Element:      el,
			Label:        media.Label(el),
			Primary:      el == g.primary,
			CurrentTime:  el.CurrentTime(),
			PlaybackRate: el.PlaybackRate(),
			Duration:     el.Duration(),
			Paused:       el.Paused(),
		}
		if m.Primary {
			m.CurrentTime = primaryTime
		} else if g.primary != nil {
			m.Drift = primaryTime - m.CurrentTime
		}
		st.Members = append(st.Members, m)
	}
	return st
}
