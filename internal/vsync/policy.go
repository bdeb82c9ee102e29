package vsync

import (
	"fmt"
	"math"
	"strings"

	"github.com/desertthunder/vsync/internal/shared"
)

// Measurement is what a tick reads from the primary and one follower.
type Measurement struct {
	PrimaryTime      float64
	PrimaryRate      float64
	PrimaryDuration  float64
	FollowerTime     float64
	FollowerDuration float64
}

// Offset is how far the follower trails the primary, in seconds. Negative when it is ahead.
func (m Measurement) Offset() float64 { return m.PrimaryTime - m.FollowerTime }

// Policy turns a measurement into a raw follower rate. ok is false when no correction can be computed,
// in which case the follower is left alone for this tick.
type Policy interface {
	Name() string
	Rate(m Measurement) (rate float64, ok bool)
}

// OffsetPolicy converges on the primary's absolute position: rate = offset/2 + 1,
// so a follower closes its gap over roughly two seconds.
type OffsetPolicy struct{}

func (OffsetPolicy) Name() string { return "offset" }

func (OffsetPolicy) Rate(m Measurement) (float64, bool) {
	r := m.Offset()/2 + 1
	return r, !math.IsNaN(r) && !math.IsInf(r, 0)
}

// RemainingPolicy converges on finishing together: the follower's rate is the ratio of its remaining media
// to the primary's remaining wall time. It needs finite durations and a primary that has not reached the end.
type RemainingPolicy struct{}

func (RemainingPolicy) Name() string { return "remaining" }

func (RemainingPolicy) Rate(m Measurement) (float64, bool) {
	if m.PrimaryRate <= 0 {
		return 0, false
	}
	primaryLeft := (m.PrimaryDuration - m.PrimaryTime) / m.PrimaryRate
	followerLeft := m.FollowerDuration - m.FollowerTime
	if !(primaryLeft > 0) || math.IsInf(primaryLeft, 0) || math.IsInf(followerLeft, 0) || math.IsNaN(followerLeft) {
		return 0, false
	}
	return followerLeft / primaryLeft, true
}

// ParsePolicy returns the policy registered under name. An empty name selects [OffsetPolicy].
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "offset":
		return OffsetPolicy{}, nil
	case "remaining":
		return RemainingPolicy{}, nil
	}
	return nil, fmt.Errorf("%w: unknown sync policy %q", shared.ErrInvalidConfig, name)
}

// CorrectedRate clamps raw into [minRate, maxRate] and rounds it to two decimals.
// A rounded rate inside (0.99, 1.01) snaps to exactly 1 and reports snapped.
func CorrectedRate(raw, minRate, maxRate float64) (rate float64, snapped bool) {
	clamped := math.Min(math.Max(raw, minRate), maxRate)
	rate = math.Round(clamped*100) / 100
	if rate > 0.99 && rate < 1.01 {
		return 1, true
	}
	return rate, false
}
