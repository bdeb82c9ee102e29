package vsync

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vsync/internal/dom"
	"github.com/desertthunder/vsync/internal/host"
	"github.com/desertthunder/vsync/internal/shared"
)

const (
	DefaultSyncInterval        = 250 * time.Millisecond
	DefaultMinimumPlaybackRate = 0.33
	DefaultMaximumPlaybackRate = 3.00
)

// Options configures [New].
//
// The numeric settings are pointers. nil selects the default; any other value, zero included, must be
// larger than zero or New fails with [shared.ErrInvalidConfig].
type Options struct {
	// Elements is the initial member input: an element, a selector, a collection or a (nested) slice of these.
	Elements any
	// Primary overrides the default primary, which is the first member.
	Primary any
	// Document resolves selector strings. Without one, selectors match nothing.
	Document dom.Resolver
	// Host runs event callbacks and the sync interval. Defaults to [host.Default].
	Host host.Scheduler

	SyncInterval        *time.Duration
	MinimumPlaybackRate *float64
	MaximumPlaybackRate *float64

	// Policy computes follower rates. Defaults to [OffsetPolicy].
	Policy Policy
	// ExactSyncWhenPaused hard syncs followers on ticks where the primary is paused.
	ExactSyncWhenPaused bool

	Debug    bool
	Logger   *log.Logger
	Recorder Recorder
}

// Duration returns a pointer to d, for [Options.SyncInterval].
func Duration(d time.Duration) *time.Duration { return &d }

// Float returns a pointer to f, for the playback rate options.
func Float(f float64) *float64 { return &f }

// OptionsFromConfig maps the [sync] configuration section onto group options.
// Omitted keys stay nil so the group defaults apply.
func OptionsFromConfig(c shared.SyncConfig) (Options, error) {
	policy, err := ParsePolicy(c.Policy)
	if err != nil {
		return Options{}, err
	}

	opts := Options{
		MinimumPlaybackRate: c.MinimumPlaybackRate,
		MaximumPlaybackRate: c.MaximumPlaybackRate,
		Policy:              policy,
		ExactSyncWhenPaused: c.ExactSyncWhenPaused,
		Debug:               c.Debug,
	}
	if c.IntervalMS != nil {
		opts.SyncInterval = Duration(time.Duration(*c.IntervalMS) * time.Millisecond)
	}
	return opts, nil
}

func validInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: sync interval must be larger than zero, got %v", shared.ErrInvalidConfig, d)
	}
	return nil
}

func validRate(name string, r float64) error {
	if !(r > 0) {
		return fmt.Errorf("%w: %s must be a number larger than zero, got %v", shared.ErrInvalidConfig, name, r)
	}
	return nil
}

func (o Options) interval() (time.Duration, error) {
	if o.SyncInterval == nil {
		return DefaultSyncInterval, nil
	}
	return *o.SyncInterval, validInterval(*o.SyncInterval)
}

func (o Options) minimumRate() (float64, error) {
	if o.MinimumPlaybackRate == nil {
		return DefaultMinimumPlaybackRate, nil
	}
	return *o.MinimumPlaybackRate, validRate("minimum playback rate", *o.MinimumPlaybackRate)
}

func (o Options) maximumRate() (float64, error) {
	if o.MaximumPlaybackRate == nil {
		return DefaultMaximumPlaybackRate, nil
	}
	return *o.MaximumPlaybackRate, validRate("maximum playback rate", *o.MaximumPlaybackRate)
}

func (o Options) logger() *log.Logger {
	if !o.Debug {
		return shared.NewDiscardLogger()
	}
	l := o.Logger
	if l == nil {
		l = shared.NewLogger(nil)
	}
	l = l.WithPrefix("vsync")
	shared.SetLogLevel(l, log.DebugLevel)
	return l
}
