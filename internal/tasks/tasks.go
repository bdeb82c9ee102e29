// package tasks runs deterministic sync simulations.
//
// The core abstraction is SimulationEngine, which builds a scene of simulated media elements on a fake clock,
// drives a sync group through it interval by interval and reports drift.
// Runs emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vsync/internal/host"
	"github.com/desertthunder/vsync/internal/media"
	"github.com/desertthunder/vsync/internal/models"
	"github.com/desertthunder/vsync/internal/shared"
	"github.com/desertthunder/vsync/internal/vsync"
	"github.com/jonboulle/clockwork"
)

// DefaultTolerance is the drift below which a follower counts as in sync: the offset policy snaps to rate 1
// inside it.
const DefaultTolerance = 0.02

// Action is something a [ScriptedEvent] does to the scene.
type Action string

const (
	ActionPause   Action = "pause"   // pause the primary through its own controls
	ActionPlay    Action = "play"    // play the primary through its own controls
	ActionSeek    Action = "seek"    // seek the primary to Value seconds
	ActionStall   Action = "stall"   // push element Target back by Value seconds
	ActionPrimary Action = "primary" // make element Target the primary
)

// ScriptedEvent is applied at the start of the first step at or after At.
type ScriptedEvent struct {
	At     time.Duration
	Action Action
	Target int // index into [Scene.Elements]; 0 is the initial primary
	Value  float64
}

func (ev ScriptedEvent) String() string {
	s := fmt.Sprintf("%s:%s", ev.At, ev.Action)
	if ev.Action == ActionStall || ev.Action == ActionPrimary {
		s += ":" + strconv.Itoa(ev.Target)
	}
	if ev.Action == ActionSeek || ev.Action == ActionStall {
		s += "=" + strconv.FormatFloat(ev.Value, 'f', -1, 64)
	}
	return s
}

// ParseScriptedEvent parses AT:ACTION[:TARGET][=VALUE], e.g. "2s:pause", "5s:seek=30", "3s:stall:1=0.5".
func ParseScriptedEvent(s string) (ScriptedEvent, error) {
	var ev ScriptedEvent

	head, value, hasValue := strings.Cut(s, "=")
	parts := strings.Split(head, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return ev, fmt.Errorf("%w: event %q must look like AT:ACTION[:TARGET][=VALUE]", shared.ErrInvalidArgument, s)
	}

	at, err := time.ParseDuration(parts[0])
	if err != nil || at < 0 {
		return ev, fmt.Errorf("%w: event %q has a bad time", shared.ErrInvalidArgument, s)
	}
	ev.At = at
	ev.Action = Action(strings.ToLower(parts[1]))

	if len(parts) == 3 {
		if ev.Target, err = strconv.Atoi(parts[2]); err != nil || ev.Target < 0 {
			return ev, fmt.Errorf("%w: event %q has a bad target", shared.ErrInvalidArgument, s)
		}
	}
	if hasValue {
		if ev.Value, err = strconv.ParseFloat(value, 64); err != nil {
			return ev, fmt.Errorf("%w: event %q has a bad value", shared.ErrInvalidArgument, s)
		}
	}

	switch ev.Action {
	case ActionPause, ActionPlay:
	case ActionSeek:
		if !hasValue {
			return ev, fmt.Errorf("%w: event %q needs a value", shared.ErrInvalidArgument, s)
		}
	case ActionStall:
		if !hasValue || len(parts) != 3 {
			return ev, fmt.Errorf("%w: event %q needs a target and a value", shared.ErrInvalidArgument, s)
		}
	case ActionPrimary:
		if len(parts) != 3 {
			return ev, fmt.Errorf("%w: event %q needs a target", shared.ErrInvalidArgument, s)
		}
	default:
		return ev, fmt.Errorf("%w: unknown event action %q", shared.ErrInvalidArgument, parts[1])
	}
	return ev, nil
}

// Scenario describes one simulation.
type Scenario struct {
	Name            string
	Followers       int
	MediaDuration   float64       // seconds
	RunFor          time.Duration // simulated time
	StartAt         float64       // primary start position; defaults to MaxInitialDrift
	MaxInitialDrift float64       // follower offsets are drawn from [-MaxInitialDrift, MaxInitialDrift]
	Skew            float64       // follower skews are drawn from [-Skew, Skew]
	Seed            int64
	Tolerance       float64 // drift counted as converged; defaults to [DefaultTolerance]

	// Sync holds the group settings. Elements, Host and Recorder are set by the engine.
	Sync   vsync.Options
	Events []ScriptedEvent
}

// ScenarioFromConfig builds a scenario from the [simulation] and [sync] sections.
func ScenarioFromConfig(cfg *shared.Config) (Scenario, error) {
	opts, err := vsync.OptionsFromConfig(cfg.Sync)
	if err != nil {
		return Scenario{}, err
	}
	sim := cfg.Simulation
	return Scenario{
		Name:            "simulation",
		Followers:       sim.Followers,
		MediaDuration:   sim.MediaDuration,
		RunFor:          time.Duration(sim.RunFor * float64(time.Second)),
		MaxInitialDrift: sim.MaxInitialDrift,
		Skew:            sim.Skew,
		Seed:            sim.Seed,
		Sync:            opts,
	}, nil
}

// Validate checks the scenario and fills in defaults.
func (sc *Scenario) Validate() error {
	switch {
	case sc.Followers < 1:
		return fmt.Errorf("%w: simulation needs at least one follower", shared.ErrInvalidConfig)
	case sc.MediaDuration <= 0:
		return fmt.Errorf("%w: media duration must be larger than zero", shared.ErrInvalidConfig)
	case sc.RunFor <= 0:
		return fmt.Errorf("%w: run time must be larger than zero", shared.ErrInvalidConfig)
	case sc.MaxInitialDrift < 0 || sc.Skew < 0 || sc.Skew >= 1:
		return fmt.Errorf("%w: drift and skew must be non-negative and skew below 1", shared.ErrInvalidConfig)
	}
	for _, ev := range sc.Events {
		if ev.Target > sc.Followers {
			return fmt.Errorf("%w: event %s targets element %d of %d", shared.ErrInvalidArgument, ev, ev.Target, sc.Followers+1)
		}
	}
	sc.Events = slices.Clone(sc.Events)
	slices.SortStableFunc(sc.Events, func(a, b ScriptedEvent) int { return cmp.Compare(a.At, b.At) })

	if sc.Name == "" {
		sc.Name = "simulation"
	}
	if sc.StartAt <= 0 {
		sc.StartAt = sc.MaxInitialDrift
	}
	if sc.Tolerance <= 0 {
		sc.Tolerance = DefaultTolerance
	}
	return nil
}

// Scene is a primary plus followers wired into a sync group.
type Scene struct {
	Loop     *host.Loop
	Group    *vsync.Group
	Elements []*media.SimElement // Elements[0] is the initial primary

	offsets []float64
}

// NewScene builds the elements and the group of sc on clock. sc must be validated.
func NewScene(sc Scenario, clock clockwork.Clock, rec vsync.Recorder) (*Scene, error) {
	loop := host.NewLoop(clock)
	rng := rand.New(rand.NewPCG(uint64(sc.Seed), uint64(sc.Followers)))

	s := &Scene{Loop: loop, offsets: make([]float64, sc.Followers+1)}
	s.Elements = append(s.Elements, media.NewSimElement("video", "primary", clock, loop,
		media.WithDuration(sc.MediaDuration), media.WithPosition(sc.StartAt)))

	for i := 1; i <= sc.Followers; i++ {
		skew := spread(rng, sc.Skew)
		s.offsets[i] = spread(rng, sc.MaxInitialDrift)
		s.Elements = append(s.Elements, media.NewSimElement("video", fmt.Sprintf("follower-%d", i), clock, loop,
			media.WithDuration(sc.MediaDuration), media.WithPosition(sc.StartAt), media.WithSkew(skew)))
	}

	opts := sc.Sync
	opts.Elements = s.Elements
	opts.Host = loop
	opts.Recorder = rec
	g, err := vsync.New(opts)
	if err != nil {
		return nil, err
	}
	s.Group = g
	return s, nil
}

func spread(rng *rand.Rand, limit float64) float64 {
	if limit == 0 {
		return 0
	}
	return (rng.Float64()*2 - 1) * limit
}

// Start plays the group, then knocks every follower off by its drawn offset so the loop has work to do.
func (s *Scene) Start() {
	s.Group.Play(nil)
	s.Loop.RunPending()

	t := s.Elements[0].CurrentTime()
	for i, el := range s.Elements[1:] {
		el.SetCurrentTime(t - s.offsets[i+1])
	}
	s.Loop.RunPending()
}

// Apply performs ev. Primary controls go through the element so the group sees them as events.
func (s *Scene) Apply(ev ScriptedEvent) error {
	if ev.Target < 0 || ev.Target >= len(s.Elements) {
		return fmt.Errorf("%w: no element %d", shared.ErrInvalidArgument, ev.Target)
	}
	primary := s.Group.Primary()

	switch ev.Action {
	case ActionPause:
		if primary != nil {
			primary.Pause()
		}
	case ActionPlay:
		if primary != nil {
			primary.Play()
		}
	case ActionSeek:
		if primary != nil {
			primary.SetCurrentTime(ev.Value)
		}
	case ActionStall:
		el := s.Elements[ev.Target]
		el.SetCurrentTime(el.CurrentTime() - ev.Value)
	case ActionPrimary:
		if err := s.Group.SetPrimary(s.Elements[ev.Target]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown event action %q", shared.ErrInvalidArgument, ev.Action)
	}
	s.Loop.RunPending()
	return nil
}

// Labels returns the element labels in scene order.
func (s *Scene) Labels() []string {
	labels := make([]string, len(s.Elements))
	for i, el := range s.Elements {
		labels[i] = media.Label(el)
	}
	return labels
}

// Journal persists a simulation. repositories.JournalRecorder implements it.
type Journal interface {
	vsync.Recorder
	Begin(label string, status vsync.Status, startedAt time.Time) (*models.Session, error)
	End(stoppedAt time.Time, members int) error
}

// StepResult is the group state after one sync interval.
type StepResult struct {
	Step     int
	At       time.Duration // simulated time since start
	MaxDrift float64
	Running  bool
	Status   vsync.Status
}

// SimulationResult contains everything measured during a run.
type SimulationResult struct {
	Scenario     Scenario
	Labels       []string
	InitialDrift float64 // worst drift right after the followers were knocked off
	Steps        []StepResult
	Final        vsync.Status
	MaxDrift     float64 // worst drift seen at any step
	Converged    bool    // drift stayed within tolerance from ConvergedAt to the end
	ConvergedAt  time.Duration
	RateWrites   int
	ExactSyncs   int
	Session      *models.Session // set when a journal was attached
}

// SimulationEngine runs scenarios on a fake clock.
type SimulationEngine struct {
	logger  *log.Logger
	journal Journal
}

// NewSimulationEngine creates an engine. journal may be nil.
func NewSimulationEngine(logger *log.Logger, journal Journal) *SimulationEngine {
	if logger == nil {
		logger = shared.NewDiscardLogger()
	}
	return &SimulationEngine{logger: logger, journal: journal}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *SimulationEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

type counter struct {
	writes, exact int
	next          vsync.Recorder
}

func (c *counter) Record(a vsync.Adjustment) {
	switch {
	case a.Exact:
		c.exact++
	case a.Written:
		c.writes++
	}
	if c.next != nil {
		c.next.Record(a)
	}
}

// Run simulates sc and returns the measured drift. The run stops early with ctx's error when ctx is done.
func (e *SimulationEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, sc Scenario) (*SimulationResult, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	clock := clockwork.NewFakeClock()
	rec := &counter{}
	if e.journal != nil {
		rec.next = e.journal
	}

	scene, err := NewScene(sc, clock, rec)
	if err != nil {
		return nil, err
	}
	defer scene.Group.Close()

	e.sendProgress(progress, setupUpdate(sc))
	e.logger.Debug("simulation starting", "name", sc.Name, "followers", sc.Followers, "seed", sc.Seed)

	result := &SimulationResult{Scenario: sc, Labels: scene.Labels()}

	if e.journal != nil {
		session, err := e.journal.Begin(sc.Name, scene.Group.Snapshot(), clock.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to open journal session: %w", err)
		}
		result.Session = session
	}

	start := clock.Now()
	scene.Start()
	result.InitialDrift = scene.Group.Snapshot().MaxDrift()

	interval := scene.Group.SyncInterval()
	total := int(sc.RunFor / interval)
	pending := sc.Events

	for step := 1; step <= total; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		elapsed := clock.Since(start)
		for len(pending) > 0 && pending[0].At <= elapsed {
			ev := pending[0]
			pending = pending[1:]
			if err := scene.Apply(ev); err != nil {
				return nil, fmt.Errorf("event %s: %w", ev, err)
			}
			e.sendProgress(progress, scriptUpdate(len(sc.Events)-len(pending), len(sc.Events), ev))
		}

		scene.Loop.Advance(interval)

		st := scene.Group.Snapshot()
		res := StepResult{Step: step, At: clock.Since(start), MaxDrift: st.MaxDrift(), Running: st.Running, Status: st}
		result.Steps = append(result.Steps, res)
		result.MaxDrift = max(result.MaxDrift, res.MaxDrift)
		e.sendProgress(progress, stepUpdate(step, total, res))
	}

	scene.Group.StopSyncLoop()
	result.Final = scene.Group.Snapshot()
	result.RateWrites = rec.writes
	result.ExactSyncs = rec.exact
	result.Converged, result.ConvergedAt = convergence(result)

	if e.journal != nil {
		if err := e.journal.End(clock.Now(), scene.Group.Len()); err != nil {
			e.logger.Error("failed to close journal session", "error", err)
		}
	}

	e.sendProgress(progress, finishUpdate(result))
	e.logger.Debug("simulation finished", "converged", result.Converged, "at", result.ConvergedAt, "writes", result.RateWrites)
	return result, nil
}

// convergence finds the first step after which drift never left the tolerance.
func convergence(r *SimulationResult) (bool, time.Duration) {
	tol := r.Scenario.Tolerance
	last := -1
	for i, s := range r.Steps {
		if s.MaxDrift > tol {
			last = i
		}
	}
	switch {
	case len(r.Steps) == 0:
		return r.InitialDrift <= tol, 0
	case last == len(r.Steps)-1:
		return false, 0
	case last < 0 && r.InitialDrift <= tol:
		return true, 0
	default:
		return true, r.Steps[last+1].At
	}
}
