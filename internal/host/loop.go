// package host implements a single-threaded cooperative event loop with interval timers.
//
// Element events and sync loop ticks are queued on a [Loop] and run one at a time, so callbacks never overlap.
// A loop built on a real clock is driven by [Loop.Run]; a loop built on a [clockwork.FakeClock] can be stepped
// deterministically with [Loop.Advance].
package host

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TimerID identifies an interval registered with [Loop.SetInterval]. The zero value is never issued.
type TimerID uint64

// Scheduler is the subset of [Loop] that sync groups depend on.
type Scheduler interface {
	Post(fn func())
	SetInterval(every time.Duration, fn func()) TimerID
	ClearInterval(id TimerID)
	Now() time.Time
}

type interval struct {
	id      TimerID
	every   time.Duration
	next    time.Time
	fn      func()
	cleared bool
}

// Loop is a FIFO task queue plus a set of interval timers read from a [clockwork.Clock].
type Loop struct {
	clock clockwork.Clock
	fake  *clockwork.FakeClock

	mu     sync.Mutex
	tasks  []func()
	timers map[TimerID]*interval
	nextID TimerID
	wake   chan struct{}
}

var _ Scheduler = (*Loop)(nil)

// NewLoop creates a loop reading time from clock. A nil clock means the real clock.
func NewLoop(clock clockwork.Clock) *Loop {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	l := &Loop{
		clock:  clock,
		timers: make(map[TimerID]*interval),
		wake:   make(chan struct{}, 1),
	}
	if fc, ok := clock.(*clockwork.FakeClock); ok {
		l.fake = fc
	}
	return l
}

var (
	defaultOnce sync.Once
	defaultLoop *Loop
)

// Default returns a process-wide loop on the real clock, started on first use.
func Default() *Loop {
	defaultOnce.Do(func() {
		defaultLoop = NewLoop(nil)
		go defaultLoop.Run(context.Background())
	})
	return defaultLoop
}

// Clock returns the clock the loop reads time from.
func (l *Loop) Clock() clockwork.Clock { return l.clock }

// Now returns the loop clock's current time.
func (l *Loop) Now() time.Time { return l.clock.Now() }

// Post queues fn to run after every task already queued.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	l.notify()
}

// SetInterval calls fn every period, starting one period from now. Periods below a millisecond are raised to one.
func (l *Loop) SetInterval(every time.Duration, fn func()) TimerID {
	if every < time.Millisecond {
		every = time.Millisecond
	}

	l.mu.Lock()
	l.nextID++
	t := &interval{id: l.nextID, every: every, next: l.clock.Now().Add(every), fn: fn}
	l.timers[t.id] = t
	l.mu.Unlock()

	l.notify()
	return t.id
}

// ClearInterval cancels an interval. A tick that was already queued but has not run yet is dropped.
// Clearing an unknown or already cleared id does nothing.
func (l *Loop) ClearInterval(id TimerID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t, ok := l.timers[id]; ok {
		t.cleared = true
		delete(l.timers, id)
	}
}

// Intervals reports how many intervals are registered.
func (l *Loop) Intervals() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.timers)
}

// RunPending runs queued tasks until the queue is empty, including tasks queued by the tasks themselves,
// and returns how many ran. Due timers are not fired.
func (l *Loop) RunPending() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.tasks) == 0 {
			l.mu.Unlock()
			return n
		}
		fn := l.tasks[0]
		l.tasks[0] = nil
		l.tasks = l.tasks[1:]
		l.mu.Unlock()

		fn()
		n++
	}
}

// Advance steps a fake-clock loop forward by d. Every interval that falls due inside the window fires at its
// exact deadline, in deadline order, with queued tasks drained before and after each firing.
//
// Advance panics when the loop was not built on a [clockwork.FakeClock].
func (l *Loop) Advance(d time.Duration) {
	if l.fake == nil {
		panic("host: Advance requires a fake clock")
	}

	target := l.clock.Now().Add(d)
	for {
		l.RunPending()

		l.mu.Lock()
		due, ok := l.earliestLocked()
		l.mu.Unlock()
		if !ok || due.After(target) {
			break
		}

		if step := due.Sub(l.clock.Now()); step > 0 {
			l.fake.Advance(step)
		}

		l.mu.Lock()
		l.fireDueLocked(due)
		l.mu.Unlock()
	}

	if rest := target.Sub(l.clock.Now()); rest > 0 {
		l.fake.Advance(rest)
	}
	l.RunPending()
}

// Run processes tasks and timers until ctx is done. Only one goroutine should call Run for a given loop.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()

		l.mu.Lock()
		fired := l.fireDueLocked(l.clock.Now())
		next, hasNext := l.earliestLocked()
		l.mu.Unlock()

		if fired > 0 {
			continue
		}

		var (
			timer  clockwork.Timer
			timerC <-chan time.Time
		)
		if hasNext {
			timer = l.clock.NewTimer(next.Sub(l.clock.Now()))
			timerC = timer.Chan()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()
		case <-l.wake:
		case <-timerC:
		}

		if timer != nil {
			timer.Stop()
		}
	}
}

func (l *Loop) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) earliestLocked() (time.Time, bool) {
	var (
		earliest time.Time
		found    bool
	)
	for _, t := range l.timers {
		if !found || t.next.Before(earliest) {
			earliest = t.next
			found = true
		}
	}
	return earliest, found
}

// fireDueLocked queues one tick for every interval due at or before now and reschedules it.
// Ticks that fell behind are not replayed.
func (l *Loop) fireDueLocked(now time.Time) int {
	var due []*interval
	for _, t := range l.timers {
		if !t.next.After(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].next.Equal(due[j].next) {
			return due[i].id < due[j].id
		}
		return due[i].next.Before(due[j].next)
	})

	for _, t := range due {
		t.next = t.next.Add(t.every)
		if !t.next.After(now) {
			t.next = now.Add(t.every)
		}
		tick := t
		l.tasks = append(l.tasks, func() {
			l.mu.Lock()
			live := !tick.cleared
			l.mu.Unlock()
			if live {
				tick.fn()
			}
		})
	}
	return len(due)
}
