package host

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestLoopPost(t *testing.T) {
	t.Run("runs tasks in order", func(t *testing.T) {
		loop := NewLoop(clockwork.NewFakeClock())

		var got []int
		for i := range 3 {
			loop.Post(func() { got = append(got, i) })
		}

		if n := loop.RunPending(); n != 3 {
			t.Fatalf("expected 3 tasks to run, got %d", n)
		}
		for i, v := range got {
			if v != i {
				t.Errorf("task %d ran as %d", i, v)
			}
		}
	})

	t.Run("tasks posted by tasks run in the same drain", func(t *testing.T) {
		loop := NewLoop(clockwork.NewFakeClock())

		var order []string
		loop.Post(func() {
			order = append(order, "outer")
			loop.Post(func() { order = append(order, "inner") })
		})
		loop.Post(func() { order = append(order, "second") })

		loop.RunPending()

		want := []string{"outer", "second", "inner"}
		if len(order) != len(want) {
			t.Fatalf("got %v, want %v", order, want)
		}
		for i := range want {
			if order[i] != want[i] {
				t.Errorf("position %d = %s, want %s", i, order[i], want[i])
			}
		}
	})

	t.Run("nil task is ignored", func(t *testing.T) {
		loop := NewLoop(clockwork.NewFakeClock())
		loop.Post(nil)
		if n := loop.RunPending(); n != 0 {
			t.Errorf("expected nothing to run, got %d", n)
		}
	})
}

func TestLoopIntervals(t *testing.T) {
	t.Run("Advance fires every deadline in the window", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		loop := NewLoop(clock)
		start := clock.Now()

		var at []time.Duration
		loop.SetInterval(250*time.Millisecond, func() {
			at = append(at, loop.Now().Sub(start))
		})

		loop.Advance(time.Second)

		want := []time.Duration{250 * time.Millisecond, 500 * time.Millisecond, 750 * time.Millisecond, time.Second}
		if len(at) != len(want) {
			t.Fatalf("expected %d ticks, got %v", len(want), at)
		}
		for i := range want {
			if at[i] != want[i] {
				t.Errorf("tick %d fired at %v, want %v", i, at[i], want[i])
			}
		}
		if got := clock.Now().Sub(start); got != time.Second {
			t.Errorf("clock advanced by %v, want 1s", got)
		}
	})

	t.Run("interval below a millisecond is raised", func(t *testing.T) {
		loop := NewLoop(clockwork.NewFakeClock())

		var ticks int
		loop.SetInterval(0, func() { ticks++ })
		loop.Advance(5 * time.Millisecond)

		if ticks != 5 {
			t.Errorf("expected 5 ticks, got %d", ticks)
		}
	})

	t.Run("ClearInterval from inside the callback", func(t *testing.T) {
		loop := NewLoop(clockwork.NewFakeClock())

		var (
			ticks int
			id    TimerID
		)
		id = loop.SetInterval(100*time.Millisecond, func() {
			ticks++
			if ticks == 2 {
				loop.ClearInterval(id)
			}
		})

		loop.Advance(time.Second)

		if ticks != 2 {
			t.Errorf("expected 2 ticks, got %d", ticks)
		}
		if n := loop.Intervals(); n != 0 {
			t.Errorf("expected no intervals left, got %d", n)
		}
	})

	t.Run("queued tick of a cleared interval does not run", func(t *testing.T) {
		loop := NewLoop(clockwork.NewFakeClock())

		var second int
		var secondID TimerID
		loop.SetInterval(100*time.Millisecond, func() { loop.ClearInterval(secondID) })
		secondID = loop.SetInterval(100*time.Millisecond, func() { second++ })

		loop.Advance(100 * time.Millisecond)

		if second != 0 {
			t.Errorf("expected cleared interval to be skipped, ran %d times", second)
		}
	})

	t.Run("clearing an unknown id is a no-op", func(t *testing.T) {
		loop := NewLoop(clockwork.NewFakeClock())
		loop.ClearInterval(42)
		if n := loop.Intervals(); n != 0 {
			t.Errorf("expected no intervals, got %d", n)
		}
	})

	t.Run("Advance without a fake clock panics", func(t *testing.T) {
		loop := NewLoop(nil)
		defer func() {
			if recover() == nil {
				t.Error("expected Advance to panic on a real clock")
			}
		}()
		loop.Advance(time.Millisecond)
	})
}

func TestLoopRun(t *testing.T) {
	loop := NewLoop(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var posted, ticks atomic.Int32
	loop.SetInterval(10*time.Millisecond, func() { ticks.Add(1) })

	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	loop.Post(func() { posted.Add(1) })

	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the context expired")
	}

	if posted.Load() != 1 {
		t.Errorf("expected posted task to run once, ran %d times", posted.Load())
	}
	if ticks.Load() == 0 {
		t.Error("expected the interval to fire at least once")
	}
}
