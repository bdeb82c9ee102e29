package vsync

import (
	"errors"
	"testing"

	"github.com/desertthunder/vsync/internal/media"
	"github.com/desertthunder/vsync/internal/shared"
	tu "github.com/desertthunder/vsync/internal/testing"
)

func TestEventRelay(t *testing.T) {
	t.Run("primary play starts followers and the loop", func(t *testing.T) {
		f := newFixture(t, 3)
		f.primary().Set(4, 1)

		f.primary().Play()
		f.loop.RunPending()

		if !f.group.Running() {
			t.Error("expected sync loop to start")
		}
		for _, el := range f.elements[1:] {
			if el.Paused() {
				t.Errorf("%s is still paused", el.ID())
			}
			if el.CurrentTime() != 4 {
				t.Errorf("%s time = %v, want hard sync to 4", el.ID(), el.CurrentTime())
			}
		}
		if n := f.primary().CountCalls("play"); n != 1 {
			t.Errorf("event source must be skipped, primary played %d times", n)
		}
	})

	t.Run("primary pause pauses followers and stops the loop", func(t *testing.T) {
		f := newFixture(t, 2)
		f.primary().Play()
		f.loop.RunPending()

		f.primary().Pause()
		f.loop.RunPending()

		if !f.follower().Paused() {
			t.Error("expected follower to pause")
		}
		if f.group.Running() {
			t.Error("expected sync loop to stop")
		}
	})

	t.Run("primary seek moves followers", func(t *testing.T) {
		f := newFixture(t, 3)
		f.primary().SetCurrentTime(42)
		f.loop.RunPending()

		for _, el := range f.elements[1:] {
			if el.CurrentTime() != 42 {
				t.Errorf("%s time = %v, want 42", el.ID(), el.CurrentTime())
			}
		}
		if n := f.primary().CountCalls("seek"); n != 1 {
			t.Errorf("primary must not be seeked again, got %d seeks", n)
		}
	})

	t.Run("follower events are not relayed", func(t *testing.T) {
		f := newFixture(t, 3)
		f.elements[1].Play()
		f.elements[1].SetCurrentTime(9)
		f.loop.RunPending()

		if f.group.Running() {
			t.Error("follower play must not start the loop")
		}
		if n := len(f.elements[2].Calls()); n != 0 {
			t.Errorf("expected other follower untouched, got %v", f.elements[2].Calls())
		}
	})

	t.Run("events from a former primary are dropped", func(t *testing.T) {
		f := newFixture(t, 2)
		f.primary().Play()
		if err := f.group.SetPrimary(f.follower()); err != nil {
			t.Fatalf("SetPrimary() error: %v", err)
		}
		f.loop.RunPending()

		if f.group.Running() {
			t.Error("a queued event of the old primary must not be relayed")
		}
	})

	t.Run("direct play with the primary ignored is swallowed once", func(t *testing.T) {
		f := newFixture(t, 2)

		if err := f.group.AddIgnoreNextEvent(media.EventPlay, f.primary()); err != nil {
			t.Fatalf("AddIgnoreNextEvent() error: %v", err)
		}
		f.group.Play(nil)
		f.loop.RunPending()

		if n := f.follower().CountCalls("play"); n != 1 {
			t.Errorf("expected the echo to be swallowed, follower played %d times", n)
		}
		if f.group.Ignoring(media.EventPlay, f.primary()) {
			t.Error("expected ignore entry to be cleared after one event")
		}

		f.primary().Pause()
		f.loop.RunPending()
		f.primary().Play()
		f.loop.RunPending()

		if n := f.follower().CountCalls("play"); n != 2 {
			t.Errorf("expected the next play to be relayed, follower played %d times", n)
		}
	})

	t.Run("RemoveIgnoreNextEvent restores relaying", func(t *testing.T) {
		f := newFixture(t, 2)
		_ = f.group.AddIgnoreNextEvent(media.EventSeeked, f.primary())
		if err := f.group.RemoveIgnoreNextEvent(media.EventSeeked, f.primary()); err != nil {
			t.Fatalf("RemoveIgnoreNextEvent() error: %v", err)
		}
		if err := f.group.RemoveIgnoreNextEvent(media.EventSeeked, f.primary()); err != nil {
			t.Errorf("removing a missing entry should succeed, got %v", err)
		}

		f.primary().SetCurrentTime(7)
		f.loop.RunPending()
		if got := f.follower().CurrentTime(); got != 7 {
			t.Errorf("follower time = %v, want 7", got)
		}
	})

	t.Run("adding an ignore entry twice needs one event", func(t *testing.T) {
		f := newFixture(t, 2)
		_ = f.group.AddIgnoreNextEvent(media.EventPause, f.primary())
		_ = f.group.AddIgnoreNextEvent(media.EventPause, f.primary())

		f.primary().Play()
		f.loop.RunPending()
		f.primary().Pause()
		f.loop.RunPending()

		if f.group.Ignoring(media.EventPause, f.primary()) {
			t.Error("expected a single entry to be consumed")
		}
	})

	t.Run("ignore list validates input", func(t *testing.T) {
		f := newFixture(t, 2)
		if err := f.group.AddIgnoreNextEvent(media.EventRateChange, f.primary()); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for ratechange, got %v", err)
		}
		if err := f.group.AddIgnoreNextEvent(media.EventKind("bogus"), f.primary()); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for unknown kind, got %v", err)
		}
		if err := f.group.RemoveIgnoreNextEvent(media.EventPlay, "not an element"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for non element, got %v", err)
		}
	})

	t.Run("removed members leave the ignore list", func(t *testing.T) {
		f := newFixture(t, 3)
		_ = f.group.AddIgnoreNextEvent(media.EventPlay, f.elements[2])
		if _, err := f.group.Remove(f.elements[2]); err != nil {
			t.Fatalf("Remove() error: %v", err)
		}
		if f.group.Ignoring(media.EventPlay, f.elements[2]) {
			t.Error("expected removed member to be dropped from the ignore list")
		}
	})

	t.Run("replacing the set keeps entries of remaining members", func(t *testing.T) {
		f := newFixture(t, 3)
		kept, dropped := f.elements[1], f.elements[2]
		_ = f.group.AddIgnoreNextEvent(media.EventPlay, kept)
		_ = f.group.AddIgnoreNextEvent(media.EventPause, kept)
		_ = f.group.AddIgnoreNextEvent(media.EventPlay, dropped)

		if err := f.group.SetElements([]any{f.primary(), kept}); err != nil {
			t.Fatalf("SetElements() error: %v", err)
		}

		tests := []struct {
			name string
			kind media.EventKind
			el   media.Element
			want bool
		}{
			{name: "kept play", kind: media.EventPlay, el: kept, want: true},
			{name: "kept pause", kind: media.EventPause, el: kept, want: true},
			{name: "dropped play", kind: media.EventPlay, el: dropped, want: false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if got := f.group.Ignoring(tt.kind, tt.el); got != tt.want {
					t.Errorf("Ignoring(%s, %s) = %v, want %v", tt.kind, media.Label(tt.el), got, tt.want)
				}
			})
		}
	})
}

func TestBroadcast(t *testing.T) {
	t.Run("skip element is left alone", func(t *testing.T) {
		f := newFixture(t, 3)
		skip := f.elements[1]

		f.group.SeekTo(5, skip)
		f.group.SetRate(1.5, skip)

		if len(skip.Calls()) != 0 {
			t.Errorf("skipped element was called: %v", skip.Calls())
		}
		for _, el := range []*tu.RecordingElement{f.elements[0], f.elements[2]} {
			if el.CurrentTime() != 5 || el.PlaybackRate() != 1.5 {
				t.Errorf("%s = %v @ %v, want 5 @ 1.5", el.ID(), el.CurrentTime(), el.PlaybackRate())
			}
		}
	})

	t.Run("Pause stops the loop and hard syncs when configured", func(t *testing.T) {
		f := newFixture(t, 2, func(o *Options) { o.ExactSyncWhenPaused = true })
		f.group.Play(nil)
		f.loop.RunPending()
		f.primary().Set(20, 1)
		f.follower().Set(18, 1)

		f.group.Pause(nil)

		if f.group.Running() {
			t.Error("expected sync loop to stop")
		}
		if got := f.follower().CurrentTime(); got != 20 {
			t.Errorf("follower time = %v, want 20", got)
		}
	})

	t.Run("Play without members is harmless", func(t *testing.T) {
		f := newFixture(t, 0)
		f.group.Play(nil)
		f.group.Pause(nil)
		if f.group.Running() {
			t.Error("empty group must not run")
		}
	})
}
