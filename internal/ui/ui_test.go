package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vsync/internal/host"
	"github.com/desertthunder/vsync/internal/media"
	tu "github.com/desertthunder/vsync/internal/testing"
	"github.com/desertthunder/vsync/internal/vsync"
	"github.com/jonboulle/clockwork"
)

func newMonitor(t *testing.T) (*Model, *host.Loop, []*tu.RecordingElement) {
	t.Helper()
	loop := host.NewLoop(clockwork.NewFakeClock())
	a := tu.NewRecordingElement("video", "a", loop)
	b := tu.NewRecordingElement("video", "b", loop)
	c := tu.NewRecordingElement("audio", "c", loop)
	a.Set(10, 1)
	b.Set(9.5, 1)
	c.Set(10, 1)

	g, err := vsync.New(vsync.Options{Elements: []*tu.RecordingElement{a, b, c}, Host: loop})
	if err != nil {
		t.Fatalf("vsync.New() error: %v", err)
	}
	return NewModel(context.Background(), g, "test", 0), loop, []*tu.RecordingElement{a, b, c}
}

func press(m *Model, msg tea.KeyMsg) tea.Cmd {
	_, cmd := m.Update(msg)
	return cmd
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestMonitorKeys(t *testing.T) {
	t.Run("space toggles playback", func(t *testing.T) {
		m, loop, els := newMonitor(t)

		press(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
		loop.RunPending()
		for _, el := range els {
			if el.Paused() {
				t.Errorf("%s still paused after play", el.ID())
			}
		}
		if !m.group.Running() {
			t.Error("expected sync loop running after play")
		}

		press(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
		loop.RunPending()
		for _, el := range els {
			if !el.Paused() {
				t.Errorf("%s still playing after pause", el.ID())
			}
		}
		if m.group.Running() {
			t.Error("expected sync loop stopped after pause")
		}
	})

	t.Run("arrows seek the group", func(t *testing.T) {
		m, loop, els := newMonitor(t)

		press(m, tea.KeyMsg{Type: tea.KeyRight})
		loop.RunPending()
		for _, el := range els {
			if got := el.CurrentTime(); got != 15 {
				t.Errorf("%s at %v, want 15", el.ID(), got)
			}
		}

		press(m, tea.KeyMsg{Type: tea.KeyLeft})
		press(m, tea.KeyMsg{Type: tea.KeyLeft})
		press(m, tea.KeyMsg{Type: tea.KeyLeft})
		loop.RunPending()
		if got := els[1].CurrentTime(); got != 0 {
			t.Errorf("expected follower back at 0, got %v", got)
		}
	})

	t.Run("tab cycles the primary", func(t *testing.T) {
		m, _, els := newMonitor(t)

		want := []media.Element{els[1], els[2], els[0]}
		for _, w := range want {
			press(m, tea.KeyMsg{Type: tea.KeyTab})
			if m.group.Primary() != w {
				t.Errorf("expected primary %s, got %s", media.Label(w), media.Label(m.group.Primary()))
			}
		}
	})

	t.Run("f forces an exact sync", func(t *testing.T) {
		m, _, els := newMonitor(t)
		press(m, runes("f"))
		if got := els[1].CurrentTime(); got != 10 {
			t.Errorf("expected follower moved to 10, got %v", got)
		}
	})

	t.Run("s toggles the loop", func(t *testing.T) {
		m, _, _ := newMonitor(t)
		press(m, runes("s"))
		if !m.group.Running() {
			t.Error("expected loop running")
		}
		press(m, runes("s"))
		if m.group.Running() {
			t.Error("expected loop stopped")
		}
	})

	t.Run("q quits", func(t *testing.T) {
		m, _, _ := newMonitor(t)
		cmd := press(m, runes("q"))
		if cmd == nil {
			t.Fatal("expected a command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected quit message")
		}
	})

	t.Run("unknown keys do nothing", func(t *testing.T) {
		m, _, els := newMonitor(t)
		if cmd := press(m, runes("z")); cmd != nil {
			t.Error("expected no command")
		}
		if len(els[0].Calls()) != 0 {
			t.Errorf("unexpected calls %v", els[0].Calls())
		}
	})
}

func TestMonitorView(t *testing.T) {
	m, _, _ := newMonitor(t)
	m.Update(statusMsg(m.group.Snapshot()))

	view := m.View()
	for _, want := range []string{"test", "#a", "#b", "#c", "primary", "follower", "+0.500", "loop", "stopped"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestMonitorTick(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, _, els := newMonitor(t)
	m.ctx = ctx

	els[1].Set(7, 1)
	if _, cmd := m.Update(tickMsg(time.Now())); cmd == nil {
		t.Error("expected the next tick to be scheduled")
	}
	if got := m.status.MaxDrift(); got != 3 {
		t.Errorf("expected refreshed drift 3, got %v", got)
	}

	cancel()
	_, cmd := m.Update(tickMsg(time.Now()))
	if cmd == nil {
		t.Fatal("expected quit command once the context is done")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit message")
	}
}

func TestNextPrimary(t *testing.T) {
	a := tu.NewRecordingElement("video", "a", nil)
	b := tu.NewRecordingElement("video", "b", nil)
	els := []media.Element{a, b}

	if nextPrimary(nil, nil) != nil {
		t.Error("expected nil for an empty group")
	}
	if nextPrimary(els, nil) != a {
		t.Error("expected first member without a primary")
	}
	if nextPrimary(els, b) != a {
		t.Error("expected wrap around")
	}
}
