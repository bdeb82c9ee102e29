package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/vsync/internal/media"
	"github.com/desertthunder/vsync/internal/shared"
	"github.com/desertthunder/vsync/internal/vsync"
)

// SeekStep is how far the arrow keys move the group.
const SeekStep = 5.0

// DefaultRefresh is the monitor redraw period.
const DefaultRefresh = 100 * time.Millisecond

// Model represents the monitor state.
type Model struct {
	ctx     context.Context
	group   *vsync.Group
	title   string
	refresh time.Duration
	status  vsync.Status
	notice  string
	width   int
	help    help.Model
	keys    keyMap
}

// NewModel creates a monitor for group. A refresh of zero selects [DefaultRefresh].
func NewModel(ctx context.Context, group *vsync.Group, title string, refresh time.Duration) *Model {
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	return &Model{
		ctx:     ctx,
		group:   group,
		title:   title,
		refresh: refresh,
		status:  group.Snapshot(),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the refresh tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.snapshot(), m.tick())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgTick:
			if m.ctx.Err() != nil {
				return m, tea.Quit
			}
			m.status = m.group.Snapshot()
			return m, m.tick()
		case MsgStatus:
			m.status = msg.data.(vsync.Status)
		}
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.toggle):
		if p := m.group.Primary(); p != nil && !p.Paused() {
			m.group.Pause(nil)
			m.notice = "paused"
		} else {
			m.group.Play(nil)
			m.notice = "playing"
		}

	case key.Matches(msg, m.keys.back):
		m.seekBy(-SeekStep)

	case key.Matches(msg, m.keys.forward):
		m.seekBy(SeekStep)

	case key.Matches(msg, m.keys.next):
		next := nextPrimary(m.group.Elements(), m.group.Primary())
		if next == nil {
			return m, nil
		}
		if err := m.group.SetPrimary(next); err != nil {
			m.notice = err.Error()
		} else {
			m.notice = "primary is now " + media.Label(next)
		}

	case key.Matches(msg, m.keys.force):
		m.group.ForceExactSync()
		m.notice = "exact sync"

	case key.Matches(msg, m.keys.loop):
		if m.group.Running() {
			m.group.StopSyncLoop()
			m.notice = "sync loop stopped"
		} else {
			m.group.StartSyncLoop()
			m.notice = "sync loop started"
		}

	case key.Matches(msg, m.keys.showHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	default:
		return m, nil
	}

	return m, m.snapshot()
}

func (m *Model) seekBy(delta float64) {
	p := m.group.Primary()
	if p == nil {
		return
	}
	target := max(p.CurrentTime()+delta, 0)
	m.group.SeekTo(target, nil)
	m.notice = "seek to " + shared.FormatSeconds(target)
}

// nextPrimary returns the member after current, wrapping around.
func nextPrimary(elements []media.Element, current media.Element) media.Element {
	if len(elements) == 0 {
		return nil
	}
	for i, el := range elements {
		if el == current {
			return elements[(i+1)%len(elements)]
		}
	}
	return elements[0]
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) snapshot() tea.Cmd {
	return func() tea.Msg { return statusMsg(m.group.Snapshot()) }
}

// View renders the member table, the loop status line and help.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(m.title))
	b.WriteString("\n")

	cols := []int{16, 10, 12, 8, 10, 8}
	row := func(cells ...string) string {
		parts := make([]string, len(cells))
		for i, c := range cells {
			parts[i] = lipgloss.NewStyle().Width(cols[i]).Render(c)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	}

	b.WriteString(styles.header.Render(row("element", "role", "time", "rate", "drift", "state")))
	b.WriteString("\n")

	for _, mem := range m.status.Members {
		role, label := "follower", mem.Label
		drift := styles.drift(mem.Drift).Render(fmt.Sprintf("%+.3f", mem.Drift))
		if mem.Primary {
			role = "primary"
			label = styles.primary.Render(label)
			drift = "-"
		}
		state := "playing"
		if mem.Paused {
			state = "paused"
		}
		b.WriteString(row(label, role, shared.FormatSeconds(mem.CurrentTime), shared.FormatRate(mem.PlaybackRate), drift, state))
		b.WriteString("\n")
	}

	loop := styles.warn.Render("stopped")
	if m.status.Running {
		loop = styles.ok.Render("running")
	}
	b.WriteString(fmt.Sprintf("\nloop %s every %s  policy %s  rates %.2f-%.2f  max drift %s\n",
		loop, m.status.Interval, m.status.Policy, m.status.MinimumPlaybackRate, m.status.MaximumPlaybackRate,
		styles.drift(m.status.MaxDrift()).Render(fmt.Sprintf("%.3fs", m.status.MaxDrift()))))

	if m.notice != "" {
		b.WriteString(styles.help.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
