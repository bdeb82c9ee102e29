package ui

import (
	"math"

	"github.com/charmbracelet/lipgloss"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title   lipgloss.Style
	ok      lipgloss.Style
	err     lipgloss.Style
	warn    lipgloss.Style
	help    lipgloss.Style
	primary lipgloss.Style
	header  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title:   NewBold(t).MarginBottom(1),
		ok:      NewBold(s),
		err:     NewBold(e),
		warn:    NewStyle(w),
		help:    NewEm(h),
		primary: NewBold(t),
		header:  NewBold(h).Underline(true),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// Drift thresholds, in seconds, for coloring follower drift.
const (
	driftOK   = 0.02
	driftWarn = 0.25
)

// drift picks the style for an absolute drift value.
func (p *Palette) drift(d float64) lipgloss.Style {
	switch d = math.Abs(d); {
	case d <= driftOK:
		return p.ok
	case d <= driftWarn:
		return p.warn
	default:
		return p.err
	}
}
