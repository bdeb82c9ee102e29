// Package ui implements a live sync monitor using bubbletea's Elm architecture.
//
// The [Model] polls [vsync.Group.Snapshot] on a refresh tick and renders one row per member: current time,
// playback rate, drift from the primary and play state. Drift is green inside the snap band, orange up to a
// quarter second and red beyond.
//
// Keys drive the group directly: space plays or pauses everyone, ←/→ seek by five seconds, tab hands the
// primary role to the next member, f forces an exact sync and s starts or stops the sync loop. Help is
// rendered with charmbracelet/bubbles/help.
package ui
