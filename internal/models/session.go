package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/vsync/internal/shared"
)

// Session is one run of a sync loop: the settings it ran with and when it started and stopped.
type Session struct {
	id         string
	sequence   int
	label      string
	policy     string
	intervalMS int
	minRate    float64
	maxRate    float64
	members    int
	startedAt  time.Time
	stoppedAt  *time.Time
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
}

// NewSession creates an unsaved session. The ID is assigned by the repository.
func NewSession(label, policy string, interval time.Duration, minRate, maxRate float64, members int, startedAt time.Time) *Session {
	now := time.Now()
	return &Session{
		label:      label,
		policy:     policy,
		intervalMS: int(interval / time.Millisecond),
		minRate:    minRate,
		maxRate:    maxRate,
		members:    members,
		startedAt:  startedAt,
		createdAt:  now,
		updatedAt:  now,
	}
}

func (s *Session) ID() string              { return s.id }
func (s *Session) Sequence() int           { return s.sequence }
func (s *Session) Label() string           { return s.label }
func (s *Session) Policy() string          { return s.policy }
func (s *Session) IntervalMS() int         { return s.intervalMS }
func (s *Session) MinRate() float64        { return s.minRate }
func (s *Session) MaxRate() float64        { return s.maxRate }
func (s *Session) Members() int            { return s.members }
func (s *Session) StartedAt() time.Time    { return s.startedAt }
func (s *Session) StoppedAt() *time.Time   { return s.stoppedAt }
func (s *Session) CreatedAt() time.Time    { return s.createdAt }
func (s *Session) UpdatedAt() time.Time    { return s.updatedAt }
func (s *Session) DeletedAt() *time.Time   { return s.deletedAt }
func (s *Session) Interval() time.Duration { return time.Duration(s.intervalMS) * time.Millisecond }

func (s *Session) SetID(id string)           { s.id = id }
func (s *Session) SetSequence(seq int)       { s.sequence = seq }
func (s *Session) SetLabel(label string)     { s.label = label }
func (s *Session) SetMembers(n int)          { s.members = n }
func (s *Session) SetStoppedAt(t *time.Time) { s.stoppedAt = t }
func (s *Session) SetCreatedAt(t time.Time)  { s.createdAt = t }
func (s *Session) SetUpdatedAt(t time.Time)  { s.updatedAt = t }
func (s *Session) SetDeletedAt(t *time.Time) { s.deletedAt = t }

// Elapsed is how long the session ran, or zero while it is still open.
func (s *Session) Elapsed() time.Duration {
	if s.stoppedAt == nil {
		return 0
	}
	return s.stoppedAt.Sub(s.startedAt)
}

func (s *Session) Validate() error {
	switch {
	case s.label == "":
		return fmt.Errorf("%w: session label is required", shared.ErrInvalidInput)
	case s.policy == "":
		return fmt.Errorf("%w: session policy is required", shared.ErrInvalidInput)
	case s.intervalMS <= 0:
		return fmt.Errorf("%w: session interval must be positive", shared.ErrInvalidInput)
	case s.minRate <= 0 || s.maxRate <= 0:
		return fmt.Errorf("%w: session rates must be positive", shared.ErrInvalidInput)
	case s.startedAt.IsZero():
		return fmt.Errorf("%w: session start time is required", shared.ErrInvalidInput)
	case s.stoppedAt != nil && s.stoppedAt.Before(s.startedAt):
		return fmt.Errorf("%w: session stops before it starts", shared.ErrInvalidInput)
	}
	return nil
}
