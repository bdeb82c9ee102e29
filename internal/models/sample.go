package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/vsync/internal/shared"
)

// Sample is one sync loop decision for one follower.
type Sample struct {
	id         string
	sessionID  string
	element    string
	offset     float64
	rawRate    float64
	rate       float64
	snapped    bool
	written    bool
	exact      bool
	recordedAt time.Time
}

// SampleData carries the measured values of a [Sample].
type SampleData struct {
	Element string
	Offset  float64
	RawRate float64
	Rate    float64
	Snapped bool
	Written bool
	Exact   bool
}

// NewSample creates an unsaved sample belonging to sessionID.
func NewSample(sessionID string, data SampleData, recordedAt time.Time) *Sample {
	return &Sample{
		sessionID:  sessionID,
		element:    data.Element,
		offset:     data.Offset,
		rawRate:    data.RawRate,
		rate:       data.Rate,
		snapped:    data.Snapped,
		written:    data.Written,
		exact:      data.Exact,
		recordedAt: recordedAt,
	}
}

func (s *Sample) ID() string            { return s.id }
func (s *Sample) SessionID() string     { return s.sessionID }
func (s *Sample) Element() string       { return s.element }
func (s *Sample) Offset() float64       { return s.offset }
func (s *Sample) RawRate() float64      { return s.rawRate }
func (s *Sample) Rate() float64         { return s.rate }
func (s *Sample) Snapped() bool         { return s.snapped }
func (s *Sample) Written() bool         { return s.written }
func (s *Sample) Exact() bool           { return s.exact }
func (s *Sample) RecordedAt() time.Time { return s.recordedAt }

// Samples are immutable, so both timestamps are the recording time.
func (s *Sample) CreatedAt() time.Time { return s.recordedAt }
func (s *Sample) UpdatedAt() time.Time { return s.recordedAt }

func (s *Sample) SetID(id string) { s.id = id }

func (s *Sample) Validate() error {
	switch {
	case s.sessionID == "":
		return fmt.Errorf("%w: sample session is required", shared.ErrInvalidInput)
	case s.element == "":
		return fmt.Errorf("%w: sample element is required", shared.ErrInvalidInput)
	case s.rate <= 0:
		return fmt.Errorf("%w: sample rate must be positive", shared.ErrInvalidInput)
	case s.recordedAt.IsZero():
		return fmt.Errorf("%w: sample time is required", shared.ErrInvalidInput)
	}
	return nil
}
