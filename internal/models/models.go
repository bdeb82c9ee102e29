package models

import "time"

// Entry is a row of the sync journal: a [Session] or one of its [Sample] decisions.
//
// Samples are append-only and report their recording time for both CreatedAt and UpdatedAt.
type Entry interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	// Validate rejects entries the journal schema cannot hold, such as a session without a policy
	// or a sample without a session.
	Validate() error
}

var (
	_ Entry = (*Session)(nil)
	_ Entry = (*Sample)(nil)
)

// Store persists journal entries of one kind. Create assigns the ID (and, for sessions, the sequence
// number shown as #N by `vsync history`). Delete is soft and hides the entry from Get and List.
type Store[T Entry] interface {
	Create(entry T) error
	Get(id string) (T, error)
	Update(entry T) error
	Delete(id string) error
	// List filters by the criteria keys each store documents. Other keys are ignored.
	List(criteria map[string]any) ([]T, error)
}
