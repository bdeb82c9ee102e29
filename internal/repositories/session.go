package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/vsync/internal/models"
	"github.com/desertthunder/vsync/internal/shared"
)

// SessionRepository is the [models.Store] for journal sessions.
type SessionRepository struct {
	db *sql.DB
}

var _ models.Store[*models.Session] = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, sequence, label, policy, interval_ms, min_rate, max_rate, members, started_at, stopped_at, created_at, updated_at, deleted_at`

// Create inserts a new [models.Session] with generated ID and sequence
func (r *SessionRepository) Create(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "sessions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	session.SetID(id)
	session.SetSequence(sequence)

	query := `
		INSERT INTO sessions (id, sequence, label, policy, interval_ms, min_rate, max_rate, members, started_at, stopped_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		session.Label(),
		session.Policy(),
		session.IntervalMS(),
		session.MinRate(),
		session.MaxRate(),
		session.Members(),
		session.StartedAt(),
		session.StoppedAt(),
		session.CreatedAt(),
		session.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID, excluding soft-deleted sessions
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetBySequence retrieves a session by its sequence number
func (r *SessionRepository) GetBySequence(sequence int) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE sequence = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, sequence))
}

// Update modifies the mutable columns of an existing session
func (r *SessionRepository) Update(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	session.SetUpdatedAt(now)

	query := `
		UPDATE sessions
		SET label = ?, members = ?, stopped_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, session.Label(), session.Members(), session.StoppedAt(), now, session.ID())
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	return affected(result, session.ID())
}

// Finish marks a session as stopped at the given time.
func (r *SessionRepository) Finish(id string, stoppedAt time.Time, members int) error {
	query := `
		UPDATE sessions
		SET stopped_at = ?, members = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL AND stopped_at IS NULL
	`

	result, err := r.db.Exec(query, stoppedAt, members, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to finish session: %w", err)
	}

	return affected(result, id)
}

// Delete soft-deletes a session by ID
func (r *SessionRepository) Delete(id string) error {
	query := `
		UPDATE sessions
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return affected(result, id)
}

// List retrieves sessions matching the given criteria, excluding soft-deleted sessions.
//
// Supported criteria: "policy" (string), "label" (string), "limit" (int).
func (r *SessionRepository) List(criteria map[string]any) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE deleted_at IS NULL`
	args := []any{}

	if policy, ok := criteria["policy"].(string); ok && policy != "" {
		query += " AND policy = ?"
		args = append(args, policy)
	}

	if label, ok := criteria["label"].(string); ok && label != "" {
		query += " AND label = ?"
		args = append(args, label)
	}

	query += " ORDER BY sequence ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		session, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SessionRepository) scan(row scanner) (*models.Session, error) {
	var (
		id         string
		sequence   int
		label      string
		policy     string
		intervalMS int
		minRate    float64
		maxRate    float64
		members    int
		startedAt  time.Time
		stoppedAt  sql.NullTime
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &label, &policy, &intervalMS, &minRate, &maxRate, &members,
		&startedAt, &stoppedAt, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	interval := time.Duration(intervalMS) * time.Millisecond
	session := models.NewSession(label, policy, interval, minRate, maxRate, members, startedAt)
	session.SetID(id)
	session.SetSequence(sequence)
	session.SetCreatedAt(createdAt)
	session.SetUpdatedAt(updatedAt)
	if stoppedAt.Valid {
		session.SetStoppedAt(&stoppedAt.Time)
	}
	if deletedAt.Valid {
		session.SetDeletedAt(&deletedAt.Time)
	}

	return session, nil
}

func affected(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return nil
}
