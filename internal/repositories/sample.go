package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/vsync/internal/models"
	"github.com/desertthunder/vsync/internal/shared"
)

// SampleRepository persists loop decisions. Samples are never updated and are deleted with their session.
type SampleRepository struct {
	db *sql.DB
}

// NewSampleRepository creates a new SampleRepository with the given database connection
func NewSampleRepository(db *sql.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

const sampleColumns = `id, session_id, element, offset_seconds, raw_rate, rate, snapped, written, exact, recorded_at`

// Create inserts a new [models.Sample] with a generated ID
func (r *SampleRepository) Create(sample *models.Sample) error {
	if err := sample.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	sample.SetID(id)

	query := `INSERT INTO samples (` + sampleColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		id,
		sample.SessionID(),
		sample.Element(),
		sample.Offset(),
		sample.RawRate(),
		sample.Rate(),
		sample.Snapped(),
		sample.Written(),
		sample.Exact(),
		sample.RecordedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}

	return nil
}

// Get retrieves a sample by ID
func (r *SampleRepository) Get(id string) (*models.Sample, error) {
	query := `SELECT ` + sampleColumns + ` FROM samples WHERE id = ?`
	return r.scan(r.db.QueryRow(query, id))
}

// ListBySession returns the samples of a session in recording order
func (r *SampleRepository) ListBySession(sessionID string) ([]*models.Sample, error) {
	query := `SELECT ` + sampleColumns + ` FROM samples WHERE session_id = ? ORDER BY recorded_at ASC, rowid ASC`

	rows, err := r.db.Query(query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []*models.Sample
	for rows.Next() {
		sample, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return samples, nil
}

// CountBySession returns the number of samples recorded for a session
func (r *SampleRepository) CountBySession(sessionID string) (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM samples WHERE session_id = ?`, sessionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count samples: %w", err)
	}
	return n, nil
}

func (r *SampleRepository) scan(row scanner) (*models.Sample, error) {
	var (
		id         string
		sessionID  string
		data       models.SampleData
		recordedAt time.Time
	)

	err := row.Scan(&id, &sessionID, &data.Element, &data.Offset, &data.RawRate, &data.Rate,
		&data.Snapped, &data.Written, &data.Exact, &recordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrSampleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sample: %w", err)
	}

	sample := models.NewSample(sessionID, data, recordedAt)
	sample.SetID(id)
	return sample, nil
}
