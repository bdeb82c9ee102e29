package repositories

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vsync/internal/media"
	"github.com/desertthunder/vsync/internal/models"
	"github.com/desertthunder/vsync/internal/shared"
	"github.com/desertthunder/vsync/internal/vsync"
	"golang.org/x/time/rate"
)

// JournalStats counts what a [JournalRecorder] did with the adjustments it received.
type JournalStats struct {
	Recorded int
	Dropped  int // throttled by the limiter
	Failed   int
}

// JournalRecorder is a [vsync.Recorder] that persists adjustments as samples of one open session.
//
// Rate corrections are throttled per adjustment time so a fast loop does not flood the database; hard syncs
// are always kept. Write errors are logged and counted, never returned to the sync loop.
type JournalRecorder struct {
	sessions *SessionRepository
	samples  *SampleRepository
	logger   *log.Logger
	limit    rate.Limit
	burst    int

	mu      sync.Mutex
	limiter *rate.Limiter
	session *models.Session
	stats   JournalStats
}

var _ vsync.Recorder = (*JournalRecorder)(nil)

// NewJournalRecorder creates a recorder keeping at most samplesPerSecond rate corrections per second of
// adjustment time, with bursts up to burst.
func NewJournalRecorder(db *sql.DB, samplesPerSecond float64, burst int, logger *log.Logger) *JournalRecorder {
	if logger == nil {
		logger = shared.NewDiscardLogger()
	}
	if burst < 1 {
		burst = 1
	}
	return &JournalRecorder{
		sessions: NewSessionRepository(db),
		samples:  NewSampleRepository(db),
		logger:   logger.WithPrefix("journal"),
		limit:    rate.Limit(samplesPerSecond),
		burst:    burst,
	}
}

// Begin opens a session described by status. A previously open session is finished first.
func (j *JournalRecorder) Begin(label string, status vsync.Status, startedAt time.Time) (*models.Session, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.session != nil {
		if err := j.finishLocked(startedAt, 0); err != nil {
			return nil, err
		}
	}

	session := models.NewSession(label, status.Policy, status.Interval,
		status.MinimumPlaybackRate, status.MaximumPlaybackRate, len(status.Members), startedAt)
	if err := j.sessions.Create(session); err != nil {
		return nil, fmt.Errorf("failed to begin session: %w", err)
	}

	j.session = session
	j.limiter = rate.NewLimiter(j.limit, j.burst)
	j.stats = JournalStats{}
	j.logger.Debug("session opened", "id", session.ID(), "sequence", session.Sequence())
	return session, nil
}

// End closes the open session. members is the group size at the end; zero keeps the size from Begin.
func (j *JournalRecorder) End(stoppedAt time.Time, members int) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.session == nil {
		return fmt.Errorf("%w: no open session", shared.ErrSessionNotFound)
	}
	return j.finishLocked(stoppedAt, members)
}

func (j *JournalRecorder) finishLocked(stoppedAt time.Time, members int) error {
	if members == 0 {
		members = j.session.Members()
	}
	if err := j.sessions.Finish(j.session.ID(), stoppedAt, members); err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	j.logger.Debug("session closed", "id", j.session.ID(), "recorded", j.stats.Recorded, "dropped", j.stats.Dropped)
	j.session = nil
	return nil
}

// Session returns the open session, or nil.
func (j *JournalRecorder) Session() *models.Session {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.session
}

func (j *JournalRecorder) Stats() JournalStats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

// Record stores a as a sample of the open session. Adjustments outside a session are ignored.
func (j *JournalRecorder) Record(a vsync.Adjustment) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.session == nil {
		return
	}
	if !a.Exact && !j.limiter.AllowN(a.At, 1) {
		j.stats.Dropped++
		return
	}

	sample := models.NewSample(j.session.ID(), models.SampleData{
		Element: media.Label(a.Element),
		Offset:  a.Offset,
		RawRate: a.Raw,
		Rate:    a.Rate,
		Snapped: a.Snapped,
		Written: a.Written,
		Exact:   a.Exact,
	}, a.At)

	if err := j.samples.Create(sample); err != nil {
		j.stats.Failed++
		j.logger.Error("failed to record sample", "element", sample.Element(), "error", err)
		return
	}
	j.stats.Recorded++
}
