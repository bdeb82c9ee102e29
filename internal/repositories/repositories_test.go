package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/vsync/internal/host"
	"github.com/desertthunder/vsync/internal/models"
	"github.com/desertthunder/vsync/internal/shared"
	tu "github.com/desertthunder/vsync/internal/testing"
	"github.com/desertthunder/vsync/internal/vsync"
	"github.com/jonboulle/clockwork"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

var started = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newSession(label string) *models.Session {
	return models.NewSession(label, "offset", 250*time.Millisecond, 0.33, 3, 2, started)
}

func TestSessionRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)
		session := newSession("first")

		if err := repo.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		if session.ID() == "" {
			t.Error("session ID should be set after creation")
		}
		if session.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", session.Sequence())
		}
	})

	t.Run("Create rejects invalid session", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)
		err := repo.Create(newSession(""))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)
		session := newSession("first")
		if err := repo.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		retrieved, err := repo.Get(session.ID())
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}

		if retrieved.Label() != "first" {
			t.Errorf("expected label first, got %s", retrieved.Label())
		}
		if retrieved.Interval() != 250*time.Millisecond {
			t.Errorf("expected interval 250ms, got %v", retrieved.Interval())
		}
		if retrieved.MaxRate() != 3 {
			t.Errorf("expected max rate 3, got %v", retrieved.MaxRate())
		}
		if !retrieved.StartedAt().Equal(started) {
			t.Errorf("expected start %v, got %v", started, retrieved.StartedAt())
		}
		if retrieved.StoppedAt() != nil {
			t.Error("expected open session")
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewSessionRepository(db).Get("nope")
		if !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("GetBySequence", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)
		for _, label := range []string{"one", "two"} {
			if err := repo.Create(newSession(label)); err != nil {
				t.Fatalf("failed to create session: %v", err)
			}
		}

		got, err := repo.GetBySequence(2)
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if got.Label() != "two" {
			t.Errorf("expected label two, got %s", got.Label())
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)
		session := newSession("first")
		if err := repo.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		session.SetLabel("renamed")
		session.SetMembers(4)
		if err := repo.Update(session); err != nil {
			t.Fatalf("failed to update session: %v", err)
		}

		retrieved, err := repo.Get(session.ID())
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if retrieved.Label() != "renamed" || retrieved.Members() != 4 {
			t.Errorf("update not persisted: label=%s members=%d", retrieved.Label(), retrieved.Members())
		}
	})

	t.Run("Update missing", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		session := newSession("ghost")
		session.SetID("nope")
		err := NewSessionRepository(db).Update(session)
		if !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Finish", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)
		session := newSession("first")
		if err := repo.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		if err := repo.Finish(session.ID(), started.Add(90*time.Second), 3); err != nil {
			t.Fatalf("failed to finish session: %v", err)
		}

		retrieved, err := repo.Get(session.ID())
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if got := retrieved.Elapsed(); got != 90*time.Second {
			t.Errorf("expected elapsed 90s, got %v", got)
		}
		if retrieved.Members() != 3 {
			t.Errorf("expected 3 members, got %d", retrieved.Members())
		}

		if err := repo.Finish(session.ID(), started.Add(time.Hour), 3); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected finishing twice to fail with ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)
		session := newSession("first")
		if err := repo.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		if err := repo.Delete(session.ID()); err != nil {
			t.Fatalf("failed to delete session: %v", err)
		}

		if _, err := repo.Get(session.ID()); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected deleted session to be hidden, got %v", err)
		}
		if err := repo.Delete(session.ID()); err == nil {
			t.Error("expected error deleting twice")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)
		for _, label := range []string{"a", "b", "c"} {
			if err := repo.Create(newSession(label)); err != nil {
				t.Fatalf("failed to create session: %v", err)
			}
		}
		remaining := models.NewSession("d", "remaining", time.Second, 0.5, 2, 2, started)
		if err := repo.Create(remaining); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		tests := []struct {
			name     string
			criteria map[string]any
			want     []string
		}{
			{name: "all", criteria: map[string]any{}, want: []string{"a", "b", "c", "d"}},
			{name: "by policy", criteria: map[string]any{"policy": "remaining"}, want: []string{"d"}},
			{name: "by label", criteria: map[string]any{"label": "b"}, want: []string{"b"}},
			{name: "limit", criteria: map[string]any{"limit": 2}, want: []string{"a", "b"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				sessions, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("failed to list sessions: %v", err)
				}
				if len(sessions) != len(tt.want) {
					t.Fatalf("expected %d sessions, got %d", len(tt.want), len(sessions))
				}
				for i, s := range sessions {
					if s.Label() != tt.want[i] {
						t.Errorf("session %d: expected %s, got %s", i, tt.want[i], s.Label())
					}
				}
			})
		}
	})
}

func TestSampleRepository(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	sessions := NewSessionRepository(db)
	samples := NewSampleRepository(db)

	session := newSession("samples")
	if err := sessions.Create(session); err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	t.Run("Create and Get", func(t *testing.T) {
		data := models.SampleData{Element: "#b", Offset: 2, RawRate: 2, Rate: 2, Written: true}
		sample := models.NewSample(session.ID(), data, started.Add(time.Second))
		if err := samples.Create(sample); err != nil {
			t.Fatalf("failed to create sample: %v", err)
		}

		got, err := samples.Get(sample.ID())
		if err != nil {
			t.Fatalf("failed to get sample: %v", err)
		}
		if got.Element() != "#b" || got.Rate() != 2 || !got.Written() || got.Snapped() {
			t.Errorf("unexpected sample: element=%s rate=%v written=%v snapped=%v",
				got.Element(), got.Rate(), got.Written(), got.Snapped())
		}
	})

	t.Run("rejects unknown session", func(t *testing.T) {
		sample := models.NewSample("nope", models.SampleData{Element: "#b", Rate: 1}, started)
		if err := samples.Create(sample); err == nil {
			t.Error("expected foreign key error")
		}
	})

	t.Run("rejects zero rate", func(t *testing.T) {
		sample := models.NewSample(session.ID(), models.SampleData{Element: "#b"}, started)
		if err := samples.Create(sample); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("ListBySession is ordered by time", func(t *testing.T) {
		for i := 3; i >= 2; i-- {
			sample := models.NewSample(session.ID(), models.SampleData{Element: "#c", Rate: float64(i)}, started.Add(time.Duration(i)*time.Second))
			if err := samples.Create(sample); err != nil {
				t.Fatalf("failed to create sample: %v", err)
			}
		}

		list, err := samples.ListBySession(session.ID())
		if err != nil {
			t.Fatalf("failed to list samples: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("expected 3 samples, got %d", len(list))
		}
		for i := 1; i < len(list); i++ {
			if list[i].RecordedAt().Before(list[i-1].RecordedAt()) {
				t.Errorf("samples out of order at %d", i)
			}
		}

		n, err := samples.CountBySession(session.ID())
		if err != nil {
			t.Fatalf("failed to count samples: %v", err)
		}
		if n != 3 {
			t.Errorf("expected count 3, got %d", n)
		}
	})

	t.Run("Get missing", func(t *testing.T) {
		if _, err := samples.Get("nope"); !errors.Is(err, shared.ErrSampleNotFound) {
			t.Errorf("expected ErrSampleNotFound, got %v", err)
		}
	})
}

func TestJournalRecorder(t *testing.T) {
	newGroup := func(t *testing.T, rec vsync.Recorder) (*vsync.Group, *host.Loop, []*tu.RecordingElement) {
		t.Helper()
		loop := host.NewLoop(clockwork.NewFakeClock())
		a := tu.NewRecordingElement("video", "a", loop)
		b := tu.NewRecordingElement("video", "b", loop)
		a.Set(10, 1)
		b.Set(8, 1)

		g, err := vsync.New(vsync.Options{Elements: []*tu.RecordingElement{a, b}, Host: loop, Recorder: rec})
		if err != nil {
			t.Fatalf("vsync.New() error: %v", err)
		}
		return g, loop, []*tu.RecordingElement{a, b}
	}

	t.Run("records a throttled session", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		journal := NewJournalRecorder(db, 1, 1, nil)
		g, loop, _ := newGroup(t, journal)

		session, err := journal.Begin("journal", g.Snapshot(), loop.Now())
		if err != nil {
			t.Fatalf("Begin() error: %v", err)
		}
		if session.Members() != 2 || session.Policy() != "offset" {
			t.Errorf("unexpected session: members=%d policy=%s", session.Members(), session.Policy())
		}

		g.StartSyncLoop()
		loop.Advance(2 * time.Second)
		g.StopSyncLoop()

		if err := journal.End(loop.Now(), 0); err != nil {
			t.Fatalf("End() error: %v", err)
		}

		stats := journal.Stats()
		if stats.Recorded+stats.Dropped != 9 {
			t.Errorf("expected 9 adjustments (1 exact + 8 ticks), got %+v", stats)
		}
		if stats.Dropped == 0 {
			t.Error("expected the limiter to drop some adjustments")
		}
		if stats.Failed != 0 {
			t.Errorf("expected no failures, got %d", stats.Failed)
		}

		n, err := NewSampleRepository(db).CountBySession(session.ID())
		if err != nil {
			t.Fatalf("CountBySession() error: %v", err)
		}
		if n != stats.Recorded {
			t.Errorf("expected %d stored samples, got %d", stats.Recorded, n)
		}

		stored, err := NewSessionRepository(db).Get(session.ID())
		if err != nil {
			t.Fatalf("Get() error: %v", err)
		}
		if got := stored.Elapsed(); got != 2*time.Second {
			t.Errorf("expected elapsed 2s, got %v", got)
		}
	})

	t.Run("exact syncs are never throttled", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		journal := NewJournalRecorder(db, 0.001, 1, nil)
		g, loop, _ := newGroup(t, journal)
		if _, err := journal.Begin("exact", g.Snapshot(), loop.Now()); err != nil {
			t.Fatalf("Begin() error: %v", err)
		}

		for range 3 {
			g.ForceExactSync()
		}

		samples, err := NewSampleRepository(db).ListBySession(journal.Session().ID())
		if err != nil {
			t.Fatalf("ListBySession() error: %v", err)
		}
		if len(samples) != 3 {
			t.Fatalf("expected 3 samples, got %d", len(samples))
		}
		if !samples[0].Exact() || samples[0].Offset() != 2 || samples[0].Element() != "#b" {
			t.Errorf("unexpected first sample: exact=%v offset=%v element=%s",
				samples[0].Exact(), samples[0].Offset(), samples[0].Element())
		}
	})

	t.Run("ignores adjustments outside a session", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		journal := NewJournalRecorder(db, 10, 1, nil)
		g, _, _ := newGroup(t, journal)
		g.ForceExactSync()

		if stats := journal.Stats(); stats.Recorded != 0 || stats.Dropped != 0 {
			t.Errorf("expected nothing recorded, got %+v", stats)
		}
		if err := journal.End(time.Now(), 0); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("write failures are counted", func(t *testing.T) {
		db := setupTestDB(t)

		journal := NewJournalRecorder(db, 10, 1, nil)
		g, loop, _ := newGroup(t, journal)
		if _, err := journal.Begin("closed", g.Snapshot(), loop.Now()); err != nil {
			t.Fatalf("Begin() error: %v", err)
		}
		db.Close()

		g.ForceExactSync()
		if got := journal.Stats().Failed; got != 1 {
			t.Errorf("expected 1 failure, got %d", got)
		}
	})
}

func TestNextSequence(t *testing.T) {
	t.Run("counts from one", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		for want := 1; want <= 3; want++ {
			got, err := NextSequence(db, "sessions")
			if err != nil {
				t.Fatalf("NextSequence() error: %v", err)
			}
			if got != want {
				t.Errorf("NextSequence() = %d, want %d", got, want)
			}
		}
	})

	t.Run("deleted sessions keep their number", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewSessionRepository(db)
		first, second := newSession("first"), newSession("second")
		for _, s := range []*models.Session{first, second} {
			if err := repo.Create(s); err != nil {
				t.Fatalf("failed to create session: %v", err)
			}
		}
		if err := repo.Delete(second.ID()); err != nil {
			t.Fatalf("failed to delete session: %v", err)
		}

		third := newSession("third")
		if err := repo.Create(third); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}
		if third.Sequence() != 3 {
			t.Errorf("expected sequence 3 after a delete, got %d", third.Sequence())
		}
	})

	t.Run("unknown table", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := NextSequence(db, "missing"); err == nil {
			t.Error("expected error for unknown sequence table")
		}
	})
}
