package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/vsync/internal/formatter"
	"github.com/desertthunder/vsync/internal/models"
	"github.com/desertthunder/vsync/internal/repositories"
	"github.com/desertthunder/vsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// sessionSummary is the JSON shape of a journal session.
type sessionSummary struct {
	ID        string     `json:"id"`
	Sequence  int        `json:"sequence"`
	Label     string     `json:"label"`
	Policy    string     `json:"policy"`
	Interval  string     `json:"interval"`
	MinRate   float64    `json:"min_rate"`
	MaxRate   float64    `json:"max_rate"`
	Members   int        `json:"members"`
	StartedAt time.Time  `json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
	Samples   int        `json:"samples"`
}

func summarize(s *models.Session, samples int) sessionSummary {
	return sessionSummary{
		ID:        s.ID(),
		Sequence:  s.Sequence(),
		Label:     s.Label(),
		Policy:    s.Policy(),
		Interval:  s.Interval().String(),
		MinRate:   s.MinRate(),
		MaxRate:   s.MaxRate(),
		Members:   s.Members(),
		StartedAt: s.StartedAt(),
		StoppedAt: s.StoppedAt(),
		Samples:   samples,
	}
}

// findSession resolves ref as a sequence number ("3" or "#3") or a session ID.
func findSession(sessions *repositories.SessionRepository, ref string) (*models.Session, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: session ID or number is required", shared.ErrMissingArgument)
	}
	if seq, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil {
		return sessions.GetBySequence(seq)
	}
	return sessions.Get(ref)
}

// withJournal opens the database and runs fn with both journal repositories.
func (r *Runner) withJournal(fn func(*repositories.SessionRepository, *repositories.SampleRepository) error) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(repositories.NewSessionRepository(db), repositories.NewSampleRepository(db))
}

// HistoryList lists recorded sessions, oldest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	return r.withJournal(func(sessions *repositories.SessionRepository, samples *repositories.SampleRepository) error {
		list, err := sessions.List(map[string]any{
			"policy": cmd.String("policy"),
			"label":  cmd.String("label"),
			"limit":  cmd.Int("limit"),
		})
		if err != nil {
			return err
		}

		r.logger.Debug("listed sessions", "count", len(list))

		if cmd.Bool("json") {
			out := make([]sessionSummary, 0, len(list))
			for _, s := range list {
				n, err := samples.CountBySession(s.ID())
				if err != nil {
					return err
				}
				out = append(out, summarize(s, n))
			}
			return r.writeJSON(out, cmd.Bool("pretty"))
		}

		return r.write(formatter.SessionsToText(list))
	})
}

// HistoryShow prints one session and its samples.
func (r *Runner) HistoryShow(ctx context.Context, cmd *cli.Command) error {
	return r.withJournal(func(sessions *repositories.SessionRepository, samples *repositories.SampleRepository) error {
		session, err := findSession(sessions, cmd.StringArg("session"))
		if err != nil {
			return err
		}

		list, err := samples.ListBySession(session.ID())
		if err != nil {
			return err
		}

		if cmd.Bool("json") {
			return r.writeJSON(summarize(session, len(list)), cmd.Bool("pretty"))
		}
		return r.write(formatter.SessionToText(session, list))
	})
}

// HistoryExport writes a session report as text, CSV or Markdown.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	return r.withJournal(func(sessions *repositories.SessionRepository, samples *repositories.SampleRepository) error {
		session, err := findSession(sessions, cmd.StringArg("session"))
		if err != nil {
			return err
		}

		list, err := samples.ListBySession(session.ID())
		if err != nil {
			return err
		}

		data, err := formatter.RenderSession(session, list, format)
		if err != nil {
			return err
		}

		path, err := formatter.WriteExport(data, cmd.String("output"), fmt.Sprintf("session-%d", session.Sequence()), format)
		if err != nil {
			return err
		}

		r.logger.Info("session exported", "id", session.ID(), "samples", len(list), "path", path)
		r.writePlain("✓ Exported session #%d (%d samples) to %s\n", session.Sequence(), len(list), path)
		return nil
	})
}

// HistoryDelete hides a session from the journal.
func (r *Runner) HistoryDelete(ctx context.Context, cmd *cli.Command) error {
	return r.withJournal(func(sessions *repositories.SessionRepository, _ *repositories.SampleRepository) error {
		session, err := findSession(sessions, cmd.StringArg("session"))
		if err != nil {
			return err
		}

		if err := sessions.Delete(session.ID()); err != nil {
			return err
		}

		r.logger.Info("session deleted", "id", session.ID())
		r.writePlain("✓ Deleted session #%d (%s)\n", session.Sequence(), session.Label())
		return nil
	})
}
