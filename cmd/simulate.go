package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/vsync/internal/formatter"
	"github.com/desertthunder/vsync/internal/repositories"
	"github.com/desertthunder/vsync/internal/shared"
	"github.com/desertthunder/vsync/internal/tasks"
	"github.com/desertthunder/vsync/internal/vsync"
	"github.com/urfave/cli/v3"
)

// scenario builds a scenario from the configuration, overridden by whichever scenario flags cmd sets.
func (r *Runner) scenario(cmd *cli.Command) (tasks.Scenario, error) {
	sc, err := tasks.ScenarioFromConfig(r.config)
	if err != nil {
		return sc, err
	}
	sc.Sync.Logger = r.logger

	if cmd.IsSet("label") {
		sc.Name = cmd.String("label")
	}
	if cmd.IsSet("followers") {
		sc.Followers = cmd.Int("followers")
	}
	if cmd.IsSet("media-duration") {
		sc.MediaDuration = cmd.Float("media-duration")
	}
	if cmd.IsSet("run-for") {
		sc.RunFor = cmd.Duration("run-for")
	}
	if cmd.IsSet("start-at") {
		sc.StartAt = cmd.Float("start-at")
	}
	if cmd.IsSet("drift") {
		sc.MaxInitialDrift = cmd.Float("drift")
	}
	if cmd.IsSet("skew") {
		sc.Skew = cmd.Float("skew")
	}
	if cmd.IsSet("seed") {
		sc.Seed = int64(cmd.Int("seed"))
	}
	if cmd.IsSet("tolerance") {
		sc.Tolerance = cmd.Float("tolerance")
	}

	if cmd.IsSet("interval") {
		sc.Sync.SyncInterval = vsync.Duration(cmd.Duration("interval"))
	}
	if cmd.IsSet("min-rate") {
		sc.Sync.MinimumPlaybackRate = vsync.Float(cmd.Float("min-rate"))
	}
	if cmd.IsSet("max-rate") {
		sc.Sync.MaximumPlaybackRate = vsync.Float(cmd.Float("max-rate"))
	}
	if cmd.IsSet("policy") {
		policy, err := vsync.ParsePolicy(cmd.String("policy"))
		if err != nil {
			return sc, err
		}
		sc.Sync.Policy = policy
	}
	if cmd.IsSet("exact-when-paused") {
		sc.Sync.ExactSyncWhenPaused = cmd.Bool("exact-when-paused")
	}

	for _, raw := range cmd.StringSlice("event") {
		ev, err := tasks.ParseScriptedEvent(raw)
		if err != nil {
			return sc, err
		}
		sc.Events = append(sc.Events, ev)
	}

	return sc, sc.Validate()
}

// journalEnabled reports whether sync decisions should be persisted for this invocation.
func (r *Runner) journalEnabled(cmd *cli.Command) bool {
	if cmd.IsSet("journal") {
		return cmd.Bool("journal")
	}
	return r.config.Journal.Enabled
}

// openJournal connects a journal recorder when journaling is enabled. The returned func releases the database
// and is safe to call when the recorder is nil.
func (r *Runner) openJournal(cmd *cli.Command) (*repositories.JournalRecorder, func(), error) {
	if !r.journalEnabled(cmd) {
		return nil, func() {}, nil
	}

	db, err := r.openDatabase()
	if err != nil {
		return nil, nil, err
	}

	recorder := repositories.NewJournalRecorder(db, r.config.Journal.SamplesPerSecond, r.config.Journal.Burst, r.logger)
	return recorder, func() { db.Close() }, nil
}

// Simulate runs a scenario on a fake clock and prints the drift report.
func (r *Runner) Simulate(ctx context.Context, cmd *cli.Command) error {
	sc, err := r.scenario(cmd)
	if err != nil {
		return err
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	recorder, closeJournal, err := r.openJournal(cmd)
	if err != nil {
		return err
	}
	defer closeJournal()

	var journal tasks.Journal
	if recorder != nil {
		journal = recorder
	}

	r.logger.Info("starting simulation", "name", sc.Name, "followers", sc.Followers, "run_for", sc.RunFor, "seed", sc.Seed)

	engine := tasks.NewSimulationEngine(r.logger, journal)
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.SyncPhase:
				r.logger.Debug(update.Message, "step", update.Step, "total", update.Total)
			default:
				r.logger.Info(update.Message, "phase", update.Phase)
			}
		}
	}()

	result, err := engine.Run(ctx, progressCh, sc)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	data, err := formatter.RenderSimulation(result, format, cmd.Duration("every"))
	if err != nil {
		return err
	}

	if output := cmd.String("output"); output != "" {
		path, err := formatter.WriteExport(data, output, sc.Name, format)
		if err != nil {
			return err
		}
		r.writePlain("✓ Report written to %s\n", path)
	} else if err := r.write(data); err != nil {
		return err
	}

	if recorder != nil && result.Session != nil {
		stats := recorder.Stats()
		r.writePlain("Journal session #%d (%s): %d samples recorded, %d dropped, %d failed\n",
			result.Session.Sequence(), result.Session.ID(), stats.Recorded, stats.Dropped, stats.Failed)
	}

	if cmd.Bool("strict") && !result.Converged {
		return fmt.Errorf("%w: max drift %.3fs at the end of %s", shared.ErrNotConverged, result.Final.MaxDrift(), sc.RunFor)
	}
	return nil
}
