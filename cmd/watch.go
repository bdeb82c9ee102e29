package main

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vsync/internal/shared"
	"github.com/desertthunder/vsync/internal/tasks"
	"github.com/desertthunder/vsync/internal/ui"
	"github.com/desertthunder/vsync/internal/vsync"
	"github.com/urfave/cli/v3"
)

// Watch runs a simulated group in real time under the interactive monitor.
//
// Scripted --event flags fire at their offsets from the start of the session.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	sc, err := r.scenario(cmd)
	if err != nil {
		return err
	}

	journal, closeJournal, err := r.openJournal(cmd)
	if err != nil {
		return err
	}
	defer closeJournal()

	var rec vsync.Recorder
	if journal != nil {
		rec = journal
	}

	scene, err := tasks.NewScene(sc, r.clock, rec)
	if err != nil {
		return err
	}
	defer scene.Group.Close()

	if journal != nil {
		if _, err := journal.Begin(sc.Name, scene.Group.Snapshot(), r.clock.Now()); err != nil {
			return err
		}
		defer func() {
			if err := journal.End(r.clock.Now(), scene.Group.Len()); err != nil {
				r.logger.Error("failed to close journal session", "error", err)
			}
		}()
	}

	scene.Start()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		if err := scene.Loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("event loop stopped", "error", err)
		}
	}()

	for _, ev := range sc.Events {
		timer := r.clock.AfterFunc(ev.At, func() {
			scene.Loop.Post(func() {
				if err := scene.Apply(ev); err != nil {
					r.logger.Warn("scripted event failed", "event", ev, "error", err)
					return
				}
				r.logger.Info("scripted event applied", "event", ev)
			})
		})
		defer timer.Stop()
	}

	r.logger.Info("monitor started", "name", sc.Name, "followers", sc.Followers)

	model := ui.NewModel(ctx, scene.Group, sc.Name, cmd.Duration("refresh"))
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
