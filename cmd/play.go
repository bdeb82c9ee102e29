package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vsync/internal/host"
	"github.com/desertthunder/vsync/internal/media"
	"github.com/desertthunder/vsync/internal/media/audio"
	"github.com/desertthunder/vsync/internal/shared"
	"github.com/desertthunder/vsync/internal/ui"
	"github.com/desertthunder/vsync/internal/vsync"
	"github.com/faiface/beep"
	"github.com/urfave/cli/v3"
)

// Play plays WAV files in lockstep through the system speaker until the primary ends or the user interrupts.
//
// The first file is the primary unless --primary names another (1-based).
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	files := cmd.StringArgs("files")
	if len(files) == 0 {
		return fmt.Errorf("%w: at least one WAV file is required", shared.ErrMissingArgument)
	}

	primary := cmd.Int("primary")
	if primary < 1 || primary > len(files) {
		return fmt.Errorf("%w: --primary must be between 1 and %d", shared.ErrInvalidFlag, len(files))
	}

	monitor := cmd.Bool("monitor")
	if monitor {
		fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		r.SetLogger(fileLogger)
	}

	out, err := audio.Speaker(beep.SampleRate(cmd.Int("sample-rate")))
	if err != nil {
		return err
	}

	loop := host.NewLoop(r.clock)
	elements := make([]media.Element, 0, len(files))
	for i, path := range files {
		el, err := audio.Open(path, trackID(i, path), out, loop)
		if err != nil {
			return err
		}
		defer el.Close()

		r.logger.Debug("opened track", "path", path, "id", el.ID(), "duration", shared.FormatSeconds(el.Duration()))
		elements = append(elements, el)
	}

	journal, closeJournal, err := r.openJournal(cmd)
	if err != nil {
		return err
	}
	defer closeJournal()

	opts, err := vsync.OptionsFromConfig(r.config.Sync)
	if err != nil {
		return err
	}
	opts.Elements = elements
	opts.Primary = elements[primary-1]
	opts.Host = loop
	opts.Logger = r.logger
	if journal != nil {
		opts.Recorder = journal
	}

	group, err := vsync.New(opts)
	if err != nil {
		return err
	}
	defer group.Close()

	label := cmd.String("label")
	if journal != nil {
		if _, err := journal.Begin(label, group.Snapshot(), r.clock.Now()); err != nil {
			return err
		}
		defer func() {
			if err := journal.End(r.clock.Now(), group.Len()); err != nil {
				r.logger.Error("failed to close journal session", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, el := range elements {
		el.AddEventListener(media.EventEnded, func(ev media.Event) {
			if ev.Target == group.Primary() {
				r.logger.Info("primary ended", "element", media.Label(ev.Target))
				stop()
			}
		})
	}

	group.Play(nil)

	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.Error("event loop stopped", "error", err)
		}
	}()

	r.logger.Info("playback started", "files", len(files), "primary", media.Label(group.Primary()))

	if monitor {
		model := ui.NewModel(ctx, group, label, cmd.Duration("refresh"))
		if _, err := tea.NewProgram(model).Run(); err != nil {
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	}

	r.writePlain("▶ Playing %d file(s), primary %s. Press Ctrl+C to stop.\n", len(files), media.Label(group.Primary()))
	<-ctx.Done()
	group.Pause(nil)
	if p := group.Primary(); p != nil {
		r.writePlain("■ Stopped at %s\n", shared.FormatSeconds(p.CurrentTime()))
	}
	return nil
}

// trackID derives an element id from a file name, e.g. "02 Intro.wav" becomes "track-2-02-intro".
func trackID(i int, path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
			return c
		case c >= 'A' && c <= 'Z':
			return c + ('a' - 'A')
		default:
			return '-'
		}
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		return fmt.Sprintf("track-%d", i+1)
	}
	return fmt.Sprintf("track-%d-%s", i+1, base)
}
