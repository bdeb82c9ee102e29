// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/desertthunder/vsync/internal/ui"
	"github.com/urfave/cli/v3"
)

// scenarioFlags override the [simulation] and [sync] config sections for one run.
func scenarioFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "label",
			Usage: "Session label used in reports and the journal",
		},
		&cli.IntFlag{
			Name:    "followers",
			Aliases: []string{"n"},
			Usage:   "Number of follower elements",
		},
		&cli.FloatFlag{
			Name:  "media-duration",
			Usage: "Length of the simulated media in seconds",
		},
		&cli.FloatFlag{
			Name:  "start-at",
			Usage: "Primary start position in seconds",
		},
		&cli.FloatFlag{
			Name:  "drift",
			Usage: "Maximum initial follower offset in seconds",
		},
		&cli.FloatFlag{
			Name:  "skew",
			Usage: "Maximum clock skew per follower, e.g. 0.004 for 0.4%",
		},
		&cli.IntFlag{
			Name:  "seed",
			Usage: "Random seed for offsets and skews",
		},
		&cli.DurationFlag{
			Name:  "interval",
			Usage: "Sync loop interval",
		},
		&cli.FloatFlag{
			Name:  "min-rate",
			Usage: "Minimum follower playback rate",
		},
		&cli.FloatFlag{
			Name:  "max-rate",
			Usage: "Maximum follower playback rate",
		},
		&cli.StringFlag{
			Name:  "policy",
			Usage: "Convergence policy (offset or remaining)",
		},
		&cli.BoolFlag{
			Name:  "exact-when-paused",
			Usage: "Hard sync followers while the primary is paused",
		},
		&cli.StringSliceFlag{
			Name:    "event",
			Aliases: []string{"e"},
			Usage:   "Scripted event AT:ACTION[:TARGET][=VALUE], e.g. 5s:pause, 8s:seek=30, 10s:stall:2=1.5",
		},
		journalFlag(),
	}
}

func journalFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "journal",
		Aliases: []string{"j"},
		Usage:   "Record sync decisions in the journal database (default from config)",
	}
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (text, csv or markdown)",
		Value:   "text",
	}
}

// setupCommand handles database setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize the journal database and run migrations",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Roll back the most recent migration",
			},
		},
		Action: r.SetupDatabase,
	}
}

// configCommand handles configuration files.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the example configuration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output path (default: the --config path)",
					},
				},
				Action: r.ConfigInit,
			},
			{
				Name:  "show",
				Usage: "Print the effective configuration",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yaml",
						Usage: "Print as YAML instead of TOML",
					},
				},
				Action: r.ConfigShow,
			},
		},
	}
}

// simulateCommand runs a scenario on a fake clock.
func simulateCommand(r *Runner) *cli.Command {
	flags := append(scenarioFlags(),
		&cli.DurationFlag{
			Name:  "run-for",
			Usage: "Simulated run time",
		},
		&cli.FloatFlag{
			Name:  "tolerance",
			Usage: "Drift in seconds counted as converged",
		},
		formatFlag(),
		&cli.DurationFlag{
			Name:  "every",
			Usage: "Report one row per period of simulated time (0 for every tick)",
			Value: time.Second,
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the report to a file instead of stdout",
		},
		&cli.BoolFlag{
			Name:  "strict",
			Usage: "Fail when the group has not converged by the end of the run",
		},
	)

	return &cli.Command{
		Name:    "simulate",
		Aliases: []string{"sim"},
		Usage:   "Run a deterministic simulation and print the drift report",
		Flags:   flags,
		Action:  r.Simulate,
	}
}

// watchCommand returns the live monitor over a simulated group.
func watchCommand(r *Runner) *cli.Command {
	flags := append(scenarioFlags(),
		&cli.DurationFlag{
			Name:  "refresh",
			Usage: "Monitor refresh period",
			Value: ui.DefaultRefresh,
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "Log file used while the monitor owns the terminal",
			Value: "./tmp/vsync-watch.log",
		},
	)

	return &cli.Command{
		Name:    "watch",
		Aliases: []string{"monitor", "ui"},
		Usage:   "Watch a simulated group converge in real time",
		Flags:   flags,
		Action:  r.Watch,
	}
}

// playCommand plays audio files in lockstep.
func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     "Play WAV files in sync through the system speaker",
		ArgsUsage: "FILE...",
		Arguments: []cli.Argument{
			&cli.StringArgs{
				Name: "files",
				Min:  1,
				Max:  -1,
			},
		},
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "primary",
				Usage: "1-based index of the primary file",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "sample-rate",
				Usage: "Speaker sample rate",
				Value: 44100,
			},
			&cli.StringFlag{
				Name:  "label",
				Usage: "Journal session label",
				Value: "playback",
			},
			&cli.BoolFlag{
				Name:    "monitor",
				Aliases: []string{"m"},
				Usage:   "Show the interactive monitor",
			},
			&cli.DurationFlag{
				Name:  "refresh",
				Usage: "Monitor refresh period",
				Value: ui.DefaultRefresh,
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Log file used while the monitor owns the terminal",
				Value: "./tmp/vsync-play.log",
			},
			journalFlag(),
		},
		Action: r.Play,
	}
}

// historyCommand browses the journal.
func historyCommand(r *Runner) *cli.Command {
	sessionArg := func() []cli.Argument {
		return []cli.Argument{
			&cli.StringArg{
				Name:      "session",
				UsageText: "Session number or ID",
			},
		}
	}

	return &cli.Command{
		Name:  "history",
		Usage: "Browse recorded sync sessions",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded sessions",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "policy",
						Usage: "Only sessions using this policy",
					},
					&cli.StringFlag{
						Name:  "label",
						Usage: "Only sessions with this label",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of sessions to return",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:      "show",
				Usage:     "Show a session and its samples",
				Arguments: sessionArg(),
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output a JSON summary",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:      "export",
				Usage:     "Export a session report",
				Arguments: sessionArg(),
				Flags: []cli.Flag{
					formatFlag(),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: session-N.ext)",
					},
				},
				Action: r.HistoryExport,
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a session",
				Arguments: sessionArg(),
				Action:    r.HistoryDelete,
			},
		},
	}
}
