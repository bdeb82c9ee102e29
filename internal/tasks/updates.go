package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/vsync/internal/vsync"
)

// ProgressUpdate represents a progress event during a simulation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data, a [StepResult] during [SyncPhase]
}

// Operation phase enumeration
type Phase int

const (
	SetupPhase Phase = iota
	SyncPhase
	ScriptPhase
	FinishPhase
)

func (p Phase) String() string {
	switch p {
	case SetupPhase:
		return "setup"
	case SyncPhase:
		return "sync"
	case ScriptPhase:
		return "script"
	case FinishPhase:
		return "finish"
	default:
		return ""
	}
}

func setupUpdate(sc Scenario) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SetupPhase,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Starting %d followers (seed %d)...", sc.Followers, sc.Seed),
	}
}

func stepUpdate(step, total int, res StepResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncPhase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("t=%s max drift %.3fs", res.At.Round(time.Millisecond), res.MaxDrift),
		Data:    res,
	}
}

func scriptUpdate(step, total int, ev ScriptedEvent) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScriptPhase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s at %s", ev.Action, ev.At),
		Data:    ev,
	}
}

func finishUpdate(res *SimulationResult) ProgressUpdate {
	msg := "Did not converge"
	if res.Converged {
		msg = fmt.Sprintf("Converged after %s", res.ConvergedAt)
	}
	return ProgressUpdate{
		Phase:   FinishPhase,
		Step:    1,
		Total:   1,
		Message: msg,
		Data:    res.Final,
	}
}

// StatusData extracts the group status carried by an update, if any.
func StatusData(u ProgressUpdate) (vsync.Status, bool) {
	switch d := u.Data.(type) {
	case StepResult:
		return d.Status, true
	case vsync.Status:
		return d, true
	default:
		return vsync.Status{}, false
	}
}
