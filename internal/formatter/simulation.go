package formatter

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/vsync/internal/shared"
	"github.com/desertthunder/vsync/internal/tasks"
)

// RenderSimulation renders res in format f. every thins the drift table to one row per every of simulated
// time; zero keeps every step.
func RenderSimulation(res *tasks.SimulationResult, f Format, every time.Duration) ([]byte, error) {
	switch f {
	case CSV:
		return SimulationToCSV(res)
	case Markdown:
		return SimulationToMarkdown(res, every)
	default:
		return SimulationToText(res, every)
	}
}

func driftHeaders(res *tasks.SimulationResult) []string {
	headers := append([]string{"t", "max drift"}, res.Labels[1:]...)
	return append(headers, "loop")
}

// driftRows lists follower drift by label so a primary switch does not shift columns.
func driftRows(res *tasks.SimulationResult, every time.Duration) [][]string {
	var rows [][]string
	next := time.Duration(0)
	for i, step := range res.Steps {
		last := i == len(res.Steps)-1
		if every > 0 && step.At < next && !last {
			continue
		}
		next = step.At + every

		byLabel := make(map[string]float64, len(step.Status.Members))
		for _, m := range step.Status.Members {
			byLabel[m.Label] = m.Drift
		}

		row := []string{step.At.Round(time.Millisecond).String(), fmt.Sprintf("%.3f", step.MaxDrift)}
		for _, label := range res.Labels[1:] {
			row = append(row, fmt.Sprintf("%+.3f", byLabel[label]))
		}
		loop := "stopped"
		if step.Running {
			loop = "running"
		}
		rows = append(rows, append(row, loop))
	}
	return rows
}

func convergenceLine(res *tasks.SimulationResult) string {
	if !res.Converged {
		return fmt.Sprintf("did not converge within %.3fs", res.Scenario.Tolerance)
	}
	return fmt.Sprintf("converged within %.3fs after %s", res.Scenario.Tolerance, res.ConvergedAt)
}

// SimulationToText renders a summary followed by the drift table.
func SimulationToText(res *tasks.SimulationResult, every time.Duration) ([]byte, error) {
	var buf bytes.Buffer
	sc := res.Scenario

	buf.WriteString(fmt.Sprintf("Simulation: %s\n", sc.Name))
	buf.WriteString(fmt.Sprintf("Followers: %d  Seed: %d  Skew: ±%.4f  Run: %s\n", sc.Followers, sc.Seed, sc.Skew, sc.RunFor))
	buf.WriteString(fmt.Sprintf("Initial drift: %.3fs  Max drift: %.3fs  Final drift: %.3fs\n",
		res.InitialDrift, res.MaxDrift, res.Final.MaxDrift()))
	buf.WriteString(fmt.Sprintf("Rate writes: %d  Exact syncs: %d\n", res.RateWrites, res.ExactSyncs))
	buf.WriteString(convergenceLine(res) + "\n")
	if res.Session != nil {
		buf.WriteString(fmt.Sprintf("Journal session: #%d (%s)\n", res.Session.Sequence(), res.Session.ID()))
	}
	buf.WriteString("\n")

	buf.WriteString(textTable(driftHeaders(res), driftRows(res, every)))
	buf.WriteString("\n")

	return buf.Bytes(), nil
}

// SimulationToCSV writes one row per step and member.
func SimulationToCSV(res *tasks.SimulationResult) ([]byte, error) {
	headers := []string{"step", "at_ms", "element", "primary", "current_time", "playback_rate", "drift", "paused", "loop_running"}
	var rows [][]string
	for _, step := range res.Steps {
		for _, m := range step.Status.Members {
			rows = append(rows, []string{
				strconv.Itoa(step.Step),
				strconv.FormatInt(step.At.Milliseconds(), 10),
				m.Label,
				strconv.FormatBool(m.Primary),
				strconv.FormatFloat(m.CurrentTime, 'f', 4, 64),
				strconv.FormatFloat(m.PlaybackRate, 'f', 2, 64),
				strconv.FormatFloat(m.Drift, 'f', 4, 64),
				strconv.FormatBool(m.Paused),
				strconv.FormatBool(step.Running),
			})
		}
	}
	return writeCSV(headers, rows)
}

// SimulationToMarkdown renders the summary as a list followed by the drift table.
func SimulationToMarkdown(res *tasks.SimulationResult, every time.Duration) ([]byte, error) {
	var buf bytes.Buffer
	sc := res.Scenario

	buf.WriteString(fmt.Sprintf("# %s\n\n", sc.Name))
	buf.WriteString(fmt.Sprintf("- **Followers**: %d\n", sc.Followers))
	buf.WriteString(fmt.Sprintf("- **Seed**: %d\n", sc.Seed))
	buf.WriteString(fmt.Sprintf("- **Run**: %s\n", sc.RunFor))
	buf.WriteString(fmt.Sprintf("- **Initial drift**: %.3fs\n", res.InitialDrift))
	buf.WriteString(fmt.Sprintf("- **Final drift**: %.3fs\n", res.Final.MaxDrift()))
	buf.WriteString(fmt.Sprintf("- **Rate writes**: %d\n", res.RateWrites))
	buf.WriteString(fmt.Sprintf("- **Result**: %s\n\n", convergenceLine(res)))

	if len(res.Final.Members) > 0 {
		buf.WriteString("## Final state\n\n")
		var rows [][]string
		for _, m := range res.Final.Members {
			role := "follower"
			if m.Primary {
				role = "primary"
			}
			rows = append(rows, []string{m.Label, role, shared.FormatSeconds(m.CurrentTime), shared.FormatRate(m.PlaybackRate), fmt.Sprintf("%+.3f", m.Drift)})
		}
		markdownTable(&buf, []string{"element", "role", "time", "rate", "drift"}, rows)
		buf.WriteString("\n")
	}

	buf.WriteString("## Drift\n\n")
	markdownTable(&buf, driftHeaders(res), driftRows(res, every))

	return buf.Bytes(), nil
}
