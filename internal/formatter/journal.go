package formatter

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/vsync/internal/models"
	"github.com/desertthunder/vsync/internal/shared"
)

const timeLayout = "2006-01-02 15:04:05"

func sessionRow(s *models.Session) []string {
	stopped, elapsed := "open", "-"
	if s.StoppedAt() != nil {
		stopped = s.StoppedAt().Format(timeLayout)
		elapsed = s.Elapsed().Round(time.Millisecond).String()
	}
	return []string{
		strconv.Itoa(s.Sequence()),
		s.Label(),
		s.Policy(),
		s.Interval().String(),
		fmt.Sprintf("%.2f-%.2f", s.MinRate(), s.MaxRate()),
		strconv.Itoa(s.Members()),
		s.StartedAt().Format(timeLayout),
		stopped,
		elapsed,
	}
}

var sessionHeaders = []string{"#", "label", "policy", "interval", "rates", "members", "started", "stopped", "elapsed"}

// SessionsToText renders a session listing as a table.
func SessionsToText(sessions []*models.Session) []byte {
	if len(sessions) == 0 {
		return []byte("No sessions recorded.\n")
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, sessionRow(s))
	}
	return []byte(textTable(sessionHeaders, rows) + "\n")
}

func sampleRow(s *models.Sample, start time.Time) []string {
	kind := "rate"
	switch {
	case s.Exact():
		kind = "exact"
	case s.Snapped():
		kind = "snap"
	}
	return []string{
		"+" + s.RecordedAt().Sub(start).Round(time.Millisecond).String(),
		s.Element(),
		kind,
		fmt.Sprintf("%+.3f", s.Offset()),
		fmt.Sprintf("%.3f", s.RawRate()),
		shared.FormatRate(s.Rate()),
		strconv.FormatBool(s.Written()),
	}
}

var sampleHeaders = []string{"t", "element", "kind", "offset", "raw", "rate", "written"}

// SessionStats summarizes the samples of a session.
type SessionStats struct {
	Samples   int
	Written   int
	Exact     int
	MaxOffset float64
}

func sessionStats(samples []*models.Sample) SessionStats {
	var st SessionStats
	for _, s := range samples {
		st.Samples++
		if s.Written() {
			st.Written++
		}
		if s.Exact() {
			st.Exact++
		}
		off := s.Offset()
		if off < 0 {
			off = -off
		}
		st.MaxOffset = max(st.MaxOffset, off)
	}
	return st
}

func sessionHeader(buf *bytes.Buffer, s *models.Session, st SessionStats, md bool) {
	line := func(k, v string) {
		if md {
			buf.WriteString(fmt.Sprintf("- **%s**: %s\n", k, v))
		} else {
			buf.WriteString(fmt.Sprintf("%s: %s\n", k, v))
		}
	}
	row := sessionRow(s)
	line("ID", s.ID())
	line("Policy", s.Policy())
	line("Interval", row[3])
	line("Rates", row[4])
	line("Members", row[5])
	line("Started", row[6])
	line("Stopped", row[7])
	line("Elapsed", row[8])
	line("Samples", fmt.Sprintf("%d (%d written, %d exact)", st.Samples, st.Written, st.Exact))
	line("Max offset", fmt.Sprintf("%.3fs", st.MaxOffset))
}

// SessionToText renders one session with its samples.
func SessionToText(s *models.Session, samples []*models.Sample) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("Session #%d: %s\n", s.Sequence(), s.Label()))
	sessionHeader(&buf, s, sessionStats(samples), false)
	buf.WriteString("\n")

	if len(samples) == 0 {
		buf.WriteString("No samples recorded.\n")
		return buf.Bytes()
	}
	rows := make([][]string, 0, len(samples))
	for _, sample := range samples {
		rows = append(rows, sampleRow(sample, s.StartedAt()))
	}
	buf.WriteString(textTable(sampleHeaders, rows) + "\n")
	return buf.Bytes()
}

// SessionToMarkdown renders one session with its samples as Markdown.
func SessionToMarkdown(s *models.Session, samples []*models.Sample) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("# Session #%d: %s\n\n", s.Sequence(), s.Label()))
	sessionHeader(&buf, s, sessionStats(samples), true)
	buf.WriteString("\n## Samples\n\n")

	rows := make([][]string, 0, len(samples))
	for _, sample := range samples {
		rows = append(rows, sampleRow(sample, s.StartedAt()))
	}
	markdownTable(&buf, sampleHeaders, rows)
	return buf.Bytes()
}

// SamplesToCSV writes the samples of a session, one per row.
func SamplesToCSV(s *models.Session, samples []*models.Sample) ([]byte, error) {
	headers := []string{"session", "sequence", "recorded_at", "element", "offset", "raw_rate", "rate", "snapped", "written", "exact"}
	rows := make([][]string, 0, len(samples))
	for _, sample := range samples {
		rows = append(rows, []string{
			s.ID(),
			strconv.Itoa(s.Sequence()),
			sample.RecordedAt().Format(time.RFC3339Nano),
			sample.Element(),
			strconv.FormatFloat(sample.Offset(), 'f', 4, 64),
			strconv.FormatFloat(sample.RawRate(), 'f', 4, 64),
			strconv.FormatFloat(sample.Rate(), 'f', 2, 64),
			strconv.FormatBool(sample.Snapped()),
			strconv.FormatBool(sample.Written()),
			strconv.FormatBool(sample.Exact()),
		})
	}
	return writeCSV(headers, rows)
}

// RenderSession renders a session in format f.
func RenderSession(s *models.Session, samples []*models.Sample, f Format) ([]byte, error) {
	switch f {
	case CSV:
		return SamplesToCSV(s, samples)
	case Markdown:
		return SessionToMarkdown(s, samples), nil
	default:
		return SessionToText(s, samples), nil
	}
}
