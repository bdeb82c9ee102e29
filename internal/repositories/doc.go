// Package repositories implements SQLite persistence for the sync journal.
//
// Sessions get atomic sequence numbers for human-readable ordering and are soft deleted via deleted_at.
// Samples are append-only and removed together with their session.
//
// Key Implementations:
//   - [SessionRepository] : one row per sync loop run, listed by sequence
//   - [SampleRepository] : loop decisions belonging to a session
//   - [JournalRecorder] : a vsync.Recorder that writes sampled decisions through both repositories
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
