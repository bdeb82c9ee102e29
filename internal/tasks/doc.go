// Package tasks runs sync groups against simulated media with real-time progress reporting.
//
// # Scenarios
//
// A [Scenario] names the number of followers, the media length, how long to run, how far the followers start
// off (MaxInitialDrift) and how fast their decoders drift (Skew). Draws come from a PCG source seeded with
// Scenario.Seed, so a scenario always produces the same run. [ScriptedEvent]s pause, play or seek the primary,
// stall a follower or switch the primary mid-run.
//
// # Scenes
//
// [NewScene] builds the [media.SimElement]s and the [vsync.Group] on any clock. The engine uses a fake clock;
// `vsync watch` uses a real one and runs the host loop in the background.
//
// # Progress Reporting
//
// [SimulationEngine.Run] sends a [ProgressUpdate] per phase and per sync interval. Updates use select with
// default so a slow reader never stalls the run.
//
// # Journal
//
// The optional [Journal] (repositories.JournalRecorder) receives every loop adjustment and wraps the run in
// a session.
package tasks
