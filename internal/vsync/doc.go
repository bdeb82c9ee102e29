// Package vsync keeps several media elements playing in step with one primary element.
//
// # Group Registry
//
// A [Group] holds an ordered, duplicate free set of [media.Element] members and a primary. The first member
// added to an empty group becomes primary, and removing the primary elects the earliest remaining member.
// Element input goes through [dom.Normalize], so members can be given as elements, selectors, collections or
// nested slices.
//
// # Event Relay
//
// The group listens on the primary for play, pause and seeked and repeats the action on every other member.
// Members driven by the group raise their own events; only the primary is listened to, so those echoes are
// never relayed. When the caller drives the primary itself it can register the primary with
// [Group.AddIgnoreNextEvent] so that the resulting event is swallowed once.
//
// # Rate Sync Loop
//
// While playing, an interval on the group's [host.Scheduler] measures each follower against the primary and
// nudges its playback rate through a [Policy]:
//
//   - [OffsetPolicy] : rate = offset/2 + 1, converging on the primary's position (default)
//   - [RemainingPolicy] : rate = follower remaining / primary remaining, converging on a common end
//
// Rates are clamped to [minimum, maximum], rounded to two decimals and snapped to 1 inside (0.99, 1.01).
// Starting the loop always begins with a hard sync that copies the primary's time and rate.
//
// # Concurrency
//
// Element events and ticks run on the host loop one at a time. Every exported method takes the group
// mutex, so callers on other goroutines (a TUI, a CLI) never overlap a tick or a relayed event.
// Elements must raise events asynchronously; see [media.Element].
package vsync
