// Package media defines the playable element contract that sync groups operate on.
//
// An [Element] is a [dom.Node] tagged VIDEO or AUDIO that exposes a position, a playback rate, a duration and
// play/pause state, and raises play, pause, seeked, ratechange and ended events.
//
// Two implementations ship with the module:
//   - [SimElement] : clock-driven element used by the simulator, the monitor and tests
//   - audio.Element : WAV playback through the system speaker
//
// [EventTarget] is the listener registry both embed. Event delivery always goes through a [Dispatcher]
// (normally the host loop), so an element never calls a listener from inside one of its own setters.
package media
