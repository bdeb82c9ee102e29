// Package models defines the persistent entities of the sync journal.
//
//   - [Session] : one sync loop run with the interval, rate bounds, policy and member count it used
//   - [Sample] : one loop decision for one follower (offset, raw and corrected rate, snapped/written flags)
//
// Both implement [Entry]. [Store] is the access contract for sessions, which are the only entries
// that are updated and deleted after creation.
package models
