// Package coordinator triggers and schedules sync runs.
//
// It sits on top of sync.Manager, which runs the phases of a single sync,
// and adds everything around a run:
//
//   - TriggerSync starts a detached run and returns as soon as it is accepted
//   - every attempt holds the user's distributed lock for its whole duration
//   - failed attempts are retried with a fixed delay; lock contention
//     abandons the run immediately
//   - the user's status record is updated at the start and end of each attempt
//   - the final outcome is recorded as metrics and published as an event
//   - Start polls the user store and triggers runs for users that are due
//
// Runs are never cancelled. A triggered run uses a context detached from
// the caller's, so Stop ends scheduling but in-flight runs continue; Wait
// blocks until they finish.
package coordinator
