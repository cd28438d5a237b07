// Package sync runs a single user's incremental sync.
//
// A run moves through a fixed sequence of phases:
//
//	Windowing → FetchingStatistics → WritingStatistics →
//	FetchingActivities → WritingActivities → Finalizing
//
// Windowing computes the range of upstream data to read from the user's
// cursor (LastSyncTS) and clears the calendar over that range. The
// statistics phase merges the daily time series into one row per day and
// writes the rows at or after the cursor. The activities phase runs only
// when statistics succeeded; it follows the paginated activity log and
// writes every flattened activity. The cursor moves to the run's start time
// only when both phases succeed, so a partial run is repeated in full.
//
// Each phase recovers its own errors and panics and reports a boolean; the
// outcome of a partial run is a *SyncFailure naming which phases succeeded.
//
// Locking, retries, status bookkeeping and scheduling live in the
// coordinator subpackage.
package sync
