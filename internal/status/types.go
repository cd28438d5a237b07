// Package status defines the phases and status record of a user's sync runs.
package status

import "time"

// SyncPhase represents the current phase of a synchronization run
type SyncPhase string

const (
	// SyncPhaseIdle means no sync has run yet
	SyncPhaseIdle SyncPhase = "Idle"

	// SyncPhaseAcquiringLock means the run is waiting for the per-user lock
	SyncPhaseAcquiringLock SyncPhase = "AcquiringLock"

	// SyncPhaseWindowing means the run is computing its window and clearing the calendar
	SyncPhaseWindowing SyncPhase = "Windowing"

	// SyncPhaseFetchingStatistics means daily statistics are being fetched and merged
	SyncPhaseFetchingStatistics SyncPhase = "FetchingStatistics"

	// SyncPhaseWritingStatistics means merged statistics rows are being written
	SyncPhaseWritingStatistics SyncPhase = "WritingStatistics"

	// SyncPhaseFetchingActivities means activity pages are being fetched and flattened
	SyncPhaseFetchingActivities SyncPhase = "FetchingActivities"

	// SyncPhaseWritingActivities means activity rows are being written
	SyncPhaseWritingActivities SyncPhase = "WritingActivities"

	// SyncPhaseFinalizing means the sync cursor is being persisted
	SyncPhaseFinalizing SyncPhase = "Finalizing"

	// SyncPhaseSuccess means the last run completed both phases
	SyncPhaseSuccess SyncPhase = "Success"

	// SyncPhaseFailed means the last run failed
	SyncPhaseFailed SyncPhase = "Failed"

	// SyncPhaseSyncing means a run has been accepted and is in progress
	SyncPhaseSyncing SyncPhase = "Syncing"
)

// IsTerminal reports whether the phase ends a run
func (p SyncPhase) IsTerminal() bool {
	return p == SyncPhaseSuccess || p == SyncPhaseFailed
}

// SyncStatus represents the observable state of a user's synchronization
type SyncStatus struct {
	// Phase represents the current synchronization phase
	Phase SyncPhase `json:"phase" yaml:"phase"`

	// Message provides additional information about the sync status
	Message string `json:"message,omitempty" yaml:"message,omitempty"`

	// LastAttempt is the timestamp of the last sync attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty" yaml:"lastAttempt,omitempty"`

	// AttemptCount is the number of sync attempts since last success
	AttemptCount int `json:"attemptCount,omitempty" yaml:"attemptCount,omitempty"`
}
