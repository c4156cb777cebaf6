package models

import "time"

type SyncState string

const (
	SyncStateLoading SyncState = "loading"
	SyncStateReady   SyncState = "ready"
	SyncStateFailed  SyncState = "failed"
)

// SyncStatus is the observable outcome of the latest synchronization pass.
type SyncStatus struct {
	State       SyncState  `json:"state"`
	Error       string     `json:"error,omitempty"`
	Items       int        `json:"items"`
	Fetched     bool       `json:"fetched"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Done reports whether the pass has signaled completion.
func (s SyncStatus) Done() bool {
	return s.State == SyncStateReady || s.State == SyncStateFailed
}
