package syncengine

import (
	"time"

	"bidvault/internal/relay"
)

// State is the engine's position in the sync state machine.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateError   State = "error"
	StateOffline State = "offline"
)

// Status is what callers render. It is a snapshot; later changes arrive
// through Subscribe.
type Status struct {
	State        State
	IsSyncing    bool
	HasError     bool
	IsOffline    bool
	PendingCount int
	RetryCount   int
	LastError    error
	LastSyncAt   time.Time
	// Conflict is set once registration hit an email owned by another id.
	// Sync stays blocked until the caller resolves it.
	Conflict *relay.RegistrationConflictError
}

func (s *Status) derive() {
	s.IsSyncing = s.State == StateSyncing
	s.HasError = s.State == StateError
	s.IsOffline = s.State == StateOffline
}
