package interfaces

import domaintypes "bidvault/internal/domain/types"

// IdentityStore persists the public part of local identities and which one
// is current.
type IdentityStore interface {
	SaveIdentity(record domaintypes.IdentityRecord) error
	LoadIdentity(id domaintypes.IdentityID) (domaintypes.IdentityRecord, bool, error)
	ListIdentities() ([]domaintypes.IdentityRecord, error)
	SetCurrentIdentityID(id domaintypes.IdentityID) error
	CurrentIdentityID() (domaintypes.IdentityID, bool, error)
}

// SecretVault keeps identity secrets (symmetric key, private key) at rest.
type SecretVault interface {
	PutSecrets(id domaintypes.IdentityID, secrets domaintypes.IdentitySecrets) error
	GetSecrets(id domaintypes.IdentityID) (domaintypes.IdentitySecrets, error)
}

// QueueStore is the durable pending-observation queue.
type QueueStore interface {
	// Enqueue adds entry, replacing any entry with the same observation id.
	Enqueue(entry domaintypes.PendingEntry) error
	// Replace overwrites the stored entry with the same observation id.
	// It reports false when no such entry exists.
	Replace(entry domaintypes.PendingEntry) (bool, error)
	// List returns a defensive copy of the queue.
	List() ([]domaintypes.PendingEntry, error)
	// RemoveByIDs removes entries whose observation id is listed. Unknown ids
	// are ignored. It returns how many entries were removed.
	RemoveByIDs(ids []domaintypes.ObservationID) (int, error)
	// Clear drops every entry.
	Clear() error
}
