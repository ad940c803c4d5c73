package relayserver

import (
	"errors"

	"bidvault/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup has no result.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned when an email is registered to another id.
	ErrEmailTaken = errors.New("email already registered")
	// ErrKeyMismatch is returned when an id is re-registered with another key.
	ErrKeyMismatch = errors.New("identity already registered with a different public key")
	// ErrGrantExists is returned for a second grant on the same pair.
	ErrGrantExists = errors.New("grant already exists")
	// ErrUnknownUser is returned for rows or grants naming an unregistered id.
	ErrUnknownUser = errors.New("unknown user")
)

// Store is the relay's persistence.
type Store interface {
	// RegisterIdentity stores reg. On ErrEmailTaken the result carries the
	// id that owns the email.
	RegisterIdentity(reg domain.Registration) (domain.RegistrationResult, error)
	GetIdentity(id domain.IdentityID) (domain.PublicIdentity, error)

	// PutObservation stores or overwrites one row keyed by observation id.
	PutObservation(rec domain.ObservationRecord) error
	// ListObservations returns a user's rows, newest first, at most limit.
	ListObservations(userID domain.IdentityID, limit int) ([]domain.ObservationRecord, error)

	CreateGrant(g domain.Grant) error
	ListGrants(granteeID domain.IdentityID) ([]domain.Grant, error)

	Close() error
}
