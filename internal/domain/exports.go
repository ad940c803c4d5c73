package domain

import (
	interfaces "bidvault/internal/domain/interfaces"
	types "bidvault/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	IdentityID         = types.IdentityID
	ObservationID      = types.ObservationID
	SessionID          = types.SessionID
	Fingerprint        = types.Fingerprint
	Role               = types.Role
	SymmetricKey       = types.SymmetricKey
	PublicKey          = types.PublicKey
	PrivateKey         = types.PrivateKey
	Identity           = types.Identity
	IdentityRecord     = types.IdentityRecord
	IdentitySecrets    = types.IdentitySecrets
	PublicIdentity     = types.PublicIdentity
	Registration       = types.Registration
	RegistrationResult = types.RegistrationResult
	Grant              = types.Grant
	Observation        = types.Observation
	Metadata           = types.Metadata
	EnvelopeScheme     = types.EnvelopeScheme
	WrappedKey         = types.WrappedKey
	Envelope           = types.Envelope
	PendingEntry       = types.PendingEntry
	ObservationRecord  = types.ObservationRecord
	SubmitError        = types.SubmitError
	SubmitResult       = types.SubmitResult
	Session            = types.Session
)

// Role and scheme constants re-exported for callers.
const (
	RoleStudent = types.RoleStudent
	RoleTeacher = types.RoleTeacher
	RoleAdmin   = types.RoleAdmin

	SchemeStudentKey = types.SchemeStudentKey
	SchemeRecipients = types.SchemeRecipients
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	IdentityStore      = interfaces.IdentityStore
	SecretVault        = interfaces.SecretVault
	QueueStore         = interfaces.QueueStore
	RelayClient        = interfaces.RelayClient
	IdentityService    = interfaces.IdentityService
	GrantService       = interfaces.GrantService
	ObservationService = interfaces.ObservationService
	ViewerService      = interfaces.ViewerService
)
