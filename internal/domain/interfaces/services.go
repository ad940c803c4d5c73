package interfaces

import (
	"context"

	domaintypes "bidvault/internal/domain/types"
)

// IdentityService creates, loads and registers local identities.
type IdentityService interface {
	CreateIdentity(role domaintypes.Role, email string) (
		domaintypes.Identity,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity(id domaintypes.IdentityID) (domaintypes.Identity, error)
	CurrentIdentity() (domaintypes.Identity, error)
	EnsureRegistered(ctx context.Context, id domaintypes.IdentityID) error
}

// GrantService lets a student share their key with a viewer.
type GrantService interface {
	Share(ctx context.Context, viewer domaintypes.IdentityID) (domaintypes.Grant, error)
}

// ObservationService captures observations into the pending queue.
type ObservationService interface {
	Record(ctx context.Context, observation domaintypes.Observation) (domaintypes.Metadata, error)
}

// ViewerService decrypts other identities' observations via grants.
type ViewerService interface {
	SymmetricKeyFor(ctx context.Context, grantor domaintypes.IdentityID) (domaintypes.SymmetricKey, error)
	DecryptForViewer(
		ctx context.Context,
		envelope domaintypes.Envelope,
		grantor domaintypes.IdentityID,
	) (domaintypes.Observation, error)
}
