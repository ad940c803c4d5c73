package interfaces

import (
	"context"

	domaintypes "bidvault/internal/domain/types"
)

// RelayClient is how we talk to the untrusted relay server, all with context.
type RelayClient interface {
	RegisterIdentity(
		ctx context.Context,
		registration domaintypes.Registration,
	) (domaintypes.RegistrationResult, error)
	FetchIdentity(ctx context.Context, id domaintypes.IdentityID) (domaintypes.PublicIdentity, error)

	SubmitObservations(
		ctx context.Context,
		records []domaintypes.ObservationRecord,
	) (domaintypes.SubmitResult, error)
	FetchObservations(
		ctx context.Context,
		userID domaintypes.IdentityID,
		limit int,
	) ([]domaintypes.ObservationRecord, error)
	// Beacon is a best-effort submission used at process exit. The relay
	// does not report per-row results.
	Beacon(ctx context.Context, records []domaintypes.ObservationRecord) error

	CreateGrant(ctx context.Context, grant domaintypes.Grant) error
	FetchGrants(ctx context.Context, granteeID domaintypes.IdentityID) ([]domaintypes.Grant, error)
}
