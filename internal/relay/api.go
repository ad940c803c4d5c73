package relay

import "bidvault/internal/domain"

// Paths served by the relay.
const (
	PathIdentities   = "/identities"
	PathObservations = "/observations"
	PathBeacon       = "/observations/beacon"
	PathGrants       = "/grants"
	PathHealth       = "/health"
)

// HeaderAPIKey carries the static API key on every request.
const HeaderAPIKey = "X-API-Key"

// SubmitRequest is the body of POST /observations and the beacon.
type SubmitRequest struct {
	Observations []domain.ObservationRecord `json:"observations"`
}

// ObservationsResponse is the body of GET /observations.
type ObservationsResponse struct {
	Observations []domain.ObservationRecord `json:"observations"`
}

// GrantsResponse is the body of GET /grants.
type GrantsResponse struct {
	Grants []domain.Grant `json:"grants"`
}

// RegistrationResponse is the body returned by POST /identities, on success
// and on conflict.
type RegistrationResponse struct {
	domain.RegistrationResult
	Error string `json:"error,omitempty"`
}

// ErrorResponse is the body of any other failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
