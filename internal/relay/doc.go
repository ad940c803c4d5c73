// Package relay provides an HTTP implementation of the domain.RelayClient
// interface used by bidvault, plus the JSON wire shapes shared with the
// relay server.
//
// The relay is untrusted. It stores ciphertext rows with cleartext metadata,
// public identities and wrapped-key grants, and hands them back on request.
// It never sees a symmetric key or plaintext observation.
//
// Every request carries the configured API key in the X-API-Key header and
// honours the caller's context. Failures are classified so the sync engine
// can decide whether to retry:
//   - transport errors and 5xx/429 responses are *NetworkError (ErrNetwork)
//   - a registration whose email belongs to another id is
//     *RegistrationConflictError (ErrRegistrationConflict)
//   - 404 is ErrNotFound, a duplicate grant is ErrGrantExists
//   - any other non-2xx status is ErrRejected
package relay
