// Package main runs the bidvault relay: a Gin HTTP server backed by Badger
// that stores ciphertext rows, public identities and sharing grants. It
// never sees plaintext or private keys.
//
// HTTP API
//
//	GET  /health
//	    Liveness probe; no API key required.
//
//	POST /identities
//	    Register {id, role, email, public_key}. 409 with existing_id when the
//	    email belongs to another id.
//
//	GET  /identities/{id}
//	    Public identity (role, public key).
//
//	POST /observations
//	    Store a batch; the response lists stored_ids and per-row errors.
//
//	GET  /observations?user_id=U&limit=N
//	    Newest rows first, N defaults to 100.
//
//	POST /observations/beacon
//	    Fire-and-forget batch sent at client exit.
//
//	POST /grants, GET /grants?grantee_id=V
//	    At most one grant per (grantor, grantee); duplicates get 409.
//
// Environment
//
//   - BIDVAULT_RELAY_ADDR  listen address (default :8080)
//   - BIDVAULT_RELAY_DATA  Badger directory; empty keeps data in memory
//   - BIDVAULT_API_KEY     required X-API-Key value; empty disables the check
//   - BIDVAULT_LOG_LEVEL   logrus level (default info)
package main
