// Package store provides file-based persistence for bidvault's local state.
//
// All local state lives in one namespaced JSON document (state.json) shared
// with other subsystems:
//
//	{ "identities": {...}, "pending_observations": [...],
//	  "current_identity_id": "...", "sealed_secrets": {...}, ... }
//
// Every writer re-reads the whole document, changes only its own keys and
// writes it back atomically (temp file + rename). Keys written by other
// subsystems are preserved byte for byte. Two processes writing at the same
// time can still race; the last writer wins.
//
// The package includes:
//   - Document, the shared read-merge-write document
//   - IdentityFileStore, public identity records and the current identity
//   - QueueFileStore, the pending observation queue
//   - PassphraseVault and KeyringVault, at-rest storage for identity secrets
package store
