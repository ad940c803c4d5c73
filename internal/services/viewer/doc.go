// Package viewer decrypts other identities' observations on behalf of a
// teacher or admin.
//
// Keys come from grants: the viewer fetches the grant addressed to it,
// opens it with its private key and caches the grantor's symmetric key in
// memory for the life of the process. Callers can tell "no sharing
// permission" (ErrNoGrant) from "grant present but unusable"
// (*crypto.GrantDecryptError) and from tampered ciphertext
// (*crypto.DecryptAuthError).
package viewer
