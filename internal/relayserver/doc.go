// Package relayserver is a development relay for bidvault: a gin HTTP API
// over a badger key-value store.
//
// It stores what the client sends and nothing more. Observation rows are
// ciphertext plus cleartext metadata; grants are opaque wrapped keys;
// identities carry only public keys. The server cannot decrypt anything it
// holds.
//
// Key layout in badger (parts separated by NUL):
//
//	identity\x00<id>                      -> identity record
//	email\x00<lowercased email>           -> id
//	obs\x00<user_id>\x00<observation_id>  -> observation row
//	grant\x00<grantee_id>\x00<grantor_id> -> grant
package relayserver
