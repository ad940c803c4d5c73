// Package crypto exposes the primitives bidvault builds on.
//
// Contents
//
//   - Symmetric student keys and RSA viewer key pairs, with base64 export and
//     import (NewSymmetricKey, GenerateKeyPair, Import*/Export*, ValidateKeyPair)
//   - Sharing grants: a symmetric key wrapped under a viewer's public key
//     (CreateGrant, OpenGrant)
//   - The observation envelope codec, AES-256-GCM with a fresh 96-bit IV per
//     call (EncryptObservation, DecryptObservation)
//   - The multi-recipient envelope scheme, where a one-time content key is
//     wrapped for the owner and for each viewer (SealForRecipients, OpenAsOwner,
//     OpenAsRecipient, Reseal)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Errors
//
// Failures are typed so callers can tell them apart: *KeyFormatError for bad
// key material, *GrantDecryptError when a wrapped key cannot be opened,
// *DecryptAuthError when AEAD authentication fails, and ErrMalformedPlaintext
// when authentication succeeded but the payload is not an observation. Each
// typed error matches its sentinel with errors.Is.
//
// # Notes
//
// Nothing in this package logs. Callers must not log keys, IVs or plaintext.
package crypto
