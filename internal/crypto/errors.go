package crypto

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyFormat matches every *KeyFormatError.
	ErrKeyFormat = errors.New("malformed key material")
	// ErrGrantDecrypt matches every *GrantDecryptError.
	ErrGrantDecrypt = errors.New("wrapped key could not be opened")
	// ErrDecryptAuth matches every *DecryptAuthError.
	ErrDecryptAuth = errors.New("ciphertext failed authentication")
	// ErrMalformedPlaintext is returned when decryption succeeded but the
	// plaintext is not a JSON object.
	ErrMalformedPlaintext = errors.New("decrypted payload is not a valid observation")
	// ErrNotRecipient is returned when an envelope carries no wrapped key for
	// the caller.
	ErrNotRecipient = errors.New("envelope has no key wrapped for this identity")
)

// KeyFormatError reports key material that failed to decode or validate.
type KeyFormatError struct {
	Kind string // "symmetric", "public", "private" or "keypair"
	Err  error
}

func (e *KeyFormatError) Error() string {
	return fmt.Sprintf("%s key: %v: %v", e.Kind, ErrKeyFormat, e.Err)
}

func (e *KeyFormatError) Unwrap() error { return e.Err }

// Is reports whether target is ErrKeyFormat.
func (e *KeyFormatError) Is(target error) bool { return target == ErrKeyFormat }

// GrantDecryptError reports a wrapped key that exists but cannot be opened
// with the supplied private key, because of a key mismatch or corruption.
type GrantDecryptError struct {
	Err error
}

func (e *GrantDecryptError) Error() string {
	return fmt.Sprintf("%v: %v", ErrGrantDecrypt, e.Err)
}

func (e *GrantDecryptError) Unwrap() error { return e.Err }

// Is reports whether target is ErrGrantDecrypt.
func (e *GrantDecryptError) Is(target error) bool { return target == ErrGrantDecrypt }

// DecryptAuthError reports an AEAD tag verification failure: wrong key,
// tampering, or truncated data. It is security relevant and never retried.
type DecryptAuthError struct {
	Reason string
}

func (e *DecryptAuthError) Error() string {
	if e.Reason == "" {
		return ErrDecryptAuth.Error()
	}
	return fmt.Sprintf("%v: %s", ErrDecryptAuth, e.Reason)
}

// Is reports whether target is ErrDecryptAuth.
func (e *DecryptAuthError) Is(target error) bool { return target == ErrDecryptAuth }

// IsCryptoFailure reports whether err is one of the cryptographic failures
// that must be surfaced to the caller instead of retried.
func IsCryptoFailure(err error) bool {
	return errors.Is(err, ErrKeyFormat) ||
		errors.Is(err, ErrGrantDecrypt) ||
		errors.Is(err, ErrDecryptAuth) ||
		errors.Is(err, ErrMalformedPlaintext)
}
