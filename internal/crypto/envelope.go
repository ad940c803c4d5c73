package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"

	"bidvault/internal/domain"
	"bidvault/internal/util/memzero"
)

// IVBytes is the GCM nonce size used for every envelope.
const IVBytes = 12

// EncryptObservation serialises obs and seals it under key. The IV is drawn
// inside the call; there is no way to supply one.
func EncryptObservation(obs domain.Observation, key domain.SymmetricKey) (ciphertext, iv []byte, err error) {
	if obs == nil {
		return nil, nil, fmt.Errorf("encrypt observation: nil observation")
	}
	plain, err := json.Marshal(obs)
	if err != nil {
		return nil, nil, fmt.Errorf("encrypt observation: %w", err)
	}
	defer memzero.Zero(plain)
	iv, ciphertext, err = sealAEAD(key[:], plain)
	if err != nil {
		return nil, nil, err
	}
	return ciphertext, iv, nil
}

// DecryptObservation opens ciphertext with key. Authentication failures are
// *DecryptAuthError; a payload that authenticates but does not decode to a
// JSON object yields ErrMalformedPlaintext. Numbers decode as json.Number.
func DecryptObservation(ciphertext, iv []byte, key domain.SymmetricKey) (domain.Observation, error) {
	plain, err := openAEAD(key[:], iv, ciphertext)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(plain)
	return decodeObservation(plain)
}

// EncryptEnvelope seals obs under the owner's key using the student-key scheme.
func EncryptEnvelope(obs domain.Observation, key domain.SymmetricKey) (domain.Envelope, error) {
	ct, iv, err := EncryptObservation(obs, key)
	if err != nil {
		return domain.Envelope{}, err
	}
	return domain.Envelope{
		Scheme:     domain.SchemeStudentKey,
		Ciphertext: ct,
		IV:         iv,
		Encrypted:  true,
	}, nil
}

// decodeObservation keeps numbers as json.Number so integer fields survive
// the round trip exactly.
func decodeObservation(plain []byte) (domain.Observation, error) {
	var obs domain.Observation
	dec := json.NewDecoder(bytes.NewReader(plain))
	dec.UseNumber()
	if err := dec.Decode(&obs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPlaintext, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrMalformedPlaintext)
	}
	if obs == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedPlaintext)
	}
	return obs, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != SymmetricKeyBytes {
		return nil, &KeyFormatError{Kind: "symmetric", Err: fmt.Errorf("want %d bytes, got %d", SymmetricKeyBytes, len(key))}
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &KeyFormatError{Kind: "symmetric", Err: err}
	}
	return cipher.NewGCM(block)
}

func sealAEAD(key, plaintext []byte) (iv, ciphertext []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	iv = make([]byte, IVBytes)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, err
	}
	return iv, gcm.Seal(nil, iv, plaintext, nil), nil
}

func openAEAD(key, iv, ciphertext []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != IVBytes {
		return nil, &DecryptAuthError{Reason: fmt.Sprintf("iv has %d bytes", len(iv))}
	}
	if len(ciphertext) < gcm.Overhead() {
		return nil, &DecryptAuthError{Reason: "ciphertext truncated"}
	}
	plain, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, &DecryptAuthError{Reason: "wrong key or tampered data"}
	}
	return plain, nil
}
