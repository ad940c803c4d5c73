package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"fmt"

	"bidvault/internal/domain"
	"bidvault/internal/util/memzero"
)

// CreateGrant wraps key under the grantee's public key with RSA-OAEP/SHA-256.
// OAEP draws fresh randomness on every call, so wrapping the same key for
// the same grantee twice yields unrelated ciphertexts.
func CreateGrant(key domain.SymmetricKey, grantee domain.PublicKey) ([]byte, error) {
	if key.IsZero() {
		return nil, &KeyFormatError{Kind: "symmetric", Err: fmt.Errorf("all-zero key")}
	}
	pub, err := ParsePublicKey(grantee)
	if err != nil {
		return nil, err
	}
	return wrapRSA(pub, key[:])
}

// OpenGrant unwraps a grant with the grantee's private key. A mismatched
// key or corrupted grant fails with *GrantDecryptError; an unparsable
// private key fails with *KeyFormatError.
func OpenGrant(wrapped []byte, priv domain.PrivateKey) (domain.SymmetricKey, error) {
	raw, err := unwrapRSA(priv, wrapped)
	if err != nil {
		return domain.SymmetricKey{}, err
	}
	defer memzero.Zero(raw)
	if len(raw) != SymmetricKeyBytes {
		return domain.SymmetricKey{}, &GrantDecryptError{
			Err: fmt.Errorf("unwrapped key has %d bytes", len(raw)),
		}
	}
	var k domain.SymmetricKey
	copy(k[:], raw)
	return k, nil
}

func wrapRSA(pub *rsa.PublicKey, secret []byte) ([]byte, error) {
	return rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, secret, nil)
}

func unwrapRSA(priv domain.PrivateKey, wrapped []byte) ([]byte, error) {
	sk, err := ParsePrivateKey(priv)
	if err != nil {
		return nil, err
	}
	raw, err := rsa.DecryptOAEP(sha256.New(), nil, sk, wrapped, nil)
	if err != nil {
		return nil, &GrantDecryptError{Err: err}
	}
	return raw, nil
}
