package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"

	"bidvault/internal/domain"
	"bidvault/internal/util/memzero"
)

const (
	// SymmetricKeyBytes is the size of a student key (AES-256).
	SymmetricKeyBytes = 32
	// RSAKeyBits is the modulus size of viewer key pairs.
	RSAKeyBits = 2048
)

var b64 = base64.StdEncoding.Strict()

// NewSymmetricKey returns a fresh random 256-bit key.
func NewSymmetricKey() (domain.SymmetricKey, error) {
	var k domain.SymmetricKey
	if _, err := rand.Read(k[:]); err != nil {
		return domain.SymmetricKey{}, err
	}
	return k, nil
}

// GenerateKeyPair returns a fresh RSA key pair as PKIX / PKCS#8 DER.
func GenerateKeyPair() (domain.PublicKey, domain.PrivateKey, error) {
	sk, err := rsa.GenerateKey(rand.Reader, RSAKeyBits)
	if err != nil {
		return nil, nil, err
	}
	pub, err := x509.MarshalPKIXPublicKey(&sk.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	priv, err := x509.MarshalPKCS8PrivateKey(sk)
	if err != nil {
		return nil, nil, err
	}
	return pub, priv, nil
}

// ParsePublicKey decodes a PKIX RSA public key of at least RSAKeyBits.
func ParsePublicKey(pub domain.PublicKey) (*rsa.PublicKey, error) {
	if len(pub) == 0 {
		return nil, &KeyFormatError{Kind: "public", Err: errors.New("empty")}
	}
	k, err := x509.ParsePKIXPublicKey(pub)
	if err != nil {
		return nil, &KeyFormatError{Kind: "public", Err: err}
	}
	rk, ok := k.(*rsa.PublicKey)
	if !ok {
		return nil, &KeyFormatError{Kind: "public", Err: fmt.Errorf("unsupported key type %T", k)}
	}
	if rk.N.BitLen() < RSAKeyBits {
		return nil, &KeyFormatError{Kind: "public", Err: fmt.Errorf("modulus too small: %d bits", rk.N.BitLen())}
	}
	return rk, nil
}

// ParsePrivateKey decodes a PKCS#8 RSA private key and checks its consistency.
func ParsePrivateKey(priv domain.PrivateKey) (*rsa.PrivateKey, error) {
	if len(priv) == 0 {
		return nil, &KeyFormatError{Kind: "private", Err: errors.New("empty")}
	}
	k, err := x509.ParsePKCS8PrivateKey(priv)
	if err != nil {
		return nil, &KeyFormatError{Kind: "private", Err: err}
	}
	rk, ok := k.(*rsa.PrivateKey)
	if !ok {
		return nil, &KeyFormatError{Kind: "private", Err: fmt.Errorf("unsupported key type %T", k)}
	}
	if err := rk.Validate(); err != nil {
		return nil, &KeyFormatError{Kind: "private", Err: err}
	}
	return rk, nil
}

// ExportSymmetricKey encodes k as standard base64.
func ExportSymmetricKey(k domain.SymmetricKey) string { return b64.EncodeToString(k[:]) }

// ImportSymmetricKey decodes a base64 symmetric key. Anything that is not
// exactly SymmetricKeyBytes of non-zero key material is rejected.
func ImportSymmetricKey(s string) (domain.SymmetricKey, error) {
	raw, err := b64.DecodeString(s)
	if err != nil {
		return domain.SymmetricKey{}, &KeyFormatError{Kind: "symmetric", Err: err}
	}
	defer memzero.Zero(raw)
	if len(raw) != SymmetricKeyBytes {
		return domain.SymmetricKey{}, &KeyFormatError{
			Kind: "symmetric",
			Err:  fmt.Errorf("want %d bytes, got %d", SymmetricKeyBytes, len(raw)),
		}
	}
	var k domain.SymmetricKey
	copy(k[:], raw)
	if k.IsZero() {
		return domain.SymmetricKey{}, &KeyFormatError{Kind: "symmetric", Err: errors.New("all-zero key")}
	}
	return k, nil
}

// ExportPublicKey encodes pub as standard base64.
func ExportPublicKey(pub domain.PublicKey) string { return b64.EncodeToString(pub) }

// ImportPublicKey decodes and parses a base64 public key.
func ImportPublicKey(s string) (domain.PublicKey, error) {
	raw, err := b64.DecodeString(s)
	if err != nil {
		return nil, &KeyFormatError{Kind: "public", Err: err}
	}
	if _, err := ParsePublicKey(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ExportPrivateKey encodes priv as standard base64.
func ExportPrivateKey(priv domain.PrivateKey) string { return b64.EncodeToString(priv) }

// ImportPrivateKey decodes and parses a base64 private key.
func ImportPrivateKey(s string) (domain.PrivateKey, error) {
	raw, err := b64.DecodeString(s)
	if err != nil {
		return nil, &KeyFormatError{Kind: "private", Err: err}
	}
	if _, err := ParsePrivateKey(raw); err != nil {
		memzero.Zero(raw)
		return nil, err
	}
	return raw, nil
}

// ValidateKeyPair round-trips a random probe through pub and priv. A pair
// that parses but does not belong together fails with *KeyFormatError.
func ValidateKeyPair(pub domain.PublicKey, priv domain.PrivateKey) error {
	probe := make([]byte, SymmetricKeyBytes)
	if _, err := rand.Read(probe); err != nil {
		return err
	}
	defer memzero.Zero(probe)

	rpub, err := ParsePublicKey(pub)
	if err != nil {
		return err
	}
	wrapped, err := wrapRSA(rpub, probe)
	if err != nil {
		return err
	}
	got, err := unwrapRSA(priv, wrapped)
	if err != nil {
		var kf *KeyFormatError
		if errors.As(err, &kf) {
			return err
		}
		return &KeyFormatError{Kind: "keypair", Err: errors.New("private key does not match public key")}
	}
	defer memzero.Zero(got)
	if !bytes.Equal(got, probe) {
		return &KeyFormatError{Kind: "keypair", Err: errors.New("probe mismatch")}
	}
	return nil
}
