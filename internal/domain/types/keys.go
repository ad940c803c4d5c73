package types

// SymmetricKey is a 256-bit AEAD key. Each student owns exactly one.
type SymmetricKey [32]byte

// Slice returns the key as a []byte.
func (k SymmetricKey) Slice() []byte { return k[:] }

// IsZero reports whether the key is unset.
func (k SymmetricKey) IsZero() bool { return k == SymmetricKey{} }

// PublicKey is a DER-encoded (PKIX) RSA public key.
type PublicKey []byte

// PrivateKey is a DER-encoded (PKCS#8) RSA private key. It never leaves the client.
type PrivateKey []byte
