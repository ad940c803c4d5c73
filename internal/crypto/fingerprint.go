package crypto

import (
	"crypto/sha256"
	"encoding/hex"

	"bidvault/internal/domain"
)

// Fingerprint returns a short hex fingerprint of a public key.
//
// It hashes with SHA-256 and truncates to 10 bytes (20 hex chars).
func Fingerprint(pub domain.PublicKey) domain.Fingerprint {
	sum := sha256.Sum256(pub)
	return domain.Fingerprint(hex.EncodeToString(sum[:10]))
}

// KeyID returns a fingerprint for a symmetric key that is safe to log.
// It is derived through SHA-256 and never reveals the key.
func KeyID(k domain.SymmetricKey) domain.Fingerprint {
	sum := sha256.Sum256(append([]byte("bidvault-key-id:"), k[:]...))
	return domain.Fingerprint(hex.EncodeToString(sum[:6]))
}
