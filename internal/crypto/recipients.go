package crypto

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"bidvault/internal/domain"
	"bidvault/internal/util/memzero"
)

var ownerWrapInfo = []byte("bidvault-owner-wrap-v1")

// Recipient is a viewer an envelope must be readable by.
type Recipient struct {
	ID        domain.IdentityID
	PublicKey domain.PublicKey
}

// SealForRecipients encrypts obs under a one-time content key, then wraps
// that key for the owner (under a key derived from ownerKey) and for every
// recipient (RSA-OAEP). needsViewerKey marks that a required viewer could
// not be included yet.
func SealForRecipients(
	obs domain.Observation,
	owner domain.IdentityID,
	ownerKey domain.SymmetricKey,
	recipients []Recipient,
	needsViewerKey bool,
) (domain.Envelope, error) {
	if obs == nil {
		return domain.Envelope{}, fmt.Errorf("seal for recipients: nil observation")
	}
	plain, err := json.Marshal(obs)
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("seal for recipients: %w", err)
	}
	defer memzero.Zero(plain)

	contentKey, err := NewSymmetricKey()
	if err != nil {
		return domain.Envelope{}, err
	}
	defer memzero.Key((*[32]byte)(&contentKey))

	iv, ct, err := sealAEAD(contentKey[:], plain)
	if err != nil {
		return domain.Envelope{}, err
	}

	ownerWrapped, err := wrapForOwner(ownerKey, contentKey)
	if err != nil {
		return domain.Envelope{}, err
	}
	wrapped := []domain.WrappedKey{{RecipientID: owner, Wrapped: ownerWrapped}}
	for _, r := range recipients {
		if r.ID == owner {
			continue
		}
		pub, err := ParsePublicKey(r.PublicKey)
		if err != nil {
			return domain.Envelope{}, fmt.Errorf("recipient %s: %w", r.ID, err)
		}
		w, err := wrapRSA(pub, contentKey[:])
		if err != nil {
			return domain.Envelope{}, err
		}
		wrapped = append(wrapped, domain.WrappedKey{RecipientID: r.ID, Wrapped: w})
	}

	return domain.Envelope{
		Scheme:         domain.SchemeRecipients,
		Ciphertext:     ct,
		IV:             iv,
		Encrypted:      true,
		NeedsViewerKey: needsViewerKey,
		WrappedKeys:    wrapped,
	}, nil
}

// OpenAsOwner decrypts a multi-recipient envelope with the owner's key.
func OpenAsOwner(env domain.Envelope, owner domain.IdentityID, ownerKey domain.SymmetricKey) (domain.Observation, error) {
	w, ok := wrappedFor(env, owner)
	if !ok {
		return nil, ErrNotRecipient
	}
	contentKey, err := unwrapForOwner(ownerKey, w)
	if err != nil {
		return nil, err
	}
	defer memzero.Key((*[32]byte)(&contentKey))
	return DecryptObservation(env.Ciphertext, env.IV, contentKey)
}

// OpenAsRecipient decrypts a multi-recipient envelope with a viewer's private key.
func OpenAsRecipient(env domain.Envelope, self domain.IdentityID, priv domain.PrivateKey) (domain.Observation, error) {
	w, ok := wrappedFor(env, self)
	if !ok {
		return nil, ErrNotRecipient
	}
	contentKey, err := OpenGrant(w, priv)
	if err != nil {
		return nil, err
	}
	defer memzero.Key((*[32]byte)(&contentKey))
	return DecryptObservation(env.Ciphertext, env.IV, contentKey)
}

// Reseal re-encrypts a multi-recipient envelope for a new recipient set with
// a fresh content key and IV.
func Reseal(
	env domain.Envelope,
	owner domain.IdentityID,
	ownerKey domain.SymmetricKey,
	recipients []Recipient,
	needsViewerKey bool,
) (domain.Envelope, error) {
	obs, err := OpenAsOwner(env, owner, ownerKey)
	if err != nil {
		return domain.Envelope{}, err
	}
	return SealForRecipients(obs, owner, ownerKey, recipients, needsViewerKey)
}

// HasRecipient reports whether env carries a key wrapped for id.
func HasRecipient(env domain.Envelope, id domain.IdentityID) bool {
	_, ok := wrappedFor(env, id)
	return ok
}

func wrappedFor(env domain.Envelope, id domain.IdentityID) ([]byte, bool) {
	for _, w := range env.WrappedKeys {
		if w.RecipientID == id {
			return w.Wrapped, true
		}
	}
	return nil, false
}

func ownerWrapKey(ownerKey domain.SymmetricKey) ([]byte, error) {
	out := make([]byte, SymmetricKeyBytes)
	r := hkdf.New(sha256.New, ownerKey[:], nil, ownerWrapInfo)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func wrapForOwner(ownerKey domain.SymmetricKey, contentKey domain.SymmetricKey) ([]byte, error) {
	wk, err := ownerWrapKey(ownerKey)
	if err != nil {
		return nil, err
	}
	defer memzero.Zero(wk)
	iv, ct, err := sealAEAD(wk, contentKey[:])
	if err != nil {
		return nil, err
	}
	return append(iv, ct...), nil
}

func unwrapForOwner(ownerKey domain.SymmetricKey, wrapped []byte) (domain.SymmetricKey, error) {
	if len(wrapped) < IVBytes {
		return domain.SymmetricKey{}, &DecryptAuthError{Reason: "wrapped key truncated"}
	}
	wk, err := ownerWrapKey(ownerKey)
	if err != nil {
		return domain.SymmetricKey{}, err
	}
	defer memzero.Zero(wk)
	raw, err := openAEAD(wk, wrapped[:IVBytes], wrapped[IVBytes:])
	if err != nil {
		return domain.SymmetricKey{}, err
	}
	defer memzero.Zero(raw)
	if len(raw) != SymmetricKeyBytes {
		return domain.SymmetricKey{}, &DecryptAuthError{Reason: "wrapped key has wrong size"}
	}
	var k domain.SymmetricKey
	copy(k[:], raw)
	return k, nil
}
