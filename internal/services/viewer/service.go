package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"bidvault/internal/crypto"
	"bidvault/internal/domain"
)

// ErrNoGrant is returned when the grantor never shared with this viewer.
var ErrNoGrant = errors.New("no sharing permission")

// IdentitySource yields the identity acting locally.
type IdentitySource interface {
	CurrentIdentity() (domain.Identity, error)
}

// Row is one fetched observation with its decryption outcome.
type Row struct {
	Metadata    domain.Metadata
	Observation domain.Observation
	Err         error
}

// Service resolves grantor keys and decrypts envelopes for a viewer.
type Service struct {
	ids   IdentitySource
	relay domain.RelayClient
	cache *KeyCache
	log   logrus.FieldLogger
}

// New returns a viewer service with a fresh key cache.
func New(ids IdentitySource, rc domain.RelayClient, logger logrus.FieldLogger) *Service {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Service{ids: ids, relay: rc, cache: NewKeyCache(), log: logger}
}

// Cache exposes the key cache, mainly so callers can Clear it on logout.
func (s *Service) Cache() *KeyCache { return s.cache }

// SymmetricKeyFor returns grantor's symmetric key, from the cache or by
// fetching and opening the grant addressed to the current identity.
func (s *Service) SymmetricKeyFor(ctx context.Context, grantor domain.IdentityID) (domain.SymmetricKey, error) {
	me, err := s.ids.CurrentIdentity()
	if err != nil {
		return domain.SymmetricKey{}, err
	}
	if grantor == me.ID {
		return me.SymmetricKey, nil
	}
	if k, ok := s.cache.Get(grantor); ok {
		return k, nil
	}

	grants, err := s.relay.FetchGrants(ctx, me.ID)
	if err != nil {
		return domain.SymmetricKey{}, fmt.Errorf("fetch grants: %w", err)
	}
	for _, g := range grants {
		if g.GrantorID != grantor {
			continue
		}
		k, err := crypto.OpenGrant(g.WrappedKey, me.PrivateKey)
		if err != nil {
			s.log.WithFields(logrus.Fields{"grantor": grantor, "viewer": me.ID}).Warn("grant failed to open")
			return domain.SymmetricKey{}, fmt.Errorf("grant from %s: %w", grantor, err)
		}
		s.cache.Put(grantor, k)
		s.log.WithFields(logrus.Fields{"grantor": grantor, "key_id": crypto.KeyID(k)}).Debug("grant opened")
		return k, nil
	}
	return domain.SymmetricKey{}, fmt.Errorf("%w from %s", ErrNoGrant, grantor)
}

// DecryptForViewer opens env, which belongs to grantor.
func (s *Service) DecryptForViewer(
	ctx context.Context,
	env domain.Envelope,
	grantor domain.IdentityID,
) (domain.Observation, error) {
	if env.Scheme == domain.SchemeRecipients {
		return s.openRecipients(env, grantor)
	}
	key, err := s.SymmetricKeyFor(ctx, grantor)
	if err != nil {
		return nil, err
	}
	return crypto.DecryptObservation(env.Ciphertext, env.IV, key)
}

func (s *Service) openRecipients(env domain.Envelope, grantor domain.IdentityID) (domain.Observation, error) {
	me, err := s.ids.CurrentIdentity()
	if err != nil {
		return nil, err
	}
	switch {
	case grantor == me.ID:
		return crypto.OpenAsOwner(env, me.ID, me.SymmetricKey)
	case crypto.HasRecipient(env, me.ID) && len(me.PrivateKey) > 0:
		return crypto.OpenAsRecipient(env, me.ID, me.PrivateKey)
	}
	return nil, fmt.Errorf("%w from %s: %w", ErrNoGrant, grantor, crypto.ErrNotRecipient)
}

// FetchStudentObservations pulls up to limit rows for student from the
// relay and decrypts each one. Row failures are reported per row; the
// returned error covers only the fetch itself.
func (s *Service) FetchStudentObservations(
	ctx context.Context,
	student domain.IdentityID,
	limit int,
) ([]Row, error) {
	records, err := s.relay.FetchObservations(ctx, student, limit)
	if err != nil {
		return nil, err
	}
	// key resolution failures repeat for every row, so look them up once
	keyErrs := map[domain.IdentityID]error{}
	out := make([]Row, 0, len(records))
	for _, rec := range records {
		row := Row{Metadata: rec.Metadata}
		owner := rec.Metadata.UserID
		if err, ok := keyErrs[owner]; ok && rec.Scheme != domain.SchemeRecipients {
			row.Err = err
			out = append(out, row)
			continue
		}
		row.Observation, row.Err = s.DecryptForViewer(ctx, rec.Envelope(), owner)
		if row.Err != nil && rec.Scheme != domain.SchemeRecipients && !rowSpecific(row.Err) {
			keyErrs[owner] = row.Err
		}
		out = append(out, row)
	}
	return out, nil
}

// rowSpecific reports failures tied to one ciphertext rather than to the key.
func rowSpecific(err error) bool {
	return errors.Is(err, crypto.ErrDecryptAuth) || errors.Is(err, crypto.ErrMalformedPlaintext)
}

var _ domain.ViewerService = (*Service)(nil)
