package grant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"bidvault/internal/crypto"
	"bidvault/internal/domain"
	"bidvault/internal/relay"
)

var (
	// ErrGrantExists is returned when the pair already has a grant.
	ErrGrantExists = errors.New("grant already exists for this viewer")
	// ErrNotViewer is returned when the target identity cannot hold grants.
	ErrNotViewer = errors.New("target identity is not a viewer")
	// ErrSelfGrant is returned when sharing with oneself.
	ErrSelfGrant = errors.New("cannot share with yourself")
)

// IdentitySource yields the identity acting locally.
type IdentitySource interface {
	CurrentIdentity() (domain.Identity, error)
	EnsureRegistered(ctx context.Context, id domain.IdentityID) error
}

// Service publishes and lists grants through the relay.
type Service struct {
	ids   IdentitySource
	relay domain.RelayClient
	log   logrus.FieldLogger
	now   func() time.Time
}

// New returns a grant service.
func New(ids IdentitySource, rc domain.RelayClient, logger logrus.FieldLogger) *Service {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Service{ids: ids, relay: rc, log: logger, now: time.Now}
}

// Share wraps the current identity's symmetric key for viewer and publishes
// it. If the pair already has a grant nothing new is created and
// ErrGrantExists is returned together with the stored grant.
func (s *Service) Share(ctx context.Context, viewer domain.IdentityID) (domain.Grant, error) {
	me, err := s.ids.CurrentIdentity()
	if err != nil {
		return domain.Grant{}, err
	}
	if viewer == me.ID {
		return domain.Grant{}, ErrSelfGrant
	}

	if existing, ok, err := s.find(ctx, me.ID, viewer); err != nil {
		return domain.Grant{}, err
	} else if ok {
		return existing, ErrGrantExists
	}

	target, err := s.relay.FetchIdentity(ctx, viewer)
	if err != nil {
		return domain.Grant{}, fmt.Errorf("fetch viewer %s: %w", viewer, err)
	}
	if !target.Role.IsViewer() {
		return domain.Grant{}, fmt.Errorf("%w: %s is %s", ErrNotViewer, viewer, target.Role)
	}

	if err := s.ids.EnsureRegistered(ctx, me.ID); err != nil {
		return domain.Grant{}, err
	}
	wrapped, err := crypto.CreateGrant(me.SymmetricKey, target.PublicKey)
	if err != nil {
		return domain.Grant{}, err
	}
	g := domain.Grant{
		GrantorID:  me.ID,
		GranteeID:  viewer,
		WrappedKey: wrapped,
		CreatedUTC: s.now().UTC().Unix(),
	}
	if err := s.relay.CreateGrant(ctx, g); err != nil {
		if errors.Is(err, relay.ErrGrantExists) {
			return domain.Grant{}, ErrGrantExists
		}
		return domain.Grant{}, err
	}
	s.log.WithFields(logrus.Fields{
		"grantor":     me.ID,
		"grantee":     viewer,
		"fingerprint": crypto.Fingerprint(target.PublicKey),
	}).Info("grant published")
	return g, nil
}

// ListGrants returns the grants addressed to the current identity.
func (s *Service) ListGrants(ctx context.Context) ([]domain.Grant, error) {
	me, err := s.ids.CurrentIdentity()
	if err != nil {
		return nil, err
	}
	return s.relay.FetchGrants(ctx, me.ID)
}

func (s *Service) find(ctx context.Context, grantor, grantee domain.IdentityID) (domain.Grant, bool, error) {
	grants, err := s.relay.FetchGrants(ctx, grantee)
	if err != nil {
		return domain.Grant{}, false, err
	}
	for _, g := range grants {
		if g.GrantorID == grantor {
			return g, true, nil
		}
	}
	return domain.Grant{}, false, nil
}

var _ domain.GrantService = (*Service)(nil)
