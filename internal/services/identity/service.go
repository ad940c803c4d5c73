package identity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bidvault/internal/crypto"
	"bidvault/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
	// ErrNoCurrentIdentity is returned before any identity was created or selected.
	ErrNoCurrentIdentity = errors.New("no current identity")
	// ErrUnknownIdentity is returned when no local record exists for an id.
	ErrUnknownIdentity = errors.New("unknown local identity")
	// ErrInvalidRole is returned for roles other than student, teacher or admin.
	ErrInvalidRole = errors.New("invalid role")
)

// Service manages identity key creation, loading and relay registration.
//
// Loaded identities are cached in memory; key material is read-only once
// created.
type Service struct {
	store domain.IdentityStore
	vault domain.SecretVault
	relay domain.RelayClient
	log   logrus.FieldLogger
	now   func() time.Time

	mu     sync.Mutex
	loaded map[domain.IdentityID]domain.Identity
}

// New returns an identity service. relay may be nil for offline use, in
// which case EnsureRegistered fails.
func New(
	store domain.IdentityStore,
	vault domain.SecretVault,
	relay domain.RelayClient,
	logger logrus.FieldLogger,
) *Service {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Service{
		store:  store,
		vault:  vault,
		relay:  relay,
		log:    logger,
		now:    time.Now,
		loaded: map[domain.IdentityID]domain.Identity{},
	}
}

// CreateIdentity generates keys for a new identity, stores it and makes it
// current. The fingerprint identifies the viewer public key, or the
// symmetric key for students.
func (s *Service) CreateIdentity(
	role domain.Role,
	email string,
) (domain.Identity, domain.Fingerprint, error) {
	if !role.Valid() {
		return domain.Identity{}, "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	key, err := crypto.NewSymmetricKey()
	if err != nil {
		return domain.Identity{}, "", err
	}
	id := domain.Identity{
		ID:           domain.IdentityID(uuid.NewString()),
		Role:         role,
		Email:        strings.TrimSpace(email),
		CreatedUTC:   s.now().UTC().Unix(),
		SymmetricKey: key,
	}
	if role.IsViewer() {
		id.PublicKey, id.PrivateKey, err = crypto.GenerateKeyPair()
		if err != nil {
			return domain.Identity{}, "", err
		}
	}

	// Secrets first: a record without secrets is unusable.
	secrets := domain.IdentitySecrets{SymmetricKey: id.SymmetricKey, PrivateKey: id.PrivateKey}
	if err := s.vault.PutSecrets(id.ID, secrets); err != nil {
		return domain.Identity{}, "", fmt.Errorf("store secrets: %w", err)
	}
	if err := s.store.SaveIdentity(id.Record()); err != nil {
		return domain.Identity{}, "", err
	}
	if err := s.store.SetCurrentIdentityID(id.ID); err != nil {
		return domain.Identity{}, "", err
	}

	s.mu.Lock()
	s.loaded[id.ID] = id
	s.mu.Unlock()

	fp := Fingerprint(id)
	s.log.WithFields(logrus.Fields{"identity": id.ID, "role": role, "fingerprint": fp}).Info("identity created")
	return id, fp, nil
}

// LoadIdentity returns the identity with its secrets.
func (s *Service) LoadIdentity(id domain.IdentityID) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(id)
}

func (s *Service) loadLocked(id domain.IdentityID) (domain.Identity, error) {
	if cached, ok := s.loaded[id]; ok {
		return cached, nil
	}
	rec, ok, err := s.store.LoadIdentity(id)
	if err != nil {
		return domain.Identity{}, err
	}
	if !ok {
		return domain.Identity{}, fmt.Errorf("%w: %s", ErrUnknownIdentity, id)
	}
	secrets, err := s.vault.GetSecrets(id)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("load secrets for %s: %w", id, err)
	}
	if secrets.SymmetricKey.IsZero() {
		return domain.Identity{}, &crypto.KeyFormatError{Kind: "symmetric", Err: errors.New("all-zero key")}
	}
	if rec.Role.IsViewer() {
		if err := crypto.ValidateKeyPair(rec.PublicKey, secrets.PrivateKey); err != nil {
			return domain.Identity{}, fmt.Errorf("identity %s: %w", id, err)
		}
	}
	out := domain.Identity{
		ID:           rec.ID,
		Role:         rec.Role,
		Email:        rec.Email,
		PublicKey:    rec.PublicKey,
		Registered:   rec.Registered,
		CreatedUTC:   rec.CreatedUTC,
		SymmetricKey: secrets.SymmetricKey,
		PrivateKey:   secrets.PrivateKey,
	}
	s.loaded[id] = out
	return out, nil
}

// CurrentIdentity loads the identity this install acts as.
func (s *Service) CurrentIdentity() (domain.Identity, error) {
	id, ok, err := s.store.CurrentIdentityID()
	if err != nil {
		return domain.Identity{}, err
	}
	if !ok {
		return domain.Identity{}, ErrNoCurrentIdentity
	}
	return s.LoadIdentity(id)
}

// CurrentIdentityID returns the id this install acts as without touching
// any secret, so it works while the vault is locked.
func (s *Service) CurrentIdentityID() (domain.IdentityID, error) {
	id, ok, err := s.store.CurrentIdentityID()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoCurrentIdentity
	}
	return id, nil
}

// UseIdentity switches the current identity to an existing local one.
func (s *Service) UseIdentity(id domain.IdentityID) error {
	if _, err := s.LoadIdentity(id); err != nil {
		return err
	}
	return s.store.SetCurrentIdentityID(id)
}

// EnsureRegistered registers id with the relay unless already done. A
// conflicting registration comes back as *relay.RegistrationConflictError.
func (s *Service) EnsureRegistered(ctx context.Context, id domain.IdentityID) error {
	ident, err := s.LoadIdentity(id)
	if err != nil {
		return err
	}
	if ident.Registered {
		return nil
	}
	if s.relay == nil {
		return errors.New("no relay configured")
	}
	res, err := s.relay.RegisterIdentity(ctx, domain.Registration{
		ID:        ident.ID,
		PublicKey: ident.PublicKey,
		Email:     ident.Email,
		Role:      ident.Role,
	})
	if err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("relay refused registration of %s", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ident.Registered = true
	if err := s.store.SaveIdentity(ident.Record()); err != nil {
		return err
	}
	s.loaded[id] = ident
	s.log.WithField("identity", id).Info("identity registered with relay")
	return nil
}

// Fingerprint returns the short identifier shown to users for id.
func Fingerprint(id domain.Identity) domain.Fingerprint {
	if len(id.PublicKey) > 0 {
		return crypto.Fingerprint(id.PublicKey)
	}
	return crypto.KeyID(id.SymmetricKey)
}

// CheckPassphrase enforces a basic strength policy on the vault passphrase.
func CheckPassphrase(passphrase string) error {
	if !isSecurePassphrase(passphrase) {
		return ErrWeakPassphrase
	}
	return nil
}

func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
