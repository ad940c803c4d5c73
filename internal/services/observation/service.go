package observation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bidvault/internal/crypto"
	"bidvault/internal/domain"
)

// ErrForeignEntry is returned when asked to seal another identity's entry.
var ErrForeignEntry = errors.New("entry belongs to another identity")

// IdentitySource yields the identity acting locally. An error from
// CurrentIdentity means keys are not ready yet; CurrentIdentityID must work
// without secrets and fails only when no identity exists.
type IdentitySource interface {
	CurrentIdentity() (domain.Identity, error)
	CurrentIdentityID() (domain.IdentityID, error)
}

// Notifier is told whenever a new entry is queued.
type Notifier interface {
	Notify()
}

// Config controls capture.
type Config struct {
	// Classroom is stamped on every observation when set.
	Classroom string
	// Scheme selects the envelope scheme; empty means student-key.
	Scheme domain.EnvelopeScheme
	// Viewers must be able to open recipients-scheme envelopes directly.
	Viewers []domain.IdentityID
}

// Service captures observations into the pending queue.
type Service struct {
	ids      IdentitySource
	queue    domain.QueueStore
	relay    domain.RelayClient
	sessions *SessionTracker
	validate *Validator
	cfg      Config
	log      logrus.FieldLogger
	now      func() time.Time

	mu         sync.Mutex
	notifier   Notifier
	viewerKeys map[domain.IdentityID]domain.PublicKey
}

// New returns a capture service. relay is only used to look up viewer
// public keys for the recipients scheme and may be nil otherwise.
func New(
	ids IdentitySource,
	queue domain.QueueStore,
	rc domain.RelayClient,
	cfg Config,
	logger logrus.FieldLogger,
) *Service {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	if cfg.Scheme == "" {
		cfg.Scheme = domain.SchemeStudentKey
	}
	return &Service{
		ids:        ids,
		queue:      queue,
		relay:      rc,
		sessions:   NewSessionTracker(),
		validate:   NewValidator(),
		cfg:        cfg,
		log:        logger,
		now:        time.Now,
		viewerKeys: map[domain.IdentityID]domain.PublicKey{},
	}
}

// SetNotifier registers who to wake after an enqueue.
func (s *Service) SetNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// Sessions returns the practice session tracker.
func (s *Service) Sessions() *SessionTracker { return s.sessions }

// Record captures obs: it fills observation_id, user_id, session_id and
// timestamp when absent, validates the metadata, encrypts when keys are
// ready (otherwise queues the raw observation) and enqueues it. The caller's
// map is not modified.
func (s *Service) Record(ctx context.Context, obs domain.Observation) (domain.Metadata, error) {
	if obs == nil {
		return domain.Metadata{}, newValidationError(errors.New("observation is nil"))
	}
	obs = obs.Clone()

	me, keyErr := s.ids.CurrentIdentity()
	keysReady := keyErr == nil
	owner := me.ID
	if !keysReady {
		s.log.WithError(keyErr).Debug("keys not ready, queueing raw observation")
		if id, err := s.ids.CurrentIdentityID(); err == nil {
			owner = id
		}
	}

	if str(obs[fieldObservationID]) == "" {
		obs[fieldObservationID] = uuid.NewString()
	}
	if owner != "" {
		switch uid := str(obs[fieldUserID]); {
		case uid == "":
			obs[fieldUserID] = string(owner)
		case uid != string(owner):
			return domain.Metadata{}, newValidationError(ErrForeignEntry,
				FieldError{Field: fieldUserID, Error: "does not match the current identity"})
		}
	}
	if str(obs[fieldSessionID]) == "" {
		obs[fieldSessionID] = string(s.sessions.Current().SessionID)
	}
	if _, ok := obs[fieldTimestamp]; !ok {
		obs[fieldTimestamp] = s.now().UTC().Format(time.RFC3339Nano)
	}
	if s.cfg.Classroom != "" {
		obs[fieldClassroom] = s.cfg.Classroom
	}

	meta := ExtractMetadata(obs, s.cfg.Classroom)
	if err := s.validate.Metadata(meta); err != nil {
		return domain.Metadata{}, err
	}

	entry := domain.PendingEntry{Metadata: meta, QueuedAt: s.now().UTC()}
	if keysReady {
		env, err := s.seal(me, obs)
		if err != nil {
			return domain.Metadata{}, err
		}
		entry.Envelope = &env
		entry.Encrypted = true
	} else {
		entry.Raw = obs
	}

	if err := s.queue.Enqueue(entry); err != nil {
		return domain.Metadata{}, fmt.Errorf("enqueue observation: %w", err)
	}
	s.sessions.Record(meta.Correct)
	s.log.WithFields(logrus.Fields{
		"observation": meta.ObservationID,
		"encrypted":   entry.Encrypted,
	}).Debug("observation queued")

	s.mu.Lock()
	n := s.notifier
	s.mu.Unlock()
	if n != nil {
		n.Notify()
	}
	return meta, nil
}

// Prepare refreshes the public keys of required viewers. Failures leave the
// affected viewers unknown; envelopes are then sealed with needs_viewer_key.
func (s *Service) Prepare(ctx context.Context) error {
	if s.cfg.Scheme != domain.SchemeRecipients || s.relay == nil {
		return nil
	}
	var errs []error
	for _, id := range s.cfg.Viewers {
		s.mu.Lock()
		_, known := s.viewerKeys[id]
		s.mu.Unlock()
		if known {
			continue
		}
		pub, err := s.relay.FetchIdentity(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("viewer %s: %w", id, err))
			continue
		}
		if _, err := crypto.ParsePublicKey(pub.PublicKey); err != nil {
			errs = append(errs, fmt.Errorf("viewer %s: %w", id, err))
			continue
		}
		s.mu.Lock()
		s.viewerKeys[id] = pub.PublicKey
		s.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Seal encrypts a raw entry owned by the current identity.
func (s *Service) Seal(entry domain.PendingEntry) (domain.PendingEntry, error) {
	if entry.Encrypted {
		return entry, nil
	}
	me, err := s.ids.CurrentIdentity()
	if err != nil {
		return entry, err
	}
	if entry.Metadata.UserID != me.ID {
		return entry, ErrForeignEntry
	}
	env, err := s.seal(me, entry.Raw)
	if err != nil {
		return entry, err
	}
	out := entry.Clone()
	out.Envelope = &env
	out.Encrypted = true
	out.Raw = nil
	return out, nil
}

// Rewrap re-seals a recipients-scheme entry that was missing a viewer key
// once every required viewer is known. It reports whether entry changed.
func (s *Service) Rewrap(entry domain.PendingEntry) (domain.PendingEntry, bool, error) {
	if entry.Envelope == nil || !entry.Envelope.NeedsViewerKey {
		return entry, false, nil
	}
	recipients, missing := s.recipients()
	if missing {
		return entry, false, nil
	}
	me, err := s.ids.CurrentIdentity()
	if err != nil {
		return entry, false, err
	}
	if entry.Metadata.UserID != me.ID {
		return entry, false, ErrForeignEntry
	}
	env, err := crypto.Reseal(*entry.Envelope, me.ID, me.SymmetricKey, recipients, false)
	if err != nil {
		return entry, false, err
	}
	out := entry.Clone()
	out.Envelope = &env
	at := s.now().UTC()
	out.ReencryptedAt = &at
	return out, true, nil
}

func (s *Service) seal(me domain.Identity, obs domain.Observation) (domain.Envelope, error) {
	if s.cfg.Scheme != domain.SchemeRecipients {
		return crypto.EncryptEnvelope(obs, me.SymmetricKey)
	}
	recipients, missing := s.recipients()
	return crypto.SealForRecipients(obs, me.ID, me.SymmetricKey, recipients, missing)
}

// recipients returns the known required viewers and whether any is missing.
func (s *Service) recipients() ([]crypto.Recipient, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]crypto.Recipient, 0, len(s.cfg.Viewers))
	missing := false
	for _, id := range s.cfg.Viewers {
		pub, ok := s.viewerKeys[id]
		if !ok {
			missing = true
			continue
		}
		out = append(out, crypto.Recipient{ID: id, PublicKey: pub})
	}
	return out, missing
}

var _ domain.ObservationService = (*Service)(nil)
