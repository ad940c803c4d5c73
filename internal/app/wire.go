package app

import (
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"bidvault/internal/domain"
	"bidvault/internal/relay"
	"bidvault/internal/services/grant"
	"bidvault/internal/services/identity"
	"bidvault/internal/services/observation"
	"bidvault/internal/services/viewer"
	"bidvault/internal/store"
	"bidvault/internal/syncengine"
)

// Wire bundles all stores, services, and clients for the CLI.
type Wire struct {
	Config Config
	Log    logrus.FieldLogger

	Document     *store.Document
	Identities   *store.IdentityFileStore
	Queue        *store.QueueFileStore
	Vault        domain.SecretVault
	Relay        *relay.HTTP
	IDs          *identity.Service
	Grants       *grant.Service
	Observations *observation.Service
	Viewer       *viewer.Service
	Sync         *syncengine.Engine
}

// NewWire constructs the dependency graph from cfg. clock may be nil for
// the wall clock.
func NewWire(cfg Config, logger logrus.FieldLogger, clock syncengine.Clock) (*Wire, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}

	// Shared state document and the stores that live in it
	doc, err := store.OpenDocument(cfg.Home)
	if err != nil {
		return nil, err
	}
	identityStore := store.NewIdentityFileStore(doc)
	queueStore := store.NewQueueFileStore(doc)

	vault, err := openVault(cfg, doc)
	if err != nil {
		return nil, err
	}

	// Relay client; the engine bounds each request with its own timeout
	rc := relay.NewHTTP(cfg.RelayURL, cfg.APIKey, cfg.Sync.RequestTimeout)

	// High-level services
	idSvc := identity.New(identityStore, vault, rc, logger.WithField("component", "identity"))
	grantSvc := grant.New(idSvc, rc, logger.WithField("component", "grant"))
	viewerSvc := viewer.New(idSvc, rc, logger.WithField("component", "viewer"))
	obsSvc := observation.New(idSvc, queueStore, rc, observation.Config{
		Classroom: cfg.Classroom,
		Scheme:    cfg.Envelope.Scheme,
		Viewers:   cfg.Envelope.Viewers,
	}, logger.WithField("component", "observation"))

	engine := syncengine.New(cfg.Sync, idSvc, queueStore, rc, obsSvc, clock, logger.WithField("component", "sync"))
	obsSvc.SetNotifier(engine)

	return &Wire{
		Config:       cfg,
		Log:          logger,
		Document:     doc,
		Identities:   identityStore,
		Queue:        queueStore,
		Vault:        vault,
		Relay:        rc,
		IDs:          idSvc,
		Grants:       grantSvc,
		Observations: obsSvc,
		Viewer:       viewerSvc,
		Sync:         engine,
	}, nil
}

func openVault(cfg Config, doc *store.Document) (domain.SecretVault, error) {
	if cfg.SecretsBackend != SecretsKeyring {
		return store.NewPassphraseVault(doc, cfg.Passphrase), nil
	}
	// The encrypted file backend is the fallback when no system keyring opens.
	return store.NewKeyringVault(store.KeyringConfig{
		FileDir:    filepath.Join(cfg.Home, "keyring"),
		Passphrase: cfg.Passphrase,
	})
}
