package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/99designs/keyring"

	"bidvault/internal/domain"
)

// ErrSecretsNotFound is returned when no secrets are stored for an identity.
var ErrSecretsNotFound = errors.New("identity secrets not found")

// PassphraseVault seals identity secrets with a passphrase-derived key and
// keeps the blobs under "sealed_secrets" in the shared document.
type PassphraseVault struct {
	doc        *Document
	passphrase string
	kdf        kdfParams
}

// NewPassphraseVault returns a vault sealing with passphrase.
func NewPassphraseVault(doc *Document, passphrase string) *PassphraseVault {
	return &PassphraseVault{doc: doc, passphrase: passphrase, kdf: defaultKDF}
}

// PutSecrets seals and stores secrets for id, replacing any previous value.
func (v *PassphraseVault) PutSecrets(id domain.IdentityID, secrets domain.IdentitySecrets) error {
	raw, err := json.Marshal(secrets)
	if err != nil {
		return err
	}
	bl, err := seal(v.passphrase, raw, []byte(id), v.kdf)
	if err != nil {
		return fmt.Errorf("seal secrets: %w", err)
	}
	return v.doc.Update(func(f Fields) error {
		all := map[domain.IdentityID]sealed{}
		if _, err := f.Get(KeySealedSecrets, &all); err != nil {
			return err
		}
		all[id] = bl
		return f.Set(KeySealedSecrets, all)
	})
}

// GetSecrets opens the secrets stored for id.
func (v *PassphraseVault) GetSecrets(id domain.IdentityID) (domain.IdentitySecrets, error) {
	var (
		bl    sealed
		found bool
	)
	err := v.doc.View(func(f Fields) error {
		all := map[domain.IdentityID]sealed{}
		if _, err := f.Get(KeySealedSecrets, &all); err != nil {
			return err
		}
		bl, found = all[id]
		return nil
	})
	if err != nil {
		return domain.IdentitySecrets{}, err
	}
	if !found {
		return domain.IdentitySecrets{}, ErrSecretsNotFound
	}
	pt, err := open(v.passphrase, bl, []byte(id))
	if err != nil {
		return domain.IdentitySecrets{}, err
	}
	var out domain.IdentitySecrets
	if err := json.Unmarshal(pt, &out); err != nil {
		return domain.IdentitySecrets{}, fmt.Errorf("decode secrets: %w", err)
	}
	return out, nil
}

// KeyringConfig selects where a KeyringVault keeps its items.
type KeyringConfig struct {
	// Backends restricts the keyring backends; empty means any available.
	Backends []keyring.BackendType
	// FileDir and Passphrase configure the encrypted file backend.
	FileDir    string
	Passphrase string
}

// KeyringVault keeps identity secrets in the OS keyring.
type KeyringVault struct {
	ring keyring.Keyring
}

// NewKeyringVault opens the "bidvault" keyring.
func NewKeyringVault(cfg KeyringConfig) (*KeyringVault, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:      "bidvault",
		AllowedBackends:  cfg.Backends,
		FileDir:          cfg.FileDir,
		FilePasswordFunc: keyring.FixedStringPrompt(cfg.Passphrase),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}
	return &KeyringVault{ring: ring}, nil
}

// PutSecrets stores secrets for id.
func (v *KeyringVault) PutSecrets(id domain.IdentityID, secrets domain.IdentitySecrets) error {
	raw, err := json.Marshal(secrets)
	if err != nil {
		return err
	}
	err = v.ring.Set(keyring.Item{
		Key:         string(id),
		Data:        raw,
		Label:       "bidvault identity " + string(id),
		Description: "bidvault identity secrets",
	})
	if err != nil {
		return fmt.Errorf("failed to store secrets in keyring: %w", err)
	}
	return nil
}

// GetSecrets loads the secrets stored for id.
func (v *KeyringVault) GetSecrets(id domain.IdentityID) (domain.IdentitySecrets, error) {
	item, err := v.ring.Get(string(id))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return domain.IdentitySecrets{}, ErrSecretsNotFound
	}
	if err != nil {
		return domain.IdentitySecrets{}, fmt.Errorf("failed to get secrets from keyring: %w", err)
	}
	var out domain.IdentitySecrets
	if err := json.Unmarshal(item.Data, &out); err != nil {
		return domain.IdentitySecrets{}, fmt.Errorf("decode secrets: %w", err)
	}
	return out, nil
}

var (
	_ domain.SecretVault = (*PassphraseVault)(nil)
	_ domain.SecretVault = (*KeyringVault)(nil)
)
