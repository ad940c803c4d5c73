package store_test

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidvault/internal/domain"
	"bidvault/internal/store"
)

func testSecrets() domain.IdentitySecrets {
	var k domain.SymmetricKey
	for i := range k {
		k[i] = byte(i + 1)
	}
	return domain.IdentitySecrets{SymmetricKey: k, PrivateKey: domain.PrivateKey{9, 8, 7}}
}

func TestPassphraseVault_RoundTrip(t *testing.T) {
	doc, err := store.OpenDocument(t.TempDir())
	require.NoError(t, err)
	var v domain.SecretVault = store.NewPassphraseVault(doc, "correct horse")

	require.NoError(t, v.PutSecrets("alice", testSecrets()))
	got, err := v.GetSecrets("alice")
	require.NoError(t, err)
	assert.Equal(t, testSecrets(), got)
}

func TestPassphraseVault_WrongPassphrase(t *testing.T) {
	doc, err := store.OpenDocument(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.NewPassphraseVault(doc, "correct").PutSecrets("alice", testSecrets()))

	_, err = store.NewPassphraseVault(doc, "wrong").GetSecrets("alice")
	assert.ErrorIs(t, err, store.ErrWrongPassphrase)
}

func TestPassphraseVault_Missing(t *testing.T) {
	doc, err := store.OpenDocument(t.TempDir())
	require.NoError(t, err)

	_, err = store.NewPassphraseVault(doc, "p").GetSecrets("ghost")
	assert.ErrorIs(t, err, store.ErrSecretsNotFound)
}

func TestKeyringVault_FileBackend(t *testing.T) {
	v, err := store.NewKeyringVault(store.KeyringConfig{
		Backends:   []keyring.BackendType{keyring.FileBackend},
		FileDir:    t.TempDir(),
		Passphrase: "pass",
	})
	require.NoError(t, err)

	_, err = v.GetSecrets("alice")
	assert.ErrorIs(t, err, store.ErrSecretsNotFound)

	require.NoError(t, v.PutSecrets("alice", testSecrets()))
	got, err := v.GetSecrets("alice")
	require.NoError(t, err)
	assert.Equal(t, testSecrets(), got)
}
