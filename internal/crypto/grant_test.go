package crypto_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidvault/internal/crypto"
)

func TestGrant_OpenWithMatchingKey(t *testing.T) {
	teacher := testKeyPair(t, 0)
	k := newKey(t)

	wrapped, err := crypto.CreateGrant(k, teacher.pub)
	require.NoError(t, err)

	got, err := crypto.OpenGrant(wrapped, teacher.priv)
	require.NoError(t, err)
	assert.Equal(t, k, got)
}

func TestGrant_OtherViewerCannotOpen(t *testing.T) {
	teacher := testKeyPair(t, 0)
	other := testKeyPair(t, 1)
	k := newKey(t)

	wrapped, err := crypto.CreateGrant(k, teacher.pub)
	require.NoError(t, err)

	got, err := crypto.OpenGrant(wrapped, other.priv)
	require.Error(t, err)
	var gErr *crypto.GrantDecryptError
	assert.True(t, errors.As(err, &gErr))
	assert.NotEqual(t, k, got)
}

func TestGrant_WrapIsRandomised(t *testing.T) {
	teacher := testKeyPair(t, 0)
	k := newKey(t)

	a, err := crypto.CreateGrant(k, teacher.pub)
	require.NoError(t, err)
	b, err := crypto.CreateGrant(k, teacher.pub)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(a, b))
}

func TestGrant_Corrupted(t *testing.T) {
	teacher := testKeyPair(t, 0)
	wrapped, err := crypto.CreateGrant(newKey(t), teacher.pub)
	require.NoError(t, err)
	wrapped[10] ^= 0xff

	_, err = crypto.OpenGrant(wrapped, teacher.priv)
	assert.ErrorIs(t, err, crypto.ErrGrantDecrypt)
}

func TestGrant_BadPublicKey(t *testing.T) {
	_, err := crypto.CreateGrant(newKey(t), []byte("not a key"))
	assert.ErrorIs(t, err, crypto.ErrKeyFormat)
}
