package crypto_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidvault/internal/crypto"
	"bidvault/internal/domain"
)

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := newKey(t)
	obs := domain.Observation{
		"bid":     "2C",
		"correct": true,
		"deal": map[string]any{
			"subfolder":   "stayman",
			"deal_number": json.Number("7"),
		},
		"auction": []any{"1NT", "Pass", "2C"},
	}

	ct, iv, err := crypto.EncryptObservation(obs, key)
	require.NoError(t, err)
	require.Len(t, iv, crypto.IVBytes)

	got, err := crypto.DecryptObservation(ct, iv, key)
	require.NoError(t, err)
	assert.Equal(t, obs, got)
}

func TestDecrypt_IntegersKeepPrecision(t *testing.T) {
	key := newKey(t)
	obs := domain.Observation{"bid": "2C", "deal_number": 9007199254740993, "hcp": 12}

	ct, iv, err := crypto.EncryptObservation(obs, key)
	require.NoError(t, err)
	got, err := crypto.DecryptObservation(ct, iv, key)
	require.NoError(t, err)

	assert.Equal(t, json.Number("9007199254740993"), got["deal_number"])
	n, err := got["hcp"].(json.Number).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}

func TestDecrypt_WrongKey_IsAuthError(t *testing.T) {
	obs := domain.Observation{"bid": "2C", "correct": true}
	ct, iv, err := crypto.EncryptObservation(obs, newKey(t))
	require.NoError(t, err)

	_, err = crypto.DecryptObservation(ct, iv, newKey(t))
	require.Error(t, err)
	var authErr *crypto.DecryptAuthError
	assert.True(t, errors.As(err, &authErr))
	assert.ErrorIs(t, err, crypto.ErrDecryptAuth)
	assert.NotErrorIs(t, err, crypto.ErrMalformedPlaintext)
}

func TestDecrypt_BitFlips_AreAuthErrors(t *testing.T) {
	key := newKey(t)
	ct, iv, err := crypto.EncryptObservation(domain.Observation{"bid": "2C", "correct": true}, key)
	require.NoError(t, err)

	flip := func(b []byte, bit int) []byte {
		out := append([]byte(nil), b...)
		out[bit/8] ^= 1 << (bit % 8)
		return out
	}

	for bit := 0; bit < len(ct)*8; bit++ {
		_, err := crypto.DecryptObservation(flip(ct, bit), iv, key)
		require.ErrorIs(t, err, crypto.ErrDecryptAuth, "ciphertext bit %d", bit)
	}
	for bit := 0; bit < len(iv)*8; bit++ {
		_, err := crypto.DecryptObservation(ct, flip(iv, bit), key)
		require.ErrorIs(t, err, crypto.ErrDecryptAuth, "iv bit %d", bit)
	}
}

func TestDecrypt_Truncated_IsAuthError(t *testing.T) {
	key := newKey(t)
	ct, iv, err := crypto.EncryptObservation(domain.Observation{"bid": "1S"}, key)
	require.NoError(t, err)

	_, err = crypto.DecryptObservation(ct[:len(ct)-1], iv, key)
	assert.ErrorIs(t, err, crypto.ErrDecryptAuth)
	_, err = crypto.DecryptObservation(ct[:4], iv, key)
	assert.ErrorIs(t, err, crypto.ErrDecryptAuth)
	_, err = crypto.DecryptObservation(ct, iv[:8], key)
	assert.ErrorIs(t, err, crypto.ErrDecryptAuth)
}

func TestEncrypt_IVsAreUnique(t *testing.T) {
	key := newKey(t)
	obs := domain.Observation{"bid": "2C"}
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		_, iv, err := crypto.EncryptObservation(obs, key)
		require.NoError(t, err)
		seen[string(iv)] = struct{}{}
	}
	assert.Len(t, seen, 10000)
}

func TestEncryptEnvelope_MarksEncrypted(t *testing.T) {
	key := newKey(t)
	env, err := crypto.EncryptEnvelope(domain.Observation{"bid": "3N"}, key)
	require.NoError(t, err)
	assert.True(t, env.Encrypted)
	assert.False(t, env.NeedsViewerKey)
	assert.Equal(t, domain.SchemeStudentKey, env.Scheme)
}
