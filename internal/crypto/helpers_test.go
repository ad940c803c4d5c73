package crypto_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"bidvault/internal/crypto"
	"bidvault/internal/domain"
)

type keyPair struct {
	pub  domain.PublicKey
	priv domain.PrivateKey
}

var (
	pairsMu sync.Mutex
	pairs   []keyPair
)

// testKeyPair returns the i-th cached RSA pair; generation is slow, so
// pairs are shared across tests in this package.
func testKeyPair(t *testing.T, i int) keyPair {
	t.Helper()
	pairsMu.Lock()
	defer pairsMu.Unlock()
	for len(pairs) <= i {
		pub, priv, err := crypto.GenerateKeyPair()
		require.NoError(t, err)
		pairs = append(pairs, keyPair{pub: pub, priv: priv})
	}
	return pairs[i]
}

func newKey(t *testing.T) domain.SymmetricKey {
	t.Helper()
	k, err := crypto.NewSymmetricKey()
	require.NoError(t, err)
	return k
}
