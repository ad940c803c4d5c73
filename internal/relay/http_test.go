package relay_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidvault/internal/crypto"
	"bidvault/internal/domain"
	"bidvault/internal/relay"
	"bidvault/internal/relayserver"
)

func newServer(t *testing.T, apiKey string) *relay.HTTP {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := relayserver.OpenBadger("", nil)
	require.NoError(t, err)
	srv := httptest.NewServer(relayserver.NewRouter(st, apiKey, nil))
	t.Cleanup(func() {
		srv.Close()
		_ = st.Close()
	})
	return relay.NewHTTP(srv.URL, apiKey, 5*time.Second)
}

func record(user, id string) domain.ObservationRecord {
	return domain.ObservationRecord{
		Ciphertext: []byte("ct"),
		IV:         make([]byte, crypto.IVBytes),
		Metadata: domain.Metadata{
			ObservationID: domain.ObservationID(id),
			UserID:        domain.IdentityID(user),
			SessionID:     "s",
			Timestamp:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
	}
}

func TestRegisterIdentity_Conflict(t *testing.T) {
	c := newServer(t, "k")
	ctx := context.Background()

	res, err := c.RegisterIdentity(ctx, domain.Registration{ID: "a", Role: domain.RoleStudent, Email: "x@y.z"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, domain.IdentityID("a"), res.ID)

	_, err = c.RegisterIdentity(ctx, domain.Registration{ID: "b", Role: domain.RoleStudent, Email: "x@y.z"})
	require.ErrorIs(t, err, relay.ErrRegistrationConflict)
	var conflict *relay.RegistrationConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, domain.IdentityID("a"), conflict.ExistingID)
	assert.False(t, relay.IsRetryable(err))
}

func TestRegisterIdentity_SuccessNamingOtherIDIsConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"existing_id":"someone-else"}`))
	}))
	defer srv.Close()

	c := relay.NewHTTP(srv.URL, "", time.Second)
	_, err := c.RegisterIdentity(context.Background(), domain.Registration{ID: "a", Role: domain.RoleStudent, Email: "x@y.z"})
	require.ErrorIs(t, err, relay.ErrRegistrationConflict)
	var conflict *relay.RegistrationConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, domain.IdentityID("someone-else"), conflict.ExistingID)
	assert.False(t, relay.IsRetryable(err))
}

func TestSubmitAndFetch(t *testing.T) {
	c := newServer(t, "k")
	ctx := context.Background()
	_, err := c.RegisterIdentity(ctx, domain.Registration{ID: "a", Role: domain.RoleStudent})
	require.NoError(t, err)

	res, err := c.SubmitObservations(ctx, []domain.ObservationRecord{record("a", "1"), record("a", "2")})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stored)
	assert.ElementsMatch(t, []domain.ObservationID{"1", "2"}, res.StoredIDs)

	require.NoError(t, c.Beacon(ctx, []domain.ObservationRecord{record("a", "3")}))

	rows, err := c.FetchObservations(ctx, "a", 10)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.Equal(t, []byte("ct"), rows[0].Ciphertext)
}

func TestGrants(t *testing.T) {
	c := newServer(t, "")
	ctx := context.Background()
	pub, _, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	_, err = c.RegisterIdentity(ctx, domain.Registration{ID: "s", Role: domain.RoleStudent})
	require.NoError(t, err)
	_, err = c.RegisterIdentity(ctx, domain.Registration{ID: "t", Role: domain.RoleTeacher, PublicKey: pub})
	require.NoError(t, err)

	got, err := c.FetchIdentity(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, pub, got.PublicKey)

	_, err = c.FetchIdentity(ctx, "missing")
	assert.ErrorIs(t, err, relay.ErrNotFound)

	g := domain.Grant{GrantorID: "s", GranteeID: "t", WrappedKey: []byte{1, 2}}
	require.NoError(t, c.CreateGrant(ctx, g))
	assert.ErrorIs(t, c.CreateGrant(ctx, g), relay.ErrGrantExists)

	grants, err := c.FetchGrants(ctx, "t")
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, domain.IdentityID("s"), grants[0].GrantorID)
}

func TestWrongAPIKeyIsRejected(t *testing.T) {
	c := newServer(t, "right")
	c.APIKey = "wrong"
	_, err := c.FetchGrants(context.Background(), "t")
	require.ErrorIs(t, err, relay.ErrRejected)
	assert.False(t, relay.IsRetryable(err))
}

func TestServerErrorsAreRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := relay.NewHTTP(srv.URL, "", time.Second)
	_, err := c.SubmitObservations(context.Background(), []domain.ObservationRecord{record("a", "1")})
	require.ErrorIs(t, err, relay.ErrNetwork)
	assert.True(t, relay.IsRetryable(err))
}

func TestTransportFailureIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := relay.NewHTTP(url, "", time.Second)
	err := c.Health(context.Background())
	var netErr *relay.NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Zero(t, netErr.Status)
	assert.True(t, relay.IsRetryable(err))
}
