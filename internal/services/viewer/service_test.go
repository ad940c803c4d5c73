package viewer_test

import (
	"context"
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
	"bidvault/internal/services/grant"
	"bidvault/internal/services/identity"
	"bidvault/internal/services/viewer"
	"bidvault/internal/store"
)

type fixture struct {
	rc          *relay.HTTP
	studentIDs  *identity.Service
	student     domain.Identity
	teacherIDs  *identity.Service
	teacher     domain.Identity
	otherIDs    *identity.Service
	otherViewer domain.Identity
}

func device(t *testing.T, rc domain.RelayClient, role domain.Role) (*identity.Service, domain.Identity) {
	t.Helper()
	doc, err := store.OpenDocument(t.TempDir())
	require.NoError(t, err)
	svc := identity.New(store.NewIdentityFileStore(doc), store.NewPassphraseVault(doc, "Pa55word!long"), rc, nil)
	id, _, err := svc.CreateIdentity(role, "")
	require.NoError(t, err)
	require.NoError(t, svc.EnsureRegistered(context.Background(), id.ID))
	return svc, id
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := relayserver.OpenBadger("", nil)
	require.NoError(t, err)
	srv := httptest.NewServer(relayserver.NewRouter(st, "", nil))
	t.Cleanup(func() {
		srv.Close()
		_ = st.Close()
	})
	f := &fixture{rc: relay.NewHTTP(srv.URL, "", 5*time.Second)}
	f.studentIDs, f.student = device(t, f.rc, domain.RoleStudent)
	f.teacherIDs, f.teacher = device(t, f.rc, domain.RoleTeacher)
	f.otherIDs, f.otherViewer = device(t, f.rc, domain.RoleAdmin)
	return f
}

func (f *fixture) submit(t *testing.T, obs domain.Observation, id string) {
	t.Helper()
	env, err := crypto.EncryptEnvelope(obs, f.student.SymmetricKey)
	require.NoError(t, err)
	res, err := f.rc.SubmitObservations(context.Background(), []domain.ObservationRecord{{
		Scheme:     env.Scheme,
		Ciphertext: env.Ciphertext,
		IV:         env.IV,
		Metadata: domain.Metadata{
			ObservationID: domain.ObservationID(id),
			UserID:        f.student.ID,
			SessionID:     "s",
			Timestamp:     time.Now().UTC(),
		},
	}})
	require.NoError(t, err)
	require.Equal(t, 1, res.Stored)
}

func TestSymmetricKeyFor_NoGrantThenGrant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := viewer.New(f.teacherIDs, f.rc, nil)

	_, err := v.SymmetricKeyFor(ctx, f.student.ID)
	require.ErrorIs(t, err, viewer.ErrNoGrant)
	assert.False(t, crypto.IsCryptoFailure(err))
	assert.Zero(t, v.Cache().Len())

	_, err = grant.New(f.studentIDs, f.rc, nil).Share(ctx, f.teacher.ID)
	require.NoError(t, err)

	k, err := v.SymmetricKeyFor(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, f.student.SymmetricKey, k)
	assert.Equal(t, 1, v.Cache().Len())

	v.Cache().Clear()
	assert.Zero(t, v.Cache().Len())
}

func TestSymmetricKeyFor_CorruptGrantIsDistinct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.rc.CreateGrant(ctx, domain.Grant{
		GrantorID:  f.student.ID,
		GranteeID:  f.teacher.ID,
		WrappedKey: []byte("not an rsa ciphertext"),
	}))

	_, err := viewer.New(f.teacherIDs, f.rc, nil).SymmetricKeyFor(ctx, f.student.ID)
	require.ErrorIs(t, err, crypto.ErrGrantDecrypt)
	assert.NotErrorIs(t, err, viewer.ErrNoGrant)
}

func TestFetchStudentObservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.submit(t, domain.Observation{"bid": "2C", "correct": true}, "o1")
	f.submit(t, domain.Observation{"bid": "1NT", "correct": false}, "o2")

	_, err := grant.New(f.studentIDs, f.rc, nil).Share(ctx, f.teacher.ID)
	require.NoError(t, err)

	rows, err := viewer.New(f.teacherIDs, f.rc, nil).FetchStudentObservations(ctx, f.student.ID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	bids := []any{}
	for _, r := range rows {
		require.NoError(t, r.Err)
		bids = append(bids, r.Observation["bid"])
	}
	assert.ElementsMatch(t, []any{"2C", "1NT"}, bids)

	// a viewer without a grant sees "no permission" on every row
	rows, err = viewer.New(f.otherIDs, f.rc, nil).FetchStudentObservations(ctx, f.student.ID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.ErrorIs(t, r.Err, viewer.ErrNoGrant)
		assert.Nil(t, r.Observation)
	}
}

func TestDecryptForViewer_TamperedIsAuthError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := grant.New(f.studentIDs, f.rc, nil).Share(ctx, f.teacher.ID)
	require.NoError(t, err)

	env, err := crypto.EncryptEnvelope(domain.Observation{"bid": "4S"}, f.student.SymmetricKey)
	require.NoError(t, err)
	env.Ciphertext[0] ^= 1

	_, err = viewer.New(f.teacherIDs, f.rc, nil).DecryptForViewer(ctx, env, f.student.ID)
	require.ErrorIs(t, err, crypto.ErrDecryptAuth)
}

func TestDecryptForViewer_RecipientsScheme(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	env, err := crypto.SealForRecipients(domain.Observation{"bid": "6H"}, f.student.ID, f.student.SymmetricKey,
		[]crypto.Recipient{{ID: f.teacher.ID, PublicKey: f.teacher.PublicKey}}, false)
	require.NoError(t, err)

	got, err := viewer.New(f.teacherIDs, f.rc, nil).DecryptForViewer(ctx, env, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, "6H", got["bid"])

	_, err = viewer.New(f.otherIDs, f.rc, nil).DecryptForViewer(ctx, env, f.student.ID)
	assert.ErrorIs(t, err, viewer.ErrNoGrant)
	assert.ErrorIs(t, err, crypto.ErrNotRecipient)

	own, err := viewer.New(f.studentIDs, f.rc, nil).DecryptForViewer(ctx, env, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, "6H", own["bid"])
}
