package grant_test

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
	"bidvault/internal/store"
)

func newRelay(t *testing.T) *relay.HTTP {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := relayserver.OpenBadger("", nil)
	require.NoError(t, err)
	srv := httptest.NewServer(relayserver.NewRouter(st, "", nil))
	t.Cleanup(func() {
		srv.Close()
		_ = st.Close()
	})
	return relay.NewHTTP(srv.URL, "", 5*time.Second)
}

// device is one install with its own local document.
func device(t *testing.T, rc domain.RelayClient, role domain.Role) (*identity.Service, domain.Identity) {
	t.Helper()
	doc, err := store.OpenDocument(t.TempDir())
	require.NoError(t, err)
	svc := identity.New(store.NewIdentityFileStore(doc), store.NewPassphraseVault(doc, "Pa55word!long"), rc, nil)
	id, _, err := svc.CreateIdentity(role, "")
	require.NoError(t, err)
	return svc, id
}

func TestShare_ViewerCanOpen(t *testing.T) {
	rc := newRelay(t)
	ctx := context.Background()
	studentIDs, student := device(t, rc, domain.RoleStudent)
	teacherIDs, teacher := device(t, rc, domain.RoleTeacher)
	require.NoError(t, teacherIDs.EnsureRegistered(ctx, teacher.ID))

	svc := grant.New(studentIDs, rc, nil)
	g, err := svc.Share(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, student.ID, g.GrantorID)

	k, err := crypto.OpenGrant(g.WrappedKey, teacher.PrivateKey)
	require.NoError(t, err)
	assert.Equal(t, student.SymmetricKey, k)

	listed, err := grant.New(teacherIDs, rc, nil).ListGrants(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, g.WrappedKey, listed[0].WrappedKey)
}

func TestShare_SecondTimeIsGrantExists(t *testing.T) {
	rc := newRelay(t)
	ctx := context.Background()
	studentIDs, _ := device(t, rc, domain.RoleStudent)
	teacherIDs, teacher := device(t, rc, domain.RoleTeacher)
	require.NoError(t, teacherIDs.EnsureRegistered(ctx, teacher.ID))

	svc := grant.New(studentIDs, rc, nil)
	first, err := svc.Share(ctx, teacher.ID)
	require.NoError(t, err)

	again, err := svc.Share(ctx, teacher.ID)
	require.ErrorIs(t, err, grant.ErrGrantExists)
	assert.Equal(t, first.WrappedKey, again.WrappedKey)

	grants, err := rc.FetchGrants(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Len(t, grants, 1)
}

func TestShare_RejectsNonViewers(t *testing.T) {
	rc := newRelay(t)
	ctx := context.Background()
	aIDs, _ := device(t, rc, domain.RoleStudent)
	bIDs, b := device(t, rc, domain.RoleStudent)
	require.NoError(t, bIDs.EnsureRegistered(ctx, b.ID))

	_, err := grant.New(aIDs, rc, nil).Share(ctx, b.ID)
	assert.ErrorIs(t, err, grant.ErrNotViewer)

	_, err = grant.New(aIDs, rc, nil).Share(ctx, "unregistered")
	assert.ErrorIs(t, err, relay.ErrNotFound)
}

func TestShare_Self(t *testing.T) {
	rc := newRelay(t)
	ids, me := device(t, rc, domain.RoleTeacher)
	_, err := grant.New(ids, rc, nil).Share(context.Background(), me.ID)
	assert.ErrorIs(t, err, grant.ErrSelfGrant)
}
