package identity_test

import (
	"context"
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
	"bidvault/internal/services/identity"
	"bidvault/internal/store"
)

type env struct {
	dir   string
	doc   *store.Document
	relay *relay.HTTP
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st, err := relayserver.OpenBadger("", nil)
	require.NoError(t, err)
	srv := httptest.NewServer(relayserver.NewRouter(st, "", nil))
	t.Cleanup(func() {
		srv.Close()
		_ = st.Close()
	})
	dir := t.TempDir()
	doc, err := store.OpenDocument(dir)
	require.NoError(t, err)
	return &env{dir: dir, doc: doc, relay: relay.NewHTTP(srv.URL, "", 5*time.Second)}
}

func (e *env) service() *identity.Service {
	return identity.New(
		store.NewIdentityFileStore(e.doc),
		store.NewPassphraseVault(e.doc, "Sup3r-secret!pass"),
		e.relay,
		nil,
	)
}

func TestCreateIdentity_Student(t *testing.T) {
	e := newEnv(t)
	svc := e.service()

	id, fp, err := svc.CreateIdentity(domain.RoleStudent, "ann@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, id.ID)
	assert.False(t, id.SymmetricKey.IsZero())
	assert.Empty(t, id.PublicKey)
	assert.Equal(t, crypto.KeyID(id.SymmetricKey), fp)

	cur, err := e.service().CurrentIdentity()
	require.NoError(t, err)
	assert.Equal(t, id.ID, cur.ID)
	assert.Equal(t, id.SymmetricKey, cur.SymmetricKey)
}

func TestCreateIdentity_ViewerReloadsValidated(t *testing.T) {
	e := newEnv(t)
	id, fp, err := e.service().CreateIdentity(domain.RoleTeacher, "")
	require.NoError(t, err)
	assert.Equal(t, crypto.Fingerprint(id.PublicKey), fp)

	got, err := e.service().LoadIdentity(id.ID)
	require.NoError(t, err)
	assert.Equal(t, id.PrivateKey, got.PrivateKey)
	assert.Equal(t, id.PublicKey, got.PublicKey)
}

func TestLoadIdentity_MismatchedKeyPairIsRejected(t *testing.T) {
	e := newEnv(t)
	id, _, err := e.service().CreateIdentity(domain.RoleTeacher, "")
	require.NoError(t, err)

	_, otherPriv, err := crypto.GenerateKeyPair()
	require.NoError(t, err)
	vault := store.NewPassphraseVault(e.doc, "Sup3r-secret!pass")
	require.NoError(t, vault.PutSecrets(id.ID, domain.IdentitySecrets{SymmetricKey: id.SymmetricKey, PrivateKey: otherPriv}))

	_, err = e.service().LoadIdentity(id.ID)
	assert.ErrorIs(t, err, crypto.ErrKeyFormat)
}

func TestCreateIdentity_InvalidRole(t *testing.T) {
	_, _, err := newEnv(t).service().CreateIdentity(domain.Role("parent"), "")
	assert.ErrorIs(t, err, identity.ErrInvalidRole)
}

func TestCurrentIdentity_NoneYet(t *testing.T) {
	_, err := newEnv(t).service().CurrentIdentity()
	assert.ErrorIs(t, err, identity.ErrNoCurrentIdentity)
}

func TestEnsureRegistered_PersistsFlag(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	id, _, err := e.service().CreateIdentity(domain.RoleTeacher, "t@example.com")
	require.NoError(t, err)

	require.NoError(t, e.service().EnsureRegistered(ctx, id.ID))

	got, err := e.service().LoadIdentity(id.ID)
	require.NoError(t, err)
	assert.True(t, got.Registered)

	pub, err := e.relay.FetchIdentity(ctx, id.ID)
	require.NoError(t, err)
	assert.Equal(t, id.PublicKey, pub.PublicKey)
}

func TestEnsureRegistered_EmailConflict(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := e.service()

	first, _, err := svc.CreateIdentity(domain.RoleStudent, "dup@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.EnsureRegistered(ctx, first.ID))

	second, _, err := svc.CreateIdentity(domain.RoleStudent, "dup@example.com")
	require.NoError(t, err)
	err = svc.EnsureRegistered(ctx, second.ID)
	require.ErrorIs(t, err, relay.ErrRegistrationConflict)

	got, err := svc.LoadIdentity(second.ID)
	require.NoError(t, err)
	assert.False(t, got.Registered)
}

func TestEnsureRegistered_SuccessNamingOtherIDIsConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"existing_id":"someone-else"}`))
	}))
	defer srv.Close()

	e := newEnv(t)
	svc := identity.New(
		store.NewIdentityFileStore(e.doc),
		store.NewPassphraseVault(e.doc, "Sup3r-secret!pass"),
		relay.NewHTTP(srv.URL, "", time.Second),
		nil,
	)
	id, _, err := svc.CreateIdentity(domain.RoleStudent, "taken@example.com")
	require.NoError(t, err)

	err = svc.EnsureRegistered(context.Background(), id.ID)
	require.ErrorIs(t, err, relay.ErrRegistrationConflict)

	got, err := svc.LoadIdentity(id.ID)
	require.NoError(t, err)
	assert.False(t, got.Registered)
}

func TestCurrentIdentityID_WorksWhileLocked(t *testing.T) {
	e := newEnv(t)
	id, _, err := e.service().CreateIdentity(domain.RoleStudent, "ann@example.com")
	require.NoError(t, err)

	locked := identity.New(store.NewIdentityFileStore(e.doc), store.NewPassphraseVault(e.doc, ""), e.relay, nil)
	_, err = locked.CurrentIdentity()
	require.Error(t, err)

	got, err := locked.CurrentIdentityID()
	require.NoError(t, err)
	assert.Equal(t, id.ID, got)

	_, err = newEnv(t).service().CurrentIdentityID()
	assert.ErrorIs(t, err, identity.ErrNoCurrentIdentity)
}

func TestUseIdentity(t *testing.T) {
	e := newEnv(t)
	svc := e.service()
	a, _, err := svc.CreateIdentity(domain.RoleStudent, "")
	require.NoError(t, err)
	_, _, err = svc.CreateIdentity(domain.RoleStudent, "")
	require.NoError(t, err)

	require.NoError(t, svc.UseIdentity(a.ID))
	cur, err := svc.CurrentIdentity()
	require.NoError(t, err)
	assert.Equal(t, a.ID, cur.ID)

	assert.ErrorIs(t, svc.UseIdentity("nobody"), identity.ErrUnknownIdentity)
}

func TestCheckPassphrase(t *testing.T) {
	assert.ErrorIs(t, identity.CheckPassphrase("short"), identity.ErrWeakPassphrase)
	assert.ErrorIs(t, identity.CheckPassphrase("alllowercaseletters"), identity.ErrWeakPassphrase)
	assert.NoError(t, identity.CheckPassphrase("Correct-Horse-9"))
}
