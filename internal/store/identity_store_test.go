package store_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bidvault/internal/domain"
	"bidvault/internal/store"
)

func TestIdentityStore_SaveLoadList(t *testing.T) {
	doc, err := store.OpenDocument(t.TempDir())
	require.NoError(t, err)
	var ids domain.IdentityStore = store.NewIdentityFileStore(doc)

	require.NoError(t, ids.SaveIdentity(domain.IdentityRecord{ID: "b", Role: domain.RoleTeacher, PublicKey: domain.PublicKey{1, 2}, CreatedUTC: 20}))
	require.NoError(t, ids.SaveIdentity(domain.IdentityRecord{ID: "a", Role: domain.RoleStudent, CreatedUTC: 10}))

	rec, ok, err := ids.LoadIdentity("b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.RoleTeacher, rec.Role)
	assert.Equal(t, domain.PublicKey{1, 2}, rec.PublicKey)

	_, ok, err = ids.LoadIdentity("nope")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := ids.ListIdentities()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, domain.IdentityID("a"), all[0].ID)

	rec.Registered = true
	require.NoError(t, ids.SaveIdentity(rec))
	rec, _, err = ids.LoadIdentity("b")
	require.NoError(t, err)
	assert.True(t, rec.Registered)
}

func TestIdentityStore_CurrentID(t *testing.T) {
	doc, err := store.OpenDocument(t.TempDir())
	require.NoError(t, err)
	ids := store.NewIdentityFileStore(doc)

	_, ok, err := ids.CurrentIdentityID()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, ids.SetCurrentIdentityID("a"))
	id, ok, err := ids.CurrentIdentityID()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.IdentityID("a"), id)
}
