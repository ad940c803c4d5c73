package store

import (
	"sort"

	"bidvault/internal/domain"
)

// IdentityFileStore keeps public identity records and the current identity
// id in the shared document.
type IdentityFileStore struct {
	doc *Document
}

// NewIdentityFileStore returns an IdentityFileStore backed by doc.
func NewIdentityFileStore(doc *Document) *IdentityFileStore {
	return &IdentityFileStore{doc: doc}
}

// SaveIdentity inserts or replaces the record with the same id.
func (s *IdentityFileStore) SaveIdentity(rec domain.IdentityRecord) error {
	return s.doc.Update(func(f Fields) error {
		ids := map[domain.IdentityID]domain.IdentityRecord{}
		if _, err := f.Get(KeyIdentities, &ids); err != nil {
			return err
		}
		ids[rec.ID] = rec
		return f.Set(KeyIdentities, ids)
	})
}

// LoadIdentity returns the record for id, if any.
func (s *IdentityFileStore) LoadIdentity(id domain.IdentityID) (domain.IdentityRecord, bool, error) {
	var (
		rec domain.IdentityRecord
		ok  bool
	)
	err := s.doc.View(func(f Fields) error {
		ids := map[domain.IdentityID]domain.IdentityRecord{}
		if _, err := f.Get(KeyIdentities, &ids); err != nil {
			return err
		}
		rec, ok = ids[id]
		return nil
	})
	return rec, ok, err
}

// ListIdentities returns every record ordered by creation time.
func (s *IdentityFileStore) ListIdentities() ([]domain.IdentityRecord, error) {
	var out []domain.IdentityRecord
	err := s.doc.View(func(f Fields) error {
		ids := map[domain.IdentityID]domain.IdentityRecord{}
		if _, err := f.Get(KeyIdentities, &ids); err != nil {
			return err
		}
		for _, rec := range ids {
			out = append(out, rec)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedUTC != out[j].CreatedUTC {
			return out[i].CreatedUTC < out[j].CreatedUTC
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

// SetCurrentIdentityID records which identity this install acts as.
func (s *IdentityFileStore) SetCurrentIdentityID(id domain.IdentityID) error {
	return s.doc.Update(func(f Fields) error {
		return f.Set(KeyCurrentIdentityID, id)
	})
}

// CurrentIdentityID returns the current identity id, if one is set.
func (s *IdentityFileStore) CurrentIdentityID() (domain.IdentityID, bool, error) {
	var id domain.IdentityID
	err := s.doc.View(func(f Fields) error {
		_, err := f.Get(KeyCurrentIdentityID, &id)
		return err
	})
	return id, id != "", err
}

var _ domain.IdentityStore = (*IdentityFileStore)(nil)
