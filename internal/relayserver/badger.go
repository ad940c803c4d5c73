package relayserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"bidvault/internal/domain"
)

const sep = "\x00"

// storedIdentity is the relay-side identity record.
type storedIdentity struct {
	domain.PublicIdentity
	Email        string `json:"email,omitempty"`
	RegisteredAt int64  `json:"registered_at"`
}

// BadgerStore implements Store on badger.
type BadgerStore struct {
	db  *badger.DB
	now func() time.Time
}

// OpenBadger opens the store at dir; an empty dir keeps everything in memory.
func OpenBadger(dir string, logger logrus.FieldLogger) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	if logger != nil {
		opts = opts.WithLogger(logger)
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerStore{db: db, now: time.Now}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func key(parts ...string) []byte { return []byte(strings.Join(parts, sep)) }

func getJSON(txn *badger.Txn, k []byte, out any) error {
	item, err := txn.Get(k)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(v []byte) error { return json.Unmarshal(v, out) })
}

func setJSON(txn *badger.Txn, k []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(k, b)
}

func (s *BadgerStore) RegisterIdentity(reg domain.Registration) (domain.RegistrationResult, error) {
	var res domain.RegistrationResult
	err := s.db.Update(func(txn *badger.Txn) error {
		email := strings.ToLower(strings.TrimSpace(reg.Email))
		if email != "" {
			var owner domain.IdentityID
			switch err := getJSON(txn, key("email", email), &owner); {
			case err == nil && owner != reg.ID:
				res = domain.RegistrationResult{ExistingID: owner}
				return ErrEmailTaken
			case err != nil && !errors.Is(err, ErrNotFound):
				return err
			}
		}

		var existing storedIdentity
		switch err := getJSON(txn, key("identity", string(reg.ID)), &existing); {
		case err == nil:
			if len(existing.PublicKey) > 0 && !bytes.Equal(existing.PublicKey, reg.PublicKey) {
				return ErrKeyMismatch
			}
		case !errors.Is(err, ErrNotFound):
			return err
		default:
			existing.RegisteredAt = s.now().Unix()
		}

		existing.PublicIdentity = domain.PublicIdentity{ID: reg.ID, Role: reg.Role, PublicKey: reg.PublicKey}
		if email != "" {
			existing.Email = email
			if err := setJSON(txn, key("email", email), reg.ID); err != nil {
				return err
			}
		}
		res = domain.RegistrationResult{Success: true, ID: reg.ID}
		return setJSON(txn, key("identity", string(reg.ID)), existing)
	})
	return res, err
}

func (s *BadgerStore) GetIdentity(id domain.IdentityID) (domain.PublicIdentity, error) {
	var rec storedIdentity
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, key("identity", string(id)), &rec)
	})
	return rec.PublicIdentity, err
}

func (s *BadgerStore) PutObservation(rec domain.ObservationRecord) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var owner storedIdentity
		if err := getJSON(txn, key("identity", string(rec.Metadata.UserID)), &owner); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrUnknownUser
			}
			return err
		}
		return setJSON(txn, key("obs", string(rec.Metadata.UserID), string(rec.Metadata.ObservationID)), rec)
	})
}

func (s *BadgerStore) ListObservations(userID domain.IdentityID, limit int) ([]domain.ObservationRecord, error) {
	var out []domain.ObservationRecord
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := key("obs", string(userID), "")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec domain.ObservationRecord
			if err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &rec) }); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Metadata.Timestamp.After(out[j].Metadata.Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *BadgerStore) CreateGrant(g domain.Grant) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, id := range []domain.IdentityID{g.GrantorID, g.GranteeID} {
			var rec storedIdentity
			if err := getJSON(txn, key("identity", string(id)), &rec); err != nil {
				if errors.Is(err, ErrNotFound) {
					return fmt.Errorf("%w: %s", ErrUnknownUser, id)
				}
				return err
			}
		}
		k := key("grant", string(g.GranteeID), string(g.GrantorID))
		if _, err := txn.Get(k); err == nil {
			return ErrGrantExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if g.CreatedUTC == 0 {
			g.CreatedUTC = s.now().Unix()
		}
		return setJSON(txn, k, g)
	})
}

func (s *BadgerStore) ListGrants(granteeID domain.IdentityID) ([]domain.Grant, error) {
	out := []domain.Grant{}
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := key("grant", string(granteeID), "")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var g domain.Grant
			if err := it.Item().Value(func(v []byte) error { return json.Unmarshal(v, &g) }); err != nil {
				return err
			}
			out = append(out, g)
		}
		return nil
	})
	return out, err
}

var _ Store = (*BadgerStore)(nil)
