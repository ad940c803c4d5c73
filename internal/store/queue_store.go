package store

import (
	"bidvault/internal/domain"
)

// QueueFileStore is the pending observation queue, kept under
// "pending_observations" in the shared document. Entries are keyed by
// observation id, so re-enqueueing the same observation replaces it.
type QueueFileStore struct {
	doc *Document
}

// NewQueueFileStore returns a QueueFileStore backed by doc.
func NewQueueFileStore(doc *Document) *QueueFileStore {
	return &QueueFileStore{doc: doc}
}

func (s *QueueFileStore) update(fn func([]domain.PendingEntry) ([]domain.PendingEntry, error)) error {
	return s.doc.Update(func(f Fields) error {
		var q []domain.PendingEntry
		if _, err := f.Get(KeyPendingObservations, &q); err != nil {
			return err
		}
		next, err := fn(q)
		if err != nil {
			return err
		}
		if next == nil {
			next = []domain.PendingEntry{}
		}
		return f.Set(KeyPendingObservations, next)
	})
}

// Enqueue appends entry, or replaces the queued entry with the same id in place.
func (s *QueueFileStore) Enqueue(entry domain.PendingEntry) error {
	entry = entry.Clone()
	return s.update(func(q []domain.PendingEntry) ([]domain.PendingEntry, error) {
		for i := range q {
			if q[i].ID() == entry.ID() {
				q[i] = entry
				return q, nil
			}
		}
		return append(q, entry), nil
	})
}

// Replace overwrites the queued entry with the same id.
func (s *QueueFileStore) Replace(entry domain.PendingEntry) (bool, error) {
	entry = entry.Clone()
	found := false
	err := s.update(func(q []domain.PendingEntry) ([]domain.PendingEntry, error) {
		for i := range q {
			if q[i].ID() == entry.ID() {
				q[i] = entry
				found = true
			}
		}
		return q, nil
	})
	return found, err
}

// List returns a copy of the queue; mutating it does not affect storage.
func (s *QueueFileStore) List() ([]domain.PendingEntry, error) {
	var out []domain.PendingEntry
	err := s.doc.View(func(f Fields) error {
		_, err := f.Get(KeyPendingObservations, &out)
		return err
	})
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out, nil
}

// RemoveByIDs drops every entry whose id is listed and returns the count.
func (s *QueueFileStore) RemoveByIDs(ids []domain.ObservationID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	drop := make(map[domain.ObservationID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	removed := 0
	err := s.update(func(q []domain.PendingEntry) ([]domain.PendingEntry, error) {
		kept := q[:0]
		for _, e := range q {
			if _, ok := drop[e.ID()]; ok {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		return kept, nil
	})
	return removed, err
}

// Clear empties the queue.
func (s *QueueFileStore) Clear() error {
	return s.update(func([]domain.PendingEntry) ([]domain.PendingEntry, error) {
		return nil, nil
	})
}

var _ domain.QueueStore = (*QueueFileStore)(nil)
