package observation

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"bidvault/internal/domain"
)

// SessionTracker keeps the running tally of the current practice session.
// It is process-local and never persisted.
type SessionTracker struct {
	mu  sync.Mutex
	cur *domain.Session
	now func() time.Time
}

// NewSessionTracker returns a tracker with no session started.
func NewSessionTracker() *SessionTracker {
	return &SessionTracker{now: time.Now}
}

// Start begins a new session, discarding the current one.
func (t *SessionTracker) Start() domain.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startLocked()
}

func (t *SessionTracker) startLocked() domain.Session {
	t.cur = &domain.Session{
		SessionID: domain.SessionID(uuid.NewString()),
		StartedAt: t.now().UTC(),
	}
	return *t.cur
}

// Current returns the running session, starting one if needed.
func (t *SessionTracker) Current() domain.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur == nil {
		return t.startLocked()
	}
	return *t.cur
}

// Record counts one answer in the running session.
func (t *SessionTracker) Record(correct bool) domain.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur == nil {
		t.startLocked()
	}
	if correct {
		t.cur.CorrectCount++
	} else {
		t.cur.WrongCount++
	}
	t.cur.Total++
	return *t.cur
}

// Snapshot returns the running session, if any.
func (t *SessionTracker) Snapshot() (domain.Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur == nil {
		return domain.Session{}, false
	}
	return *t.cur, true
}

// Reset ends the running session.
func (t *SessionTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cur = nil
}
