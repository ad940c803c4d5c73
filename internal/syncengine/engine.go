package syncengine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"bidvault/internal/crypto"
	"bidvault/internal/domain"
	"bidvault/internal/relay"
)

var (
	// ErrOffline is returned by attempts made while offline.
	ErrOffline = errors.New("offline")
	// ErrClosed is returned once the engine has been closed.
	ErrClosed = errors.New("sync engine closed")
	// ErrPartialSubmit marks a batch the relay stored only in part.
	ErrPartialSubmit = errors.New("relay stored only part of the batch")
)

// PartialSubmitError lists the rows the relay refused.
type PartialSubmitError struct {
	Stored int
	Failed []domain.SubmitError
}

func (e *PartialSubmitError) Error() string {
	return fmt.Sprintf("%v: %d stored, %d failed", ErrPartialSubmit, e.Stored, len(e.Failed))
}

func (e *PartialSubmitError) Is(target error) bool { return target == ErrPartialSubmit }

// Registrar yields the local identity and registers it with the relay.
type Registrar interface {
	CurrentIdentity() (domain.Identity, error)
	EnsureRegistered(ctx context.Context, id domain.IdentityID) error
}

// Sealer turns queued entries into submittable ones.
type Sealer interface {
	// Prepare refreshes whatever key material sealing needs. Errors are
	// logged and do not fail the attempt.
	Prepare(ctx context.Context) error
	// Seal encrypts a raw entry.
	Seal(entry domain.PendingEntry) (domain.PendingEntry, error)
	// Rewrap re-seals an entry still waiting on a viewer key and reports
	// whether it changed.
	Rewrap(entry domain.PendingEntry) (domain.PendingEntry, bool, error)
}

// Config holds the engine's timing.
type Config struct {
	Debounce       time.Duration
	Periodic       time.Duration
	Backoff        Backoff
	MaxRetries     int
	RequestTimeout time.Duration
}

// DefaultConfig returns 5s debounce, 5m periodic, the default backoff,
// 5 retries and a 15s request timeout.
func DefaultConfig() Config {
	return Config{
		Debounce:       5 * time.Second,
		Periodic:       5 * time.Minute,
		Backoff:        DefaultBackoff(),
		MaxRetries:     5,
		RequestTimeout: 15 * time.Second,
	}
}

type trigger string

const (
	triggerDebounce  trigger = "debounce"
	triggerPeriodic  trigger = "periodic"
	triggerRetry     trigger = "retry"
	triggerForced    trigger = "forced"
	triggerReconnect trigger = "reconnect"
)

func (t trigger) explicit() bool { return t == triggerForced || t == triggerReconnect }

// Engine is the sync state machine.
type Engine struct {
	cfg    Config
	ids    Registrar
	queue  domain.QueueStore
	relay  domain.RelayClient
	sealer Sealer
	clock  Clock
	log    logrus.FieldLogger

	mu         sync.Mutex
	state      State
	online     bool
	foreground bool
	running    bool
	rerun      bool
	closed     bool
	retryCount int
	lastErr    error
	lastSyncAt time.Time
	conflict   *relay.RegistrationConflictError
	pending    int
	debounce   Timer
	retry      Timer
	periodic   Timer
	subs       map[chan Status]struct{}
}

// New returns an idle, online, foreground engine. Timers only start with
// Notify, Start or a failed attempt. sealer may be nil, in which case raw
// entries wait in the queue.
func New(
	cfg Config,
	ids Registrar,
	queue domain.QueueStore,
	rc domain.RelayClient,
	sealer Sealer,
	clock Clock,
	logger logrus.FieldLogger,
) *Engine {
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultConfig().MaxRetries
	}
	return &Engine{
		cfg:        cfg,
		ids:        ids,
		queue:      queue,
		relay:      rc,
		sealer:     sealer,
		clock:      clock,
		log:        logger,
		state:      StateIdle,
		online:     true,
		foreground: true,
		subs:       map[chan Status]struct{}{},
	}
}

// Start arms the periodic timer.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.armPeriodicLocked()
}

// Notify schedules a debounced sync; repeated calls push it back.
func (e *Engine) Notify() {
	n := e.countPending()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.pending = n
	stop(&e.debounce)
	var t Timer
	t = e.clock.AfterFunc(e.cfg.Debounce, func() {
		if e.claim(&e.debounce, t) {
			_ = e.run(context.Background(), triggerDebounce)
		}
	})
	e.debounce = t
	e.publishLocked()
}

// Sync runs an attempt now, cancelling any pending debounce or retry. A
// parked engine starts a fresh retry budget. If an attempt is already
// running this one is deferred until it ends and Sync returns nil.
func (e *Engine) Sync(ctx context.Context) error {
	return e.run(ctx, triggerForced)
}

// SetOnline reports connectivity. Going offline cancels pending retries and
// the debounce; coming back online forces an immediate attempt.
func (e *Engine) SetOnline(ctx context.Context, online bool) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	was := e.online
	e.online = online
	if !online {
		stop(&e.retry)
		stop(&e.debounce)
		if !e.running {
			e.setStateLocked(StateOffline)
		}
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()
	if was {
		return nil
	}
	return e.run(ctx, triggerReconnect)
}

// SetForeground pauses the periodic timer while in the background.
func (e *Engine) SetForeground(fg bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.foreground = fg
	if fg {
		e.armPeriodicLocked()
	} else {
		stop(&e.periodic)
	}
}

// ResolveConflict clears a registration conflict so sync can resume, for
// example after the caller switched to the existing identity.
func (e *Engine) ResolveConflict() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.conflict = nil
	e.retryCount = 0
	if e.state == StateError && !e.running {
		e.lastErr = nil
		e.setStateLocked(StateIdle)
	}
}

// Status returns a snapshot of the engine and queue.
func (e *Engine) Status() Status {
	n := e.countPending()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = n
	return e.statusLocked()
}

// Subscribe returns a channel receiving a Status after each state change,
// and a function to stop the subscription. Slow readers only see the
// latest status.
func (e *Engine) Subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)
	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()
	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if _, ok := e.subs[ch]; ok {
			delete(e.subs, ch)
			close(ch)
		}
	}
}

// Close stops every timer and sends a fire-and-forget beacon with the
// encrypted entries. Entries stay queued until a confirmed sync removes
// them.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	stop(&e.debounce)
	stop(&e.retry)
	stop(&e.periodic)
	online := e.online
	for ch := range e.subs {
		delete(e.subs, ch)
		close(ch)
	}
	e.mu.Unlock()

	if !online {
		return nil
	}
	entries, err := e.queue.List()
	if err != nil {
		return err
	}
	records := encryptedRecords(entries)
	if len(records) == 0 {
		return nil
	}
	if err := e.relay.Beacon(ctx, records); err != nil {
		e.log.WithError(err).Debug("exit beacon failed")
		return nil
	}
	e.log.WithField("count", len(records)).Debug("exit beacon sent")
	return nil
}

func (e *Engine) run(ctx context.Context, t trigger) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	if t.explicit() {
		stop(&e.debounce)
		stop(&e.retry)
		if e.retryCount >= e.cfg.MaxRetries {
			e.retryCount = 0
		}
	} else if t != triggerRetry && e.retryCount >= e.cfg.MaxRetries {
		// parked: only explicit triggers resume
		e.mu.Unlock()
		return nil
	}
	if e.running {
		e.rerun = true
		e.mu.Unlock()
		return nil
	}
	e.running = true

	for {
		e.setStateLocked(StateSyncing)
		e.mu.Unlock()

		self, err := e.attempt(ctx)
		pending := e.countPending()

		e.mu.Lock()
		e.pending = pending
		e.finishLocked(t, self, err)
		if !e.rerun || e.closed {
			e.rerun = false
			e.running = false
			e.mu.Unlock()
			return err
		}
		e.rerun = false
	}
}

// attempt runs one sync pass and returns the identity it acted as.
func (e *Engine) attempt(ctx context.Context) (domain.IdentityID, error) {
	e.mu.Lock()
	online, conflict := e.online, e.conflict
	e.mu.Unlock()
	if !online {
		return "", ErrOffline
	}
	if conflict != nil {
		return conflict.ID, conflict
	}

	me, err := e.ids.CurrentIdentity()
	if err != nil {
		return "", err
	}
	if err := e.withTimeout(ctx, func(ctx context.Context) error {
		return e.ids.EnsureRegistered(ctx, me.ID)
	}); err != nil {
		return me.ID, err
	}

	if err := e.seal(ctx, me.ID); err != nil {
		return me.ID, err
	}

	entries, err := e.queue.List()
	if err != nil {
		return me.ID, err
	}
	batch := encryptedRecords(entries)
	if len(batch) == 0 {
		return me.ID, nil
	}

	var res domain.SubmitResult
	if err := e.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		res, err = e.relay.SubmitObservations(ctx, batch)
		return err
	}); err != nil {
		return me.ID, err
	}

	confirmed := confirmedIDs(batch, res)
	if len(confirmed) > 0 {
		if _, err := e.queue.RemoveByIDs(confirmed); err != nil {
			return me.ID, err
		}
	}
	if len(res.Errors) > 0 || len(confirmed) < len(batch) {
		return me.ID, &PartialSubmitError{Stored: len(confirmed), Failed: res.Errors}
	}
	return me.ID, nil
}

// seal encrypts raw entries owned by self and re-wraps entries waiting on a
// viewer key.
func (e *Engine) seal(ctx context.Context, self domain.IdentityID) error {
	if e.sealer == nil {
		return nil
	}
	if err := e.withTimeout(ctx, e.sealer.Prepare); err != nil {
		e.log.WithError(err).Warn("could not refresh viewer keys")
	}
	entries, err := e.queue.List()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.Metadata.UserID != self {
			continue
		}
		var (
			next    domain.PendingEntry
			changed bool
		)
		switch {
		case !entry.Encrypted:
			next, err = e.sealer.Seal(entry)
			changed = err == nil
		case entry.Envelope != nil && entry.Envelope.NeedsViewerKey:
			next, changed, err = e.sealer.Rewrap(entry)
		default:
			continue
		}
		if err != nil {
			return fmt.Errorf("seal %s: %w", entry.ID(), err)
		}
		if changed {
			if _, err := e.queue.Replace(next); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	if e.cfg.RequestTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
	defer cancel()
	return fn(ctx)
}

// finishLocked applies the outcome of an attempt.
func (e *Engine) finishLocked(t trigger, self domain.IdentityID, err error) {
	fields := logrus.Fields{"trigger": t, "attempt": e.retryCount + 1}
	if self != "" {
		fields["identity"] = self
	}

	var conflict *relay.RegistrationConflictError
	switch {
	case err == nil:
		e.retryCount = 0
		e.lastErr = nil
		e.lastSyncAt = e.clock.Now()
		stop(&e.retry)
		e.setStateLocked(StateIdle)
	case errors.Is(err, ErrOffline) || !e.online:
		e.lastErr = err
		stop(&e.retry)
		e.setStateLocked(StateOffline)
	case errors.As(err, &conflict):
		e.conflict = conflict
		e.lastErr = err
		stop(&e.retry)
		e.setStateLocked(StateError)
	default:
		e.retryCount++
		e.lastErr = err
		e.setStateLocked(StateError)
		if retryable(err) && e.retryCount < e.cfg.MaxRetries && e.online && !e.closed {
			delay := e.cfg.Backoff.Delay(e.retryCount - 1)
			stop(&e.retry)
			var t Timer
			t = e.clock.AfterFunc(delay, func() {
				if e.claim(&e.retry, t) {
					_ = e.run(context.Background(), triggerRetry)
				}
			})
			e.retry = t
			e.log.WithFields(fields).WithField("delay", delay).Debug("sync retry scheduled")
		}
	}
	fields["state"] = e.state
	fields["retries"] = e.retryCount
	fields["pending"] = e.pending
	entry := e.log.WithFields(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Info("sync attempt finished")
}

func retryable(err error) bool {
	if crypto.IsCryptoFailure(err) {
		return false
	}
	return errors.Is(err, relay.ErrNetwork) ||
		errors.Is(err, ErrPartialSubmit) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (e *Engine) armPeriodicLocked() {
	if e.closed || e.periodic != nil || e.cfg.Periodic <= 0 {
		return
	}
	var t Timer
	t = e.clock.AfterFunc(e.cfg.Periodic, func() {
		e.mu.Lock()
		if e.periodic != t {
			e.mu.Unlock()
			return
		}
		e.periodic = nil
		fire := e.foreground && e.online && !e.closed
		e.armPeriodicLocked()
		e.mu.Unlock()
		if fire {
			_ = e.run(context.Background(), triggerPeriodic)
		}
	})
	e.periodic = t
}

// claim clears slot if it still holds t and reports whether the firing
// timer is current. A timer replaced after it fired is stale.
func (e *Engine) claim(slot *Timer, t Timer) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if *slot != t {
		return false
	}
	*slot = nil
	return true
}

func (e *Engine) setStateLocked(s State) {
	e.state = s
	e.publishLocked()
}

func (e *Engine) statusLocked() Status {
	st := Status{
		State:        e.state,
		PendingCount: e.pending,
		RetryCount:   e.retryCount,
		LastError:    e.lastErr,
		LastSyncAt:   e.lastSyncAt,
		Conflict:     e.conflict,
	}
	st.derive()
	return st
}

// publishLocked sends the current status to subscribers, replacing any
// status they have not read yet. PendingCount is the last value counted.
func (e *Engine) publishLocked() {
	if len(e.subs) == 0 {
		return
	}
	st := e.statusLocked()
	for ch := range e.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- st:
		default:
		}
	}
}

func (e *Engine) countPending() int {
	entries, err := e.queue.List()
	if err != nil {
		return 0
	}
	return len(entries)
}

func stop(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func encryptedRecords(entries []domain.PendingEntry) []domain.ObservationRecord {
	var out []domain.ObservationRecord
	for _, entry := range entries {
		if entry.Encrypted && entry.Envelope != nil {
			out = append(out, entry.Record())
		}
	}
	return out
}

// confirmedIDs returns the batch ids the relay confirmed. Without stored_ids
// a fully clean response with a matching count confirms the whole batch;
// anything else confirms nothing.
func confirmedIDs(batch []domain.ObservationRecord, res domain.SubmitResult) []domain.ObservationID {
	inBatch := make(map[domain.ObservationID]struct{}, len(batch))
	for _, rec := range batch {
		inBatch[rec.Metadata.ObservationID] = struct{}{}
	}
	var out []domain.ObservationID
	if len(res.StoredIDs) > 0 {
		for _, id := range res.StoredIDs {
			if _, ok := inBatch[id]; ok {
				out = append(out, id)
				delete(inBatch, id)
			}
		}
		return out
	}
	if len(res.Errors) == 0 && res.Stored == len(batch) {
		for _, rec := range batch {
			out = append(out, rec.Metadata.ObservationID)
		}
	}
	return out
}
