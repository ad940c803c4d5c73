// Package syncengine moves queued observations to the relay.
//
// One Engine serves one process and serialises every sync attempt: a
// trigger that arrives while an attempt is running is deferred and runs
// right after it, never interleaved. States move idle -> syncing ->
// {idle, error, offline}.
//
// Triggers:
//   - Notify, after each enqueue, debounced (default 5s)
//   - a periodic timer (default 5m) while foreground and online
//   - SetOnline(true), an immediate forced run on reconnect
//   - Sync, an explicit forced run
//   - Close, a best-effort beacon of encrypted entries at exit
//
// Each attempt registers the identity if needed, seals raw entries,
// submits every encrypted entry in one batch and removes only the entries
// the relay confirms. Transient failures are retried with exponential
// backoff and jitter up to MaxRetries, after which the engine parks in
// error until an explicit trigger. Registration conflicts and
// cryptographic failures are never retried.
//
// All timers go through a Clock so tests can drive virtual time.
package syncengine
