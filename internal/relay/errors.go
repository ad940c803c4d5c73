package relay

import (
	"errors"
	"fmt"
	"net/http"

	"bidvault/internal/domain"
)

var (
	// ErrNetwork marks transient failures worth retrying.
	ErrNetwork = errors.New("relay unreachable")
	// ErrRegistrationConflict marks an email that belongs to another identity.
	ErrRegistrationConflict = errors.New("identity already exists under another id")
	// ErrRejected marks a permanent refusal by the relay.
	ErrRejected = errors.New("relay rejected request")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("not found on relay")
	// ErrGrantExists is returned when a grant for the pair is already stored.
	ErrGrantExists = errors.New("grant already exists")
)

// NetworkError is a transport failure or a server-side (5xx) error.
type NetworkError struct {
	Op     string
	Status int // zero for transport failures
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("relay %s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("relay %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// RegistrationConflictError reports the id that already owns the email.
type RegistrationConflictError struct {
	ID         domain.IdentityID
	ExistingID domain.IdentityID
}

func (e *RegistrationConflictError) Error() string {
	return fmt.Sprintf("identity %s conflicts with existing identity %s", e.ID, e.ExistingID)
}

func (e *RegistrationConflictError) Is(target error) bool { return target == ErrRegistrationConflict }

// StatusError is a non-retryable non-2xx response.
type StatusError struct {
	Op      string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("relay %s: %d %s: %s", e.Op, e.Status, http.StatusText(e.Status), e.Message)
	}
	return fmt.Sprintf("relay %s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

func (e *StatusError) Is(target error) bool {
	switch target {
	case ErrRejected:
		return true
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// IsRetryable reports whether err is a transient relay failure.
func IsRetryable(err error) bool { return errors.Is(err, ErrNetwork) }
