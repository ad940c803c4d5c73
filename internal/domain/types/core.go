package types

// IdentityID identifies a student or viewer on this device and at the relay.
type IdentityID string

// String returns the string form of the identity id.
func (id IdentityID) String() string { return string(id) }

// ObservationID uniquely identifies one recorded practice attempt.
type ObservationID string

// String returns the string form of the observation id.
func (id ObservationID) String() string { return string(id) }

// SessionID identifies a practice session.
type SessionID string

// String returns the string form of the session id.
func (id SessionID) String() string { return string(id) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// Role is the kind of principal an identity represents.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// IsViewer reports whether the role decrypts other identities' data and
// therefore owns an asymmetric key pair.
func (r Role) IsViewer() bool { return r == RoleTeacher || r == RoleAdmin }

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}
