package types

// Identity holds a principal's key material and registration state.
//
// SymmetricKey and PrivateKey are secrets: they are persisted through a
// SecretVault and never serialised with the public record.
type Identity struct {
	ID           IdentityID   `json:"id"`
	Role         Role         `json:"role"`
	Email        string       `json:"email,omitempty"`
	PublicKey    PublicKey    `json:"public_key,omitempty"`
	Registered   bool         `json:"registered"`
	CreatedUTC   int64        `json:"created_utc"`
	SymmetricKey SymmetricKey `json:"-"`
	PrivateKey   PrivateKey   `json:"-"`
}

// Record returns the public, persistable part of the identity.
func (id Identity) Record() IdentityRecord {
	return IdentityRecord{
		ID:         id.ID,
		Role:       id.Role,
		Email:      id.Email,
		PublicKey:  id.PublicKey,
		Registered: id.Registered,
		CreatedUTC: id.CreatedUTC,
	}
}

// IdentityRecord is the non-secret part of an identity kept in the local document.
type IdentityRecord struct {
	ID         IdentityID `json:"id"`
	Role       Role       `json:"role"`
	Email      string     `json:"email,omitempty"`
	PublicKey  PublicKey  `json:"public_key,omitempty"`
	Registered bool       `json:"registered"`
	CreatedUTC int64      `json:"created_utc"`
}

// IdentitySecrets is the secret half of an identity.
type IdentitySecrets struct {
	SymmetricKey SymmetricKey `json:"symmetric_key"`
	PrivateKey   PrivateKey   `json:"private_key,omitempty"`
}

// PublicIdentity is what the relay exposes about a registered identity.
type PublicIdentity struct {
	ID        IdentityID `json:"id"`
	Role      Role       `json:"role"`
	PublicKey PublicKey  `json:"public_key,omitempty"`
}

// Registration is the body of POST /identities.
type Registration struct {
	ID        IdentityID `json:"id"`
	PublicKey PublicKey  `json:"public_key,omitempty"`
	Email     string     `json:"email,omitempty"`
	Role      Role       `json:"role"`
}

// RegistrationResult is the relay's answer to a registration.
// ExistingID is set when the email already belongs to another identity.
type RegistrationResult struct {
	Success    bool       `json:"success"`
	ID         IdentityID `json:"id,omitempty"`
	ExistingID IdentityID `json:"existing_id,omitempty"`
}
