package types

// Grant is a grantor's symmetric key wrapped under the grantee's public key.
// At most one grant exists per (grantor, grantee) pair and it is never modified.
type Grant struct {
	GrantorID  IdentityID `json:"grantor_id"`
	GranteeID  IdentityID `json:"grantee_id"`
	WrappedKey []byte     `json:"wrapped_key"`
	CreatedUTC int64      `json:"created_utc,omitempty"`
}
