// Package grant lets an identity share its symmetric key with a viewer.
//
// A grant is the sharer's symmetric key wrapped under the viewer's RSA
// public key. The relay stores at most one grant per (grantor, grantee) pair
// and grants are never modified.
package grant
