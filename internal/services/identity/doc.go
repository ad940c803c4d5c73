// Package identity creates, loads and registers local identities.
//
// Every identity gets a 256-bit symmetric key that encrypts its own
// observations. Viewer roles (teacher, admin) also get an RSA-2048 key pair
// so students can wrap their symmetric key for them. Public parts go to the
// domain.IdentityStore, secrets to the domain.SecretVault. A viewer key pair
// read back from storage is probed with a round trip before use.
package identity
