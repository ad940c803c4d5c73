package store

import (
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// Version of the sealed secrets blob stored in the document.
const sealedFormatVersion = 2

// ErrWrongPassphrase is returned when a sealed blob cannot be opened.
var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted secrets")

// sealed is the JSON structure holding the ciphertext and KDF parameters.
type sealed struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Nonce  []byte `json:"nonce"`
	Cipher []byte `json:"cipher"`
}

// kdfParams are the scrypt cost parameters.
type kdfParams struct{ N, R, P int }

// defaultKDF is the interactive-login scrypt cost.
var defaultKDF = kdfParams{N: 1 << 15, R: 8, P: 1}

// seal derives a key from passphrase and seals raw, binding the blob to ad.
func seal(passphrase string, raw, ad []byte, kdf kdfParams) (sealed, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return sealed{}, err
	}
	aead, err := deriveAEAD(passphrase, salt[:], kdf)
	if err != nil {
		return sealed{}, err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return sealed{}, err
	}
	return sealed{
		V:      sealedFormatVersion,
		Salt:   salt[:],
		N:      kdf.N,
		R:      kdf.R,
		P:      kdf.P,
		Nonce:  nonce,
		Cipher: aead.Seal(nil, nonce, raw, append(salt[:], ad...)),
	}, nil
}

// open reverses seal.
func open(passphrase string, bl sealed, ad []byte) ([]byte, error) {
	if bl.V != sealedFormatVersion {
		return nil, fmt.Errorf("unsupported sealed secrets version %d", bl.V)
	}
	aead, err := deriveAEAD(passphrase, bl.Salt, kdfParams{N: bl.N, R: bl.R, P: bl.P})
	if err != nil {
		return nil, err
	}
	if len(bl.Nonce) != aead.NonceSize() {
		return nil, ErrWrongPassphrase
	}
	pt, err := aead.Open(nil, bl.Nonce, bl.Cipher, append(append([]byte(nil), bl.Salt...), ad...))
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

func deriveAEAD(passphrase string, salt []byte, kdf kdfParams) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, kdf.N, kdf.R, kdf.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	return chacha20poly1305.NewX(key)
}
