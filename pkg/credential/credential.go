// Package credential implements the opaque credential proxy (spec §9):
// agent code never observes a plaintext secret, only an opaque Handle it
// can pass to capability adapters. Sealing uses golang.org/x/crypto's
// chacha20poly1305 AEAD (the crypto dependency present in the corpus via
// dataparency-dev/AI-delegation's go.mod), and the header-name denylist
// that keeps secrets out of logs is grounded on pkg/masking's compiled-
// pattern idiom.
package credential

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrCredentialNotFound is returned when a Handle has no backing row.
var ErrCredentialNotFound = errors.New("credential: not found")

// ErrInvalidKey is returned when the sealing key is not exactly KeySize bytes.
var ErrInvalidKey = errors.New("credential: invalid key size")

// Handle is an opaque reference to a sealed credential. It carries no
// secret material; callers exchange it for the plaintext only through
// Vault.Reveal, which is the single chokepoint an audit log can hook.
type Handle struct {
	CompanyID string
	Name      string
}

// Sealed is the at-rest representation of a credential: the AEAD
// ciphertext plus its nonce, matching the `sealed_value`/`nonce` columns
// on ent/schema's Credential.
type Sealed struct {
	Ciphertext []byte
	Nonce      []byte
}

// Vault seals and reveals credential plaintext. One Vault is constructed
// per process from a single master key (sourced the same *_env indirection
// way internal/config resolves every other secret — never embedded in
// YAML).
type Vault struct {
	aead cipherAEAD
}

// cipherAEAD is the subset of cipher.AEAD Vault depends on, narrowed so
// tests can substitute a deterministic stub without a real key.
type cipherAEAD interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
	NonceSize() int
}

// NewVault constructs a Vault from a raw key. key must be exactly
// chacha20poly1305.KeySize (32) bytes.
func NewVault(key []byte) (*Vault, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, chacha20poly1305.KeySize, len(key))
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("credential: construct AEAD: %w", err)
	}
	return &Vault{aead: aead}, nil
}

// Seal encrypts plaintext, binding it to companyID/name as additional data
// so a sealed value can't be silently swapped onto a different handle.
func (v *Vault) Seal(companyID, name string, plaintext []byte) (Sealed, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Sealed{}, fmt.Errorf("credential: generate nonce: %w", err)
	}
	ad := associatedData(companyID, name)
	ciphertext := v.aead.Seal(nil, nonce, plaintext, ad)
	return Sealed{Ciphertext: ciphertext, Nonce: nonce}, nil
}

// Reveal decrypts a Sealed value back to plaintext. This is the only
// function in the package that returns real secret material; every other
// path deals exclusively in Handles.
func (v *Vault) Reveal(companyID, name string, sealed Sealed) ([]byte, error) {
	ad := associatedData(companyID, name)
	plaintext, err := v.aead.Open(nil, sealed.Nonce, sealed.Ciphertext, ad)
	if err != nil {
		return nil, fmt.Errorf("credential: open sealed value: %w", err)
	}
	return plaintext, nil
}

func associatedData(companyID, name string) []byte {
	return []byte(companyID + "\x00" + name)
}
