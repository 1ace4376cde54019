// v0
// internal/signing/signing.go

// Package signing holds the signer implementations the ledger uses to seal
// records. Key material never leaves a Signer.
package signing

import (
	"crypto/ed25519"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"modelmarket/internal/hashing"
)

// Signer seals payloads and checks seals produced by the same key.
type Signer interface {
	Sign(payload []byte) (string, error)
	Verify(payload []byte, signature string) bool
}

const (
	// ModeShared selects the shared-secret signer.
	ModeShared = "shared"
	// ModeEd25519 selects the Ed25519 signer.
	ModeEd25519 = "ed25519"
)

// SharedSecret signs by hashing the secret followed by the payload. It stands
// in for an asymmetric scheme and offers no real security.
type SharedSecret struct {
	key  []byte
	hash hashing.Func
}

// NewSharedSecret builds a shared-secret signer over the given hash.
func NewSharedSecret(key string, h hashing.Func) (*SharedSecret, error) {
	if key == "" {
		return nil, errors.New("signing key must not be empty")
	}
	if h == nil {
		return nil, errors.New("hash function must not be nil")
	}
	return &SharedSecret{key: []byte(key), hash: h}, nil
}

func (s *SharedSecret) Sign(payload []byte) (string, error) {
	buf := make([]byte, 0, len(s.key)+len(payload))
	buf = append(buf, s.key...)
	buf = append(buf, payload...)
	return hashing.Hex(s.hash, buf), nil
}

func (s *SharedSecret) Verify(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected, err := s.Sign(payload)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// Ed25519 signs with an Ed25519 private key and verifies with its public half.
type Ed25519 struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewEd25519FromSeed derives the key pair from a 32-byte seed.
func NewEd25519FromSeed(seed []byte) (*Ed25519, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &Ed25519{priv: priv, pub: priv.Public().(ed25519.PublicKey)}, nil
}

// PublicKey returns a copy of the verifying key.
func (e *Ed25519) PublicKey() ed25519.PublicKey {
	return append(ed25519.PublicKey(nil), e.pub...)
}

func (e *Ed25519) Sign(payload []byte) (string, error) {
	return hex.EncodeToString(ed25519.Sign(e.priv, payload)), nil
}

func (e *Ed25519) Verify(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	raw, err := hex.DecodeString(signature)
	if err != nil || len(raw) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(e.pub, payload, raw)
}

// New builds a signer from configuration values. For ModeEd25519 the secret is
// the hex-encoded seed.
func New(mode, secret string, h hashing.Func) (Signer, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeShared:
		return NewSharedSecret(secret, h)
	case ModeEd25519:
		seed, err := hex.DecodeString(strings.TrimSpace(secret))
		if err != nil {
			return nil, fmt.Errorf("decode ed25519 seed: %w", err)
		}
		return NewEd25519FromSeed(seed)
	default:
		return nil, fmt.Errorf("unsupported signer mode: %s", mode)
	}
}
