// Package soft is the in-process proof verifier: proofs are ed25519
// signatures over the attest digest, checked against a single trusted
// verifying key. It stands in for the external verifier service in dev
// and test deployments.
package soft

import (
	"context"
	"crypto/ed25519"
	"errors"

	"cipherid/internal/domain"
	"cipherid/internal/usecase"
	"cipherid/pkg/attest"
)

type Verifier struct {
	key ed25519.PublicKey
}

func NewVerifier(publicKey []byte) (*Verifier, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return nil, errors.New("verifier public key must be 32 bytes")
	}
	key := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(key, publicKey)
	return &Verifier{key: key}, nil
}

// Verify is pure: a malformed or mismatched proof yields false, never an
// error, so callers treat it as a terminal rejection.
func (v *Verifier) Verify(_ context.Context, handles []domain.Ciphertext, message []byte, proof []byte) (bool, error) {
	if len(proof) != ed25519.SignatureSize {
		return false, nil
	}
	return ed25519.Verify(v.key, attest.Digest(handles, message), proof), nil
}

var _ usecase.ProofVerifier = (*Verifier)(nil)
