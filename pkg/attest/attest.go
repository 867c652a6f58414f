// Package attest produces proofs for the registry's built-in ed25519
// verification scheme. Device-side tooling signs the binding of its
// ciphertext handles to an operation message; the registry's soft verifier
// checks the same digest.
package attest

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"errors"

	"cipherid/internal/domain"
)

const schemeVersion = "cipherid_attest_v1"

// Digest computes the signed binding: scheme version, each handle
// length-prefixed, then the message length-prefixed. Length prefixes keep
// handle and message bytes from sliding into each other.
func Digest(handles []domain.Ciphertext, message []byte) []byte {
	h := sha256.New()
	h.Write([]byte(schemeVersion))
	var prefix [8]byte
	for _, handle := range handles {
		raw := handle.Bytes()
		binary.BigEndian.PutUint64(prefix[:], uint64(len(raw)))
		h.Write(prefix[:])
		h.Write(raw)
	}
	binary.BigEndian.PutUint64(prefix[:], uint64(len(message)))
	h.Write(prefix[:])
	h.Write(message)
	return h.Sum(nil)
}

// Sign produces a proof blob over the given binding.
func Sign(priv ed25519.PrivateKey, handles []domain.Ciphertext, message []byte) ([]byte, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, errors.New("attest: invalid private key size")
	}
	return ed25519.Sign(priv, Digest(handles, message)), nil
}
