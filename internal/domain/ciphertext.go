package domain

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// CiphertextSize is the fixed wire size of an encrypted identifier handle.
// The registry stores and compares handles but never decrypts them.
const CiphertextSize = 64

type Ciphertext struct {
	data [CiphertextSize]byte
}

// ImportCiphertext brings an externally produced handle into the registry's
// trust domain. A handle is well-formed when it is exactly CiphertextSize
// bytes and not all zero.
func ImportCiphertext(raw []byte) (Ciphertext, error) {
	if len(raw) != CiphertextSize {
		return Ciphertext{}, ErrInvalidCiphertext
	}
	zero := true
	for _, b := range raw {
		if b != 0 {
			zero = false
			break
		}
	}
	if zero {
		return Ciphertext{}, ErrInvalidCiphertext
	}
	var ct Ciphertext
	copy(ct.data[:], raw)
	return ct, nil
}

func (c Ciphertext) Equal(other Ciphertext) bool {
	return subtle.ConstantTimeCompare(c.data[:], other.data[:]) == 1
}

func (c Ciphertext) Bytes() []byte {
	out := make([]byte, CiphertextSize)
	copy(out, c.data[:])
	return out
}

func (c Ciphertext) IsZero() bool {
	return c.data == [CiphertextSize]byte{}
}

// IdentifierHash is the hex-encoded SHA-256 digest of a ciphertext handle.
// It is the primary key for device records.
type IdentifierHash string

func DeriveIdentifierHash(ct Ciphertext) IdentifierHash {
	sum := sha256.Sum256(ct.data[:])
	return IdentifierHash(hex.EncodeToString(sum[:]))
}

func (h IdentifierHash) String() string {
	return string(h)
}

// ParseIdentifierHash validates the wire form of an identifier hash: 64
// lowercase hex characters.
func ParseIdentifierHash(value string) (IdentifierHash, error) {
	if len(value) != sha256.Size*2 {
		return "", ErrDeviceNotFound
	}
	decoded, err := hex.DecodeString(value)
	if err != nil || len(decoded) != sha256.Size {
		return "", ErrDeviceNotFound
	}
	return IdentifierHash(hex.EncodeToString(decoded)), nil
}
