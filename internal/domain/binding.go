package domain

import "encoding/binary"

// Proof binding messages. A proof attests to a set of ciphertext handles
// bound against one of these messages; the verifier checks the triple as a
// whole.

// AuthBindingMessage is the message an authentication proof must bind:
// the caller-supplied timestamp, big-endian.
func AuthBindingMessage(authTime int64) []byte {
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, uint64(authTime))
	return out
}

// OwnershipBindingMessage is the message an ownership proof must bind: the
// owner principal recorded at registration.
func OwnershipBindingMessage(owner string) []byte {
	return []byte(owner)
}
