package domain

import "errors"

var (
	ErrInvalidProof          = errors.New("invalid proof")
	ErrInvalidCiphertext     = errors.New("invalid ciphertext")
	ErrDuplicateRegistration = errors.New("duplicate registration")
	ErrDeviceNotFound        = errors.New("device not found")
	ErrDeviceInactive        = errors.New("device inactive")
	ErrNotOwner              = errors.New("not owner")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrPolicyDenied          = errors.New("policy denied")
)
