package domain

import "time"

// DeviceRecord is the authoritative state for one registered device. All
// fields except IsActive and LastAuthTime are immutable once written.
type DeviceRecord struct {
	IdentifierHash      IdentifierHash
	EncryptedIdentifier Ciphertext
	PublicKey           uint64
	Owner               string
	IsActive            bool
	LastAuthTime        int64
	CreatedAt           time.Time
}

// DeviceView is the read surface exposed to callers; it omits the ciphertext
// handle so reads never leak the committed encrypted identifier.
type DeviceView struct {
	IdentifierHash IdentifierHash
	PublicKey      uint64
	Owner          string
	IsActive       bool
	LastAuthTime   int64
	CreatedAt      time.Time
}

func (r DeviceRecord) View() DeviceView {
	return DeviceView{
		IdentifierHash: r.IdentifierHash,
		PublicKey:      r.PublicKey,
		Owner:          r.Owner,
		IsActive:       r.IsActive,
		LastAuthTime:   r.LastAuthTime,
		CreatedAt:      r.CreatedAt,
	}
}
