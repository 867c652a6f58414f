package domain

import "time"

type EventType string

const (
	EventDeviceRegistered    EventType = "device_registered"
	EventDeviceAuthenticated EventType = "device_authenticated"
)

// Event is one entry in the append-only registry event log. Seq orders
// events by commit within a single device's history.
type Event struct {
	ID             string
	Seq            int64
	Type           EventType
	IdentifierHash IdentifierHash
	Owner          string
	AuthTime       int64
	CreatedAt      time.Time
}
