// Emergency alert model and lifecycle events
package emergency

import (
	"time"

	"safewalk/internal/location"
)

// Type classifies what kind of emergency was triggered.
type Type string

// Emergency types.
const (
	TypeSOS     Type = "sos"
	TypePanic   Type = "panic"
	TypeMedical Type = "medical"
	TypeFire    Type = "fire"
	TypePolice  Type = "police"
)

// Valid reports whether t is a known emergency type.
func (t Type) Valid() bool {
	switch t {
	case TypeSOS, TypePanic, TypeMedical, TypeFire, TypePolice:
		return true
	}
	return false
}

// Status of an alert.
type Status string

// Alert statuses.
const (
	StatusActive    Status = "active"
	StatusResolved  Status = "resolved"
	StatusCancelled Status = "cancelled"
)

// Alert is one emergency alert. The coordinator holds at most one in
// flight at a time.
type Alert struct {
	ID               string            `json:"id"`
	Type             Type              `json:"type"`
	Location         location.Location `json:"location"`
	Message          string            `json:"message,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
	Status           Status            `json:"status"`
	ContactsNotified []string          `json:"contacts_notified"`
}

// snapshot returns a deep copy safe to hand to subscribers.
func (a *Alert) snapshot() Alert {
	cp := *a
	cp.ContactsNotified = append([]string(nil), a.ContactsNotified...)
	return cp
}

// EventKind tags a lifecycle event.
type EventKind string

// Event kinds published to subscribers.
const (
	EventCountdown EventKind = "countdown"
	EventActivated EventKind = "activated"
	EventCancelled EventKind = "cancelled"
	EventResolved  EventKind = "resolved"
)

// Event is one published state change. Remaining carries the countdown
// seconds left and is only meaningful for EventCountdown.
type Event struct {
	Kind      EventKind
	Alert     Alert
	Remaining int
}
