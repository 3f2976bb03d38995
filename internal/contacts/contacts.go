// Emergency contact model and directory contract
package contacts

import (
	"context"
	"time"
)

// Contact is one emergency contact. At most one contact is Primary at a
// time; the directory enforces that, not its callers.
type Contact struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PhoneNumber  string    `json:"phone_number"`
	Email        string    `json:"email,omitempty"`
	Relationship string    `json:"relationship"`
	Primary      bool      `json:"is_primary"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Directory is the read surface the coordinators consume. They always
// filter to active contacts themselves.
type Directory interface {
	List(ctx context.Context) ([]Contact, error)
}

// FilterActive returns only the active contacts, preserving order.
func FilterActive(all []Contact) []Contact {
	var active []Contact
	for _, c := range all {
		if c.Active {
			active = append(active, c)
		}
	}
	return active
}
