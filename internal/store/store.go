// Package store persists emergency contacts, user preferences, and the
// alert history on sqlite.
package store

// Preferences holds user-tunable behavior persisted across restarts.
type Preferences struct {
	CountdownSeconds int      `json:"countdown_seconds"`
	ShareByDefault   bool     `json:"share_by_default"`
	DefaultSharedIDs []string `json:"default_shared_ids,omitempty"`
}

// DefaultPreferences are used when nothing has been persisted yet.
func DefaultPreferences() Preferences {
	return Preferences{CountdownSeconds: 10}
}
