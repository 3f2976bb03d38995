// Location values and the device provider contract
package location

import (
	"context"
	"time"
)

// Location is one positioning fix. Accuracy, Altitude, and Speed are
// optional; a non-positive Accuracy means the sensor did not report one.
type Location struct {
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	Timestamp time.Time `json:"ts"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Altitude  float64   `json:"alt,omitempty"`
	Speed     float64   `json:"speed,omitempty"`
}

// Valid reports whether the coordinates are inside the WGS84 envelope.
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 && l.Longitude >= -180 && l.Longitude <= 180
}

// Accuracy buckets reported by the feed.
const (
	AccuracyHigh   = "high"
	AccuracyMedium = "medium"
	AccuracyLow    = "low"
)

// Provider abstracts the device location sensor.
type Provider interface {
	// Current returns a one-shot fix.
	Current(ctx context.Context) (Location, error)
	// Watch streams fixes to fn until the returned stop function is called.
	Watch(fn func(Location)) (stop func(), err error)
}

// Optional: providers gating sensor access behind a permission prompt.
type permissionRequester interface {
	RequestPermission(ctx context.Context) (bool, error)
}
