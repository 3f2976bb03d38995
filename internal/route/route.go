// Route tracking model: accepted points, distance totals, statistics
package route

import (
	"time"

	"safewalk/internal/location"
)

// Point is one recorded position on a route. Waypoints bypass the
// acceptance filter.
type Point struct {
	Location  location.Location `json:"location"`
	Timestamp time.Time         `json:"ts"`
	Waypoint  bool              `json:"waypoint,omitempty"`
}

// Route is one tracked trip. The tracker holds at most one active route
// at a time.
type Route struct {
	ID            string    `json:"id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time,omitempty"`
	Points        []Point   `json:"points"`
	TotalDistance float64   `json:"total_distance_m"`
	Destination   string    `json:"destination,omitempty"`
	SharedWith    []string  `json:"shared_with,omitempty"`
}

// snapshot returns a deep copy safe to hand to subscribers.
func (r *Route) snapshot() Route {
	cp := *r
	cp.Points = append([]Point(nil), r.Points...)
	cp.SharedWith = append([]string(nil), r.SharedWith...)
	return cp
}

// Stats is the derived view over a route, recomputed on demand.
type Stats struct {
	Duration    time.Duration `json:"duration"`
	DistanceM   float64       `json:"distance_m"`
	AvgSpeedKmh float64       `json:"avg_speed_kmh"`
	Points      int           `json:"points"`
}

// EventKind tags a tracker event.
type EventKind string

// Event kinds published to subscribers.
const (
	EventStarted  EventKind = "started"
	EventPoint    EventKind = "point"
	EventWaypoint EventKind = "waypoint"
	EventSharing  EventKind = "sharing"
	EventStopped  EventKind = "stopped"
)

// Event is one published tracker state change.
type Event struct {
	Kind  EventKind
	Route Route
}
