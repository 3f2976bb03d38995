package route

import (
	"fmt"

	"safewalk/internal/geo"
	"safewalk/internal/location"
)

func mapsLink(loc location.Location) string {
	return fmt.Sprintf("https://maps.google.com/?q=%.6f,%.6f", loc.Latitude, loc.Longitude)
}

// shareStartedBody announces a new shared trip.
func shareStartedBody(r *Route, loc location.Location) string {
	if r.Destination != "" {
		return fmt.Sprintf("I'm on my way to %s and sharing my trip with you. Follow me here: %s", r.Destination, mapsLink(loc))
	}
	return fmt.Sprintf("I'm sharing my trip with you. Follow me here: %s", mapsLink(loc))
}

// shareUpdateBody is the periodic location update sent while sharing.
func shareUpdateBody(r *Route, loc location.Location, stats Stats) string {
	return fmt.Sprintf("Trip update: I'm at %s (%s so far, %s elapsed).",
		mapsLink(loc), geo.FormatDistance(stats.DistanceM), geo.FormatDuration(stats.Duration))
}

// shareStoppedBody is the terminal notice when a shared trip ends.
func shareStoppedBody(r *Route, stats Stats) string {
	return fmt.Sprintf("I've stopped sharing my trip. Covered %s in %s.",
		geo.FormatDistance(stats.DistanceM), geo.FormatDuration(stats.Duration))
}
