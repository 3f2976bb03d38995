package emergency

import (
	"fmt"
	"strings"
	"time"
)

// alertSubject builds the email subject line for an alert.
func alertSubject(t Type) string {
	return fmt.Sprintf("EMERGENCY ALERT (%s)", strings.ToUpper(string(t)))
}

// alertBody builds the human-readable alert message: optional user text, a
// maps link, raw coordinates, and the trigger time.
func alertBody(a *Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "EMERGENCY (%s)", strings.ToUpper(string(a.Type)))
	if a.Message != "" {
		fmt.Fprintf(&b, ": %s", a.Message)
	}
	fmt.Fprintf(&b, "\nI need help. My location: https://maps.google.com/?q=%.6f,%.6f", a.Location.Latitude, a.Location.Longitude)
	fmt.Fprintf(&b, "\nCoordinates: %.6f, %.6f", a.Location.Latitude, a.Location.Longitude)
	fmt.Fprintf(&b, "\nTime: %s", a.Timestamp.Format(time.RFC3339))
	return b.String()
}

// resolvedBody builds the all-clear message sent to previously notified contacts.
func resolvedBody(a *Alert) string {
	return fmt.Sprintf("The emergency alert (%s) from %s has been resolved. I am safe now.",
		strings.ToUpper(string(a.Type)), a.Timestamp.Format(time.RFC3339))
}
