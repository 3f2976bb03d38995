// Package history persists accepted route points and alert lifecycle
// events to time-series sinks.
package history

import (
	"safewalk/internal/emergency"
	"safewalk/internal/route"
)

// AlertWriter records alert lifecycle events.
type AlertWriter interface {
	WriteAlertEvent(ev emergency.Event) error
}

// PointWriter mirrors route.PointWriter for sinks defined here.
type PointWriter = route.PointWriter
