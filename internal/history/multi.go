package history

import (
	"safewalk/internal/emergency"
	"safewalk/internal/route"
)

// MultiWriter fans points and alert events out to several sinks. The first
// sink error is returned, after every sink has been attempted.
type MultiWriter struct {
	points []PointWriter
	alerts []AlertWriter
}

func NewMultiWriter(points []PointWriter, alerts []AlertWriter) *MultiWriter {
	return &MultiWriter{points: points, alerts: alerts}
}

func (mw *MultiWriter) WritePoint(routeID string, pt route.Point) error {
	var first error
	for _, w := range mw.points {
		if err := w.WritePoint(routeID, pt); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (mw *MultiWriter) WriteAlertEvent(ev emergency.Event) error {
	var first error
	for _, w := range mw.alerts {
		if err := w.WriteAlertEvent(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
