package history

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"safewalk/internal/emergency"
	"safewalk/internal/route"
)

// pointRecord is the JSONL shape for one accepted route point.
type pointRecord struct {
	RouteID   string    `json:"route_id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Waypoint  bool      `json:"waypoint,omitempty"`
	Timestamp time.Time `json:"ts"`
}

// alertRecord is the JSONL shape for one alert lifecycle event.
type alertRecord struct {
	AlertID          string    `json:"alert_id"`
	Kind             string    `json:"kind"`
	AlertType        string    `json:"alert_type"`
	Status           string    `json:"status"`
	Lat              float64   `json:"lat"`
	Lon              float64   `json:"lon"`
	ContactsNotified int       `json:"contacts_notified"`
	Remaining        int       `json:"countdown_remaining,omitempty"`
	Timestamp        time.Time `json:"ts"`
}

// FileWriter appends route points and alert events to JSONL files.
// alertPath may be empty to skip the alert log.
type FileWriter struct {
	mu        sync.Mutex
	pointFile *os.File
	alertFile *os.File
	pointEnc  *json.Encoder
	alertEnc  *json.Encoder
}

func NewFileWriter(pointPath, alertPath string) (*FileWriter, error) {
	pf, err := os.Create(pointPath)
	if err != nil {
		return nil, eris.Wrapf(err, "history: create %s", pointPath)
	}
	fw := &FileWriter{pointFile: pf, pointEnc: json.NewEncoder(pf)}
	if alertPath != "" {
		af, err := os.Create(alertPath)
		if err != nil {
			pf.Close()
			return nil, eris.Wrapf(err, "history: create %s", alertPath)
		}
		fw.alertFile = af
		fw.alertEnc = json.NewEncoder(af)
	}
	return fw, nil
}

// WritePoint logs one accepted route point. It satisfies route.PointWriter.
func (f *FileWriter) WritePoint(routeID string, pt route.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pointEnc.Encode(pointRecord{
		RouteID:   routeID,
		Lat:       pt.Location.Latitude,
		Lon:       pt.Location.Longitude,
		Accuracy:  pt.Location.Accuracy,
		Waypoint:  pt.Waypoint,
		Timestamp: pt.Timestamp,
	})
}

// WriteAlertEvent logs one alert lifecycle event, if enabled.
func (f *FileWriter) WriteAlertEvent(ev emergency.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.alertEnc == nil {
		return nil
	}
	a := ev.Alert
	return f.alertEnc.Encode(alertRecord{
		AlertID:          a.ID,
		Kind:             string(ev.Kind),
		AlertType:        string(a.Type),
		Status:           string(a.Status),
		Lat:              a.Location.Latitude,
		Lon:              a.Location.Longitude,
		ContactsNotified: len(a.ContactsNotified),
		Remaining:        ev.Remaining,
		Timestamp:        a.Timestamp,
	})
}

// Close closes the underlying files.
func (f *FileWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := f.pointFile.Close()
	if f.alertFile != nil {
		if e := f.alertFile.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
