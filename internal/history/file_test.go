package history

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"safewalk/internal/emergency"
	"safewalk/internal/location"
	"safewalk/internal/route"
)

func TestFileWriterPointsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	pointPath := filepath.Join(dir, "points.jsonl")

	fw, err := NewFileWriter(pointPath, "")
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}

	ts := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
	pt := route.Point{
		Location:  location.Location{Latitude: 48.21, Longitude: 16.37, Accuracy: 8},
		Timestamp: ts,
		Waypoint:  true,
	}
	if err := fw.WritePoint("r1", pt); err != nil {
		t.Fatalf("WritePoint: %v", err)
	}
	// Alert log disabled: must be a no-op, not an error.
	if err := fw.WriteAlertEvent(emergency.Event{Kind: emergency.EventActivated}); err != nil {
		t.Fatalf("WriteAlertEvent: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(pointPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var recs []pointRecord
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r pointRecord
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		recs = append(recs, r)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	r := recs[0]
	if r.RouteID != "r1" || r.Lat != 48.21 || !r.Waypoint || !r.Timestamp.Equal(ts) {
		t.Errorf("unexpected record: %+v", r)
	}
}

func TestFileWriterAlertEvents(t *testing.T) {
	dir := t.TempDir()
	fw, err := NewFileWriter(filepath.Join(dir, "points.jsonl"), filepath.Join(dir, "alerts.jsonl"))
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}

	ev := emergency.Event{
		Kind: emergency.EventCountdown,
		Alert: emergency.Alert{
			ID:        "a1",
			Type:      emergency.TypeSOS,
			Status:    emergency.StatusActive,
			Location:  location.Location{Latitude: 48.2, Longitude: 16.4},
			Timestamp: time.Now().UTC(),
		},
		Remaining: 7,
	}
	if err := fw.WriteAlertEvent(ev); err != nil {
		t.Fatalf("WriteAlertEvent: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "alerts.jsonl"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var rec alertRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if rec.AlertID != "a1" || rec.Kind != "countdown" || rec.Remaining != 7 {
		t.Errorf("unexpected record: %+v", rec)
	}
}

type countingSink struct {
	points int
	alerts int
	err    error
}

func (c *countingSink) WritePoint(routeID string, pt route.Point) error {
	c.points++
	return c.err
}

func (c *countingSink) WriteAlertEvent(ev emergency.Event) error {
	c.alerts++
	return c.err
}

func TestMultiWriterFanOut(t *testing.T) {
	a := &countingSink{err: errors.New("sink down")}
	b := &countingSink{}
	mw := NewMultiWriter(
		[]PointWriter{a, b},
		[]AlertWriter{a, b},
	)

	err := mw.WritePoint("r1", route.Point{})
	if err == nil {
		t.Fatal("expected first sink error to propagate")
	}
	// The failing sink must not stop delivery to the rest.
	if a.points != 1 || b.points != 1 {
		t.Errorf("expected both sinks written, got %d/%d", a.points, b.points)
	}

	if err := mw.WriteAlertEvent(emergency.Event{}); err == nil {
		t.Fatal("expected alert fan-out error")
	}
	if a.alerts != 1 || b.alerts != 1 {
		t.Errorf("expected both alert sinks written, got %d/%d", a.alerts, b.alerts)
	}
}
