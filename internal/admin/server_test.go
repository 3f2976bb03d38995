package admin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"safewalk/internal/config"
	"safewalk/internal/contacts"
	"safewalk/internal/emergency"
	"safewalk/internal/location"
	"safewalk/internal/route"
)

type stubProvider struct {
	loc location.Location
}

func (p *stubProvider) Current(ctx context.Context) (location.Location, error) { return p.loc, nil }
func (p *stubProvider) Watch(fn func(location.Location)) (func(), error)       { return func() {}, nil }

type stubDirectory struct{}

func (d *stubDirectory) List(ctx context.Context) ([]contacts.Contact, error) {
	return []contacts.Contact{{ID: "c1", Name: "A", PhoneNumber: "111", Active: true}}, nil
}

type nullDispatcher struct{}

func (nullDispatcher) ComposeSMS(ctx context.Context, p, b string) error      { return nil }
func (nullDispatcher) ComposeEmail(ctx context.Context, a, s, b string) error { return nil }
func (nullDispatcher) ComposeCall(ctx context.Context, p string) error        { return nil }

type memLog struct {
	mu     sync.Mutex
	alerts []emergency.Alert
}

func (m *memLog) AppendAlert(ctx context.Context, a emergency.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, a)
	return nil
}

func (m *memLog) RecentAlerts(ctx context.Context, limit int) ([]emergency.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]emergency.Alert(nil), m.alerts...), nil
}

func newTestServer(t *testing.T) (*Server, *memLog) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	feed := location.NewFeed(
		&stubProvider{loc: location.Location{Latitude: 48.2, Longitude: 16.37, Timestamp: time.Now().UTC()}},
		config.LocationConfig{CurrentTimeoutSeconds: 1, CacheTTLMinutes: 5},
		log,
	)
	hist := &memLog{}
	coord := emergency.NewCoordinator(feed, &stubDirectory{}, nullDispatcher{}, hist,
		config.EmergencyConfig{CountdownSeconds: 10}, log)
	tracker := route.NewTracker(feed, &stubDirectory{}, nullDispatcher{}, nil,
		config.RouteConfig{MinPointDistanceM: 10, MaxPoints: 100, ShareIntervalSeconds: 30, AutoStopMinutes: 60}, log)
	return NewServer(coord, tracker, feed, hist), hist
}

func TestHandleStatusEmpty(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status OK, got %v", resp.StatusCode)
	}
	var view statusView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if view.Alert != nil || view.Route != nil {
		t.Errorf("expected empty status, got %+v", view)
	}
}

func TestHandleTriggerAndResolve(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/alert/trigger?type=sos&skip_countdown=1", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected status OK, got %v", w.Result().StatusCode)
	}
	var alert emergency.Alert
	if err := json.NewDecoder(w.Result().Body).Decode(&alert); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if alert.Status != emergency.StatusActive {
		t.Errorf("expected active alert, got %s", alert.Status)
	}

	// A second trigger conflicts while one is active.
	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/alert/trigger", nil))
	if w.Result().StatusCode != http.StatusConflict {
		t.Errorf("expected conflict, got %v", w.Result().StatusCode)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/alert/resolve?id="+alert.ID, nil))
	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("expected no content, got %v", w.Result().StatusCode)
	}
}

func TestHandleCancelWithoutCountdown(t *testing.T) {
	server, _ := newTestServer(t)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/alert/cancel", nil))
	if w.Result().StatusCode != http.StatusConflict {
		t.Errorf("expected conflict, got %v", w.Result().StatusCode)
	}
}

func TestHandleRouteLifecycle(t *testing.T) {
	server, _ := newTestServer(t)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/route/start?destination=home", nil))
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected status OK, got %v", w.Result().StatusCode)
	}
	var rt route.Route
	if err := json.NewDecoder(w.Result().Body).Decode(&rt); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if rt.Destination != "home" || len(rt.Points) != 1 {
		t.Errorf("unexpected route: %+v", rt)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/route/stats", nil))
	if w.Result().StatusCode != http.StatusOK {
		t.Errorf("expected stats OK, got %v", w.Result().StatusCode)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/route/waypoint", nil))
	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("expected waypoint accepted, got %v", w.Result().StatusCode)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/route/stop", nil))
	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("expected stop accepted, got %v", w.Result().StatusCode)
	}

	w = httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/route/stop", nil))
	if w.Result().StatusCode != http.StatusConflict {
		t.Errorf("expected conflict on double stop, got %v", w.Result().StatusCode)
	}
}

func TestHandleRecentAlerts(t *testing.T) {
	server, hist := newTestServer(t)
	hist.AppendAlert(context.Background(), emergency.Alert{ID: "a1", Type: emergency.TypeSOS})

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/alerts/recent", nil))
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected status OK, got %v", w.Result().StatusCode)
	}
	var alerts []emergency.Alert
	if err := json.NewDecoder(w.Result().Body).Decode(&alerts); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(alerts) != 1 || alerts[0].ID != "a1" {
		t.Errorf("unexpected alerts: %+v", alerts)
	}
}

func TestHandleIndexRenders(t *testing.T) {
	server, _ := newTestServer(t)

	w := httptest.NewRecorder()
	server.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected status OK, got %v", w.Result().StatusCode)
	}
	body, _ := io.ReadAll(w.Result().Body)
	if len(body) == 0 {
		t.Error("expected rendered page")
	}
}
