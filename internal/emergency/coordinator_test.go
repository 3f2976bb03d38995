package emergency

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"safewalk/internal/config"
	"safewalk/internal/contacts"
	"safewalk/internal/location"
)

// stubProvider returns a fixed location for feed construction.
type stubProvider struct {
	loc location.Location
	err error
}

func (p *stubProvider) Current(ctx context.Context) (location.Location, error) {
	return p.loc, p.err
}

func (p *stubProvider) Watch(fn func(location.Location)) (func(), error) {
	return func() {}, nil
}

// stubDirectory serves a fixed contact list.
type stubDirectory struct {
	list []contacts.Contact
	err  error
}

func (d *stubDirectory) List(ctx context.Context) ([]contacts.Contact, error) {
	return d.list, d.err
}

// recordingDispatcher records composition attempts and can fail selected
// SMS targets.
type recordingDispatcher struct {
	mu      sync.Mutex
	sms     []string
	emails  []string
	calls   []string
	failSMS map[string]bool
}

func (d *recordingDispatcher) ComposeSMS(ctx context.Context, phone, body string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failSMS[phone] {
		return errors.New("channel unavailable")
	}
	d.sms = append(d.sms, phone)
	return nil
}

func (d *recordingDispatcher) ComposeEmail(ctx context.Context, addr, subject, body string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emails = append(d.emails, addr)
	return nil
}

func (d *recordingDispatcher) ComposeCall(ctx context.Context, phone string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, phone)
	return nil
}

func (d *recordingDispatcher) smsCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sms)
}

// memHistory archives alerts in memory.
type memHistory struct {
	mu     sync.Mutex
	alerts []Alert
}

func (h *memHistory) AppendAlert(ctx context.Context, a Alert) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.alerts = append(h.alerts, a)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCoordinator(dir contacts.Directory, disp *recordingDispatcher, hist History) *Coordinator {
	provider := &stubProvider{loc: location.Location{Latitude: 48.2, Longitude: 16.4, Timestamp: time.Now(), Accuracy: 10}}
	feed := location.NewFeed(provider, config.LocationConfig{CurrentTimeoutSeconds: 1, CacheTTLMinutes: 5}, discardLogger())
	cfg := config.EmergencyConfig{
		CountdownSeconds: 3,
		DialNumbers:      map[string]string{"sos": "911", "medical": "911", "fire": "911", "police": "911"},
	}
	c := NewCoordinator(feed, dir, disp, hist, cfg, discardLogger())
	c.tick = 5 * time.Millisecond
	return c
}

func twoContacts() *stubDirectory {
	return &stubDirectory{list: []contacts.Contact{
		{ID: "A", Name: "Alice", PhoneNumber: "111", Active: true},
		{ID: "B", Name: "Bob", PhoneNumber: "222", Active: false},
	}}
}

func TestTrigger_NoActiveContacts(t *testing.T) {
	dir := &stubDirectory{list: []contacts.Contact{{ID: "B", PhoneNumber: "222", Active: false}}}
	disp := &recordingDispatcher{}
	c := testCoordinator(dir, disp, nil)

	if a := c.Trigger(context.Background(), TypeSOS, "", true); a != nil {
		t.Fatalf("expected nil alert, got %+v", a)
	}
	if c.ActiveAlert() != nil {
		t.Error("slot must stay empty after failed trigger")
	}
	if disp.smsCount() != 0 {
		t.Error("no delivery may be attempted")
	}
}

func TestTrigger_NoLocation(t *testing.T) {
	provider := &stubProvider{err: errors.New("gps timeout")}
	feed := location.NewFeed(provider, config.LocationConfig{CurrentTimeoutSeconds: 1, CacheTTLMinutes: 5}, discardLogger())
	c := NewCoordinator(feed, twoContacts(), &recordingDispatcher{}, nil, config.EmergencyConfig{CountdownSeconds: 3}, discardLogger())

	if a := c.Trigger(context.Background(), TypeSOS, "", true); a != nil {
		t.Fatalf("expected nil alert without location, got %+v", a)
	}
}

func TestTrigger_SkipCountdown_NotifiesActiveOnly(t *testing.T) {
	dir := twoContacts()
	disp := &recordingDispatcher{}
	hist := &memHistory{}
	c := testCoordinator(dir, disp, hist)

	a := c.Trigger(context.Background(), TypeSOS, "help me", true)
	if a == nil {
		t.Fatal("expected an alert")
	}
	got := c.ActiveAlert()
	if got == nil || got.Status != StatusActive {
		t.Fatalf("expected active alert, got %+v", got)
	}
	if len(got.ContactsNotified) != 1 || got.ContactsNotified[0] != "A" {
		t.Errorf("expected only contact A notified, got %v", got.ContactsNotified)
	}
	for _, phone := range disp.sms {
		if phone == "222" {
			t.Error("inactive contact must never be attempted")
		}
	}
	if len(hist.alerts) != 1 {
		t.Errorf("expected one archived alert, got %d", len(hist.alerts))
	}
}

func TestTrigger_SkipCountdown_ReturnedAlertCarriesNotified(t *testing.T) {
	dir := twoContacts()
	c := testCoordinator(dir, &recordingDispatcher{}, nil)

	a := c.Trigger(context.Background(), TypeSOS, "", true)
	if a == nil {
		t.Fatal("expected an alert")
	}
	if a.Status != StatusActive {
		t.Errorf("returned alert status = %s, want %s", a.Status, StatusActive)
	}
	if len(a.ContactsNotified) != 1 || a.ContactsNotified[0] != "A" {
		t.Errorf("returned alert must carry the notified list, got %v", a.ContactsNotified)
	}
}

func TestTrigger_FailedDeliveryOmitted(t *testing.T) {
	dir := &stubDirectory{list: []contacts.Contact{
		{ID: "A", PhoneNumber: "111", Active: true},
		{ID: "C", PhoneNumber: "333", Active: true},
	}}
	disp := &recordingDispatcher{failSMS: map[string]bool{"333": true}}
	c := testCoordinator(dir, disp, nil)

	a := c.Trigger(context.Background(), TypeSOS, "", true)
	if a == nil {
		t.Fatal("expected an alert")
	}
	got := c.ActiveAlert()
	if len(got.ContactsNotified) != 1 || got.ContactsNotified[0] != "A" {
		t.Errorf("failed contact must be omitted, got %v", got.ContactsNotified)
	}
}

func TestTrigger_SecondWhileInFlight(t *testing.T) {
	c := testCoordinator(twoContacts(), &recordingDispatcher{}, nil)
	if a := c.Trigger(context.Background(), TypeSOS, "", true); a == nil {
		t.Fatal("first trigger should succeed")
	}
	if a := c.Trigger(context.Background(), TypeFire, "", true); a != nil {
		t.Error("second trigger must fail while the slot is occupied")
	}
}

func TestQuickDial_SkippedForPanic(t *testing.T) {
	disp := &recordingDispatcher{}
	c := testCoordinator(twoContacts(), disp, nil)
	c.Trigger(context.Background(), TypePanic, "", true)
	if len(disp.calls) != 0 {
		t.Errorf("panic must not quick-dial, got %v", disp.calls)
	}

	c.Resolve(context.Background(), c.ActiveAlert().ID)
	disp2 := &recordingDispatcher{}
	c2 := testCoordinator(twoContacts(), disp2, nil)
	c2.Trigger(context.Background(), TypeSOS, "", true)
	if len(disp2.calls) != 1 || disp2.calls[0] != "911" {
		t.Errorf("sos should quick-dial 911, got %v", disp2.calls)
	}
}

func TestCancelCountdown_BeforeZero(t *testing.T) {
	disp := &recordingDispatcher{}
	hist := &memHistory{}
	c := testCoordinator(twoContacts(), disp, hist)

	var events []Event
	var evMu sync.Mutex
	c.Subscribe(func(ev Event) {
		evMu.Lock()
		events = append(events, ev)
		evMu.Unlock()
	})

	a := c.Trigger(context.Background(), TypeSOS, "", false)
	if a == nil {
		t.Fatal("expected an alert")
	}
	if !c.CancelCountdown() {
		t.Fatal("cancel should succeed during countdown")
	}
	if c.ActiveAlert() != nil {
		t.Error("slot must be empty after cancel")
	}
	if disp.smsCount() != 0 {
		t.Error("no fan-out may run after cancel")
	}

	// Archived at creation even though the alert was cancelled.
	if len(hist.alerts) != 1 {
		t.Errorf("expected archived alert, got %d", len(hist.alerts))
	}

	evMu.Lock()
	last := events[len(events)-1]
	evMu.Unlock()
	if last.Kind != EventCancelled || last.Alert.Status != StatusCancelled {
		t.Errorf("expected cancelled event, got %+v", last)
	}

	// Give any stray countdown goroutine a chance to misbehave.
	time.Sleep(30 * time.Millisecond)
	if disp.smsCount() != 0 {
		t.Error("cancelled countdown must never fan out")
	}
}

func TestCancelCountdown_NoCountdown(t *testing.T) {
	c := testCoordinator(twoContacts(), &recordingDispatcher{}, nil)
	if c.CancelCountdown() {
		t.Error("cancel with no countdown must fail")
	}
	c.Trigger(context.Background(), TypeSOS, "", true)
	if c.CancelCountdown() {
		t.Error("cancel after fan-out must fail")
	}
}

func TestCountdown_ReachesZeroAndFansOut(t *testing.T) {
	disp := &recordingDispatcher{}
	c := testCoordinator(twoContacts(), disp, nil)

	activated := make(chan Event, 1)
	c.Subscribe(func(ev Event) {
		if ev.Kind == EventActivated {
			activated <- ev
		}
	})

	if a := c.Trigger(context.Background(), TypeSOS, "", false); a == nil {
		t.Fatal("expected an alert")
	}
	select {
	case ev := <-activated:
		if len(ev.Alert.ContactsNotified) != 1 {
			t.Errorf("expected one notified contact, got %v", ev.Alert.ContactsNotified)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("countdown never completed")
	}
}

func TestResolve(t *testing.T) {
	disp := &recordingDispatcher{}
	c := testCoordinator(twoContacts(), disp, nil)
	a := c.Trigger(context.Background(), TypeSOS, "", true)

	if c.Resolve(context.Background(), "no-such-id") {
		t.Error("resolve with wrong id must fail")
	}
	before := disp.smsCount()
	if !c.Resolve(context.Background(), a.ID) {
		t.Fatal("resolve with matching id should succeed")
	}
	if c.ActiveAlert() != nil {
		t.Error("slot must be empty after resolve")
	}
	if disp.smsCount() != before+1 {
		t.Errorf("expected one resolved notice, got %d", disp.smsCount()-before)
	}
	if c.Resolve(context.Background(), a.ID) {
		t.Error("second resolve must fail")
	}
}

func TestSubscribe_PanicIsolation(t *testing.T) {
	disp := &recordingDispatcher{}
	c := testCoordinator(twoContacts(), disp, nil)

	var got []Event
	c.Subscribe(func(Event) { panic("listener bug") })
	c.Subscribe(func(ev Event) { got = append(got, ev) })

	c.Trigger(context.Background(), TypeSOS, "", true)
	if len(got) == 0 {
		t.Error("healthy subscriber must still receive events")
	}
}
