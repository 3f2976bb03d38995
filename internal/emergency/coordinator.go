// Coordinator owning the emergency alert state machine
package emergency

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"safewalk/internal/config"
	"safewalk/internal/contacts"
	"safewalk/internal/dispatch"
	"safewalk/internal/location"
)

// History archives alerts. Archival happens at creation time regardless of
// the alert's eventual outcome.
type History interface {
	AppendAlert(ctx context.Context, alert Alert) error
}

// Coordinator owns the single in-flight alert slot and its countdown,
// fan-out, and resolution transitions.
type Coordinator struct {
	feed *location.Feed
	dir  contacts.Directory
	disp dispatch.Dispatcher
	hist History
	cfg  config.EmergencyConfig
	log  *slog.Logger

	tick time.Duration
	now  func() time.Time

	mu            sync.Mutex
	alert         *Alert
	countdownStop chan struct{}
	remaining     int
	subs          map[int]func(Event)
	nextSub       int
}

// NewCoordinator wires the coordinator with its collaborators. hist may be
// nil when no archive is configured.
func NewCoordinator(feed *location.Feed, dir contacts.Directory, disp dispatch.Dispatcher, hist History, cfg config.EmergencyConfig, log *slog.Logger) *Coordinator {
	if cfg.CountdownSeconds <= 0 {
		cfg.CountdownSeconds = 10
	}
	return &Coordinator{
		feed: feed,
		dir:  dir,
		disp: disp,
		hist: hist,
		cfg:  cfg,
		log:  log,
		tick: time.Second,
		now:  time.Now,
		subs: make(map[int]func(Event)),
	}
}

// Subscribe registers fn for lifecycle events and returns an unsubscribe
// function.
func (c *Coordinator) Subscribe(fn func(Event)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// ActiveAlert returns a snapshot of the in-flight alert, or nil.
func (c *Coordinator) ActiveAlert() *Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.alert == nil {
		return nil
	}
	snap := c.alert.snapshot()
	return &snap
}

// CountdownRemaining returns the seconds left in a running countdown, 0
// otherwise.
func (c *Coordinator) CountdownRemaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.countdownStop == nil {
		return 0
	}
	return c.remaining
}

// Trigger creates an alert if none is in flight, a current location is
// obtainable, and at least one active contact exists; otherwise it returns
// nil without mutating state. The alert is archived immediately. With
// skipCountdown the fan-out runs at once; otherwise a per-second countdown
// starts.
func (c *Coordinator) Trigger(ctx context.Context, typ Type, message string, skipCountdown bool) *Alert {
	if !typ.Valid() {
		c.log.Warn("trigger rejected: unknown emergency type", "type", typ)
		return nil
	}
	c.mu.Lock()
	if c.alert != nil {
		c.mu.Unlock()
		c.log.Warn("trigger rejected: alert already in flight")
		return nil
	}
	c.mu.Unlock()

	loc := c.feed.Current(ctx)
	if loc == nil {
		c.log.Warn("trigger rejected: no current location")
		return nil
	}
	active := c.activeContacts(ctx)
	if len(active) == 0 {
		c.log.Warn("trigger rejected: no active contacts")
		return nil
	}

	alert := &Alert{
		ID:        uuid.New().String(),
		Type:      typ,
		Location:  *loc,
		Message:   message,
		Timestamp: c.now().UTC(),
		Status:    StatusActive,
	}

	var stop chan struct{}
	c.mu.Lock()
	if c.alert != nil {
		// Lost the race against a concurrent trigger.
		c.mu.Unlock()
		return nil
	}
	c.alert = alert
	if !skipCountdown {
		stop = make(chan struct{})
		c.countdownStop = stop
		c.remaining = c.cfg.CountdownSeconds
	}
	snap := alert.snapshot()
	c.mu.Unlock()

	if c.hist != nil {
		if err := c.hist.AppendAlert(ctx, snap); err != nil {
			c.log.Error("alert archive failed", "alert_id", snap.ID, "err", err)
		}
	}

	if skipCountdown {
		c.executeAlert(ctx)
		c.mu.Lock()
		if c.alert != nil && c.alert.ID == snap.ID {
			// Pick up ContactsNotified from the fan-out that just ran.
			snap = c.alert.snapshot()
		}
		c.mu.Unlock()
	} else {
		c.publish(Event{Kind: EventCountdown, Alert: snap, Remaining: c.cfg.CountdownSeconds})
		go c.runCountdown(stop)
	}
	return &snap
}

// runCountdown ticks down once per interval. A cancel or resolve swaps the
// stop channel out from under it, which prevents the next tick from firing
// against a cleared slot.
func (c *Coordinator) runCountdown(stop chan struct{}) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			if c.countdownStop != stop || c.alert == nil {
				c.mu.Unlock()
				return
			}
			c.remaining--
			rem := c.remaining
			snap := c.alert.snapshot()
			if rem <= 0 {
				c.countdownStop = nil
			}
			c.mu.Unlock()

			if rem > 0 {
				c.publish(Event{Kind: EventCountdown, Alert: snap, Remaining: rem})
				continue
			}
			c.executeAlert(context.Background())
			return
		case <-stop:
			return
		}
	}
}

// CancelCountdown aborts a running countdown before fan-out. It is a no-op
// failure when no countdown is in flight.
func (c *Coordinator) CancelCountdown() bool {
	c.mu.Lock()
	if c.countdownStop == nil || c.alert == nil {
		c.mu.Unlock()
		return false
	}
	close(c.countdownStop)
	c.countdownStop = nil
	c.alert.Status = StatusCancelled
	snap := c.alert.snapshot()
	c.alert = nil
	c.mu.Unlock()

	c.log.Info("alert cancelled during countdown", "alert_id", snap.ID)
	c.publish(Event{Kind: EventCancelled, Alert: snap})
	return true
}

// executeAlert runs the notification fan-out: every active contact is
// attempted independently and concurrently, then the quick-dial call for
// types that have one.
func (c *Coordinator) executeAlert(ctx context.Context) {
	c.mu.Lock()
	if c.alert == nil {
		c.mu.Unlock()
		return
	}
	snap := c.alert.snapshot()
	c.mu.Unlock()

	active := c.activeContacts(ctx)
	body := alertBody(&snap)
	subject := alertSubject(snap.Type)

	var wg sync.WaitGroup
	var resMu sync.Mutex
	var notified []string
	for _, ct := range active {
		wg.Add(1)
		go func(ct contacts.Contact) {
			defer wg.Done()
			smsErr := c.disp.ComposeSMS(ctx, ct.PhoneNumber, body)
			if smsErr != nil {
				c.log.Warn("sms composition failed", "contact_id", ct.ID, "err", smsErr)
			}
			var emailOK bool
			if ct.Email != "" {
				if err := c.disp.ComposeEmail(ctx, ct.Email, subject, body); err != nil {
					c.log.Warn("email composition failed", "contact_id", ct.ID, "err", err)
				} else {
					emailOK = true
				}
			}
			if smsErr == nil || emailOK {
				resMu.Lock()
				notified = append(notified, ct.ID)
				resMu.Unlock()
			}
		}(ct)
	}
	wg.Wait()

	if number, ok := c.cfg.DialNumbers[string(snap.Type)]; ok && snap.Type != TypePanic {
		if err := c.disp.ComposeCall(ctx, number); err != nil {
			c.log.Warn("quick-dial composition failed", "number", number, "err", err)
		}
	}

	c.mu.Lock()
	if c.alert == nil || c.alert.ID != snap.ID {
		c.mu.Unlock()
		return
	}
	c.alert.ContactsNotified = notified
	c.alert.Status = StatusActive
	out := c.alert.snapshot()
	c.mu.Unlock()

	c.log.Info("alert active", "alert_id", out.ID, "contacts_notified", len(out.ContactsNotified))
	c.publish(Event{Kind: EventActivated, Alert: out})
}

// Resolve settles the alert matching alertID, sends the all-clear to every
// previously notified contact, and clears the slot.
func (c *Coordinator) Resolve(ctx context.Context, alertID string) bool {
	c.mu.Lock()
	if c.alert == nil || c.alert.ID != alertID {
		c.mu.Unlock()
		return false
	}
	if c.countdownStop != nil {
		close(c.countdownStop)
		c.countdownStop = nil
	}
	c.alert.Status = StatusResolved
	snap := c.alert.snapshot()
	c.alert = nil
	c.mu.Unlock()

	if len(snap.ContactsNotified) > 0 {
		c.notifyResolved(ctx, snap)
	}

	c.log.Info("alert resolved", "alert_id", snap.ID)
	c.publish(Event{Kind: EventResolved, Alert: snap})
	return true
}

// notifyResolved messages the contacts that were notified during fan-out.
func (c *Coordinator) notifyResolved(ctx context.Context, snap Alert) {
	notified := make(map[string]bool, len(snap.ContactsNotified))
	for _, id := range snap.ContactsNotified {
		notified[id] = true
	}
	body := resolvedBody(&snap)

	all, err := c.dir.List(ctx)
	if err != nil {
		c.log.Error("contact listing failed during resolve", "err", err)
		return
	}
	var wg sync.WaitGroup
	for _, ct := range all {
		if !notified[ct.ID] {
			continue
		}
		wg.Add(1)
		go func(ct contacts.Contact) {
			defer wg.Done()
			if err := c.disp.ComposeSMS(ctx, ct.PhoneNumber, body); err != nil {
				c.log.Warn("resolved notice failed", "contact_id", ct.ID, "err", err)
			}
		}(ct)
	}
	wg.Wait()
}

// activeContacts lists the directory and filters to active contacts,
// degrading to empty on directory failure.
func (c *Coordinator) activeContacts(ctx context.Context) []contacts.Contact {
	all, err := c.dir.List(ctx)
	if err != nil {
		c.log.Error("contact listing failed", "err", err)
		return nil
	}
	return contacts.FilterActive(all)
}

// publish delivers an event to all subscribers, isolating panics.
func (c *Coordinator) publish(ev Event) {
	c.mu.Lock()
	fns := make([]func(Event), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		c.deliver(fn, ev)
	}
}

func (c *Coordinator) deliver(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("emergency subscriber panicked", "panic", r)
		}
	}()
	fn(ev)
}
