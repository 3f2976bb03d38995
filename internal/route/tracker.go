// Tracker owning the active-route state machine
package route

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"safewalk/internal/config"
	"safewalk/internal/contacts"
	"safewalk/internal/dispatch"
	"safewalk/internal/geo"
	"safewalk/internal/location"
)

// PointWriter receives every accepted point for the history sink.
type PointWriter interface {
	WritePoint(routeID string, pt Point) error
}

// Tracker owns the single active-route slot: point accumulation behind the
// distance filter, periodic share updates, and the auto-stop ceiling.
type Tracker struct {
	feed   *location.Feed
	dir    contacts.Directory
	disp   dispatch.Dispatcher
	points PointWriter
	cfg    config.RouteConfig
	log    *slog.Logger

	shareTick time.Duration
	autoStop  time.Duration
	now       func() time.Time

	mu        sync.Mutex
	route     *Route
	unsub     func()
	stopTimer *time.Timer
	shareStop chan struct{}
	subs      map[int]func(Event)
	nextSub   int
}

// NewTracker wires the tracker with its collaborators. points may be nil
// when no history sink is configured.
func NewTracker(feed *location.Feed, dir contacts.Directory, disp dispatch.Dispatcher, points PointWriter, cfg config.RouteConfig, log *slog.Logger) *Tracker {
	if cfg.MinPointDistanceM <= 0 {
		cfg.MinPointDistanceM = 10
	}
	if cfg.MaxPoints <= 0 {
		cfg.MaxPoints = 1000
	}
	shareTick := time.Duration(cfg.ShareIntervalSeconds) * time.Second
	if shareTick <= 0 {
		shareTick = 30 * time.Second
	}
	autoStop := time.Duration(cfg.AutoStopMinutes) * time.Minute
	if autoStop <= 0 {
		autoStop = time.Hour
	}
	return &Tracker{
		feed:      feed,
		dir:       dir,
		disp:      disp,
		points:    points,
		cfg:       cfg,
		log:       log,
		shareTick: shareTick,
		autoStop:  autoStop,
		now:       time.Now,
		subs:      make(map[int]func(Event)),
	}
}

// Subscribe registers fn for tracker events and returns an unsubscribe
// function.
func (t *Tracker) Subscribe(fn func(Event)) func() {
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subs[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// ActiveRoute returns a snapshot of the active route, or nil.
func (t *Tracker) ActiveRoute() *Route {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.route == nil {
		return nil
	}
	snap := t.route.snapshot()
	return &snap
}

// Start begins tracking from the current location, seeding one waypoint.
// It returns nil without side effects when a route is already active or no
// location is obtainable. Tracking stops automatically after the
// configured ceiling regardless of user action.
func (t *Tracker) Start(ctx context.Context, destination string, sharedWith []string) *Route {
	t.mu.Lock()
	if t.route != nil {
		t.mu.Unlock()
		t.log.Warn("route start rejected: already tracking")
		return nil
	}
	t.mu.Unlock()

	loc := t.feed.Current(ctx)
	if loc == nil {
		t.log.Warn("route start rejected: no current location")
		return nil
	}

	now := t.now().UTC()
	route := &Route{
		ID:          uuid.New().String(),
		StartTime:   now,
		Points:      []Point{{Location: *loc, Timestamp: now, Waypoint: true}},
		Destination: destination,
		SharedWith:  append([]string(nil), sharedWith...),
	}

	t.mu.Lock()
	if t.route != nil {
		t.mu.Unlock()
		return nil
	}
	t.route = route
	t.unsub = t.feed.Subscribe(t.onLocation)
	t.stopTimer = time.AfterFunc(t.autoStop, func() { t.autoStopFired(route.ID) })
	if len(route.SharedWith) > 0 {
		stop := make(chan struct{})
		t.shareStop = stop
		go t.runShareTicker(stop)
	}
	snap := route.snapshot()
	t.mu.Unlock()

	t.feed.StartTracking(ctx)

	if t.points != nil {
		if err := t.points.WritePoint(snap.ID, snap.Points[0]); err != nil {
			t.log.Warn("point write failed", "route_id", snap.ID, "err", err)
		}
	}
	if len(snap.SharedWith) > 0 {
		t.announce(ctx, snap.SharedWith, shareStartedBody(&snap, *loc))
	}
	t.log.Info("route tracking started", "route_id", snap.ID, "shared_with", len(snap.SharedWith))
	t.publish(Event{Kind: EventStarted, Route: snap})
	return &snap
}

// autoStopFired stops a route when the ceiling elapses, but only if the
// same route is still active.
func (t *Tracker) autoStopFired(routeID string) {
	t.mu.Lock()
	stale := t.route == nil || t.route.ID != routeID
	t.mu.Unlock()
	if stale {
		return
	}
	t.log.Info("route auto-stop ceiling reached", "route_id", routeID)
	t.Stop(context.Background())
}

// onLocation runs the acceptance filter on every raw feed update.
func (t *Tracker) onLocation(loc location.Location) {
	t.mu.Lock()
	if t.route == nil {
		t.mu.Unlock()
		return
	}
	last := t.route.Points[len(t.route.Points)-1]
	d := geo.Distance(last.Location.Latitude, last.Location.Longitude, loc.Latitude, loc.Longitude)
	if d < t.cfg.MinPointDistanceM {
		t.mu.Unlock()
		return
	}
	pt := Point{Location: loc, Timestamp: t.pointTime(loc)}
	t.appendPoint(pt, d)
	routeID := t.route.ID
	snap := t.route.snapshot()
	t.mu.Unlock()

	t.writePoint(routeID, pt)
	t.publish(Event{Kind: EventPoint, Route: snap})
}

// pointTime prefers the sensor timestamp over wall time.
func (t *Tracker) pointTime(loc location.Location) time.Time {
	if !loc.Timestamp.IsZero() {
		return loc.Timestamp
	}
	return t.now().UTC()
}

// appendPoint records pt and trims the list to the retention cap from the
// front. Callers hold t.mu.
func (t *Tracker) appendPoint(pt Point, dist float64) {
	t.route.Points = append(t.route.Points, pt)
	t.route.TotalDistance += dist
	if len(t.route.Points) > t.cfg.MaxPoints {
		trimmed := make([]Point, t.cfg.MaxPoints)
		copy(trimmed, t.route.Points[len(t.route.Points)-t.cfg.MaxPoints:])
		t.route.Points = trimmed
	}
}

func (t *Tracker) writePoint(routeID string, pt Point) {
	if t.points == nil {
		return
	}
	if err := t.points.WritePoint(routeID, pt); err != nil {
		t.log.Warn("point write failed", "route_id", routeID, "err", err)
	}
}

// AddWaypoint force-records a point regardless of the distance filter,
// using the given location or the feed's last-known fix.
func (t *Tracker) AddWaypoint(ctx context.Context, loc *location.Location) bool {
	if loc == nil {
		loc = t.feed.LastKnown()
	}
	if loc == nil {
		t.log.Warn("waypoint rejected: no location available")
		return false
	}

	t.mu.Lock()
	if t.route == nil {
		t.mu.Unlock()
		return false
	}
	last := t.route.Points[len(t.route.Points)-1]
	d := geo.Distance(last.Location.Latitude, last.Location.Longitude, loc.Latitude, loc.Longitude)
	pt := Point{Location: *loc, Timestamp: t.pointTime(*loc), Waypoint: true}
	t.appendPoint(pt, d)
	routeID := t.route.ID
	snap := t.route.snapshot()
	t.mu.Unlock()

	t.writePoint(routeID, pt)
	t.publish(Event{Kind: EventWaypoint, Route: snap})
	return true
}

// runShareTicker sends periodic trip updates until stopped.
func (t *Tracker) runShareTicker(stop chan struct{}) {
	ticker := time.NewTicker(t.shareTick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.mu.Lock()
			if t.shareStop != stop || t.route == nil || len(t.route.SharedWith) == 0 {
				t.mu.Unlock()
				return
			}
			shared := append([]string(nil), t.route.SharedWith...)
			snap := t.route.snapshot()
			t.mu.Unlock()

			loc := t.feed.LastKnown()
			if loc == nil {
				continue
			}
			stats := statsOf(&snap, t.now().UTC())
			t.announce(context.Background(), shared, shareUpdateBody(&snap, *loc, stats))
		case <-stop:
			return
		}
	}
}

// announce sends body to every listed contact that is still active.
// Attempts are independent and best-effort.
func (t *Tracker) announce(ctx context.Context, ids []string, body string) {
	all, err := t.dir.List(ctx)
	if err != nil {
		t.log.Error("contact listing failed for share update", "err", err)
		return
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var wg sync.WaitGroup
	for _, ct := range contacts.FilterActive(all) {
		if !wanted[ct.ID] {
			continue
		}
		wg.Add(1)
		go func(ct contacts.Contact) {
			defer wg.Done()
			if err := t.disp.ComposeSMS(ctx, ct.PhoneNumber, body); err != nil {
				t.log.Warn("share message failed", "contact_id", ct.ID, "err", err)
			}
		}(ct)
	}
	wg.Wait()
}

// ShareWith begins or updates sharing on the active route and sends a
// started announcement.
func (t *Tracker) ShareWith(ctx context.Context, ids []string) bool {
	if len(ids) == 0 {
		return false
	}
	t.mu.Lock()
	if t.route == nil {
		t.mu.Unlock()
		return false
	}
	t.route.SharedWith = append([]string(nil), ids...)
	if t.shareStop == nil {
		stop := make(chan struct{})
		t.shareStop = stop
		go t.runShareTicker(stop)
	}
	snap := t.route.snapshot()
	t.mu.Unlock()

	loc := t.feed.LastKnown()
	if loc != nil {
		t.announce(ctx, snap.SharedWith, shareStartedBody(&snap, *loc))
	}
	t.publish(Event{Kind: EventSharing, Route: snap})
	return true
}

// StopSharing ends sharing on the active route and sends a stopped
// announcement to the previously shared contacts.
func (t *Tracker) StopSharing(ctx context.Context) bool {
	t.mu.Lock()
	if t.route == nil || t.shareStop == nil {
		t.mu.Unlock()
		return false
	}
	close(t.shareStop)
	t.shareStop = nil
	shared := t.route.SharedWith
	t.route.SharedWith = nil
	snap := t.route.snapshot()
	t.mu.Unlock()

	stats := statsOf(&snap, t.now().UTC())
	t.announce(ctx, shared, shareStoppedBody(&snap, stats))
	t.publish(Event{Kind: EventSharing, Route: snap})
	return true
}

// Stop ends tracking: marks the end time, cancels the timers, detaches from
// the feed, and sends one terminal notice per shared contact before
// clearing the slot.
func (t *Tracker) Stop(ctx context.Context) bool {
	t.mu.Lock()
	if t.route == nil {
		t.mu.Unlock()
		return false
	}
	t.route.EndTime = t.now().UTC()
	shared := append([]string(nil), t.route.SharedWith...)
	snap := t.route.snapshot()
	unsub := t.unsub
	t.unsub = nil
	if t.stopTimer != nil {
		t.stopTimer.Stop()
		t.stopTimer = nil
	}
	if t.shareStop != nil {
		close(t.shareStop)
		t.shareStop = nil
	}
	t.route = nil
	t.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	t.feed.StopTracking()

	if len(shared) > 0 {
		stats := statsOf(&snap, snap.EndTime)
		t.announce(ctx, shared, shareStoppedBody(&snap, stats))
	}
	t.log.Info("route tracking stopped", "route_id", snap.ID,
		"distance", geo.FormatDistance(snap.TotalDistance), "points", len(snap.Points))
	t.publish(Event{Kind: EventStopped, Route: snap})
	return true
}

// Statistics returns the derived view of the active route, or nil.
func (t *Tracker) Statistics() *Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.route == nil {
		return nil
	}
	snap := t.route.snapshot()
	s := statsOf(&snap, t.now().UTC())
	return &s
}

// statsOf computes the derived stats for a route snapshot at time now.
func statsOf(r *Route, now time.Time) Stats {
	end := r.EndTime
	if end.IsZero() {
		end = now
	}
	elapsed := end.Sub(r.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	avg := 0.0
	if elapsed > 0 {
		avg = (r.TotalDistance / 1000) / elapsed.Hours()
	}
	return Stats{
		Duration:    elapsed,
		DistanceM:   r.TotalDistance,
		AvgSpeedKmh: avg,
		Points:      len(r.Points),
	}
}

// publish delivers an event to all subscribers, isolating panics.
func (t *Tracker) publish(ev Event) {
	t.mu.Lock()
	fns := make([]func(Event), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		t.deliver(fn, ev)
	}
}

func (t *Tracker) deliver(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("route subscriber panicked", "panic", r)
		}
	}()
	fn(ev)
}
