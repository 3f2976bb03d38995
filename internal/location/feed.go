package location

import (
	"context"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"safewalk/internal/config"
	"safewalk/internal/geo"
)

const lastKnownKey = "last-known"

// Feed wraps a Provider into a deduplicated multicast stream with a
// last-known cache. All failures degrade to nil results, never errors.
type Feed struct {
	provider Provider
	cfg      config.LocationConfig
	log      *slog.Logger
	cache    *gocache.Cache

	mu        sync.Mutex
	subs      map[int]func(Location)
	nextSub   int
	stopWatch func()
	granted   bool
	asked     bool
}

// NewFeed creates a feed over the given provider.
func NewFeed(provider Provider, cfg config.LocationConfig, log *slog.Logger) *Feed {
	if cfg.SignificantMoveM <= 0 {
		cfg.SignificantMoveM = 50
	}
	ttl := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Feed{
		provider: provider,
		cfg:      cfg,
		log:      log,
		cache:    gocache.New(ttl, 2*ttl),
		subs:     make(map[int]func(Location)),
	}
}

// ensurePermission asks the provider for sensor access once. Providers
// without a permission prompt are treated as granted.
func (f *Feed) ensurePermission(ctx context.Context) bool {
	f.mu.Lock()
	if f.asked {
		granted := f.granted
		f.mu.Unlock()
		return granted
	}
	f.mu.Unlock()

	granted := true
	if pr, ok := f.provider.(permissionRequester); ok {
		ok, err := pr.RequestPermission(ctx)
		if err != nil {
			f.log.Error("location permission request failed", "err", err)
			ok = false
		}
		granted = ok
	}

	f.mu.Lock()
	f.asked = true
	f.granted = granted
	f.mu.Unlock()
	if !granted {
		f.log.Warn("location permission denied")
	}
	return granted
}

// Current returns a validated one-shot fix, or nil on denial, timeout, or
// invalid coordinates. A successful fix refreshes the last-known cache.
func (f *Feed) Current(ctx context.Context) *Location {
	if !f.ensurePermission(ctx) {
		return nil
	}
	timeout := time.Duration(f.cfg.CurrentTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	loc, err := f.provider.Current(ctx)
	if err != nil {
		f.log.Warn("current location unavailable", "err", err)
		return nil
	}
	if !loc.Valid() {
		f.log.Warn("dropping invalid location", "lat", loc.Latitude, "lon", loc.Longitude)
		return nil
	}
	f.cache.Set(lastKnownKey, loc, gocache.DefaultExpiration)
	return &loc
}

// LastKnown returns the cached fix, or nil when none was seen or it expired.
func (f *Feed) LastKnown() *Location {
	v, ok := f.cache.Get(lastKnownKey)
	if !ok {
		return nil
	}
	loc := v.(Location)
	return &loc
}

// StartTracking opens the shared provider subscription. Starting twice is a
// no-op success.
func (f *Feed) StartTracking(ctx context.Context) bool {
	if !f.ensurePermission(ctx) {
		return false
	}
	f.mu.Lock()
	if f.stopWatch != nil {
		f.mu.Unlock()
		return true
	}
	f.mu.Unlock()

	stop, err := f.provider.Watch(f.onUpdate)
	if err != nil {
		f.log.Error("location watch failed", "err", err)
		return false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopWatch != nil {
		// Lost the race against another StartTracking call.
		stop()
		return true
	}
	f.stopWatch = stop
	return true
}

// StopTracking closes the shared subscription. Idempotent.
func (f *Feed) StopTracking() {
	f.mu.Lock()
	stop := f.stopWatch
	f.stopWatch = nil
	f.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Tracking reports whether the provider subscription is open.
func (f *Feed) Tracking() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopWatch != nil
}

// Subscribe registers fn for every accepted update and returns an
// unsubscribe function.
func (f *Feed) Subscribe(fn func(Location)) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subs[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

// onUpdate validates a raw fix, refreshes the cache, and broadcasts it.
func (f *Feed) onUpdate(loc Location) {
	if !loc.Valid() {
		f.log.Warn("dropping invalid location update", "lat", loc.Latitude, "lon", loc.Longitude)
		return
	}
	f.cache.Set(lastKnownKey, loc, gocache.DefaultExpiration)

	f.mu.Lock()
	fns := make([]func(Location), 0, len(f.subs))
	for _, fn := range f.subs {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		f.notify(fn, loc)
	}
}

// notify delivers one update, isolating a panicking subscriber from the rest.
func (f *Feed) notify(fn func(Location), loc Location) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("location subscriber panicked", "panic", r)
		}
	}()
	fn(loc)
}

// HasMovedSignificantly reports whether loc is at least thresholdM away from
// the last-known fix. With no cached fix it is always true. A non-positive
// threshold uses the configured significant-move distance.
func (f *Feed) HasMovedSignificantly(loc Location, thresholdM float64) bool {
	if thresholdM <= 0 {
		thresholdM = f.cfg.SignificantMoveM
	}
	last := f.LastKnown()
	if last == nil {
		return true
	}
	d := geo.Distance(last.Latitude, last.Longitude, loc.Latitude, loc.Longitude)
	return d >= thresholdM
}

// AccuracyBucket classifies a fix. Missing accuracy reads as worst-case.
func (f *Feed) AccuracyBucket(loc Location) string {
	high := f.cfg.AccuracyHighM
	if high <= 0 {
		high = 20
	}
	medium := f.cfg.AccuracyMediumM
	if medium <= 0 {
		medium = 50
	}
	switch {
	case loc.Accuracy <= 0:
		return AccuracyLow
	case loc.Accuracy < high:
		return AccuracyHigh
	case loc.Accuracy < medium:
		return AccuracyMedium
	default:
		return AccuracyLow
	}
}
