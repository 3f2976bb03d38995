// Simulated walk provider driving the feed in lieu of a device sensor
package location

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"safewalk/internal/config"
	"safewalk/internal/geo"
	"safewalk/internal/scenario"
)

const metersPerDegreeLat = 111000.0

// SimulatedProvider walks a scripted scenario, emitting jittered fixes at a
// fixed cadence. It stands in for the device sensor in the run command and
// in tests.
type SimulatedProvider struct {
	walk     *scenario.Walk
	interval time.Duration
	jitterM  float64
	deny     bool
	rand     *rand.Rand

	mu       sync.Mutex
	lat, lon float64
	leg      int
	pause    time.Duration
	watching bool
	done     chan struct{}
}

// NewSimulated creates a provider starting at the walk's first leg, or at
// the configured home position when no walk is given.
func NewSimulated(cfg config.SimConfig, walk *scenario.Walk) *SimulatedProvider {
	interval := time.Duration(cfg.UpdateSeconds) * time.Second
	if interval <= 0 {
		interval = time.Second
	}
	p := &SimulatedProvider{
		walk:     walk,
		interval: interval,
		jitterM:  cfg.JitterM,
		deny:     cfg.PermissionDeny,
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		lat:      cfg.HomeLat,
		lon:      cfg.HomeLon,
	}
	if walk != nil && len(walk.Legs) > 0 {
		p.lat = walk.Legs[0].Lat
		p.lon = walk.Legs[0].Lon
		p.leg = 1
	}
	return p
}

// RequestPermission reports the configured grant decision.
func (p *SimulatedProvider) RequestPermission(ctx context.Context) (bool, error) {
	return !p.deny, nil
}

// Current returns the walker's present position.
func (p *SimulatedProvider) Current(ctx context.Context) (Location, error) {
	select {
	case <-ctx.Done():
		return Location{}, ctx.Err()
	default:
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fix(), nil
}

// Watch emits one fix per interval until stopped. Only one watch may be
// open at a time.
func (p *SimulatedProvider) Watch(fn func(Location)) (func(), error) {
	p.mu.Lock()
	if p.watching {
		p.mu.Unlock()
		return nil, eris.New("location: watch already open")
	}
	p.watching = true
	done := make(chan struct{})
	p.done = done
	p.mu.Unlock()

	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.mu.Lock()
				p.step(p.interval)
				loc := p.fix()
				p.mu.Unlock()
				fn(loc)
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			p.mu.Lock()
			p.watching = false
			p.mu.Unlock()
		})
	}
	return stop, nil
}

// fix snapshots the position with jitter applied. Callers hold p.mu.
func (p *SimulatedProvider) fix() Location {
	lat, lon := p.lat, p.lon
	if p.jitterM > 0 {
		lat += (p.rand.Float64()*2 - 1) * p.jitterM / metersPerDegreeLat
		lon += (p.rand.Float64()*2 - 1) * p.jitterM / (metersPerDegreeLat * math.Cos(p.lat*math.Pi/180))
	}
	acc := 5 + p.rand.Float64()*15
	return Location{
		Latitude:  lat,
		Longitude: lon,
		Timestamp: time.Now().UTC(),
		Accuracy:  acc,
	}
}

// step advances the walker along the scenario by dt. Callers hold p.mu.
func (p *SimulatedProvider) step(dt time.Duration) {
	if p.walk == nil || p.leg >= len(p.walk.Legs) {
		return
	}
	if p.pause > 0 {
		p.pause -= dt
		return
	}
	target := p.walk.Legs[p.leg]
	remaining := geo.Distance(p.lat, p.lon, target.Lat, target.Lon)
	stepM := p.walk.Pace(p.leg) / 3.6 * dt.Seconds()
	if stepM >= remaining || remaining == 0 {
		p.lat, p.lon = target.Lat, target.Lon
		p.pause = time.Duration(target.PauseSeconds) * time.Second
		p.leg++
		if p.leg >= len(p.walk.Legs) && p.walk.Loop {
			p.leg = 0
		}
		return
	}
	frac := stepM / remaining
	p.lat += (target.Lat - p.lat) * frac
	p.lon += (target.Lon - p.lon) * frac
}
