// Replay provider feeding recorded location logs back through the feed
package location

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ReplayProvider replays fixes from a JSONL log at recorded pace. A speed
// multiplier >1 accelerates playback; speed <= 0 removes delays entirely.
type ReplayProvider struct {
	rows  []Location
	speed float64

	mu        sync.Mutex
	idx       int
	watching  bool
	finished  chan struct{}
	finishOne sync.Once
}

// NewReplay loads a JSONL location log from disk.
func NewReplay(path string, speed float64) (*ReplayProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "location: open replay log %s", path)
	}
	defer f.Close()

	var rows []Location
	dec := json.NewDecoder(f)
	for {
		var loc Location
		if err := dec.Decode(&loc); err != nil {
			if err == io.EOF {
				break
			}
			return nil, eris.Wrap(err, "location: decode replay log")
		}
		rows = append(rows, loc)
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("location: replay log %s is empty", path)
	}
	return &ReplayProvider{rows: rows, speed: speed, finished: make(chan struct{})}, nil
}

// Finished is closed once the whole log has been streamed.
func (p *ReplayProvider) Finished() <-chan struct{} {
	return p.finished
}

// Current returns the most recently replayed fix.
func (p *ReplayProvider) Current(ctx context.Context) (Location, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.idx
	if i >= len(p.rows) {
		i = len(p.rows) - 1
	}
	return p.rows[i], nil
}

// Watch streams the recorded fixes, honoring inter-fix gaps scaled by the
// speed multiplier. The stream ends when the log is exhausted or stop is
// called.
func (p *ReplayProvider) Watch(fn func(Location)) (func(), error) {
	p.mu.Lock()
	if p.watching {
		p.mu.Unlock()
		return nil, eris.New("location: watch already open")
	}
	p.watching = true
	p.idx = 0
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer p.finishOne.Do(func() { close(p.finished) })
		var prev time.Time
		for i, row := range p.rows {
			if !prev.IsZero() && p.speed > 0 {
				diff := row.Timestamp.Sub(prev)
				if p.speed != 1 {
					diff = time.Duration(float64(diff) / p.speed)
				}
				if diff > 0 {
					select {
					case <-time.After(diff):
					case <-done:
						return
					}
				}
			}
			select {
			case <-done:
				return
			default:
			}
			p.mu.Lock()
			p.idx = i
			p.mu.Unlock()
			fn(row)
			prev = row.Timestamp
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
