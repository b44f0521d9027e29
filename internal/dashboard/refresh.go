package dashboard

import (
	"dsd/internal/models"
	"sync"
	"time"
)

const (
	// refreshFloorSeconds bounds the load auto-refresh puts on the backend.
	refreshFloorSeconds = 120
	// defaultCandidateSeconds stands in for queries without a usable
	// periodic schedule (none at all, or a daily "HH:MM" one).
	defaultCandidateSeconds = 60
)

// RefreshInterval derives the auto-refresh interval from the schedules of
// the dashboard's visualization-backed queries: twice the fastest schedule,
// floored at two minutes.
func RefreshInterval(d *models.Dashboard) time.Duration {
	min, found := 0, false
	for _, row := range d.Widgets {
		for _, w := range row {
			if w.Visualization == nil {
				continue
			}
			secs, ok := w.Visualization.Query.ScheduleSeconds()
			if !ok {
				secs = defaultCandidateSeconds
			}
			if !found || secs < min {
				min, found = secs, true
			}
		}
	}
	if !found {
		min = defaultCandidateSeconds
	}

	secs := 2 * min
	if secs < refreshFloorSeconds {
		secs = refreshFloorSeconds
	}
	return time.Duration(secs) * time.Second
}

// RefreshScheduler drives the periodic re-fetch of one dashboard. The loop
// re-arms itself after every tick and stops the moment it observes enabled
// flipped false, at the start of a tick and never mid-fetch. The tick callback
// is responsible for re-checking the flag at fetch-callback time; a fetch
// already in flight when the scheduler is disabled completes and its outcome
// is discarded there.
type RefreshScheduler struct {
	tick func()

	mu       sync.Mutex
	enabled  bool
	interval time.Duration
	timer    *time.Timer
}

func NewRefreshScheduler(tick func()) *RefreshScheduler {
	return &RefreshScheduler{tick: tick}
}

func (s *RefreshScheduler) Enable(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enabled {
		return
	}
	s.enabled = true
	s.interval = interval
	s.schedule()
}

func (s *RefreshScheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *RefreshScheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *RefreshScheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// schedule arms the next tick. Callers must hold mu.
func (s *RefreshScheduler) schedule() {
	s.timer = time.AfterFunc(s.interval, s.run)
}

func (s *RefreshScheduler) run() {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return
	}
	tick := s.tick
	s.mu.Unlock()

	// A failed tick delays the next one by the full interval, nothing more.
	tick()

	s.mu.Lock()
	if s.enabled {
		s.schedule()
	}
	s.mu.Unlock()
}
