package cache

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Cleaner is implemented by caches that can drop their expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Sweeper periodically removes expired entries from registered caches.
type Sweeper struct {
	cron   *cron.Cron
	caches []Cleaner
	log    zerolog.Logger
}

// NewSweeper schedules a sweep of caches on spec, a robfig/cron expression
// such as "@every 5m".
func NewSweeper(spec string, log zerolog.Logger, caches ...Cleaner) (*Sweeper, error) {
	s := &Sweeper{
		cron:   cron.New(),
		caches: caches,
		log:    log.With().Str("component", "cache_sweeper").Logger(),
	}
	if _, err := s.cron.AddFunc(spec, func() { s.Sweep() }); err != nil {
		return nil, fmt.Errorf("schedule cache sweep %q: %w", spec, err)
	}
	return s, nil
}

// Sweep runs one pass over all caches and returns the number of entries removed.
func (s *Sweeper) Sweep() int {
	total := 0
	for _, c := range s.caches {
		total += c.CleanExpired()
	}
	if total > 0 {
		s.log.Debug().Int("removed", total).Msg("swept expired cache entries")
	}
	return total
}

// Start begins the schedule in its own goroutine.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
