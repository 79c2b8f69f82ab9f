package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/apscanner/internal/observability"
	"github.com/RMahshie/apscanner/internal/scheduler"
)

// Snapshotter periodically writes the cache to a Sink. Failures are logged and
// counted; they never stop the loop.
type Snapshotter struct {
	cache *SuggestionCache
	sink  Sink
	sched *scheduler.Scheduler
}

func NewSnapshotter(c *SuggestionCache, sink Sink, interval time.Duration) *Snapshotter {
	s := &Snapshotter{cache: c, sink: sink}
	s.sched = scheduler.New("cache-snapshot", interval, func(ctx context.Context) {
		_ = s.Flush(ctx)
	})
	return s
}

// Restore loads the sink's snapshot into the cache. A missing or unreadable
// snapshot leaves the cache empty.
func (s *Snapshotter) Restore(ctx context.Context) {
	err := s.cache.LoadFrom(ctx, s.sink)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		log.Info().Str("sink", s.sink.Name()).Msg("No cache snapshot to restore")
		return
	case err != nil:
		log.Warn().Err(err).Str("sink", s.sink.Name()).Msg("Ignoring unreadable cache snapshot")
		return
	}
	log.Info().Str("sink", s.sink.Name()).Int("entries", s.cache.Len()).Msg("Cache snapshot restored")
}

// Flush writes one snapshot now
func (s *Snapshotter) Flush(ctx context.Context) error {
	n, err := s.cache.SaveTo(ctx, s.sink)
	observability.IncCacheSnapshot(s.sink.Name(), err)
	if err != nil {
		log.Error().Err(err).Str("sink", s.sink.Name()).Msg("Cache snapshot failed")
		return err
	}
	log.Debug().Str("sink", s.sink.Name()).Int("bytes", n).Msg("Cache snapshot written")
	return nil
}

// Start begins the periodic snapshots
func (s *Snapshotter) Start(ctx context.Context) error {
	return s.sched.Start(ctx)
}

// Stop ends the periodic snapshots and makes a best-effort final flush
func (s *Snapshotter) Stop(ctx context.Context) {
	s.sched.Stop()
	_ = s.Flush(ctx)
}
