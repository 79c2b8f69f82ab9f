package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

// Job is the unit of periodic work. ctx is cancelled when the scheduler stops.
type Job func(ctx context.Context)

// Scheduler runs a single job on a fixed interval until stopped
type Scheduler struct {
	scheduler *gocron.Scheduler
	name      string
	interval  time.Duration
	immediate bool
	job       Job

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// Option configures a Scheduler
type Option func(*Scheduler)

// RunImmediately makes the first run happen on Start instead of one interval later
func RunImmediately() Option {
	return func(s *Scheduler) { s.immediate = true }
}

// New creates a new Scheduler.
func New(name string, interval time.Duration, job Job, opts ...Option) *Scheduler {
	s := &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		name:      name,
		interval:  interval,
		job:       job,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start schedules the job and starts the underlying scheduler. Runs never
// overlap: a run still in progress when the next tick fires skips that tick.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler: already started")
	}

	runCtx, cancel := context.WithCancel(ctx)

	sched := s.scheduler.Every(s.interval).SingletonMode()
	if !s.immediate {
		sched = sched.WaitForSchedule()
	}
	_, err := sched.Do(func() {
		if runCtx.Err() != nil {
			return
		}
		log.Debug().Str("job", s.name).Msg("scheduler: running job")
		s.job(runCtx)
	})
	if err != nil {
		cancel()
		return err
	}

	s.cancel = cancel
	s.running = true
	s.scheduler.StartAsync()
	log.Info().Str("job", s.name).Dur("interval", s.interval).Msg("scheduler: started")
	return nil
}

// Stop cancels the job context and stops future runs
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	s.scheduler.Stop()
	s.running = false
	log.Info().Str("job", s.name).Msg("scheduler: stopped")
}
