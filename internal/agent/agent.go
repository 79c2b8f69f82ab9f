// Package agent periodically scans, builds a reading and uploads it.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RMahshie/apscanner/internal/observability"
	"github.com/RMahshie/apscanner/internal/scanner"
	"github.com/RMahshie/apscanner/internal/scheduler"
	"github.com/RMahshie/apscanner/pkg/models"
)

// Builder turns observations into a reading
type Builder interface {
	Build(locale string, observations []models.Observation) (*models.Reading, error)
}

// Uploader sends a reading to the server
type Uploader interface {
	Upload(ctx context.Context, r *models.Reading) (models.UploadReadingResponseBody, error)
}

// StageError records which step of a cycle failed
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Agent runs scan cycles
type Agent struct {
	scanner  scanner.Scanner
	builder  Builder
	uploader Uploader
	locale   string

	// the builder's random source is not safe for concurrent use
	mu    sync.Mutex
	sched *scheduler.Scheduler
}

// New creates an agent. uploader may be nil when readings are kept locally.
func New(s scanner.Scanner, b Builder, u Uploader, locale string) *Agent {
	return &Agent{
		scanner:  s,
		builder:  b,
		uploader: u,
		locale:   locale,
	}
}

// Measure scans once and builds a reading from the result
func (a *Agent) Measure(ctx context.Context) (*models.Reading, error) {
	observations, err := a.scanner.Scan(ctx)
	if err != nil {
		return nil, &StageError{Stage: "scan", Err: err}
	}

	a.mu.Lock()
	reading, err := a.builder.Build(a.locale, observations)
	a.mu.Unlock()
	if err != nil {
		return nil, &StageError{Stage: "build", Err: err}
	}
	return reading, nil
}

// RunOnce measures and uploads one reading
func (a *Agent) RunOnce(ctx context.Context) (models.UploadReadingResponseBody, error) {
	var out models.UploadReadingResponseBody

	reading, err := a.Measure(ctx)
	if err != nil {
		observability.IncScanCycle(stageOf(err))
		return out, err
	}

	if a.uploader == nil {
		observability.IncScanCycle("ok")
		return out, nil
	}

	out, err = a.uploader.Upload(ctx, reading)
	if err != nil {
		observability.IncScanCycle("upload_error")
		return out, &StageError{Stage: "upload", Err: err}
	}

	observability.IncScanCycle("ok")
	log.Info().
		Str("reading_id", out.ID).
		Str("url", out.URL).
		Int("networks_24", reading.Wifi24GHz.Len()).
		Int("networks_5", reading.Wifi5GHz.Len()).
		Msg("Reading uploaded")
	return out, nil
}

// Start runs a cycle immediately and then every interval. A failed cycle is
// logged and the next one runs on schedule.
func (a *Agent) Start(ctx context.Context, interval time.Duration) error {
	a.sched = scheduler.New("scan", interval, func(ctx context.Context) {
		if _, err := a.RunOnce(ctx); err != nil {
			log.Error().Err(err).Str("locale", a.locale).Msg("Scan cycle failed")
		}
	}, scheduler.RunImmediately())
	return a.sched.Start(ctx)
}

// Stop halts the periodic cycles
func (a *Agent) Stop() {
	if a.sched != nil {
		a.sched.Stop()
	}
}

func stageOf(err error) string {
	if se, ok := err.(*StageError); ok {
		return se.Stage + "_error"
	}
	return "error"
}
