// Package scheduler runs the periodic background work: the main
// trading poll loop plus cron-scheduled maintenance jobs such as
// session renewal and the nightly data refresh.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled maintenance job
type Job interface {
	Run() error
	Name() string
}

// FuncJob adapts a plain function into a Job
type FuncJob struct {
	JobName string
	Fn      func() error
}

func (j FuncJob) Run() error   { return j.Fn() }
func (j FuncJob) Name() string { return j.JobName }

// Scheduler manages cron-scheduled background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a job with a cron schedule.
// Schedule examples:
//   - "@every 90m"         - Every 90 minutes
//   - "0 2 * * *"          - 2 AM daily
//   - "30 9 * * MON-FRI"   - 9:30 AM weekdays
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", job.Name()).Msg("Running job")

		if err := job.Run(); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		} else {
			s.log.Debug().Str("job", job.Name()).Msg("Job completed")
		}
	})

	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately, outside its schedule
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run()
}

// Poll calls fn every interval until ctx is cancelled. The first call
// happens immediately. A failing call is logged and the loop keeps
// going.
func (s *Scheduler) Poll(ctx context.Context, interval time.Duration, fn func(context.Context) error) {
	s.log.Info().Dur("interval", interval).Msg("Poll loop started")

	for {
		if err := fn(ctx); err != nil {
			s.log.Error().Err(err).Msg("Poll iteration failed")
		}

		select {
		case <-ctx.Done():
			s.log.Info().Msg("Poll loop stopped")
			return
		case <-time.After(interval):
		}
	}
}
