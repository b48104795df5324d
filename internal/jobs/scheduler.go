package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"storefront/internal/tasks"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, task tasks.Task) error
}

type Scheduler struct {
	cron               *cron.Cron
	queue              Enqueuer
	sessionCleanupSpec string
	log                zerolog.Logger
}

func NewScheduler(queue Enqueuer, sessionCleanupSpec string, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:               c,
		queue:              queue,
		sessionCleanupSpec: sessionCleanupSpec,
		log:                log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.sessionCleanupSpec, s.enqueueSessionCleanup); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info().Str("session_cleanup", s.sessionCleanupSpec).Msg("scheduler started")
	return nil
}

// Stop halts the scheduler and waits up to five seconds for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) enqueueSessionCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.queue.Enqueue(ctx, tasks.Task{Type: tasks.TypeSessionCleanup}); err != nil {
		s.log.Error().Err(err).Msg("enqueue session cleanup failed")
	}
}
