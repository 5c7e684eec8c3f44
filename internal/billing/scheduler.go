package billing

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSweepSchedule runs the expiry sweep at the top of every hour.
const DefaultSweepSchedule = "0 0 * * * *"

// Scheduler runs billing jobs on cron schedules.
type Scheduler struct {
	cron    *cron.Cron
	logger  zerolog.Logger
	baseCtx context.Context
}

// NewScheduler creates a scheduler. Schedules use six fields, seconds first.
func NewScheduler(baseCtx context.Context, logger zerolog.Logger) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		logger:  logger.With().Str("component", "scheduler").Logger(),
		baseCtx: baseCtx,
	}
}

// Add registers a job under spec.
func (s *Scheduler) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return s.cron.AddFunc(spec, func() {
		job(s.baseCtx)
	})
}

// AddSweep registers the subscription expiry sweep.
func (s *Scheduler) AddSweep(spec string, svc *Service) (cron.EntryID, error) {
	if spec == "" {
		spec = DefaultSweepSchedule
	}
	return s.Add(spec, func(ctx context.Context) {
		if _, err := svc.SweepExpired(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Subscription sweep failed")
		}
	})
}

// Start starts running jobs in the background.
func (s *Scheduler) Start() {
	s.logger.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler stopped")
}
