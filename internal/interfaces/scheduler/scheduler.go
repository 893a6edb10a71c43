// Package scheduler runs periodic background syncs through a bounded
// worker pool, triggered by a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"moneta/internal/domain/banksync"
	"moneta/internal/domain/notification"
	"moneta/internal/domain/user"
)

// Config controls when syncs run and how many run at once.
type Config struct {
	CronSpec     string
	WorkerCount  int
	JobDelay     time.Duration
	QueueSize    int
	RunOnStartup bool
}

// Scheduler enqueues a sync job for every user on each cron tick.
type Scheduler struct {
	userRepo      user.Repository
	syncService   *banksync.Service
	notifications *notification.Service
	pool          *WorkerPool
	cron          *cron.Cron
	runOnStartup  bool
	logger        zerolog.Logger
}

func NewScheduler(
	userRepo user.Repository,
	syncService *banksync.Service,
	notifications *notification.Service,
	cfg Config,
	logger zerolog.Logger,
) (*Scheduler, error) {
	if cfg.WorkerCount < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", cfg.WorkerCount)
	}

	s := &Scheduler{
		userRepo:      userRepo,
		syncService:   syncService,
		notifications: notifications,
		pool:          NewWorkerPool(cfg.WorkerCount, cfg.JobDelay, cfg.QueueSize, logger),
		cron:          cron.New(),
		runOnStartup:  cfg.RunOnStartup,
		logger:        logger,
	}

	if _, err := s.cron.AddFunc(cfg.CronSpec, s.enqueueAllUsers); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", cfg.CronSpec, err)
	}

	return s, nil
}

// Start launches the workers and the cron trigger. With RunOnStartup a full
// sync round is queued immediately instead of waiting for the first tick.
func (s *Scheduler) Start() {
	s.pool.Start()
	s.cron.Start()

	if s.runOnStartup {
		go s.enqueueAllUsers()
	}
}

// SyncAllNow queues a sync round outside the cron schedule.
func (s *Scheduler) SyncAllNow() {
	s.enqueueAllUsers()
}

func (s *Scheduler) enqueueAllUsers() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users, err := s.userRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users for scheduled sync")
		return
	}

	jobs := make([]Job, 0, len(users))
	for _, u := range users {
		jobs = append(jobs, NewUserSyncJob(u.ID, s.syncService, s.notifications, s.logger))
	}

	s.logger.Info().Int("users", len(jobs)).Msg("queueing scheduled sync round")
	s.pool.SubmitBatch(jobs)
}

// Stop halts the cron trigger and drains the worker pool.
func (s *Scheduler) Stop(timeout time.Duration) {
	cronCtx := s.cron.Stop()
	<-cronCtx.Done()
	s.pool.ShutdownWithTimeout(timeout)
}
