// Package scheduler runs periodic maintenance jobs using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/tasklane/tasklane/internal/shared/biztime"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

// Sweeper drops expired entries and returns how many it removed.
type Sweeper interface {
	Sweep() int
}

// PolicyReloader re-reads authorization policies from storage.
type PolicyReloader interface {
	LoadPolicy() error
}

// SchedulerManager owns the process's single gocron scheduler.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterCacheSweep evicts expired policies from an in-process cache.
func (m *SchedulerManager) RegisterCacheSweep(sweeper Sweeper, interval time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			startTime := biztime.NowUTC()
			if n := sweeper.Sweep(); n > 0 {
				m.logger.Debugw("swept expired entitlement policies",
					"count", n,
					"duration", time.Since(startTime),
				)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("entitlement", "cache"),
		gocron.WithName("policy-cache-sweep"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered policy cache sweep", "interval", interval.String())
	return nil
}

// RegisterPolicyReload picks up admin role grants written by other processes.
func (m *SchedulerManager) RegisterPolicyReload(reloader PolicyReloader, interval time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if err := reloader.LoadPolicy(); err != nil {
				m.logger.Errorw("failed to reload admin policies", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("rbac"),
		gocron.WithName("rbac-policy-reload"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered admin policy reload", "interval", interval.String())
	return nil
}

// RegisterTask runs fn every interval with a timeout of one interval.
func (m *SchedulerManager) RegisterTask(name string, interval time.Duration, fn func(ctx context.Context) error) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			if err := fn(ctx); err != nil {
				m.logger.Errorw("scheduled task failed", "task", name, "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName(name),
	)
	return err
}

// JobNames lists registered jobs.
func (m *SchedulerManager) JobNames() []string {
	jobs := m.scheduler.Jobs()
	names := make([]string, 0, len(jobs))
	for _, job := range jobs {
		names = append(names, job.Name())
	}
	return names
}

func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop waits for running jobs to complete. A scheduler that never started
// is shut down as well so its goroutines exit.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}
