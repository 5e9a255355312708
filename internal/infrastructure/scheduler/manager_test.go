package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasklane/tasklane/internal/shared/logger"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Sweep() int {
	s.calls.Add(1)
	return 1
}

type countingReloader struct {
	calls atomic.Int32
	err   error
}

func (r *countingReloader) LoadPolicy() error {
	r.calls.Add(1)
	return r.err
}

func newTestManager(t *testing.T) *SchedulerManager {
	t.Helper()
	m, err := NewSchedulerManager(logger.NewNopLogger())
	require.NoError(t, err)
	return m
}

func TestSchedulerManager_RunsCacheSweep(t *testing.T) {
	m := newTestManager(t)
	sweeper := &countingSweeper{}

	require.NoError(t, m.RegisterCacheSweep(sweeper, 20*time.Millisecond))
	m.Start()
	defer func() { _ = m.Stop() }()

	assert.Eventually(t, func() bool {
		return sweeper.calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerManager_ReloadErrorKeepsJobScheduled(t *testing.T) {
	m := newTestManager(t)
	reloader := &countingReloader{err: errors.New("db down")}

	require.NoError(t, m.RegisterPolicyReload(reloader, 20*time.Millisecond))
	m.Start()
	defer func() { _ = m.Stop() }()

	assert.Eventually(t, func() bool {
		return reloader.calls.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerManager_RegisterTaskPassesDeadline(t *testing.T) {
	m := newTestManager(t)
	var sawDeadline atomic.Bool

	require.NoError(t, m.RegisterTask("heartbeat", 20*time.Millisecond, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		sawDeadline.Store(ok)
		return nil
	}))
	m.Start()
	defer func() { _ = m.Stop() }()

	assert.Eventually(t, sawDeadline.Load, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerManager_JobNames(t *testing.T) {
	m := newTestManager(t)
	defer func() { _ = m.Stop() }()

	require.NoError(t, m.RegisterCacheSweep(&countingSweeper{}, time.Minute))
	require.NoError(t, m.RegisterPolicyReload(&countingReloader{}, time.Minute))

	assert.ElementsMatch(t, []string{"policy-cache-sweep", "rbac-policy-reload"}, m.JobNames())
}

func TestSchedulerManager_StartStop(t *testing.T) {
	m := newTestManager(t)
	assert.False(t, m.IsStarted())

	m.Start()
	m.Start()
	assert.True(t, m.IsStarted())

	require.NoError(t, m.Stop())
	assert.False(t, m.IsStarted())
}

func TestSchedulerManager_RejectsInvalidInterval(t *testing.T) {
	m := newTestManager(t)
	defer func() { _ = m.Stop() }()

	assert.Error(t, m.RegisterCacheSweep(&countingSweeper{}, 0))
}
