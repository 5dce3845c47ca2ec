package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarium/librarium-backend/pkg/logger"
)

type recordingJob struct {
	name string
	err  error
	runs int
}

func (j *recordingJob) Name() string { return j.name }

func (j *recordingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

type stubLock struct {
	contended bool
	releases  int
}

func (l *stubLock) Acquire(context.Context) (bool, error) { return !l.contended, nil }
func (l *stubLock) Release(context.Context) error {
	l.releases++
	return nil
}

func newTestService(t *testing.T, registry *Registry, lock Lock) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test"}),
		Registry: registry,
		Lock:     lock,
	})
	require.NoError(t, err)
	return svc
}

func TestRegistryDropsNilAndCopiesOnRead(t *testing.T) {
	a := &recordingJob{name: "expiry"}
	b := &recordingJob{name: "warnings"}
	registry := NewRegistry(nil, a)
	registry.Register(b)
	registry.Register(nil)

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "expiry", jobs[0].Name())
	assert.Equal(t, "warnings", jobs[1].Name())

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0], "Jobs must hand out a copy")
}

func TestRunCycleContinuesPastFailingJob(t *testing.T) {
	broken := &recordingJob{name: "broken", err: errors.New("boom")}
	healthy := &recordingJob{name: "healthy"}
	lock := &stubLock{}
	svc := newTestService(t, NewRegistry(broken, healthy), lock)

	require.NoError(t, svc.runCycle(context.Background()))

	assert.Equal(t, 1, broken.runs)
	assert.Equal(t, 1, healthy.runs, "jobs after a failure must still run")
	assert.Equal(t, 1, lock.releases, "lock must be released after the cycle")
}

func TestRunCycleYieldsWhenLockContended(t *testing.T) {
	job := &recordingJob{name: "sweep"}
	svc := newTestService(t, NewRegistry(job), &stubLock{contended: true})

	require.NoError(t, svc.runCycle(context.Background()))
	assert.Zero(t, job.runs)
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &stubLock{}})
	assert.Error(t, err)

	_, err = NewService(ServiceParams{Logger: logger.New(logger.Options{ServiceName: "x"})})
	assert.Error(t, err)
}
