package cron

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeLock struct {
	acquired bool
	releases int
}

func (f *fakeLock) Acquire(ctx context.Context) (bool, error) { return f.acquired, nil }
func (f *fakeLock) Release(ctx context.Context) error {
	f.releases++
	return nil
}

type recordedJob struct {
	name string
	err  error
	runs int
}

func (j *recordedJob) Name() string { return j.name }
func (j *recordedJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

func TestRunCycleSkipsWithoutLock(t *testing.T) {
	job := &recordedJob{name: "a"}
	svc, err := NewService(ServiceParams{
		Logger:   cronTestLogger(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{acquired: false},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := svc.runCycle(context.Background()); err != nil {
		t.Fatalf("runCycle: %v", err)
	}
	if job.runs != 0 {
		t.Fatal("jobs must not run without the lock")
	}
}

func TestRunCycleRunsAllJobsAndAggregatesErrors(t *testing.T) {
	broken := &recordedJob{name: "broken", err: errors.New("boom")}
	healthy := &recordedJob{name: "healthy"}
	lock := &fakeLock{acquired: true}
	svc, err := NewService(ServiceParams{
		Logger:   cronTestLogger(),
		Registry: NewRegistry(broken, healthy),
		Lock:     lock,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	cycleErr := svc.runCycle(context.Background())
	if broken.runs != 1 || healthy.runs != 1 {
		t.Fatalf("all jobs must run: broken=%d healthy=%d", broken.runs, healthy.runs)
	}
	if cycleErr == nil || !strings.Contains(cycleErr.Error(), "broken: boom") {
		t.Fatalf("expected aggregated job error, got %v", cycleErr)
	}
	if lock.releases != 1 {
		t.Fatalf("lock released %d times, want 1", lock.releases)
	}
}
