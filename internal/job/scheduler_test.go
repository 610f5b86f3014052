package job

import (
	"context"
	"sync"
	"testing"

	"github.com/regwatch/regwatch/internal/domain"
	"github.com/regwatch/regwatch/internal/logger"
	"github.com/regwatch/regwatch/internal/runner"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeRunner) Run(_ context.Context, force bool) (*domain.RunRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if force {
		return nil, nil
	}
	if f.err != nil {
		return nil, f.err
	}
	return &domain.RunRecord{}, nil
}

func TestNewSchedulerDefaultHours(t *testing.T) {
	s, err := NewScheduler(&fakeRunner{}, nil, logger.NewNoOp())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	if len(s.cron.Entries()) != 1 {
		t.Errorf("expected 1 cron entry, got %d", len(s.cron.Entries()))
	}
}

func TestNewSchedulerCustomHours(t *testing.T) {
	if _, err := NewScheduler(&fakeRunner{}, []int{6, 18}, logger.NewNoOp()); err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
}

func TestFireToleratesBusyRunner(t *testing.T) {
	fr := &fakeRunner{err: runner.ErrRunInProgress}
	s, err := NewScheduler(fr, []int{3}, logger.NewNoOp())
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	s.fire()

	fr.mu.Lock()
	defer fr.mu.Unlock()
	if fr.calls != 1 {
		t.Errorf("expected 1 run attempt, got %d", fr.calls)
	}
}

func TestJoinHours(t *testing.T) {
	got := joinHours([]int{2, 8, 12, 16, 20})
	if got != "2,8,12,16,20" {
		t.Errorf("joinHours = %q, want %q", got, "2,8,12,16,20")
	}
}
