// Package job schedules recurring pipeline runs.
package job

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/regwatch/regwatch/internal/domain"
	"github.com/regwatch/regwatch/internal/logger"
	"github.com/regwatch/regwatch/internal/runner"
)

// DefaultRunHours is the default daily schedule, clustered around the
// hours the regulators tend to publish.
var DefaultRunHours = []int{2, 8, 12, 16, 20}

// Runner triggers a single pipeline run. *runner.Orchestrator
// satisfies it.
type Runner interface {
	Run(ctx context.Context, force bool) (*domain.RunRecord, error)
}

// Scheduler fires pipeline runs on a fixed daily schedule.
type Scheduler struct {
	cron   *cron.Cron
	runner Runner
	logger logger.Interface
}

// NewScheduler creates a scheduler that runs at the given hours each
// day. Empty hours falls back to DefaultRunHours.
func NewScheduler(run Runner, hours []int, log logger.Interface) (*Scheduler, error) {
	if len(hours) == 0 {
		hours = DefaultRunHours
	}

	cronParser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(cronParser), cron.WithChain(cron.Recover(cron.DefaultLogger)))

	s := &Scheduler{
		cron:   c,
		runner: run,
		logger: log.WithComponent("scheduler"),
	}

	spec := fmt.Sprintf("0 %s * * *", joinHours(hours))
	if _, err := c.AddFunc(spec, s.fire); err != nil {
		return nil, fmt.Errorf("failed to schedule runs: %w", err)
	}

	s.logger.Info("run schedule registered", "spec", spec)
	return s, nil
}

func (s *Scheduler) fire() {
	s.logger.Info("scheduled run starting")
	if _, err := s.runner.Run(context.Background(), false); err != nil {
		if errors.Is(err, runner.ErrRunInProgress) {
			// A long manual run simply absorbs the scheduled slot.
			s.logger.Info("scheduled run skipped, another run in progress")
			return
		}
		s.logger.Error("scheduled run failed", "error", err)
	}
}

// Start begins firing scheduled runs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the schedule and waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func joinHours(hours []int) string {
	parts := make([]string, len(hours))
	for i, h := range hours {
		parts[i] = fmt.Sprintf("%d", h)
	}
	return strings.Join(parts, ",")
}
