// Package schedule runs periodic re-ingestion via gocron, adapted from the
// teacher's internal/taskManager scheduler wiring.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/fmcsa-watch/chameleon-backend/internal/runner"
	"github.com/fmcsa-watch/chameleon-backend/pkg/log"
)

// Scheduler drives periodic calls into a runner.Runner.
type Scheduler struct {
	cron gocron.Scheduler
	run  *runner.Runner
}

// New builds a gocron scheduler bound to run.
func New(run *runner.Runner) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("schedule: create scheduler: %w", err)
	}
	return &Scheduler{cron: s, run: run}, nil
}

// RegisterPeriodicIngest schedules a recurring ingestion at every interval,
// one hop of expansion, crashes and inspections included.
func (s *Scheduler) RegisterPeriodicIngest(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("schedule: interval must be positive, got %s", interval)
	}
	_, err := s.cron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			runID, err := s.run.Ingest(ctx, runner.IngestOptions{ExpandHops: 1})
			if err != nil {
				log.Errorf("schedule: periodic ingest %s failed: %v", runID, err)
				return
			}
			log.Infof("schedule: periodic ingest %s finished", runID)
		}),
	)
	if err != nil {
		return fmt.Errorf("schedule: register periodic ingest: %w", err)
	}
	return nil
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Shutdown stops the scheduler and waits for in-flight jobs to finish.
func (s *Scheduler) Shutdown() error {
	return s.cron.Shutdown()
}
