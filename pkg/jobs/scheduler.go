// Package jobs runs periodic housekeeping.
package jobs

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"
)

// Sweeper drops expired state and reports how much it removed.
type Sweeper interface {
	Prune() int
}

// SweeperFunc adapts a function to Sweeper.
type SweeperFunc func() int

func (f SweeperFunc) Prune() int { return f() }

// Scheduler runs sweepers on a cron schedule.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler returns a stopped scheduler in UTC.
func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New(cron.WithLocation(time.UTC))}
}

// Register runs sw on schedule (standard cron or @every).
func (s *Scheduler) Register(name, schedule string, sw Sweeper) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if n := sw.Prune(); n > 0 {
			log.Debug("sweep", "job", name, "removed", n)
		}
	})
	if err != nil {
		return fmt.Errorf("register %s job: %w", name, err)
	}
	return nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
