// Package sweep runs the periodic cleanup of expired confirmations and
// terminal executions past their grace period. Both stores also purge lazily
// at read time, so the sweeper only bounds memory, never correctness.
package sweep

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule fires the sweep once a minute.
const DefaultSchedule = "@every 1m"

// Target is anything that can purge expired entries and report how many it removed.
type Target interface {
	Sweep() int
}

// Sweeper drives registered targets on a cron schedule.
type Sweeper struct {
	cron    *cron.Cron
	logger  *slog.Logger
	targets map[string]Target
}

func NewSweeper(logger *slog.Logger) *Sweeper {
	return &Sweeper{
		cron:    cron.New(),
		logger:  logger.With("module", "sweeper"),
		targets: make(map[string]Target),
	}
}

// Register adds a named target. Must be called before Start.
func (s *Sweeper) Register(name string, target Target) {
	s.targets[name] = target
}

// Start validates the schedule, registers the sweep job and starts the cron
// runner in its own goroutine.
func (s *Sweeper) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	_, err := s.cron.AddFunc(schedule, s.run)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	s.cron.Start()
	s.logger.Info("Sweeper started", "schedule", schedule, "targets", len(s.targets))

	return nil
}

// Stop halts the cron runner. A sweep already in flight finishes.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.logger.Info("Sweeper stopped")
}

func (s *Sweeper) run() {
	for name, target := range s.targets {
		purged := target.Sweep()
		if purged > 0 {
			s.logger.Debug("Swept expired entries", "target", name, "purged", purged)
		}
	}
}
