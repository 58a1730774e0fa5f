package reconcile

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs a Sweeper on a cron spec such as "@every 15m".
type Scheduler struct {
	sweeper *Sweeper
	cron    *cron.Cron

	mu      sync.Mutex
	running bool
}

func NewScheduler(sweeper *Sweeper) *Scheduler {
	return &Scheduler{sweeper: sweeper, cron: cron.New()}
}

// Start registers the sweep and starts the cron loop. A tick that fires while
// the previous sweep is still running is skipped.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	if _, err := s.cron.AddFunc(spec, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("reconcile schedule %q: %w", spec, err)
	}
	s.cron.Start()
	log.Printf("Reconcile: scheduler started (%s)", spec)
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runOnce(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Println("Reconcile: previous sweep still running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	stats, err := s.sweeper.Run(ctx)
	if err != nil {
		log.Printf("Reconcile: sweep failed: %v", err)
		return
	}
	log.Printf("Reconcile: swept %d tours, %d drifted, %d failed in %dms",
		stats.Tours, stats.Drifted, stats.Failed, stats.DurationMillis)
}
