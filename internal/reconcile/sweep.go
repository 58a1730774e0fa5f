// Package reconcile periodically recomputes every tour's rating so an
// aggregate left stale by a failed write converges without a new review.
package reconcile

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"tourbook-backend/internal/model"
)

// TourLister lists the tours to sweep, unlisted ones included.
type TourLister interface {
	AllTours(ctx context.Context) ([]model.Tour, error)
}

// RatingRecomputer rewrites a tour's derived rating fields.
type RatingRecomputer interface {
	RecomputeRating(ctx context.Context, tourID string) (model.RatingSummary, error)
}

// SweepStats is what one Run did.
type SweepStats struct {
	Tours   int64 `json:"tours"`
	Drifted int64 `json:"drifted"`
	Failed  int64 `json:"failed"`
	// DurationMillis is the wall time of the whole sweep.
	DurationMillis int64 `json:"duration_ms"`
}

type Sweeper struct {
	tours   TourLister
	ratings RatingRecomputer
}

func NewSweeper(tours TourLister, ratings RatingRecomputer) *Sweeper {
	return &Sweeper{tours: tours, ratings: ratings}
}

// Run recomputes every tour, listed or not, with a bounded pool of workers. A
// tour whose stored aggregate differed from the recomputed one counts as
// drifted.
func (s *Sweeper) Run(ctx context.Context) (*SweepStats, error) {
	start := time.Now()

	tours, err := s.tours.AllTours(ctx)
	if err != nil {
		return nil, err
	}
	stats := &SweepStats{Tours: int64(len(tours))}
	if len(tours) == 0 {
		return stats, nil
	}

	workerCount := calcWorkerCount(len(tours))
	jobs := make(chan model.Tour)
	var wg sync.WaitGroup
	var drifted, failed atomic.Int64

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range jobs {
				summary, err := s.ratings.RecomputeRating(ctx, t.ID)
				if err != nil {
					log.Printf("Reconcile: tour %s: %v", t.ID, err)
					failed.Add(1)
					continue
				}
				if summary.Rating != t.Rating || summary.ReviewCount != t.ReviewCount {
					drifted.Add(1)
				}
			}
		}()
	}

	for _, t := range tours {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		case jobs <- t:
		}
	}

	close(jobs)
	wg.Wait()

	stats.Drifted = drifted.Load()
	stats.Failed = failed.Load()
	stats.DurationMillis = time.Since(start).Milliseconds()
	return stats, nil
}

func calcWorkerCount(n int) int {
	if n <= 0 {
		return 1
	}
	if n > 16 {
		return 16
	}
	return n
}
