package projections

import (
	"context"
	"fmt"
	"log"

	"tourbook-backend/internal/model"
)

// UpdateRating recomputes the tour rating after a review event. It repairs an
// aggregate left stale when the request path failed between insert and
// recompute.
func UpdateRating(ctx context.Context, ratings RatingRecomputer, evt model.Event) error {
	if ratings == nil || evt.TourID == "" {
		return nil
	}
	summary, err := ratings.RecomputeRating(ctx, evt.TourID)
	if err != nil {
		return fmt.Errorf("recompute tour %s after %s: %w", evt.TourID, evt.ID, err)
	}
	log.Printf("Rating Projector: tour %s rating=%.1f reviews=%d", evt.TourID, summary.Rating, summary.ReviewCount)
	return nil
}
