// Package review stores tour reviews and keeps each tour's rating aggregate in
// step with its review set.
package review

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tourbook-backend/internal/apperr"
	"tourbook-backend/internal/docstore"
	"tourbook-backend/internal/kstream"
	"tourbook-backend/internal/model"
)

const fieldHelpfulCount = "helpfulCount"

// RatingRecomputer rewrites a tour's derived rating fields.
type RatingRecomputer interface {
	RecomputeRating(ctx context.Context, tourID string) (model.RatingSummary, error)
}

type Service struct {
	store   docstore.Gateway
	ratings RatingRecomputer
	events  kstream.Publisher
}

func NewService(store docstore.Gateway, ratings RatingRecomputer, events kstream.Publisher) *Service {
	if events == nil {
		events = kstream.NopPublisher{}
	}
	return &Service{store: store, ratings: ratings, events: events}
}

// CreateReview stores a review and recomputes the tour rating. A customer may
// review a tour once; the check runs before the insert, so two simultaneous
// first reviews can both land.
//
// The insert and the recompute are separate writes. When the recompute fails
// the review stays stored and the error is returned; the projector and the
// reconcile sweep repair the aggregate later.
func (s *Service) CreateReview(ctx context.Context, in model.ReviewInput) (string, error) {
	if err := model.Validate(in); err != nil {
		return "", err
	}

	existing, err := s.store.Query(ctx, model.CollectionReviews, docstore.Query{
		Filters: []docstore.Filter{
			docstore.Where("tourId", docstore.OpEq, in.TourID),
			docstore.Where("customerId", docstore.OpEq, in.CustomerID),
		},
		Limit: 1,
	})
	if err != nil {
		return "", apperr.Store("query", model.CollectionReviews, err)
	}
	if len(existing) > 0 {
		return "", fmt.Errorf("customer %s, tour %s: %w", in.CustomerID, in.TourID, apperr.ErrDuplicateReview)
	}

	doc, err := docstore.Encode(in)
	if err != nil {
		return "", err
	}
	doc[fieldHelpfulCount] = 0

	id, err := s.store.Create(ctx, model.CollectionReviews, doc, "")
	if err != nil {
		return "", apperr.Store("create", model.CollectionReviews, err)
	}

	evt := kstream.NewEvent(model.EventReviewCreated, in.TourID, in.VendorID, in.CustomerID, id)
	if err := s.afterMutation(ctx, evt); err != nil {
		return id, fmt.Errorf("review %s stored: %w", id, err)
	}
	return id, nil
}

func (s *Service) GetReview(ctx context.Context, id string) (*model.Review, error) {
	doc, err := s.store.Read(ctx, model.CollectionReviews, id)
	if err != nil {
		return nil, apperr.Store("read", model.CollectionReviews, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("review %s: %w", id, apperr.ErrNotFound)
	}
	var r model.Review
	if err := docstore.Decode(doc, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeleteReview removes a review of tourID and recomputes the rating. Deleting
// an absent review still recomputes, so a retried delete also repairs the
// aggregate.
func (s *Service) DeleteReview(ctx context.Context, id, tourID string) error {
	if id == "" {
		return apperr.Invalid("id", "is required")
	}
	if tourID == "" {
		return apperr.Invalid("tourId", "is required")
	}

	r, err := s.GetReview(ctx, id)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	if r != nil && r.TourID != tourID {
		return apperr.Invalid("tourId", fmt.Sprintf("review %s belongs to another tour", id))
	}

	if err := s.store.Delete(ctx, model.CollectionReviews, id); err != nil {
		return apperr.Store("delete", model.CollectionReviews, err)
	}

	evt := kstream.NewEvent(model.EventReviewDeleted, tourID, "", "", id)
	if r != nil {
		evt.VendorID, evt.CustomerID = r.VendorID, r.CustomerID
	}
	return s.afterMutation(ctx, evt)
}

// MarkHelpful adds one to the review's helpful counter with the store's atomic
// increment and returns the new count.
func (s *Service) MarkHelpful(ctx context.Context, id string) (int64, error) {
	if id == "" {
		return 0, apperr.Invalid("id", "is required")
	}
	n, err := s.store.Increment(ctx, model.CollectionReviews, id, fieldHelpfulCount, 1)
	if err != nil {
		return 0, apperr.Store("increment", model.CollectionReviews, err)
	}
	return n, nil
}

// ListTourReviews returns a tour's reviews, newest first.
func (s *Service) ListTourReviews(ctx context.Context, tourID string) ([]model.Review, error) {
	if tourID == "" {
		return nil, apperr.Invalid("tourId", "is required")
	}
	docs, err := s.store.Query(ctx, model.CollectionReviews, docstore.Query{
		Filters:    []docstore.Filter{docstore.Where("tourId", docstore.OpEq, tourID)},
		OrderBy:    docstore.FieldCreatedAt,
		Descending: true,
	})
	if err != nil {
		return nil, apperr.Store("query", model.CollectionReviews, err)
	}
	return docstore.DecodeAll[model.Review](docs)
}

// afterMutation is the single recompute hook for review writes. The event is
// published even when the recompute fails so the projector can retry it.
func (s *Service) afterMutation(ctx context.Context, evt model.Event) error {
	_, rerr := s.ratings.RecomputeRating(ctx, evt.TourID)
	if rerr != nil {
		log.Printf("Review: rating recompute for tour %s failed: %v", evt.TourID, rerr)
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		log.Printf("Review: failed to publish %s for %s: %v", evt.Type, evt.EntityID, err)
	}
	if rerr != nil {
		return fmt.Errorf("recompute rating: %w", rerr)
	}
	return nil
}
