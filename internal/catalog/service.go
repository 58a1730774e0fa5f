// Package catalog owns tour listings and their derived rating fields.
package catalog

import (
	"context"
	"fmt"
	"math"
	"strings"

	"tourbook-backend/internal/apperr"
	"tourbook-backend/internal/docstore"
	"tourbook-backend/internal/model"
)

const (
	fieldRating        = "rating"
	fieldReviewCount   = "reviewCount"
	fieldTotalBookings = "totalBookings"
	fieldIsActive      = "isActive"
)

type Service struct {
	store docstore.Gateway
}

func NewService(store docstore.Gateway) *Service {
	return &Service{store: store}
}

// TourFilter narrows a public listing. Zero fields are ignored.
type TourFilter struct {
	Category    string
	Destination string
	Featured    *bool
	VendorID    string
	Limit       int
}

func (s *Service) CreateTour(ctx context.Context, in model.TourInput) (string, error) {
	if err := model.Validate(in); err != nil {
		return "", err
	}
	doc, err := docstore.Encode(in)
	if err != nil {
		return "", err
	}
	for _, k := range []string{"tags", "includes", "excludes", "images"} {
		if doc[k] == nil {
			doc[k] = []any{}
		}
	}
	doc[fieldRating] = 0
	doc[fieldReviewCount] = 0
	doc[fieldTotalBookings] = 0
	doc[fieldIsActive] = true

	id, err := s.store.Create(ctx, model.CollectionTours, doc, "")
	if err != nil {
		return "", apperr.Store("create", model.CollectionTours, err)
	}
	return id, nil
}

func (s *Service) GetTour(ctx context.Context, id string) (*model.Tour, error) {
	if id == "" {
		return nil, apperr.Invalid("id", "is required")
	}
	doc, err := s.store.Read(ctx, model.CollectionTours, id)
	if err != nil {
		return nil, apperr.Store("read", model.CollectionTours, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("tour %s: %w", id, apperr.ErrNotFound)
	}
	var t model.Tour
	if err := docstore.Decode(doc, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// QueryTours lists active tours, newest first.
func (s *Service) QueryTours(ctx context.Context, f TourFilter) ([]model.Tour, error) {
	filters := []docstore.Filter{docstore.Where(fieldIsActive, docstore.OpEq, true)}
	if f.Category != "" {
		filters = append(filters, docstore.Where("category", docstore.OpEq, f.Category))
	}
	if f.Destination != "" {
		filters = append(filters, docstore.Where("destination", docstore.OpEq, f.Destination))
	}
	if f.Featured != nil {
		filters = append(filters, docstore.Where("isFeatured", docstore.OpEq, *f.Featured))
	}
	if f.VendorID != "" {
		filters = append(filters, docstore.Where("vendorId", docstore.OpEq, f.VendorID))
	}

	docs, err := s.store.Query(ctx, model.CollectionTours, docstore.Query{
		Filters:    filters,
		OrderBy:    docstore.FieldCreatedAt,
		Descending: true,
		Limit:      f.Limit,
	})
	if err != nil {
		return nil, apperr.Store("query", model.CollectionTours, err)
	}
	return docstore.DecodeAll[model.Tour](docs)
}

// AllTours lists every tour, listed or not, oldest first. Maintenance jobs use
// it; public listings go through QueryTours.
func (s *Service) AllTours(ctx context.Context) ([]model.Tour, error) {
	docs, err := s.store.Query(ctx, model.CollectionTours, docstore.Query{OrderBy: docstore.FieldCreatedAt})
	if err != nil {
		return nil, apperr.Store("query", model.CollectionTours, err)
	}
	return docstore.DecodeAll[model.Tour](docs)
}

// SearchTours matches text as a case-insensitive substring of the title,
// destination or description of the tours QueryTours would list.
func (s *Service) SearchTours(ctx context.Context, text string, f TourFilter) ([]model.Tour, error) {
	limit := f.Limit
	f.Limit = 0
	tours, err := s.QueryTours(ctx, f)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(text))
	out := make([]model.Tour, 0, len(tours))
	for _, t := range tours {
		if needle == "" ||
			strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Destination), needle) ||
			strings.Contains(strings.ToLower(t.Description), needle) {
			out = append(out, t)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// UpdateTour edits listing fields. Derived fields are not reachable through
// TourPatch.
func (s *Service) UpdateTour(ctx context.Context, id string, patch model.TourPatch) error {
	if err := model.Validate(patch); err != nil {
		return err
	}
	partial, err := docstore.Encode(patch)
	if err != nil {
		return err
	}
	if len(partial) == 0 {
		return apperr.Invalid("", "no fields to update")
	}
	if err := s.store.Update(ctx, model.CollectionTours, id, partial); err != nil {
		return apperr.Store("update", model.CollectionTours, err)
	}
	return nil
}

// SetActive hides or shows a tour in public listings.
func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	err := s.store.Update(ctx, model.CollectionTours, id, docstore.Document{fieldIsActive: active})
	if err != nil {
		return apperr.Store("update", model.CollectionTours, err)
	}
	return nil
}

// RecordBooking bumps totalBookings atomically.
func (s *Service) RecordBooking(ctx context.Context, tourID string) (int64, error) {
	n, err := s.store.Increment(ctx, model.CollectionTours, tourID, fieldTotalBookings, 1)
	if err != nil {
		return 0, apperr.Store("increment", model.CollectionTours, err)
	}
	return n, nil
}

// RecomputeRating rewrites rating and reviewCount from the tour's current
// review set. An empty set resets both to zero. Concurrent recomputes are
// last-writer-wins; the next mutation or sweep converges the aggregate.
func (s *Service) RecomputeRating(ctx context.Context, tourID string) (model.RatingSummary, error) {
	summary := model.RatingSummary{TourID: tourID}
	if tourID == "" {
		return summary, apperr.Invalid("tourId", "is required")
	}

	docs, err := s.store.Query(ctx, model.CollectionReviews, docstore.Query{
		Filters: []docstore.Filter{docstore.Where("tourId", docstore.OpEq, tourID)},
	})
	if err != nil {
		return summary, apperr.Store("query", model.CollectionReviews, err)
	}
	reviews, err := docstore.DecodeAll[model.Review](docs)
	if err != nil {
		return summary, err
	}

	ratings := make([]int, len(reviews))
	for i, r := range reviews {
		ratings[i] = r.Rating
	}
	summary.Rating = AverageRating(ratings)
	summary.ReviewCount = len(ratings)

	err = s.store.Update(ctx, model.CollectionTours, tourID, docstore.Document{
		fieldRating:      summary.Rating,
		fieldReviewCount: summary.ReviewCount,
	})
	if err != nil {
		return summary, apperr.Store("update", model.CollectionTours, err)
	}
	return summary, nil
}

// AverageRating is the mean rounded half away from zero to one decimal.
func AverageRating(ratings []int) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r
	}
	return math.Round(float64(sum)*10/float64(len(ratings))) / 10
}
