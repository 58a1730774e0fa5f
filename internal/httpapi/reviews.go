package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"tourbook-backend/internal/apperr"
	"tourbook-backend/internal/model"
)

// createReviewHandler stores the caller's review of a tour. The review is
// marked verified when the caller has a completed booking of the tour.
//
// A review that was stored but whose rating recompute failed is still a
// 201; the response flags the stale aggregate.
func (a *API) createReviewHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in model.ReviewInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if in.TourID == "" {
		writeError(w, apperr.Invalid("tourId", "is required"))
		return
	}
	tour, err := a.catalog.GetTour(ctx, in.TourID)
	if err != nil {
		writeError(w, err)
		return
	}
	in.CustomerID = principalFrom(ctx)
	in.VendorID = tour.VendorID
	in.IsVerified = a.hasCompletedBooking(ctx, in.CustomerID, in.TourID)

	id, err := a.reviews.CreateReview(ctx, in)
	if err != nil && id == "" {
		writeError(w, err)
		return
	}
	if err != nil {
		log.Printf("HTTP: review %s stored with stale rating: %v", id, err)
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id, "ratingStale": err != nil})
}

func (a *API) hasCompletedBooking(ctx context.Context, customerID, tourID string) bool {
	bookings, err := a.bookings.ListCustomerBookings(ctx, customerID)
	if err != nil {
		log.Printf("HTTP: booking lookup for review verification failed: %v", err)
		return false
	}
	for _, b := range bookings {
		if b.TourID == tourID && b.Status == model.StatusCompleted {
			return true
		}
	}
	return false
}

// deleteReviewHandler lets the author or an admin remove a review. A review
// that is already gone still triggers the recompute.
func (a *API) deleteReviewHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vars := mux.Vars(r)
	id, tourID := vars["id"], vars["tourId"]

	existing, err := a.reviews.GetReview(ctx, id)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		if err := a.gate.Allow(caller(ctx), model.RoleAdmin); err != nil {
			writeError(w, fmt.Errorf("review %s: %w", id, apperr.ErrNotFound))
			return
		}
	case err != nil:
		writeError(w, err)
		return
	default:
		if err := a.gate.AllowOwner(caller(ctx), existing.CustomerID); err != nil {
			writeError(w, err)
			return
		}
	}

	if err := a.reviews.DeleteReview(ctx, id, tourID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (a *API) markHelpfulHandler(w http.ResponseWriter, r *http.Request) {
	n, err := a.reviews.MarkHelpful(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"helpfulCount": n})
}

func (a *API) listReviewsHandler(w http.ResponseWriter, r *http.Request) {
	reviews, err := a.reviews.ListTourReviews(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}
