package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"tourbook-backend/internal/booking"
	"tourbook-backend/internal/catalog"
	"tourbook-backend/internal/identity"
	"tourbook-backend/internal/model"
	"tourbook-backend/internal/review"
	"tourbook-backend/internal/wishlist"
)

// ActivityFeed serves the recent events of one vendor.
type ActivityFeed interface {
	Recent(ctx context.Context, vendorID string, limit int) ([]model.Event, error)
}

// Deps are the services behind the API. Feed is optional.
type Deps struct {
	Identity  *identity.Resolver
	Gate      *identity.RoleGate
	Catalog   *catalog.Service
	Bookings  *booking.Service
	Reviews   *review.Service
	Wishlists *wishlist.Service
	Feed      ActivityFeed
	JWTSecret string
}

type API struct {
	identity  *identity.Resolver
	gate      *identity.RoleGate
	catalog   *catalog.Service
	bookings  *booking.Service
	reviews   *review.Service
	wishlists *wishlist.Service
	feed      ActivityFeed
	secret    string
}

func NewAPI(d Deps) *API {
	gate := d.Gate
	if gate == nil {
		gate = identity.NewRoleGate()
	}
	return &API{
		identity:  d.Identity,
		gate:      gate,
		catalog:   d.Catalog,
		bookings:  d.Bookings,
		reviews:   d.Reviews,
		wishlists: d.Wishlists,
		feed:      d.Feed,
		secret:    d.JWTSecret,
	}
}

// RegisterRoutes wires the public API.
// gorilla/mux: /api is a subrouter so the bearer-token middleware covers every
// route under it and nothing else.
func (a *API) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(a.authenticate)

	api.HandleFunc("/me", a.meHandler).Methods(http.MethodGet)
	api.HandleFunc("/profiles", a.createProfileHandler).Methods(http.MethodPost)

	api.HandleFunc("/tours", a.createTourHandler).Methods(http.MethodPost)
	api.HandleFunc("/tours", a.listToursHandler).Methods(http.MethodGet)
	api.HandleFunc("/tours/search", a.searchToursHandler).Methods(http.MethodGet)
	api.HandleFunc("/tours/{id}", a.getTourHandler).Methods(http.MethodGet)
	api.HandleFunc("/tours/{id}", a.updateTourHandler).Methods(http.MethodPatch)
	api.HandleFunc("/tours/{id}/active", a.setActiveHandler).Methods(http.MethodPut)
	api.HandleFunc("/tours/{id}/recompute", a.recomputeRatingHandler).Methods(http.MethodPost)
	api.HandleFunc("/tours/{id}/reviews", a.listReviewsHandler).Methods(http.MethodGet)
	api.HandleFunc("/tours/{tourId}/reviews/{id}", a.deleteReviewHandler).Methods(http.MethodDelete)

	api.HandleFunc("/bookings", a.createBookingHandler).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{id}", a.getBookingHandler).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}/status", a.updateBookingStatusHandler).Methods(http.MethodPatch)
	api.HandleFunc("/bookings/{id}/cancel", a.cancelBookingHandler).Methods(http.MethodPost)
	api.HandleFunc("/customers/{id}/bookings", a.customerBookingsHandler).Methods(http.MethodGet)
	api.HandleFunc("/vendors/{id}/bookings", a.vendorBookingsHandler).Methods(http.MethodGet)
	api.HandleFunc("/vendors/{id}/stats", a.vendorStatsHandler).Methods(http.MethodGet)
	api.HandleFunc("/vendors/{id}/activity", a.vendorActivityHandler).Methods(http.MethodGet)

	api.HandleFunc("/reviews", a.createReviewHandler).Methods(http.MethodPost)
	api.HandleFunc("/reviews/{id}/helpful", a.markHelpfulHandler).Methods(http.MethodPost)

	api.HandleFunc("/wishlist", a.listWishlistHandler).Methods(http.MethodGet)
	api.HandleFunc("/wishlist/{tourId}", a.addWishlistHandler).Methods(http.MethodPut)
	api.HandleFunc("/wishlist/{tourId}", a.removeWishlistHandler).Methods(http.MethodDelete)
	api.HandleFunc("/wishlist/{tourId}", a.containsWishlistHandler).Methods(http.MethodGet)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (a *API) meHandler(w http.ResponseWriter, r *http.Request) {
	p := profileFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"principalId": principalFrom(r.Context()),
		"profile":     p,
		"surface":     identity.SurfaceFor(p),
	})
}

func (a *API) createProfileHandler(w http.ResponseWriter, r *http.Request) {
	var in model.ProfileInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.ID = principalFrom(r.Context())

	p, err := a.identity.CreateProfile(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"profile": p,
		"surface": identity.SurfaceFor(p),
	})
}
