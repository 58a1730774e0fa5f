package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"tourbook-backend/internal/model"
)

// addWishlistHandler saves a tour for the caller. Without a body the snapshot
// is filled from the tour itself.
func (a *API) addWishlistHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tourID := mux.Vars(r)["tourId"]

	var fields model.WishlistFields
	if r.ContentLength != 0 {
		if err := decodeBody(r, &fields); err != nil {
			writeError(w, err)
			return
		}
	} else {
		tour, err := a.catalog.GetTour(ctx, tourID)
		if err != nil {
			writeError(w, err)
			return
		}
		fields = model.WishlistFields{TourTitle: tour.Title, TourPrice: tour.Price}
		if len(tour.Images) > 0 {
			fields.TourImage = tour.Images[0]
		}
	}

	id, err := a.wishlists.Add(ctx, principalFrom(ctx), tourID, fields)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (a *API) removeWishlistHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := a.wishlists.Remove(ctx, principalFrom(ctx), mux.Vars(r)["tourId"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"inWishlist": false})
}

func (a *API) containsWishlistHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in := a.wishlists.Contains(ctx, principalFrom(ctx), mux.Vars(r)["tourId"])
	writeJSON(w, http.StatusOK, map[string]bool{"inWishlist": in})
}

func (a *API) listWishlistHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := a.wishlists.List(ctx, principalFrom(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
