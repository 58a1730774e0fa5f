package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"tourbook-backend/internal/apperr"
	"tourbook-backend/internal/catalog"
	"tourbook-backend/internal/model"
)

func tourFilter(r *http.Request) catalog.TourFilter {
	q := r.URL.Query()
	return catalog.TourFilter{
		Category:    q.Get("category"),
		Destination: q.Get("destination"),
		Featured:    queryBool(r, "featured"),
		VendorID:    q.Get("vendorId"),
		Limit:       queryInt(r, "limit", 0),
	}
}

// createTourHandler lists a new tour. Vendors always list under their own id.
func (a *API) createTourHandler(w http.ResponseWriter, r *http.Request) {
	p := caller(r.Context())
	if err := a.gate.Allow(p, model.RoleVendor, model.RoleAdmin); err != nil {
		writeError(w, err)
		return
	}
	var in model.TourInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if p.Role == model.RoleVendor {
		in.VendorID = p.ID
	}

	id, err := a.catalog.CreateTour(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (a *API) listToursHandler(w http.ResponseWriter, r *http.Request) {
	tours, err := a.catalog.QueryTours(r.Context(), tourFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tours)
}

func (a *API) searchToursHandler(w http.ResponseWriter, r *http.Request) {
	tours, err := a.catalog.SearchTours(r.Context(), r.URL.Query().Get("q"), tourFilter(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tours)
}

func (a *API) getTourHandler(w http.ResponseWriter, r *http.Request) {
	tour, err := a.catalog.GetTour(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tour)
}

func (a *API) updateTourHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	tour, err := a.catalog.GetTour(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.gate.AllowOwner(caller(ctx), tour.VendorID); err != nil {
		writeError(w, err)
		return
	}

	var patch model.TourPatch
	if err := decodeBody(r, &patch); err != nil {
		writeError(w, err)
		return
	}
	if err := a.catalog.UpdateTour(ctx, id, patch); err != nil {
		writeError(w, err)
		return
	}
	updated, err := a.catalog.GetTour(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type activeRequest struct {
	IsActive *bool `json:"isActive"`
}

// setActiveHandler lists or unlists a tour. Unlisted tours stay readable by id
// but drop out of listings and search.
func (a *API) setActiveHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	tour, err := a.catalog.GetTour(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.gate.AllowOwner(caller(ctx), tour.VendorID); err != nil {
		writeError(w, err)
		return
	}
	var req activeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.IsActive == nil {
		writeError(w, apperr.Invalid("isActive", "is required"))
		return
	}
	if err := a.catalog.SetActive(ctx, id, *req.IsActive); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isActive": *req.IsActive})
}

// recomputeRatingHandler is the manual repair for a tour whose aggregate
// drifted. Only the owning vendor or an admin may trigger it.
func (a *API) recomputeRatingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]
	tour, err := a.catalog.GetTour(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.gate.AllowOwner(caller(ctx), tour.VendorID); err != nil {
		writeError(w, err)
		return
	}
	summary, err := a.catalog.RecomputeRating(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
