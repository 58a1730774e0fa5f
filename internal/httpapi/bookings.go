package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"tourbook-backend/internal/apperr"
	"tourbook-backend/internal/booking"
	"tourbook-backend/internal/model"
)

type statusRequest struct {
	Status        model.BookingStatus  `json:"status"`
	PaymentStatus *model.PaymentStatus `json:"paymentStatus,omitempty"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// createBookingHandler books a tour for the caller. Vendor, title and amount
// are taken from the tour, not the request. A booking always enters the
// lifecycle as pending.
func (a *API) createBookingHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in model.BookingInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if in.TourID == "" {
		writeError(w, apperr.Invalid("tourId", "is required"))
		return
	}
	if in.Status != "" {
		writeError(w, apperr.Invalid("status", "is set by the booking lifecycle"))
		return
	}
	if in.PaymentStatus != "" {
		writeError(w, apperr.Invalid("paymentStatus", "is set by the booking lifecycle"))
		return
	}
	tour, err := a.catalog.GetTour(ctx, in.TourID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !tour.IsActive {
		writeError(w, apperr.Invalid("tourId", "tour is not bookable"))
		return
	}
	in.CustomerID = principalFrom(ctx)
	in.VendorID = tour.VendorID
	in.TourTitle = tour.Title
	if in.NumberOfGuests > 0 {
		in.TotalAmount = bookingAmount(tour, in.NumberOfGuests)
	}

	id, err := a.bookings.CreateBooking(ctx, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// bookingAmount prices a booking at the tour's unit price, the discount price
// when it undercuts the list price.
func bookingAmount(t *model.Tour, guests int) float64 {
	unit := t.Price
	if t.DiscountPrice != nil && *t.DiscountPrice < unit {
		unit = *t.DiscountPrice
	}
	return unit * float64(guests)
}

// loadBooking reads a booking the caller is a party to. Admins see every
// booking.
func (a *API) loadBooking(r *http.Request) (*model.Booking, error) {
	ctx := r.Context()
	b, err := a.bookings.GetBooking(ctx, mux.Vars(r)["id"])
	if err != nil {
		return nil, err
	}
	p := caller(ctx)
	if a.gate.AllowOwner(p, b.CustomerID) != nil && a.gate.AllowOwner(p, b.VendorID) != nil {
		return nil, fmt.Errorf("booking %s: %w", b.ID, apperr.ErrForbidden)
	}
	return b, nil
}

func (a *API) getBookingHandler(w http.ResponseWriter, r *http.Request) {
	b, err := a.loadBooking(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// updateBookingStatusHandler is the vendor side of the lifecycle.
func (a *API) updateBookingStatusHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	b, err := a.loadBooking(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := a.gate.AllowOwner(caller(ctx), b.VendorID); err != nil {
		writeError(w, err)
		return
	}

	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Status == "" && req.PaymentStatus != nil {
		err = a.bookings.UpdatePaymentStatus(ctx, b.ID, *req.PaymentStatus)
	} else {
		err = a.bookings.UpdateStatus(ctx, b.ID, req.Status, req.PaymentStatus)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	a.writeBooking(w, r, b.ID)
}

func (a *API) cancelBookingHandler(w http.ResponseWriter, r *http.Request) {
	b, err := a.loadBooking(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req cancelRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	if err := a.bookings.CancelBooking(r.Context(), b.ID, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	a.writeBooking(w, r, b.ID)
}

func (a *API) writeBooking(w http.ResponseWriter, r *http.Request, id string) {
	b, err := a.bookings.GetBooking(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) customerBookingsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	customerID := mux.Vars(r)["id"]
	if err := a.gate.AllowOwner(caller(ctx), customerID); err != nil {
		writeError(w, err)
		return
	}
	bookings, err := a.bookings.ListCustomerBookings(ctx, customerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// vendorScope checks the caller is the vendor named in the path or an admin.
func (a *API) vendorScope(r *http.Request) (string, error) {
	p := caller(r.Context())
	if err := a.gate.Allow(p, model.RoleVendor, model.RoleAdmin); err != nil {
		return "", err
	}
	vendorID := mux.Vars(r)["id"]
	if err := a.gate.AllowOwner(p, vendorID); err != nil {
		return "", err
	}
	return vendorID, nil
}

func (a *API) vendorBookingsHandler(w http.ResponseWriter, r *http.Request) {
	vendorID, err := a.vendorScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var status *booking.Status
	if s := r.URL.Query().Get("status"); s != "" {
		st := booking.Status(s)
		if !booking.ValidStatus(st) {
			writeError(w, apperr.Invalid("status", fmt.Sprintf("unknown status %q", s)))
			return
		}
		status = &st
	}
	bookings, err := a.bookings.ListVendorBookings(r.Context(), vendorID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// vendorStatsHandler serves cached stats unless fresh=true is requested.
func (a *API) vendorStatsHandler(w http.ResponseWriter, r *http.Request) {
	vendorID, err := a.vendorScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var stats model.VendorStats
	if fresh := queryBool(r, "fresh"); fresh != nil && *fresh {
		stats, err = a.bookings.ComputeVendorStatsFresh(r.Context(), vendorID)
	} else {
		stats, err = a.bookings.ComputeVendorStats(r.Context(), vendorID)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) vendorActivityHandler(w http.ResponseWriter, r *http.Request) {
	vendorID, err := a.vendorScope(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if a.feed == nil {
		writeJSON(w, http.StatusOK, []model.Event{})
		return
	}
	events, err := a.feed.Recent(r.Context(), vendorID, queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}
