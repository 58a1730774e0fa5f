// Package booking runs the booking lifecycle: creation, the status and payment
// state machines, cancellation and vendor statistics.
package booking

import (
	"context"
	"fmt"
	"log"
	"time"

	"tourbook-backend/internal/apperr"
	"tourbook-backend/internal/docstore"
	"tourbook-backend/internal/kstream"
	"tourbook-backend/internal/model"
)

const (
	fieldStatus             = "status"
	fieldPaymentStatus      = "paymentStatus"
	fieldCancellationReason = "cancellationReason"
)

// TourCounter records that a tour was booked.
type TourCounter interface {
	RecordBooking(ctx context.Context, tourID string) (int64, error)
}

type Service struct {
	store  docstore.Gateway
	tours  TourCounter
	events kstream.Publisher
	stats  StatsCache
	now    func() time.Time
}

// NewService wires the booking service. A nil publisher drops events and a nil
// cache falls back to a one-minute in-memory cache.
func NewService(store docstore.Gateway, tours TourCounter, events kstream.Publisher, stats StatsCache) *Service {
	if events == nil {
		events = kstream.NopPublisher{}
	}
	if stats == nil {
		stats = NewMemoryStatsCache(time.Minute)
	}
	return &Service{store: store, tours: tours, events: events, stats: stats, now: time.Now}
}

// CreateBooking stores a booking, pending on both axes unless the input says
// otherwise. Guest count is not checked against the tour's capacity.
func (s *Service) CreateBooking(ctx context.Context, in model.BookingInput) (string, error) {
	if err := model.Validate(in); err != nil {
		return "", err
	}
	if in.Status == "" {
		in.Status = model.StatusPending
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = model.PaymentPending
	}

	doc, err := docstore.Encode(in)
	if err != nil {
		return "", err
	}
	doc["bookingDate"] = s.now().UTC().Truncate(time.Second).Format(time.RFC3339)

	id, err := s.store.Create(ctx, model.CollectionBookings, doc, "")
	if err != nil {
		return "", apperr.Store("create", model.CollectionBookings, err)
	}

	if s.tours != nil {
		if _, err := s.tours.RecordBooking(ctx, in.TourID); err != nil {
			log.Printf("Booking: failed to record booking %s on tour %s: %v", id, in.TourID, err)
		}
	}
	s.afterMutation(ctx, kstream.NewEvent(model.EventBookingCreated, in.TourID, in.VendorID, in.CustomerID, id))
	return id, nil
}

func (s *Service) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperr.Invalid("id", "is required")
	}
	doc, err := s.store.Read(ctx, model.CollectionBookings, id)
	if err != nil {
		return nil, apperr.Store("read", model.CollectionBookings, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("booking %s: %w", id, apperr.ErrNotFound)
	}
	var b model.Booking
	if err := docstore.Decode(doc, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// ListCustomerBookings returns a customer's bookings, newest first.
func (s *Service) ListCustomerBookings(ctx context.Context, customerID string) ([]model.Booking, error) {
	if customerID == "" {
		return nil, apperr.Invalid("customerId", "is required")
	}
	return s.list(ctx, docstore.Where("customerId", docstore.OpEq, customerID))
}

// ListVendorBookings returns a vendor's bookings, newest first, optionally
// narrowed to one status.
func (s *Service) ListVendorBookings(ctx context.Context, vendorID string, status *Status) ([]model.Booking, error) {
	if vendorID == "" {
		return nil, apperr.Invalid("vendorId", "is required")
	}
	filters := []docstore.Filter{docstore.Where("vendorId", docstore.OpEq, vendorID)}
	if status != nil {
		if !ValidStatus(*status) {
			return nil, apperr.Invalid(fieldStatus, fmt.Sprintf("unknown status %q", *status))
		}
		filters = append(filters, docstore.Where(fieldStatus, docstore.OpEq, string(*status)))
	}
	return s.list(ctx, filters...)
}

func (s *Service) list(ctx context.Context, filters ...docstore.Filter) ([]model.Booking, error) {
	docs, err := s.store.Query(ctx, model.CollectionBookings, docstore.Query{
		Filters:    filters,
		OrderBy:    docstore.FieldCreatedAt,
		Descending: true,
	})
	if err != nil {
		return nil, apperr.Store("query", model.CollectionBookings, err)
	}
	return docstore.DecodeAll[model.Booking](docs)
}

// UpdateStatus moves the booking along the status DAG and, when payment is
// set, along the payment axis too. Both moves are checked before anything is
// written. Concurrent writers race last-writer-wins.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status, payment *PaymentStatus) error {
	if !ValidStatus(status) {
		return apperr.Invalid(fieldStatus, fmt.Sprintf("unknown status %q", status))
	}
	return s.transition(ctx, id, &status, payment)
}

// UpdatePaymentStatus moves only the payment axis.
func (s *Service) UpdatePaymentStatus(ctx context.Context, id string, payment PaymentStatus) error {
	return s.transition(ctx, id, nil, &payment)
}

func (s *Service) transition(ctx context.Context, id string, status *Status, payment *PaymentStatus) error {
	if payment != nil && !ValidPaymentStatus(*payment) {
		return apperr.Invalid(fieldPaymentStatus, fmt.Sprintf("unknown payment status %q", *payment))
	}
	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return err
	}

	partial := docstore.Document{}
	evtType := model.EventBookingPaymentChanged
	if status != nil {
		if !CanTransition(b.Status, *status) {
			return &apperr.TransitionError{Axis: fieldStatus, From: string(b.Status), To: string(*status)}
		}
		if *status != b.Status {
			partial[fieldStatus] = string(*status)
			evtType = model.EventBookingStatusChanged
		}
	}
	if payment != nil {
		if !CanTransitionPayment(b.PaymentStatus, *payment) {
			return &apperr.TransitionError{Axis: fieldPaymentStatus, From: string(b.PaymentStatus), To: string(*payment)}
		}
		if *payment != b.PaymentStatus {
			partial[fieldPaymentStatus] = string(*payment)
		}
	}
	if len(partial) == 0 {
		return nil
	}

	if err := s.store.Update(ctx, model.CollectionBookings, id, partial); err != nil {
		return apperr.Store("update", model.CollectionBookings, err)
	}
	s.afterMutation(ctx, kstream.NewEvent(evtType, b.TourID, b.VendorID, b.CustomerID, id))
	return nil
}

// CancelBooking cancels a pending or confirmed booking. Completed and already
// cancelled bookings are rejected with a *apperr.TransitionError.
func (s *Service) CancelBooking(ctx context.Context, id, reason string) error {
	b, err := s.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if b.Status == model.StatusCancelled || !CanTransition(b.Status, model.StatusCancelled) {
		return &apperr.TransitionError{Axis: fieldStatus, From: string(b.Status), To: string(model.StatusCancelled)}
	}

	partial := docstore.Document{fieldStatus: string(model.StatusCancelled)}
	if reason != "" {
		partial[fieldCancellationReason] = reason
	}
	if err := s.store.Update(ctx, model.CollectionBookings, id, partial); err != nil {
		return apperr.Store("update", model.CollectionBookings, err)
	}
	s.afterMutation(ctx, kstream.NewEvent(model.EventBookingCancelled, b.TourID, b.VendorID, b.CustomerID, id))
	return nil
}

// ComputeVendorStats serves cached stats when present and otherwise scans the
// vendor's bookings. Cache failures fall through to the scan.
func (s *Service) ComputeVendorStats(ctx context.Context, vendorID string) (model.VendorStats, error) {
	if vendorID == "" {
		return model.VendorStats{}, apperr.Invalid("vendorId", "is required")
	}
	stats, ok, err := s.stats.Get(ctx, vendorID)
	if err != nil {
		log.Printf("Booking: stats cache read for %s failed: %v", vendorID, err)
	}
	if ok {
		return stats, nil
	}

	stats, err = s.ComputeVendorStatsFresh(ctx, vendorID)
	if err != nil {
		return stats, err
	}
	if err := s.stats.Set(ctx, stats); err != nil {
		log.Printf("Booking: stats cache write for %s failed: %v", vendorID, err)
	}
	return stats, nil
}

// ComputeVendorStatsFresh always scans. Cost grows with the vendor's booking
// count.
func (s *Service) ComputeVendorStatsFresh(ctx context.Context, vendorID string) (model.VendorStats, error) {
	if vendorID == "" {
		return model.VendorStats{}, apperr.Invalid("vendorId", "is required")
	}
	bookings, err := s.list(ctx, docstore.Where("vendorId", docstore.OpEq, vendorID))
	if err != nil {
		return model.VendorStats{}, err
	}
	return ComputeStats(vendorID, bookings), nil
}

// InvalidateVendorStats drops the cached stats of one vendor.
func (s *Service) InvalidateVendorStats(ctx context.Context, vendorID string) {
	if err := s.stats.Invalidate(ctx, vendorID); err != nil {
		log.Printf("Booking: stats cache invalidate for %s failed: %v", vendorID, err)
	}
}

func (s *Service) afterMutation(ctx context.Context, evt model.Event) {
	s.InvalidateVendorStats(ctx, evt.VendorID)
	if err := s.events.Publish(ctx, evt); err != nil {
		log.Printf("Booking: failed to publish %s for %s: %v", evt.Type, evt.EntityID, err)
	}
}
