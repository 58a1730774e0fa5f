package model

// Kafka topics for domain events. Messages are keyed by tour id so every
// event of one tour lands on one partition in order.
const (
	TopicBookings = "tourbook.bookings"
	TopicReviews  = "tourbook.reviews"
)

type EventType string

const (
	EventBookingCreated        EventType = "booking.created"
	EventBookingStatusChanged  EventType = "booking.status_changed"
	EventBookingPaymentChanged EventType = "booking.payment_changed"
	EventBookingCancelled      EventType = "booking.cancelled"
	EventReviewCreated         EventType = "review.created"
	EventReviewDeleted         EventType = "review.deleted"
)

// Event is published after a booking or review mutation and consumed by the
// projectors.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	TourID     string    `json:"tourId"`
	VendorID   string    `json:"vendorId"`
	CustomerID string    `json:"customerId"`
	EntityID   string    `json:"entityId"` // booking or review id
	OccurredAt string    `json:"occurredAt"`
}

// Topic returns the topic an event type is published to.
func (t EventType) Topic() string {
	switch t {
	case EventReviewCreated, EventReviewDeleted:
		return TopicReviews
	default:
		return TopicBookings
	}
}
