package model

import "time"

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// Booking is never hard-deleted; cancellation is a status.
type Booking struct {
	ID                 string        `json:"id"`
	TourID             string        `json:"tourId"`
	TourTitle          string        `json:"tourTitle"`
	CustomerID         string        `json:"customerId"`
	VendorID           string        `json:"vendorId"`
	NumberOfGuests     int           `json:"numberOfGuests"`
	TotalAmount        float64       `json:"totalAmount"`
	BookingDate        time.Time     `json:"bookingDate"`
	TourDate           time.Time     `json:"tourDate"`
	Status             BookingStatus `json:"status"`
	PaymentStatus      PaymentStatus `json:"paymentStatus"`
	CancellationReason string        `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

type BookingInput struct {
	TourID         string        `json:"tourId" validate:"required"`
	TourTitle      string        `json:"tourTitle"`
	CustomerID     string        `json:"customerId" validate:"required"`
	VendorID       string        `json:"vendorId" validate:"required"`
	NumberOfGuests int           `json:"numberOfGuests" validate:"gte=1"`
	TotalAmount    float64       `json:"totalAmount" validate:"gte=0"`
	TourDate       time.Time     `json:"tourDate" validate:"required"`
	Status         BookingStatus `json:"status,omitempty" validate:"omitempty,oneof=pending confirmed cancelled completed"`
	PaymentStatus  PaymentStatus `json:"paymentStatus,omitempty" validate:"omitempty,oneof=pending paid refunded"`
}

// VendorStats is the result of a full scan over one vendor's bookings.
type VendorStats struct {
	VendorID          string  `json:"vendorId"`
	TotalBookings     int     `json:"totalBookings"`
	TotalRevenue      float64 `json:"totalRevenue"`
	ConfirmedBookings int     `json:"confirmedBookings"`
	PendingBookings   int     `json:"pendingBookings"`
	CancelledBookings int     `json:"cancelledBookings"`
	CompletedBookings int     `json:"completedBookings"`
}
