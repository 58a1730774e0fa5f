package model

import "time"

type Review struct {
	ID           string    `json:"id"`
	TourID       string    `json:"tourId"`
	CustomerID   string    `json:"customerId"`
	VendorID     string    `json:"vendorId"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	IsVerified   bool      `json:"isVerified"`
	HelpfulCount int       `json:"helpfulCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ReviewInput carries IsVerified from the caller. The review service stores it
// as given; the HTTP layer derives it from the customer's completed bookings.
type ReviewInput struct {
	TourID     string `json:"tourId" validate:"required"`
	CustomerID string `json:"customerId" validate:"required"`
	VendorID   string `json:"vendorId" validate:"required"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	Comment    string `json:"comment" validate:"max=4000"`
	IsVerified bool   `json:"isVerified"`
}
