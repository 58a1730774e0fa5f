package model

import "time"

// WishlistEntry is stored under the composite id customerId_tourId.
type WishlistEntry struct {
	ID         string    `json:"id"`
	CustomerID string    `json:"customerId"`
	TourID     string    `json:"tourId"`
	TourTitle  string    `json:"tourTitle"`
	TourImage  string    `json:"tourImage"`
	TourPrice  float64   `json:"tourPrice"`
	VendorName string    `json:"vendorName"`
	CreatedAt  time.Time `json:"createdAt"`
}

// WishlistFields is the tour snapshot copied into an entry.
type WishlistFields struct {
	TourTitle  string  `json:"tourTitle"`
	TourImage  string  `json:"tourImage"`
	TourPrice  float64 `json:"tourPrice" validate:"gte=0"`
	VendorName string  `json:"vendorName"`
}
