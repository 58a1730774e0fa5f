package model

import "time"

// Collection names in the document store.
const (
	CollectionProfiles  = "profiles"
	CollectionTours     = "tours"
	CollectionBookings  = "bookings"
	CollectionReviews   = "reviews"
	CollectionWishlists = "wishlists"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// Profile is one document per principal id. Role is set at sign-up and never
// changes afterwards.
type Profile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProfileInput is the sign-up payload. ID is the principal id from the token.
type ProfileInput struct {
	ID          string `json:"-" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"displayName" validate:"required,max=120"`
	Role        Role   `json:"role" validate:"required,oneof=customer vendor admin"`
}
