package model

import "time"

// Tour is a vendor listing. Rating and ReviewCount are derived from the
// review set and only written by the rating recompute.
type Tour struct {
	ID            string    `json:"id"`
	VendorID      string    `json:"vendorId"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	DiscountPrice *float64  `json:"discountPrice,omitempty"`
	Duration      string    `json:"duration"`
	MaxGuests     int       `json:"maxGuests"`
	Destination   string    `json:"destination"`
	Category      string    `json:"category"`
	Tags          []string  `json:"tags"`
	Includes      []string  `json:"includes"`
	Excludes      []string  `json:"excludes"`
	Images        []string  `json:"images"`
	Rating        float64   `json:"rating"`
	ReviewCount   int       `json:"reviewCount"`
	TotalBookings int       `json:"totalBookings"`
	IsActive      bool      `json:"isActive"`
	IsFeatured    bool      `json:"isFeatured"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TourInput creates a listing. Image URLs come from the media uploader and are
// stored as given.
type TourInput struct {
	VendorID      string   `json:"vendorId" validate:"required"`
	Title         string   `json:"title" validate:"required,max=200"`
	Description   string   `json:"description"`
	Price         float64  `json:"price" validate:"gte=0"`
	DiscountPrice *float64 `json:"discountPrice,omitempty" validate:"omitempty,gte=0"`
	Duration      string   `json:"duration" validate:"required"`
	MaxGuests     int      `json:"maxGuests" validate:"gte=1"`
	Destination   string   `json:"destination" validate:"required"`
	Category      string   `json:"category" validate:"required"`
	Tags          []string `json:"tags"`
	Includes      []string `json:"includes"`
	Excludes      []string `json:"excludes"`
	Images        []string `json:"images"`
	IsFeatured    bool     `json:"isFeatured"`
}

// TourPatch edits listing fields. Nil fields are left unchanged.
type TourPatch struct {
	Title         *string   `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description   *string   `json:"description,omitempty"`
	Price         *float64  `json:"price,omitempty" validate:"omitempty,gte=0"`
	DiscountPrice *float64  `json:"discountPrice,omitempty" validate:"omitempty,gte=0"`
	Duration      *string   `json:"duration,omitempty" validate:"omitempty,min=1"`
	MaxGuests     *int      `json:"maxGuests,omitempty" validate:"omitempty,gte=1"`
	Destination   *string   `json:"destination,omitempty" validate:"omitempty,min=1"`
	Category      *string   `json:"category,omitempty" validate:"omitempty,min=1"`
	Tags          *[]string `json:"tags,omitempty"`
	Includes      *[]string `json:"includes,omitempty"`
	Excludes      *[]string `json:"excludes,omitempty"`
	Images        *[]string `json:"images,omitempty"`
	IsFeatured    *bool     `json:"isFeatured,omitempty"`
}

// RatingSummary is what a recompute wrote back to the tour.
type RatingSummary struct {
	TourID      string  `json:"tourId"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"reviewCount"`
}
