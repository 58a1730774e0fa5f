package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourbook-backend/internal/apperr"
)

func TestValidate(t *testing.T) {
	validBooking := BookingInput{
		TourID:         "t1",
		CustomerID:     "c1",
		VendorID:       "v1",
		NumberOfGuests: 2,
		TotalAmount:    240,
		TourDate:       time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}

	cases := []struct {
		name      string
		input     any
		wantField string
	}{
		{name: "valid booking", input: validBooking},
		{
			name: "zero guests",
			input: func() BookingInput {
				b := validBooking
				b.NumberOfGuests = 0
				return b
			}(),
			wantField: "numberOfGuests",
		},
		{
			name: "unknown status",
			input: func() BookingInput {
				b := validBooking
				b.Status = "archived"
				return b
			}(),
			wantField: "status",
		},
		{
			name:      "rating above range",
			input:     ReviewInput{TourID: "t1", CustomerID: "c1", VendorID: "v1", Rating: 6},
			wantField: "rating",
		},
		{
			name:      "rating missing",
			input:     ReviewInput{TourID: "t1", CustomerID: "c1", VendorID: "v1"},
			wantField: "rating",
		},
		{
			name:      "profile bad email",
			input:     ProfileInput{ID: "u1", Email: "nope", DisplayName: "Ana", Role: RoleCustomer},
			wantField: "email",
		},
		{
			name:      "profile without principal",
			input:     ProfileInput{Email: "a@b.co", DisplayName: "Ana", Role: RoleVendor},
			wantField: "ID",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.input)
			if tc.wantField == "" {
				require.NoError(t, err)
				return
			}
			var ve *apperr.ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.wantField, ve.Field)
		})
	}
}

func TestEventTopic(t *testing.T) {
	assert.Equal(t, TopicReviews, EventReviewDeleted.Topic())
	assert.Equal(t, TopicBookings, EventBookingCancelled.Topic())
}
