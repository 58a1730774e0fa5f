package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourbook-backend/internal/apperr"
	"tourbook-backend/internal/catalog"
	"tourbook-backend/internal/docstore"
	"tourbook-backend/internal/kstream"
	"tourbook-backend/internal/model"
)

type fixture struct {
	store   *docstore.Faulty
	catalog *catalog.Service
	events  *kstream.MemoryPublisher
	svc     *Service
	tourID  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := docstore.NewFaulty(docstore.NewMemory(nil))
	cat := catalog.NewService(store)
	tourID, err := cat.CreateTour(context.Background(), model.TourInput{
		VendorID:    "v1",
		Title:       "Azores whale watching",
		Price:       80,
		Duration:    "half day",
		MaxGuests:   20,
		Destination: "Ponta Delgada",
		Category:    "nature",
	})
	require.NoError(t, err)
	events := &kstream.MemoryPublisher{}
	return &fixture{
		store:   store,
		catalog: cat,
		events:  events,
		svc:     NewService(store, cat, events, NewMemoryStatsCache(time.Hour)),
		tourID:  tourID,
	}
}

func (f *fixture) input(amount float64, status Status) model.BookingInput {
	return model.BookingInput{
		TourID:         f.tourID,
		TourTitle:      "Azores whale watching",
		CustomerID:     "c1",
		VendorID:       "v1",
		NumberOfGuests: 2,
		TotalAmount:    amount,
		TourDate:       time.Date(2025, 7, 14, 9, 0, 0, 0, time.UTC),
		Status:         status,
	}
}

func TestCreateBookingDefaults(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	id, err := f.svc.CreateBooking(ctx, f.input(160, ""))
	require.NoError(t, err)

	b, err := f.svc.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, b.Status)
	assert.Equal(t, model.PaymentPending, b.PaymentStatus)
	assert.False(t, b.BookingDate.IsZero())
	assert.False(t, b.CreatedAt.IsZero())

	tour, err := f.catalog.GetTour(ctx, f.tourID)
	require.NoError(t, err)
	assert.Equal(t, 1, tour.TotalBookings)

	events := f.events.Events()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventBookingCreated, events[0].Type)
	assert.Equal(t, id, events[0].EntityID)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	in := f.input(100, "")
	in.NumberOfGuests = 0

	_, err := f.svc.CreateBooking(context.Background(), in)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 1, f.store.Calls(docstore.OpCreate), "only the tour was created")
}

func TestCreateBookingSurvivesCounterFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.FailOn(docstore.OpIncrement, errors.New("timeout"))

	id, err := f.svc.CreateBooking(ctx, f.input(100, ""))
	require.NoError(t, err)
	_, err = f.svc.GetBooking(ctx, id)
	require.NoError(t, err)
}

func TestGetBookingMissing(t *testing.T) {
	_, err := newFixture(t).svc.GetBooking(context.Background(), "ghost")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	paid := model.PaymentPaid
	refunded := model.PaymentRefunded

	cases := []struct {
		name        string
		start       Status
		to          Status
		payment     *PaymentStatus
		wantErr     bool
		wantStatus  Status
		wantPayment PaymentStatus
	}{
		{"confirm and pay", model.StatusPending, model.StatusConfirmed, &paid, false, model.StatusConfirmed, model.PaymentPaid},
		{"complete", model.StatusConfirmed, model.StatusCompleted, nil, false, model.StatusCompleted, model.PaymentPending},
		{"skip to completed", model.StatusPending, model.StatusCompleted, nil, true, model.StatusPending, model.PaymentPending},
		{"reopen cancelled", model.StatusCancelled, model.StatusPending, nil, true, model.StatusCancelled, model.PaymentPending},
		{"refund before paid", model.StatusPending, model.StatusConfirmed, &refunded, true, model.StatusPending, model.PaymentPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			id, err := f.svc.CreateBooking(ctx, f.input(100, tc.start))
			require.NoError(t, err)
			updatesBefore := f.store.Calls(docstore.OpUpdate)

			err = f.svc.UpdateStatus(ctx, id, tc.to, tc.payment)
			if tc.wantErr {
				var te *apperr.TransitionError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, updatesBefore, f.store.Calls(docstore.OpUpdate), "rejected move must not write")
			} else {
				require.NoError(t, err)
			}

			b, err := f.svc.GetBooking(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, b.Status)
			assert.Equal(t, tc.wantPayment, b.PaymentStatus)
		})
	}
}

func TestUpdateStatusSameStateIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id, err := f.svc.CreateBooking(ctx, f.input(100, model.StatusConfirmed))
	require.NoError(t, err)
	before := f.store.Calls(docstore.OpUpdate)

	require.NoError(t, f.svc.UpdateStatus(ctx, id, model.StatusConfirmed, nil))
	assert.Equal(t, before, f.store.Calls(docstore.OpUpdate))

	err = f.svc.UpdateStatus(ctx, id, "archived", nil)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestUpdatePaymentStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id, err := f.svc.CreateBooking(ctx, f.input(100, ""))
	require.NoError(t, err)

	require.NoError(t, f.svc.UpdatePaymentStatus(ctx, id, model.PaymentPaid))
	require.NoError(t, f.svc.UpdatePaymentStatus(ctx, id, model.PaymentRefunded))
	err = f.svc.UpdatePaymentStatus(ctx, id, model.PaymentPaid)
	var te *apperr.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "paymentStatus", te.Axis)

	b, err := f.svc.GetBooking(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentRefunded, b.PaymentStatus)
	assert.Equal(t, model.StatusPending, b.Status)
}

func TestCancelBooking(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name    string
		start   Status
		wantErr bool
	}{
		{"pending", model.StatusPending, false},
		{"confirmed", model.StatusConfirmed, false},
		{"completed is terminal", model.StatusCompleted, true},
		{"already cancelled", model.StatusCancelled, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			id, err := f.svc.CreateBooking(ctx, f.input(100, tc.start))
			require.NoError(t, err)

			err = f.svc.CancelBooking(ctx, id, "weather")
			b, gerr := f.svc.GetBooking(ctx, id)
			require.NoError(t, gerr)

			if tc.wantErr {
				var te *apperr.TransitionError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, tc.start, b.Status)
				assert.Empty(t, b.CancellationReason)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.StatusCancelled, b.Status)
			assert.Equal(t, "weather", b.CancellationReason)
		})
	}
}

func TestComputeVendorStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, seed := range []struct {
		amount float64
		status Status
	}{
		{100, model.StatusConfirmed},
		{50, model.StatusPending},
		{30, model.StatusCancelled},
		{75, model.StatusCompleted},
	} {
		_, err := f.svc.CreateBooking(ctx, f.input(seed.amount, seed.status))
		require.NoError(t, err)
	}
	other := f.input(999, model.StatusConfirmed)
	other.VendorID = "v2"
	_, err := f.svc.CreateBooking(ctx, other)
	require.NoError(t, err)

	stats, err := f.svc.ComputeVendorStats(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalBookings)
	assert.Equal(t, 175.0, stats.TotalRevenue)
	assert.Equal(t, 1, stats.ConfirmedBookings)
	assert.Equal(t, 1, stats.PendingBookings)
	assert.Equal(t, 1, stats.CancelledBookings)
	assert.Equal(t, 1, stats.CompletedBookings)
}

func TestVendorStatsCacheInvalidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id, err := f.svc.CreateBooking(ctx, f.input(100, ""))
	require.NoError(t, err)

	_, err = f.svc.ComputeVendorStats(ctx, "v1")
	require.NoError(t, err)
	queries := f.store.Calls(docstore.OpQuery)

	stats, err := f.svc.ComputeVendorStats(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, queries, f.store.Calls(docstore.OpQuery), "second call served from cache")
	assert.Zero(t, stats.TotalRevenue)

	require.NoError(t, f.svc.UpdateStatus(ctx, id, model.StatusConfirmed, nil))
	stats, err = f.svc.ComputeVendorStats(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, stats.TotalRevenue)
	assert.Greater(t, f.store.Calls(docstore.OpQuery), queries)
}

func TestRedisStatsCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	cache := NewRedisStatsCache(rdb, time.Minute)

	_, ok, err := cache.Get(ctx, "v1")
	require.NoError(t, err)
	assert.False(t, ok)

	want := model.VendorStats{VendorID: "v1", TotalBookings: 3, TotalRevenue: 210}
	require.NoError(t, cache.Set(ctx, want))
	got, ok, err := cache.Get(ctx, "v1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)

	mr.FastForward(2 * time.Minute)
	_, ok, err = cache.Get(ctx, "v1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, want))
	require.NoError(t, cache.Invalidate(ctx, "v1"))
	_, ok, err = cache.Get(ctx, "v1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStatsCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewMemoryStatsCache(time.Minute)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.Set(ctx, model.VendorStats{VendorID: "v1", TotalBookings: 2}))
	_, ok, _ := cache.Get(ctx, "v1")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = cache.Get(ctx, "v1")
	assert.False(t, ok)
}
