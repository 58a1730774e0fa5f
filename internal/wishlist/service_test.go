package wishlist

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourbook-backend/internal/apperr"
	"tourbook-backend/internal/docstore"
	"tourbook-backend/internal/model"
)

var fields = model.WishlistFields{TourTitle: "Óbidos castle walk", TourImage: "https://cdn.example.com/obidos.jpg", TourPrice: 45, VendorName: "Oeste Trails"}

func TestAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewService(docstore.NewMemory(nil))

	id, err := svc.Add(ctx, "c1", "t1", fields)
	require.NoError(t, err)
	assert.Equal(t, "c1_t1", id)

	first, err := svc.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	changed := fields
	changed.TourPrice = 99
	id2, err := svc.Add(ctx, "c1", "t1", changed)
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	entries, err := svc.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, first[0].CreatedAt, entries[0].CreatedAt)
	assert.Equal(t, 45.0, entries[0].TourPrice)

	require.NoError(t, svc.Remove(ctx, "c1", "t1"))
	assert.False(t, svc.Contains(ctx, "c1", "t1"))
	require.NoError(t, svc.Remove(ctx, "c1", "t1"))

	entries, err = svc.List(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestConcurrentAddsLeaveOneEntry(t *testing.T) {
	ctx := context.Background()
	svc := NewService(docstore.NewMemory(nil))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Add(ctx, "c1", "t1", fields)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := svc.List(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestContains(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewFaulty(docstore.NewMemory(nil))
	svc := NewService(store)

	_, err := svc.Add(ctx, "c1", "t1", fields)
	require.NoError(t, err)

	cases := []struct {
		name     string
		customer string
		tour     string
		fail     bool
		want     bool
	}{
		{"saved", "c1", "t1", false, true},
		{"not saved", "c1", "t2", false, false},
		{"read failure answers false", "c1", "t1", true, false},
		{"missing ids", "", "t1", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store.Heal(docstore.OpRead)
			if tc.fail {
				store.FailOn(docstore.OpRead, errors.New("network unreachable"))
			}
			assert.Equal(t, tc.want, svc.Contains(ctx, tc.customer, tc.tour))
		})
	}
}

func TestAddErrors(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewFaulty(docstore.NewMemory(nil))
	svc := NewService(store)

	_, err := svc.Add(ctx, "", "t1", fields)
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)

	store.FailOn(docstore.OpCreate, errors.New("permission denied"))
	_, err = svc.Add(ctx, "c1", "t1", fields)
	var se *apperr.StoreError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, err.Error(), "permission denied")
}
