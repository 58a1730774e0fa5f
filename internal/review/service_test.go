package review

import (
	"context"
	"errors"
	"sync"
	"testing"

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

func newTour(t *testing.T, cat *catalog.Service) string {
	t.Helper()
	id, err := cat.CreateTour(context.Background(), model.TourInput{
		VendorID:    "v1",
		Title:       "Gerês waterfalls",
		Price:       60,
		Duration:    "1 day",
		MaxGuests:   8,
		Destination: "Gerês",
		Category:    "nature",
	})
	require.NoError(t, err)
	return id
}

func reviewInput(tourID, customerID string, rating int) model.ReviewInput {
	return model.ReviewInput{TourID: tourID, CustomerID: customerID, VendorID: "v1", Rating: rating, Comment: "great guide"}
}

func assertAggregate(t *testing.T, cat *catalog.Service, tourID string, ratings map[string]int) {
	t.Helper()
	values := make([]int, 0, len(ratings))
	for _, r := range ratings {
		values = append(values, r)
	}
	tour, err := cat.GetTour(context.Background(), tourID)
	require.NoError(t, err)
	assert.Equal(t, catalog.AverageRating(values), tour.Rating)
	assert.Equal(t, len(values), tour.ReviewCount)
}

func TestRatingTracksReviewSet(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory(nil)
	cat := catalog.NewService(store)
	events := &kstream.MemoryPublisher{}
	svc := NewService(store, cat, events)
	tourID := newTour(t, cat)

	live := map[string]int{}
	steps := []struct {
		customer string
		rating   int
		remove   bool
	}{
		{customer: "c1", rating: 5},
		{customer: "c2", rating: 4},
		{customer: "c3", rating: 4},
		{customer: "c2", remove: true},
		{customer: "c4", rating: 1},
		{customer: "c1", remove: true},
		{customer: "c3", remove: true},
		{customer: "c4", remove: true},
	}
	ids := map[string]string{}
	for _, step := range steps {
		if step.remove {
			require.NoError(t, svc.DeleteReview(ctx, ids[step.customer], tourID))
			delete(live, step.customer)
		} else {
			id, err := svc.CreateReview(ctx, reviewInput(tourID, step.customer, step.rating))
			require.NoError(t, err)
			ids[step.customer] = id
			live[step.customer] = step.rating
		}
		assertAggregate(t, cat, tourID, live)
	}

	tour, err := cat.GetTour(ctx, tourID)
	require.NoError(t, err)
	assert.Zero(t, tour.Rating, "empty review set resets the rating")
	assert.Len(t, events.Events(), len(steps))
}

func TestCreateReviewRejections(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory(nil)
	cat := catalog.NewService(store)
	svc := NewService(store, cat, nil)
	tourID := newTour(t, cat)

	_, err := svc.CreateReview(ctx, reviewInput(tourID, "c1", 4))
	require.NoError(t, err)

	_, err = svc.CreateReview(ctx, reviewInput(tourID, "c1", 2))
	require.ErrorIs(t, err, apperr.ErrDuplicateReview)

	for _, rating := range []int{0, 6, -1} {
		_, err = svc.CreateReview(ctx, reviewInput(tourID, "c9", rating))
		var ve *apperr.ValidationError
		require.ErrorAs(t, err, &ve, "rating %d", rating)
	}

	reviews, err := svc.ListTourReviews(ctx, tourID)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestCreateReviewRecomputeFailure(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewFaulty(docstore.NewMemory(nil))
	cat := catalog.NewService(store)
	events := &kstream.MemoryPublisher{}
	svc := NewService(store, cat, events)
	tourID := newTour(t, cat)

	store.FailOnCollection(docstore.OpUpdate, model.CollectionTours, errors.New("write quota exceeded"))
	id, err := svc.CreateReview(ctx, reviewInput(tourID, "c1", 5))
	require.Error(t, err)
	var se *apperr.StoreError
	require.ErrorAs(t, err, &se)
	assert.NotEmpty(t, id)

	r, err := svc.GetReview(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 5, r.Rating)
	assert.Len(t, events.Events(), 1, "event still published for repair")

	store.Heal(docstore.OpUpdate)
	_, err = cat.RecomputeRating(ctx, tourID)
	require.NoError(t, err)
	assertAggregate(t, cat, tourID, map[string]int{"c1": 5})
}

func TestDeleteReview(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory(nil)
	cat := catalog.NewService(store)
	svc := NewService(store, cat, nil)
	tourID := newTour(t, cat)

	id, err := svc.CreateReview(ctx, reviewInput(tourID, "c1", 3))
	require.NoError(t, err)

	err = svc.DeleteReview(ctx, id, "another-tour")
	var ve *apperr.ValidationError
	require.ErrorAs(t, err, &ve)

	require.NoError(t, svc.DeleteReview(ctx, id, tourID))
	require.NoError(t, svc.DeleteReview(ctx, id, tourID))
	_, err = svc.GetReview(ctx, id)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMarkHelpfulConcurrent(t *testing.T) {
	backends := map[string]func(t *testing.T) docstore.Gateway{
		"memory": func(t *testing.T) docstore.Gateway { return docstore.NewMemory(nil) },
		"redis": func(t *testing.T) docstore.Gateway {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { rdb.Close() })
			return docstore.NewRedis(rdb, nil)
		},
	}
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)
			cat := catalog.NewService(store)
			svc := NewService(store, cat, nil)
			id, err := svc.CreateReview(ctx, reviewInput(newTour(t, cat), "c1", 5))
			require.NoError(t, err)

			const n = 6
			var wg sync.WaitGroup
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := svc.MarkHelpful(ctx, id)
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			r, err := svc.GetReview(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, n, r.HelpfulCount)
		})
	}

	_, err := NewService(docstore.NewMemory(nil), nil, nil).MarkHelpful(context.Background(), "ghost")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

// barrierStore holds every Read until all callers have read, forcing the
// interleaving in which read-modify-write loses updates.
type barrierStore struct {
	docstore.Gateway
	readers sync.WaitGroup
}

func (b *barrierStore) Read(ctx context.Context, collection, id string) (docstore.Document, error) {
	doc, err := b.Gateway.Read(ctx, collection, id)
	b.readers.Done()
	b.readers.Wait()
	return doc, err
}

func naiveMarkHelpful(ctx context.Context, store docstore.Gateway, id string) error {
	doc, err := store.Read(ctx, model.CollectionReviews, id)
	if err != nil {
		return err
	}
	count, _ := doc[fieldHelpfulCount].(float64)
	return store.Update(ctx, model.CollectionReviews, id, docstore.Document{fieldHelpfulCount: count + 1})
}

func TestMarkHelpfulUnderInjectedInterleaving(t *testing.T) {
	ctx := context.Background()
	const n = 5

	seed := func(t *testing.T) (*barrierStore, string) {
		mem := docstore.NewMemory(nil)
		id, err := mem.Create(ctx, model.CollectionReviews, docstore.Document{"tourId": "t1", fieldHelpfulCount: 0}, "")
		require.NoError(t, err)
		b := &barrierStore{Gateway: mem}
		b.readers.Add(n)
		return b, id
	}
	run := func(fn func() error) {
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, fn())
			}()
		}
		wg.Wait()
	}

	t.Run("read-modify-write loses updates", func(t *testing.T) {
		store, id := seed(t)
		run(func() error { return naiveMarkHelpful(ctx, store, id) })

		doc, err := store.Gateway.Read(ctx, model.CollectionReviews, id)
		require.NoError(t, err)
		assert.Equal(t, float64(1), doc[fieldHelpfulCount])
	})

	t.Run("atomic increment counts every call", func(t *testing.T) {
		store, id := seed(t)
		svc := NewService(store, nil, nil)
		run(func() error {
			_, err := svc.MarkHelpful(ctx, id)
			return err
		})

		doc, err := store.Gateway.Read(ctx, model.CollectionReviews, id)
		require.NoError(t, err)
		assert.Equal(t, float64(n), doc[fieldHelpfulCount])
	})
}
