// Package wishlist keeps at most one saved entry per (customer, tour) pair by
// storing each entry under a composite id.
package wishlist

import (
	"context"
	"errors"
	"log"

	"tourbook-backend/internal/apperr"
	"tourbook-backend/internal/docstore"
	"tourbook-backend/internal/model"
)

type Service struct {
	store docstore.Gateway
}

func NewService(store docstore.Gateway) *Service {
	return &Service{store: store}
}

// CompositeID is the sole uniqueness key of a wishlist entry.
func CompositeID(customerID, tourID string) string {
	return customerID + "_" + tourID
}

func validIDs(customerID, tourID string) error {
	if customerID == "" {
		return apperr.Invalid("customerId", "is required")
	}
	if tourID == "" {
		return apperr.Invalid("tourId", "is required")
	}
	return nil
}

// Add saves a tour for a customer. Adding an entry that already exists
// succeeds and keeps the original entry.
func (s *Service) Add(ctx context.Context, customerID, tourID string, fields model.WishlistFields) (string, error) {
	if err := validIDs(customerID, tourID); err != nil {
		return "", err
	}
	if err := model.Validate(fields); err != nil {
		return "", err
	}
	doc, err := docstore.Encode(fields)
	if err != nil {
		return "", err
	}
	doc["customerId"] = customerID
	doc["tourId"] = tourID

	id := CompositeID(customerID, tourID)
	if _, err := s.store.Create(ctx, model.CollectionWishlists, doc, id); err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			return id, nil
		}
		return "", apperr.Store("create", model.CollectionWishlists, err)
	}
	return id, nil
}

// Remove deletes the entry if present.
func (s *Service) Remove(ctx context.Context, customerID, tourID string) error {
	if err := validIDs(customerID, tourID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, model.CollectionWishlists, CompositeID(customerID, tourID)); err != nil {
		return apperr.Store("delete", model.CollectionWishlists, err)
	}
	return nil
}

// Contains reports whether the customer saved the tour. It only drives a UI
// affordance, so a failed read answers false and is logged instead of
// returned.
func (s *Service) Contains(ctx context.Context, customerID, tourID string) bool {
	if validIDs(customerID, tourID) != nil {
		return false
	}
	doc, err := s.store.Read(ctx, model.CollectionWishlists, CompositeID(customerID, tourID))
	if err != nil {
		log.Printf("Wishlist: contains check for %s failed, answering false: %v", CompositeID(customerID, tourID), err)
		return false
	}
	return doc != nil
}

// List returns a customer's entries, newest first.
func (s *Service) List(ctx context.Context, customerID string) ([]model.WishlistEntry, error) {
	if customerID == "" {
		return nil, apperr.Invalid("customerId", "is required")
	}
	docs, err := s.store.Query(ctx, model.CollectionWishlists, docstore.Query{
		Filters:    []docstore.Filter{docstore.Where("customerId", docstore.OpEq, customerID)},
		OrderBy:    docstore.FieldCreatedAt,
		Descending: true,
	})
	if err != nil {
		return nil, apperr.Store("query", model.CollectionWishlists, err)
	}
	return docstore.DecodeAll[model.WishlistEntry](docs)
}
