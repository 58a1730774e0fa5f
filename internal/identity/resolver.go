// Package identity resolves a signed-in principal to its role-tagged profile
// and decides which navigation surface and actions that principal gets.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tourbook-backend/internal/apperr"
	"tourbook-backend/internal/docstore"
	"tourbook-backend/internal/model"
)

type Resolver struct {
	store docstore.Gateway
}

func NewResolver(store docstore.Gateway) *Resolver {
	return &Resolver{store: store}
}

// ResolveProfile reads the profile document of principalID. When the primary
// read fails it tries one fallback query on the same collection. A profile that
// cannot be found either way resolves to nil, which callers treat as a customer.
func (r *Resolver) ResolveProfile(ctx context.Context, principalID string) (*model.Profile, error) {
	if principalID == "" {
		return nil, apperr.Invalid("principalId", "is required")
	}

	doc, err := r.store.Read(ctx, model.CollectionProfiles, principalID)
	if err == nil {
		if doc == nil {
			return nil, nil
		}
		return decodeProfile(doc)
	}

	log.Printf("Identity: primary profile read for %s failed, trying fallback: %v", principalID, err)
	docs, ferr := r.store.Query(ctx, model.CollectionProfiles, docstore.Query{
		Filters: []docstore.Filter{docstore.Where(docstore.FieldID, docstore.OpEq, principalID)},
		Limit:   1,
	})
	if ferr != nil {
		log.Printf("Identity: fallback profile query for %s failed: %v", principalID, ferr)
		return nil, nil
	}
	if len(docs) == 0 {
		log.Printf("Identity: no profile for %s after fallback", principalID)
		return nil, nil
	}
	return decodeProfile(docs[0])
}

// CreateProfile writes the profile once at sign-up. A second sign-up for the
// same principal is rejected so the role cannot be changed this way.
func (r *Resolver) CreateProfile(ctx context.Context, in model.ProfileInput) (*model.Profile, error) {
	if err := model.Validate(in); err != nil {
		return nil, err
	}
	doc, err := docstore.Encode(in)
	if err != nil {
		return nil, err
	}
	id, err := r.store.Create(ctx, model.CollectionProfiles, doc, in.ID)
	if errors.Is(err, apperr.ErrAlreadyExists) {
		return nil, fmt.Errorf("profile %s: %w", in.ID, apperr.ErrAlreadyExists)
	}
	if err != nil {
		return nil, apperr.Store("create", model.CollectionProfiles, err)
	}

	stored, err := r.store.Read(ctx, model.CollectionProfiles, id)
	if err != nil {
		return nil, apperr.Store("read", model.CollectionProfiles, err)
	}
	if stored == nil {
		return nil, fmt.Errorf("profile %s: %w", id, apperr.ErrNotFound)
	}
	return decodeProfile(stored)
}

func decodeProfile(doc docstore.Document) (*model.Profile, error) {
	var p model.Profile
	if err := docstore.Decode(doc, &p); err != nil {
		return nil, err
	}
	if p.Role == "" {
		p.Role = model.RoleCustomer
	}
	return &p, nil
}
