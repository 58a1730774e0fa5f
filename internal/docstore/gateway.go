// Package docstore is the only path from the services to the remote document
// database. Every backend stores flat, per-collection JSON-like records keyed by
// a string id and answers conjunctive equality/range queries. Backends never
// retry a failed call; retry policy belongs to the caller.
package docstore

import (
	"context"
	"time"
)

// Document is one JSON-compatible record. Numbers are float64, times are
// RFC3339 strings, arrays are []any.
type Document map[string]any

// Op is a comparison operator usable in a Filter.
type Op string

const (
	OpEq  Op = "=="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Filter is one (field, operator, value) predicate.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where builds a Filter.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Query is a conjunction of filters with optional ordering and limit.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Gateway is the generic CRUD + query surface over the document database.
//
// Read returns (nil, nil) for a missing document. Update and Increment return
// apperr.ErrNotFound for a missing document. Delete is idempotent. Create with an
// explicit id that already exists returns apperr.ErrAlreadyExists.
type Gateway interface {
	Create(ctx context.Context, collection string, doc Document, id string) (string, error)
	Read(ctx context.Context, collection, id string) (Document, error)
	Update(ctx context.Context, collection, id string, partial Document) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	// Increment atomically adds delta to a numeric field and returns the new value.
	Increment(ctx context.Context, collection, id, field string, delta int64) (int64, error)
}

const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Clock returns the current time. Backends stamp UTC at second precision so the
// RFC3339 text of a timestamp sorts the same way the instant does.
type Clock func() time.Time

func systemClock() time.Time { return time.Now() }

func stamp(clock Clock) string {
	if clock == nil {
		clock = systemClock
	}
	return clock().UTC().Truncate(time.Second).Format(time.RFC3339)
}
