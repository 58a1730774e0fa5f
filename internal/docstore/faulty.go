package docstore

import (
	"context"
	"sync"
)

// Operation names accepted by Faulty.
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpQuery     = "query"
	OpIncrement = "increment"
)

type fault struct {
	collection string // empty matches every collection
	err        error
}

// Faulty wraps a Gateway and fails chosen operations with a fixed error. Tests
// use it to drive the fallback and error paths of the services.
type Faulty struct {
	inner Gateway

	mu     sync.RWMutex
	faults map[string][]fault
	calls  map[string]int
}

func NewFaulty(inner Gateway) *Faulty {
	return &Faulty{
		inner:  inner,
		faults: make(map[string][]fault),
		calls:  make(map[string]int),
	}
}

// FailOn makes every call of op return err.
func (f *Faulty) FailOn(op string, err error) {
	f.FailOnCollection(op, "", err)
}

// FailOnCollection makes op return err only for one collection.
func (f *Faulty) FailOnCollection(op, collection string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = append(f.faults[op], fault{collection: collection, err: err})
}

// Heal clears all faults registered for op.
func (f *Faulty) Heal(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.faults, op)
}

// Calls reports how many times op reached the wrapper, failed or not.
func (f *Faulty) Calls(op string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[op]
}

func (f *Faulty) check(op, collection string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	for _, ft := range f.faults[op] {
		if ft.collection == "" || ft.collection == collection {
			return ft.err
		}
	}
	return nil
}

func (f *Faulty) Create(ctx context.Context, collection string, doc Document, id string) (string, error) {
	if err := f.check(OpCreate, collection); err != nil {
		return "", err
	}
	return f.inner.Create(ctx, collection, doc, id)
}

func (f *Faulty) Read(ctx context.Context, collection, id string) (Document, error) {
	if err := f.check(OpRead, collection); err != nil {
		return nil, err
	}
	return f.inner.Read(ctx, collection, id)
}

func (f *Faulty) Update(ctx context.Context, collection, id string, partial Document) error {
	if err := f.check(OpUpdate, collection); err != nil {
		return err
	}
	return f.inner.Update(ctx, collection, id, partial)
}

func (f *Faulty) Delete(ctx context.Context, collection, id string) error {
	if err := f.check(OpDelete, collection); err != nil {
		return err
	}
	return f.inner.Delete(ctx, collection, id)
}

func (f *Faulty) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := f.check(OpQuery, collection); err != nil {
		return nil, err
	}
	return f.inner.Query(ctx, collection, q)
}

func (f *Faulty) Increment(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	if err := f.check(OpIncrement, collection); err != nil {
		return 0, err
	}
	return f.inner.Increment(ctx, collection, id, field, delta)
}
