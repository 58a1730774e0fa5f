package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"tourbook-backend/internal/apperr"
)

// Memory is an in-process Gateway. It backs local runs (STORE_BACKEND=memory)
// and every service test.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Document
	clock       Clock
}

// NewMemory returns an empty in-memory store. A nil clock uses time.Now.
func NewMemory(clock Clock) *Memory {
	return &Memory{
		collections: make(map[string]map[string]Document),
		clock:       clock,
	}
}

func (m *Memory) Create(ctx context.Context, collection string, doc Document, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if id == "" {
		id = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	col := m.collections[collection]
	if col == nil {
		col = make(map[string]Document)
		m.collections[collection] = col
	}
	if _, exists := col[id]; exists {
		return "", fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrAlreadyExists)
	}

	stored := normalizeDocument(doc)
	now := stamp(m.clock)
	stored[FieldID] = id
	stored[FieldCreatedAt] = now
	stored[FieldUpdatedAt] = now
	col[id] = stored
	return id, nil
}

func (m *Memory) Read(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return clone(m.collections[collection][id]), nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, partial Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrNotFound)
	}
	merge(doc, partial, stamp(m.clock))
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections[collection], id)
	return nil
}

func (m *Memory) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	docs := make([]Document, 0, len(m.collections[collection]))
	for _, doc := range m.collections[collection] {
		docs = append(docs, clone(doc))
	}
	m.mu.RUnlock()
	return applyQuery(docs, q), nil
}

func (m *Memory) Increment(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[collection][id]
	if !ok {
		return 0, fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrNotFound)
	}
	next, err := incremented(doc, field, delta)
	if err != nil {
		return 0, err
	}
	merge(doc, Document{field: float64(next)}, stamp(m.clock))
	return next, nil
}

// merge applies partial onto doc. id and createdAt are immutable.
func merge(doc, partial Document, updatedAt string) {
	for k, v := range partial {
		if k == FieldID || k == FieldCreatedAt {
			continue
		}
		doc[k] = cloneValue(normalize(v))
	}
	doc[FieldUpdatedAt] = updatedAt
}

func incremented(doc Document, field string, delta int64) (int64, error) {
	cur, ok := toInt64(doc[field])
	if !ok {
		return 0, fmt.Errorf("increment %s: field is not numeric", field)
	}
	return cur + delta, nil
}
