package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"tourbook-backend/internal/apperr"
)

const supabaseTable = "documents"

// supabaseRow mirrors the documents table exposed through PostgREST. version
// is bumped on every write and guards read-modify-write updates.
type supabaseRow struct {
	Collection string   `json:"collection"`
	ID         string   `json:"id"`
	Data       Document `json:"data"`
	Version    int64    `json:"version"`
}

// Supabase talks to a documents table over the Supabase REST API. PostgREST
// cannot merge JSONB server-side, so Update and Increment run a versioned
// compare-and-swap.
type Supabase struct {
	client *supa.Client
	clock  Clock
}

func NewSupabase(client *supa.Client, clock Clock) *Supabase {
	return &Supabase{client: client, clock: clock}
}

func OpenSupabase(url, serviceKey string) (*supa.Client, error) {
	client, err := supa.NewClient(url, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return client, nil
}

func (s *Supabase) Create(ctx context.Context, collection string, doc Document, id string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if id == "" {
		id = uuid.NewString()
	}
	stored := normalizeDocument(doc)
	now := stamp(s.clock)
	stored[FieldID] = id
	stored[FieldCreatedAt] = now
	stored[FieldUpdatedAt] = now

	row := supabaseRow{Collection: collection, ID: id, Data: stored, Version: 1}
	_, _, err := s.client.From(supabaseTable).Insert(row, false, "", "", "").Execute()
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrAlreadyExists)
		}
		return "", err
	}
	return id, nil
}

func (s *Supabase) Read(ctx context.Context, collection, id string) (Document, error) {
	row, err := s.readRow(ctx, collection, id)
	if err != nil || row == nil {
		return nil, err
	}
	return row.Data, nil
}

func (s *Supabase) Update(ctx context.Context, collection, id string, partial Document) error {
	return s.mutate(ctx, collection, id, func(doc Document) error {
		merge(doc, partial, stamp(s.clock))
		return nil
	})
}

func (s *Supabase) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, _, err := s.client.From(supabaseTable).
		Delete("", "").
		Eq("collection", collection).
		Eq("id", id).
		Execute()
	return err
}

func (s *Supabase) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fb := s.client.From(supabaseTable).
		Select("*", "", false).
		Eq("collection", collection)

	for _, f := range q.Filters {
		column, value := postgrestOperand(f.Field, normalize(f.Value))
		switch f.Op {
		case OpEq:
			fb = fb.Eq(column, value)
		case OpLt:
			fb = fb.Lt(column, value)
		case OpLte:
			fb = fb.Lte(column, value)
		case OpGt:
			fb = fb.Gt(column, value)
		case OpGte:
			fb = fb.Gte(column, value)
		}
	}
	if q.OrderBy != "" {
		fb = fb.Order("data->"+q.OrderBy, &postgrest.OrderOpts{Ascending: !q.Descending})
	} else {
		fb = fb.Order("id", &postgrest.OrderOpts{Ascending: true})
	}
	if q.Limit > 0 {
		fb = fb.Limit(q.Limit, "")
	}

	data, _, err := fb.Execute()
	if err != nil {
		return nil, err
	}
	var rows []supabaseRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal %s query: %w", collection, err)
	}
	out := make([]Document, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Data)
	}
	return out, nil
}

func (s *Supabase) Increment(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	var next int64
	err := s.mutate(ctx, collection, id, func(doc Document) error {
		n, err := incremented(doc, field, delta)
		if err != nil {
			return err
		}
		next = n
		merge(doc, Document{field: float64(n)}, stamp(s.clock))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Supabase) readRow(ctx context.Context, collection, id string) (*supabaseRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, err := s.client.From(supabaseTable).
		Select("*", "", false).
		Eq("collection", collection).
		Eq("id", id).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, err
	}
	var rows []supabaseRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("unmarshal %s/%s: %w", collection, id, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// mutate applies fn and writes back only if version is unchanged. An empty
// representation means another writer won; the loop rereads and retries.
func (s *Supabase) mutate(ctx context.Context, collection, id string, fn func(Document) error) error {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		row, err := s.readRow(ctx, collection, id)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrNotFound)
		}
		if row.Data == nil {
			row.Data = Document{}
		}
		if err := fn(row.Data); err != nil {
			return err
		}

		update := map[string]any{"data": row.Data, "version": row.Version + 1}
		data, _, err := s.client.From(supabaseTable).
			Update(update, "representation", "").
			Eq("collection", collection).
			Eq("id", id).
			Eq("version", strconv.FormatInt(row.Version, 10)).
			Execute()
		if err != nil {
			return err
		}
		var written []supabaseRow
		if err := json.Unmarshal(data, &written); err != nil {
			return fmt.Errorf("unmarshal %s/%s: %w", collection, id, err)
		}
		if len(written) > 0 {
			return nil
		}
	}
	return fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrConflict)
}

// postgrestOperand picks the JSON path operator for a filter. Text values
// compare through ->> and numbers through -> so they stay numeric.
func postgrestOperand(field string, value any) (column, text string) {
	switch v := value.(type) {
	case float64:
		return "data->" + field, strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return "data->>" + field, strconv.FormatBool(v)
	case nil:
		return "data->>" + field, "null"
	case string:
		return "data->>" + field, v
	default:
		return "data->>" + field, fmt.Sprint(v)
	}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
