package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tourbook-backend/internal/apperr"
)

// maxCASAttempts bounds the WATCH/MULTI retry loop used by Update and Increment.
const maxCASAttempts = 8

// Redis stores each document as a JSON string under tb:doc:<collection>:<id>
// and keeps the ids of a collection in the set tb:col:<collection>.
type Redis struct {
	rdb   *redis.Client
	clock Clock
}

func NewRedis(rdb *redis.Client, clock Clock) *Redis {
	return &Redis{rdb: rdb, clock: clock}
}

func docKey(collection, id string) string { return "tb:doc:" + collection + ":" + id }
func colKey(collection string) string     { return "tb:col:" + collection }

func (r *Redis) Create(ctx context.Context, collection string, doc Document, id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	stored := normalizeDocument(doc)
	now := stamp(r.clock)
	stored[FieldID] = id
	stored[FieldCreatedAt] = now
	stored[FieldUpdatedAt] = now

	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}

	// redis/go-redis/v9: SETNX + SADD in one MULTI so the id index never
	// points at a document that was not written.
	var created *redis.BoolCmd
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		created = pipe.SetNX(ctx, docKey(collection, id), data, 0)
		pipe.SAdd(ctx, colKey(collection), id)
		return nil
	})
	if err != nil {
		return "", err
	}
	if !created.Val() {
		return "", fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrAlreadyExists)
	}
	return id, nil
}

func (r *Redis) Read(ctx context.Context, collection, id string) (Document, error) {
	data, err := r.rdb.Get(ctx, docKey(collection, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (r *Redis) Update(ctx context.Context, collection, id string, partial Document) error {
	return r.mutate(ctx, collection, id, func(doc Document) error {
		merge(doc, partial, stamp(r.clock))
		return nil
	})
}

func (r *Redis) Delete(ctx context.Context, collection, id string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, docKey(collection, id))
		pipe.SRem(ctx, colKey(collection), id)
		return nil
	})
	return err
}

func (r *Redis) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	ids, err := r.rdb.SMembers(ctx, colKey(collection)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Document{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = docKey(collection, id)
	}
	vals, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// Deleted between SMEMBERS and MGET.
			continue
		}
		var doc Document
		if err := json.Unmarshal([]byte(s), &doc); err != nil {
			return nil, fmt.Errorf("unmarshal %s/%s: %w", collection, ids[i], err)
		}
		docs = append(docs, doc)
	}
	return applyQuery(docs, q), nil
}

func (r *Redis) Increment(ctx context.Context, collection, id, field string, delta int64) (int64, error) {
	var next int64
	err := r.mutate(ctx, collection, id, func(doc Document) error {
		n, err := incremented(doc, field, delta)
		if err != nil {
			return err
		}
		next = n
		merge(doc, Document{field: float64(n)}, stamp(r.clock))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}

// mutate runs fn against the current document inside an optimistic WATCH
// transaction and retries when another writer touched the key first.
func (r *Redis) mutate(ctx context.Context, collection, id string, fn func(Document) error) error {
	key := docKey(collection, id)
	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrNotFound)
		}
		if err != nil {
			return err
		}
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("unmarshal %s/%s: %w", collection, id, err)
		}
		if err := fn(doc); err != nil {
			return err
		}
		out, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		return err
	}

	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		err := r.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%s/%s: %w", collection, id, apperr.ErrConflict)
}
