package projections

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tourbook-backend/internal/model"
)

const (
	feedLength = 50
	feedTTL    = 7 * 24 * time.Hour
)

// Feed keeps the latest booking and review events of each vendor in a capped
// Redis list for the vendor dashboard.
type Feed struct {
	rdb *redis.Client
}

func NewFeed(rdb *redis.Client) *Feed {
	return &Feed{rdb: rdb}
}

func feedKey(vendorID string) string { return "tb:feed:vendor:" + vendorID }

func (f *Feed) Append(ctx context.Context, evt model.Event) error {
	if evt.VendorID == "" {
		return nil
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	key := feedKey(evt.VendorID)
	// redis/go-redis/v9: LPUSH + LTRIM keep the newest feedLength events; the
	// TTL lets idle vendors' feeds expire.
	_, err = f.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, data)
		pipe.LTrim(ctx, key, 0, feedLength-1)
		pipe.Expire(ctx, key, feedTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("append feed %s: %w", key, err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (f *Feed) Recent(ctx context.Context, vendorID string, limit int) ([]model.Event, error) {
	if limit <= 0 || limit > feedLength {
		limit = feedLength
	}
	raw, err := f.rdb.LRange(ctx, feedKey(vendorID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]model.Event, 0, len(raw))
	for _, s := range raw {
		var evt model.Event
		if err := json.Unmarshal([]byte(s), &evt); err != nil {
			continue
		}
		out = append(out, evt)
	}
	return out, nil
}
