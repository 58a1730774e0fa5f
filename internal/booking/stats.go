package booking

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"tourbook-backend/internal/model"
)

// ComputeStats folds one vendor's bookings into totals. Revenue counts only
// confirmed and completed bookings.
func ComputeStats(vendorID string, bookings []model.Booking) model.VendorStats {
	stats := model.VendorStats{VendorID: vendorID, TotalBookings: len(bookings)}
	for _, b := range bookings {
		switch b.Status {
		case model.StatusConfirmed:
			stats.ConfirmedBookings++
			stats.TotalRevenue += b.TotalAmount
		case model.StatusCompleted:
			stats.CompletedBookings++
			stats.TotalRevenue += b.TotalAmount
		case model.StatusPending:
			stats.PendingBookings++
		case model.StatusCancelled:
			stats.CancelledBookings++
		}
	}
	return stats
}

// StatsCache holds computed vendor stats between booking mutations.
type StatsCache interface {
	Get(ctx context.Context, vendorID string) (model.VendorStats, bool, error)
	Set(ctx context.Context, stats model.VendorStats) error
	Invalidate(ctx context.Context, vendorID string) error
}

type cachedStats struct {
	stats   model.VendorStats
	expires time.Time
}

// MemoryStatsCache is a process-local StatsCache with a fixed TTL.
type MemoryStatsCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cachedStats
}

func NewMemoryStatsCache(ttl time.Duration) *MemoryStatsCache {
	return &MemoryStatsCache{ttl: ttl, now: time.Now, entries: make(map[string]cachedStats)}
}

func (c *MemoryStatsCache) Get(_ context.Context, vendorID string) (model.VendorStats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[vendorID]
	if !ok || !c.now().Before(e.expires) {
		delete(c.entries, vendorID)
		return model.VendorStats{}, false, nil
	}
	return e.stats, true, nil
}

func (c *MemoryStatsCache) Set(_ context.Context, stats model.VendorStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[stats.VendorID] = cachedStats{stats: stats, expires: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryStatsCache) Invalidate(_ context.Context, vendorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, vendorID)
	return nil
}

// RedisStatsCache shares computed stats across API instances.
type RedisStatsCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStatsCache(rdb *redis.Client, ttl time.Duration) *RedisStatsCache {
	return &RedisStatsCache{rdb: rdb, ttl: ttl}
}

func statsKey(vendorID string) string { return "tb:stats:vendor:" + vendorID }

func (c *RedisStatsCache) Get(ctx context.Context, vendorID string) (model.VendorStats, bool, error) {
	var stats model.VendorStats
	data, err := c.rdb.Get(ctx, statsKey(vendorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return stats, false, nil
	}
	if err != nil {
		return stats, false, err
	}
	if err := json.Unmarshal(data, &stats); err != nil {
		return stats, false, err
	}
	return stats, true, nil
}

// Set stores stats with the cache TTL (redis/go-redis/v9 SET ... EX).
func (c *RedisStatsCache) Set(ctx context.Context, stats model.VendorStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, statsKey(stats.VendorID), data, c.ttl).Err()
}

func (c *RedisStatsCache) Invalidate(ctx context.Context, vendorID string) error {
	return c.rdb.Del(ctx, statsKey(vendorID)).Err()
}
