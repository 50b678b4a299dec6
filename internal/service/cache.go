package service

import (
	"context"
	"encoding/json"
	"time"

	"warehouse/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const dashboardCacheKey = "dashboard:summary"

// DashboardCache stores the rendered dashboard in Redis. A nil client turns
// every call into a no-op, so the cache never decides the outcome of a request.
type DashboardCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDashboardCache(rdb *redis.Client, ttl time.Duration) *DashboardCache {
	return &DashboardCache{rdb: rdb, ttl: ttl}
}

func (c *DashboardCache) get(ctx context.Context) (*dto.DashboardResponse, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, dashboardCacheKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("dashboard cache read failed")
		}
		return nil, false
	}
	var resp dto.DashboardResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (c *DashboardCache) set(ctx context.Context, resp *dto.DashboardResponse) {
	if c == nil || c.rdb == nil || c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, dashboardCacheKey, raw, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("dashboard cache write failed")
	}
}

// Invalidate drops the cached dashboard. Called after every committed stock
// or catalog write.
func (c *DashboardCache) Invalidate(ctx context.Context) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Del(ctx, dashboardCacheKey).Err(); err != nil {
		log.Warn().Err(err).Msg("dashboard cache invalidation failed")
	}
}
