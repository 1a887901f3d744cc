// README: Short-TTL Redis cache for the stats endpoint.
package deliveryjob

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statsCacheKey = "deliveryjob:stats"
	statsCacheTTL = 30 * time.Second
)

// statsCache shields the aggregate queries from dashboard polling. A nil
// client disables caching.
type statsCache struct {
	redis *redis.Client
}

func (c statsCache) get(ctx context.Context) (*Stats, bool) {
	if c.redis == nil {
		return nil, false
	}
	val, err := c.redis.Get(ctx, statsCacheKey).Result()
	if err != nil {
		return nil, false
	}
	var st Stats
	if err := json.Unmarshal([]byte(val), &st); err != nil {
		return nil, false
	}
	return &st, true
}

func (c statsCache) set(ctx context.Context, st *Stats) {
	if c.redis == nil {
		return
	}
	body, err := json.Marshal(st)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, statsCacheKey, body, statsCacheTTL).Err()
}
