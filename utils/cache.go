// utils/cache.go
package utils

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// StalenessSignal tells dependent read surfaces that their cached views are
// out of date after a mutation. The signal is best-effort: a failed or
// missing redis connection never fails the operation that triggered it.
type StalenessSignal struct {
	rdb *redis.Client
}

// NewStalenessSignal connects to redis, or returns a disabled signal when no
// address is configured.
func NewStalenessSignal(addr string) *StalenessSignal {
	if addr == "" {
		log.Println("⚠️  REDIS_ADDR not set — cache staleness signal disabled")
		return &StalenessSignal{}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	return &StalenessSignal{rdb: rdb}
}

// Invalidate deletes the given view keys. Errors are logged, never returned.
func (s *StalenessSignal) Invalidate(ctx context.Context, keys ...string) {
	if s == nil || s.rdb == nil || len(keys) == 0 {
		return
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		log.Printf("⚠️  [CACHE] failed to invalidate %v: %v", keys, err)
	}
}

func LeaderboardKey(tenantID, period string) string {
	return fmt.Sprintf("lb:%s:%s", tenantID, period)
}

func StoreKey(tenantID string) string {
	return fmt.Sprintf("store:%s", tenantID)
}

func TokensKey(tenantID, userID string) string {
	return fmt.Sprintf("tokens:%s:%s", tenantID, userID)
}
