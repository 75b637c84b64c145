// Package redisx holds the Redis client and the event de-duplication store.
package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyDedup = "dedup:%s:%s"

func New(addr string, timeout time.Duration) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})
}

// Deduper remembers processed event ids for a fixed TTL.
type Deduper struct {
	rdb   redis.Cmdable
	scope string
	ttl   time.Duration
}

func NewDeduper(rdb redis.Cmdable, scope string, ttl time.Duration) *Deduper {
	return &Deduper{rdb: rdb, scope: scope, ttl: ttl}
}

// Claim marks the event as being processed. It returns false if the event was claimed before.
func (d *Deduper) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, d.key(eventID), "1", d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim event %s: %w", eventID, err)
	}
	return ok, nil
}

// Release forgets the event, so a redelivery is processed again.
func (d *Deduper) Release(ctx context.Context, eventID string) error {
	if err := d.rdb.Del(ctx, d.key(eventID)).Err(); err != nil {
		return fmt.Errorf("failed to release event %s: %w", eventID, err)
	}
	return nil
}

func (d *Deduper) key(eventID string) string {
	return fmt.Sprintf(keyDedup, d.scope, eventID)
}
