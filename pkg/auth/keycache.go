package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

// KeyFetcher loads a JWKS document.
type KeyFetcher func(ctx context.Context, url string) (jwk.Set, error)

func fetchJWKS(ctx context.Context, url string) (jwk.Set, error) {
	return jwk.Fetch(ctx, url)
}

// keyCache holds the IdP key set. It asks the IdP again at most once per ttl,
// and an unreachable IdP leaves the last good set in place.
type keyCache struct {
	url   string
	ttl   time.Duration
	fetch KeyFetcher
	now   func() time.Time

	mu        sync.RWMutex
	set       jwk.Set
	fetchedAt time.Time
}

func newKeyCache(url string, ttl time.Duration, fetch KeyFetcher) *keyCache {
	return &keyCache{url: url, ttl: ttl, fetch: fetch, now: time.Now}
}

func (c *keyCache) fresh() (jwk.Set, bool) {
	if c.set == nil || c.now().Sub(c.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.set, true
}

func (c *keyCache) get(ctx context.Context) (jwk.Set, error) {
	c.mu.RLock()
	set, ok := c.fresh()
	c.mu.RUnlock()
	if ok {
		return set, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if set, ok := c.fresh(); ok {
		return set, nil
	}
	fetched, err := c.fetch(ctx, c.url)
	switch {
	case err == nil:
		c.set, c.fetchedAt = fetched, c.now()
	case c.set == nil:
		return nil, fmt.Errorf("failed to fetch JWKS from %s: %w", c.url, err)
	}
	return c.set, nil
}
