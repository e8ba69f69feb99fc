package autocomplete

import (
	"context"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// CachingProvider memoises successful lookups per normalised query. Errors
// and cancellations are never cached.
type CachingProvider struct {
	next  Provider
	cache *cache.Cache
}

// NewCachingProvider wraps next with a cache of the given ttl.
func NewCachingProvider(next Provider, ttl time.Duration) *CachingProvider {
	return &CachingProvider{next: next, cache: cache.New(ttl, 2*ttl)}
}

func (c *CachingProvider) Suggest(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	key := strconv.Itoa(limit) + "|" + query
	if hit, ok := c.cache.Get(key); ok {
		return cloneSuggestions(hit.([]Suggestion)), nil
	}
	list, err := c.next.Suggest(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, cloneSuggestions(list))
	return list, nil
}

func cloneSuggestions(in []Suggestion) []Suggestion {
	return append([]Suggestion(nil), in...)
}

var _ Provider = (*CachingProvider)(nil)
