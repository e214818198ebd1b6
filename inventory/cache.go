package inventory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"flashcat.cloud/cpudash/pkg/metrics"
)

// Cached remembers successful resolutions for ttl. Not-found answers and
// errors always go to the wrapped resolver.
type Cached struct {
	next  Resolver
	cache *gocache.Cache
}

func NewCached(next Resolver, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *Cached) InstanceID(ctx context.Context, ip string) (string, error) {
	if v, found := c.cache.Get(ip); found {
		metrics.InventoryCacheHits.Inc()
		return v.(string), nil
	}

	id, err := c.next.InstanceID(ctx, ip)
	if err != nil {
		return "", err
	}

	c.cache.SetDefault(ip, id)
	return id, nil
}

// New builds the configured resolver chain.
func New(base Resolver, cacheTTL time.Duration) Resolver {
	if cacheTTL <= 0 {
		return base
	}
	return NewCached(base, cacheTTL)
}

var _ Resolver = new(Cached)
