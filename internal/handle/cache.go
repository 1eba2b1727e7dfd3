package handle

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	klog "github.com/Klingon-tech/klingpay/internal/log"
	"github.com/Klingon-tech/klingpay/internal/metrics"
	"github.com/Klingon-tech/klingpay/internal/storage"
	"github.com/rs/zerolog"
)

// Default cache lifetimes.
const (
	DefaultTTL         = 10 * time.Minute
	DefaultNegativeTTL = time.Minute
)

// notFoundMarker is stored for queries the directory does not know.
var notFoundMarker = []byte("-")

// CachedResolver fronts a Resolver with a short-lived Store. Misses are
// cached for NegativeTTL; errors are not cached.
type CachedResolver struct {
	next        Resolver
	store       storage.Store
	TTL         time.Duration
	NegativeTTL time.Duration

	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewCachedResolver caches next's answers in store. m may be nil.
func NewCachedResolver(next Resolver, store storage.Store, m *metrics.Metrics) *CachedResolver {
	return &CachedResolver{
		next:        next,
		store:       store,
		TTL:         DefaultTTL,
		NegativeTTL: DefaultNegativeTTL,
		metrics:     m,
		logger:      klog.Resolver,
	}
}

// Resolve implements Resolver.
func (c *CachedResolver) Resolve(ctx context.Context, handleOrAddress string) (*Profile, error) {
	key := []byte(Normalize(handleOrAddress))
	if len(key) == 0 {
		return nil, ErrNotFound
	}

	if data, err := c.store.Get(key); err == nil {
		if string(data) == string(notFoundMarker) {
			c.metrics.RecordLookup("hit")
			return nil, ErrNotFound
		}
		var p Profile
		if err := json.Unmarshal(data, &p); err == nil {
			c.metrics.RecordLookup("hit")
			return &p, nil
		}
		c.logger.Warn().Str("key", string(key)).Msg("Dropping undecodable cache entry")
		c.store.Delete(key)
	} else if !errors.Is(err, storage.ErrNotFound) {
		c.logger.Warn().Err(err).Msg("Handle cache read failed")
	}

	p, err := c.next.Resolve(ctx, handleOrAddress)
	switch {
	case errors.Is(err, ErrNotFound):
		c.metrics.RecordLookup("not_found")
		c.put(key, notFoundMarker, c.NegativeTTL)
		return nil, err
	case err != nil:
		c.metrics.RecordLookup("error")
		return nil, err
	}

	c.metrics.RecordLookup("miss")
	if data, err := json.Marshal(p); err == nil {
		c.put(key, data, c.TTL)
	}
	return p, nil
}

// Purge drops every cached entry.
func (c *CachedResolver) Purge() error {
	return c.store.DeletePrefix(nil)
}

func (c *CachedResolver) put(key, val []byte, ttl time.Duration) {
	if err := c.store.Put(key, val, ttl); err != nil {
		c.logger.Warn().Err(err).Msg("Handle cache write failed")
	}
}
