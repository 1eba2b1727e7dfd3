package price

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

// DefaultTTL is how long a quote is served from the cache.
const DefaultTTL = time.Minute

// Cache fronts a Feed with a short-lived Store.
type Cache struct {
	feed  Feed
	store storage.Store
	TTL   time.Duration

	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewCache caches feed's quotes in store. m may be nil.
func NewCache(feed Feed, store storage.Store, m *metrics.Metrics) *Cache {
	return &Cache{
		feed:    feed,
		store:   store,
		TTL:     DefaultTTL,
		metrics: m,
		logger:  klog.Price,
	}
}

// Price implements Feed.
func (c *Cache) Price(ctx context.Context, currency string) (Quote, error) {
	cur := NormalizeCurrency(currency)
	if cur == "" {
		return Quote{}, ErrUnknownCurrency
	}

	data, err := c.store.Get([]byte(cur))
	if err == nil {
		var q Quote
		if err := json.Unmarshal(data, &q); err == nil {
			c.metrics.RecordPriceLookup("hit")
			return q, nil
		}
		c.store.Delete([]byte(cur))
	} else if !errors.Is(err, storage.ErrNotFound) {
		c.logger.Warn().Err(err).Msg("Price cache read failed")
	}

	return c.fetch(ctx, cur)
}

// Refresh re-reads each currency from the feed, one after another, and
// returns the first error after trying them all.
func (c *Cache) Refresh(ctx context.Context, currencies ...string) error {
	var first error
	for _, cur := range currencies {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := c.fetch(ctx, NormalizeCurrency(cur)); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (c *Cache) fetch(ctx context.Context, cur string) (Quote, error) {
	q, err := c.feed.Price(ctx, cur)
	if err != nil {
		c.metrics.RecordPriceLookup("error")
		return Quote{}, err
	}
	c.metrics.RecordPriceLookup("miss")

	data, err := json.Marshal(q)
	if err == nil {
		err = c.store.Put([]byte(cur), data, c.TTL)
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("currency", cur).Msg("Price cache write failed")
	}
	c.logger.Debug().Str("currency", cur).Str("rate", q.Rate.String()).Msg("Price refreshed")
	return q, nil
}
