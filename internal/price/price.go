// Package price converts coin amounts to fiat using a cached rate feed.
package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Klingon-tech/klingpay/internal/rpcclient"
	"github.com/Klingon-tech/klingpay/pkg/types"
	"github.com/shopspring/decimal"
)

// ErrUnknownCurrency is returned for currencies the feed does not quote.
var ErrUnknownCurrency = errors.New("unknown currency")

// MethodGetPrice takes {"currency": "USD"} and returns a Quote or null.
const MethodGetPrice = "price_get"

// FiatPlaces is the precision of converted amounts.
const FiatPlaces = 2

// Quote is the fiat value of one whole coin.
type Quote struct {
	Currency string          `json:"currency"`
	Rate     decimal.Decimal `json:"rate"`
	At       time.Time       `json:"at"`
}

// Fiat converts units of the smallest denomination to the quote currency,
// rounded to FiatPlaces.
func (q Quote) Fiat(units uint64) decimal.Decimal {
	return types.Coins(units).Mul(q.Rate).Round(FiatPlaces)
}

// Feed quotes coin prices.
type Feed interface {
	Price(ctx context.Context, currency string) (Quote, error)
}

// NormalizeCurrency upper-cases and trims an ISO currency code.
func NormalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

// RPCFeed reads prices from a JSON-RPC service.
type RPCFeed struct {
	client *rpcclient.Client
	now    func() time.Time
}

// NewRPCFeed returns a feed over client.
func NewRPCFeed(client *rpcclient.Client) *RPCFeed {
	return &RPCFeed{client: client, now: time.Now}
}

// Price implements Feed.
func (f *RPCFeed) Price(ctx context.Context, currency string) (Quote, error) {
	cur := NormalizeCurrency(currency)
	if cur == "" {
		return Quote{}, ErrUnknownCurrency
	}
	var raw json.RawMessage
	if err := f.client.Call(ctx, MethodGetPrice, map[string]string{"currency": cur}, &raw); err != nil {
		return Quote{}, fmt.Errorf("price %s: %w", cur, err)
	}
	if rpcclient.IsNullResult(raw) {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, cur)
	}
	var q Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return Quote{}, fmt.Errorf("decode quote: %w", err)
	}
	if q.Rate.IsNegative() {
		return Quote{}, fmt.Errorf("negative rate for %s", cur)
	}
	q.Currency = cur
	if q.At.IsZero() {
		q.At = f.now()
	}
	return q, nil
}
