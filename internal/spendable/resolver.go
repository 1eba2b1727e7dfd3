// Package spendable finds the largest amount a UTXO set can pay once
// commission, tip and the padded network fee are taken into account.
package spendable

import (
	"context"

	klog "github.com/Klingon-tech/klingpay/internal/log"
	"github.com/Klingon-tech/klingpay/internal/metrics"
	"github.com/Klingon-tech/klingpay/internal/txbuild"
	"github.com/Klingon-tech/klingpay/internal/wallet"
	"github.com/Klingon-tech/klingpay/pkg/types"
	"github.com/rs/zerolog"
)

// Search returns the largest v in [0, high] for which feasible(v) holds,
// assuming feasibility only ever flips from true to false as v grows. It
// returns 0 when nothing is feasible. The context is checked before every
// step.
func Search(ctx context.Context, high uint64, feasible func(uint64) bool) (best uint64, steps int, err error) {
	low := uint64(0)
	for low <= high {
		if err := ctx.Err(); err != nil {
			return 0, steps, err
		}
		mid := low + (high-low)/2
		steps++
		if feasible(mid) {
			best = mid
			if mid == high {
				break
			}
			low = mid + 1
		} else {
			if mid == 0 {
				break
			}
			high = mid - 1
		}
	}
	return best, steps, nil
}

// Resolver answers max-sendable queries by probing a Builder.
type Resolver struct {
	builder *txbuild.Builder
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// New returns a Resolver over b. m may be nil.
func New(b *txbuild.Builder, m *metrics.Metrics) *Resolver {
	return &Resolver{builder: b, metrics: m, logger: klog.Builder}
}

// MaxSendable returns the largest send amount to dest that builds with the
// given tip. Any build failure counts as infeasible.
func (r *Resolver) MaxSendable(ctx context.Context, utxos []wallet.UTXO, change types.Address, dest string, tip uint64) (uint64, error) {
	return r.search(ctx, "standard", utxos, func(v uint64) error {
		_, err := r.builder.Build(utxos, change, dest, v, tip)
		return err
	})
}

// MaxMerchant returns the largest merchant base amount that builds with the
// given tip.
func (r *Resolver) MaxMerchant(ctx context.Context, utxos []wallet.UTXO, change types.Address, merchant string, tip uint64) (uint64, error) {
	return r.search(ctx, "merchant", utxos, func(v uint64) error {
		_, err := r.builder.BuildMerchant(utxos, change, merchant, v, tip)
		return err
	})
}

func (r *Resolver) search(ctx context.Context, variant string, utxos []wallet.UTXO, build func(uint64) error) (uint64, error) {
	total := wallet.TotalValue(utxos)
	if total == 0 {
		return 0, nil
	}
	best, steps, err := Search(ctx, total, func(v uint64) bool {
		err := build(v)
		r.metrics.RecordBuild(variant, err)
		return err == nil
	})
	r.metrics.RecordSearch(steps)
	if err != nil {
		return 0, err
	}
	r.logger.Debug().
		Str("variant", variant).
		Uint64("total", total).
		Uint64("max", best).
		Int("steps", steps).
		Msg("Max sendable resolved")
	return best, nil
}
