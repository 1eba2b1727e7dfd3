// Package history turns raw ledger transactions into per-wallet rows: net
// movement, counterparty, running balance.
package history

import (
	"cmp"
	"context"
	"math"
	"slices"
	"time"

	"github.com/Klingon-tech/klingpay/internal/handle"
	klog "github.com/Klingon-tech/klingpay/internal/log"
	"github.com/Klingon-tech/klingpay/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency caps parallel counterparty lookups.
const DefaultConcurrency = 8

// Movement is one (address, amount) leg of a raw transaction.
type Movement struct {
	Address types.Address `json:"address"`
	Amount  uint64        `json:"amount"`
}

// RawTransaction is a ledger transaction as the chain reports it.
type RawTransaction struct {
	Hash      types.Hash `json:"hash"`
	Timestamp time.Time  `json:"timestamp"`
	Height    uint64     `json:"height"`
	Inputs    []Movement `json:"inputs"`
	Outputs   []Movement `json:"outputs"`
}

// Row is one displayable history entry.
type Row struct {
	ID       types.Hash
	Date     time.Time
	Height   uint64
	Outgoing bool
	// Amount is the absolute net movement.
	Amount uint64
	// Counterparty is valid only when HasCounterparty is set.
	Counterparty    types.Address
	HasCounterparty bool
	// Name and AvatarURL come from the directory when it knows the
	// counterparty.
	Name      string
	AvatarURL string
	// BalanceAfter is the wallet balance right after this transaction.
	BalanceAfter int64

	net int64
}

// Net returns the signed movement of the row.
func (r Row) Net() int64 {
	return r.net
}

// Reconstructor builds rows from raw transactions.
type Reconstructor struct {
	resolver    handle.Resolver
	concurrency int
	logger      zerolog.Logger
}

// NewReconstructor returns a Reconstructor that names counterparties with
// resolver, at most concurrency lookups at a time. A nil resolver skips
// naming.
func NewReconstructor(resolver handle.Resolver, concurrency int) *Reconstructor {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Reconstructor{resolver: resolver, concurrency: concurrency, logger: klog.History}
}

// Reconstruct computes rows for the wallet owning owned, whose balance is
// currentBalance now. Transactions that do not move the wallet's balance
// are dropped. Rows are newest first.
func (r *Reconstructor) Reconstruct(ctx context.Context, raw []RawTransaction, owned map[types.Address]bool, currentBalance int64) ([]Row, error) {
	rows := make([]Row, 0, len(raw))
	seen := make(map[types.Hash]struct{}, len(raw))
	for _, t := range raw {
		if _, dup := seen[t.Hash]; dup {
			continue
		}
		seen[t.Hash] = struct{}{}

		net := netMovement(t, owned)
		if net == 0 {
			continue
		}
		row := Row{
			ID:       t.Hash,
			Date:     t.Timestamp,
			Height:   t.Height,
			Outgoing: net < 0,
			Amount:   absU64(net),
			net:      net,
		}
		row.Counterparty, row.HasCounterparty = counterparty(t, owned, row.Outgoing)
		rows = append(rows, row)
	}

	slices.SortFunc(rows, compareRows)

	running := currentBalance
	for i := range rows {
		rows[i].BalanceAfter = running
		running -= rows[i].net
	}

	if err := r.resolve(ctx, rows); err != nil {
		return nil, err
	}
	r.logger.Debug().Int("raw", len(raw)).Int("rows", len(rows)).Msg("History reconstructed")
	return rows, nil
}

// compareRows orders by height descending, incoming before outgoing within
// a height, then timestamp ascending, then hash.
func compareRows(a, b Row) int {
	if c := cmp.Compare(b.Height, a.Height); c != 0 {
		return c
	}
	if a.Outgoing != b.Outgoing {
		if !a.Outgoing {
			return -1
		}
		return 1
	}
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	return a.ID.Compare(b.ID)
}

// netMovement is owned outputs minus owned inputs. Each side saturates at
// math.MaxInt64.
func netMovement(t RawTransaction, owned map[types.Address]bool) int64 {
	var in, out int64
	for _, m := range t.Outputs {
		if owned[m.Address] {
			out = addSaturating(out, m.Amount)
		}
	}
	for _, m := range t.Inputs {
		if owned[m.Address] {
			in = addSaturating(in, m.Amount)
		}
	}
	return out - in
}

// addSaturating adds v to a non-negative sum, stopping at math.MaxInt64.
func addSaturating(sum int64, v uint64) int64 {
	if v > uint64(math.MaxInt64-sum) {
		return math.MaxInt64
	}
	return sum + int64(v)
}

// counterparty picks the first foreign address on the side opposite the
// wallet's, then any foreign output, then any foreign input.
func counterparty(t RawTransaction, owned map[types.Address]bool, outgoing bool) (types.Address, bool) {
	opposite, other := t.Inputs, t.Outputs
	if outgoing {
		opposite, other = t.Outputs, t.Inputs
	}
	for _, side := range [][]Movement{opposite, t.Outputs, other} {
		for _, m := range side {
			if !owned[m.Address] {
				return m.Address, true
			}
		}
	}
	return types.Address{}, false
}

// resolve names counterparties concurrently. Lookup failures leave the bare
// address. Each distinct address is looked up once.
func (r *Reconstructor) resolve(ctx context.Context, rows []Row) error {
	if r.resolver == nil {
		return nil
	}
	byAddr := make(map[types.Address][]int)
	for i, row := range rows {
		if row.HasCounterparty {
			byAddr[row.Counterparty] = append(byAddr[row.Counterparty], i)
		}
	}

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for addr, idxs := range byAddr {
		g.Go(func() error {
			p, err := r.resolver.Resolve(ctx, addr.String())
			if err != nil {
				r.logger.Debug().Err(err).Str("address", addr.String()).Msg("Counterparty not resolved")
				return nil
			}
			// Each goroutine owns a disjoint set of rows.
			for _, i := range idxs {
				rows[i].Name = p.DisplayName
				rows[i].AvatarURL = p.AvatarURL
			}
			return nil
		})
	}
	g.Wait()
	return ctx.Err()
}

func absU64(v int64) uint64 {
	if v < 0 {
		return uint64(-v)
	}
	return uint64(v)
}
