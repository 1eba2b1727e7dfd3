package wallet

import (
	"context"
	"fmt"
	"iter"

	"github.com/Klingon-tech/klingpay/pkg/types"
)

// UTXO is an unspent output owned by one of the wallet's addresses.
type UTXO struct {
	Outpoint types.Outpoint
	Address  types.Address
	Value    uint64
	// Assets marks outputs that also carry non-coin assets.
	Assets bool
}

// UTXOSource lists unspent outputs page by page. The sequence is finite and
// cannot be restarted.
type UTXOSource interface {
	UTXOPages(ctx context.Context, addrs []types.Address) iter.Seq2[[]UTXO, error]
}

// DrainUTXOs consumes every page of seq. Outputs repeated across pages are
// kept once. The first page error aborts the drain.
func DrainUTXOs(seq iter.Seq2[[]UTXO, error]) ([]UTXO, error) {
	var out []UTXO
	seen := make(map[types.Outpoint]struct{})
	page := 0
	for utxos, err := range seq {
		if err != nil {
			return nil, fmt.Errorf("utxo page %d: %w", page, err)
		}
		for _, u := range utxos {
			if _, dup := seen[u.Outpoint]; dup {
				continue
			}
			seen[u.Outpoint] = struct{}{}
			out = append(out, u)
		}
		page++
	}
	return out, nil
}

// TotalValue sums the values of utxos. The result saturates at MaxUint64.
func TotalValue(utxos []UTXO) uint64 {
	var total uint64
	for _, u := range utxos {
		if total+u.Value < total {
			return ^uint64(0)
		}
		total += u.Value
	}
	return total
}
