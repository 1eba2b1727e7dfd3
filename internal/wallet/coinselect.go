package wallet

import (
	"cmp"
	"slices"
)

// SortLargestFirst returns a copy of utxos ordered by value, largest first.
// Zero-value outputs are dropped. Equal values are ordered by outpoint so the
// result is deterministic for any input order.
func SortLargestFirst(utxos []UTXO) []UTXO {
	out := make([]UTXO, 0, len(utxos))
	for _, u := range utxos {
		if u.Value > 0 {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b UTXO) int {
		if c := cmp.Compare(b.Value, a.Value); c != 0 {
			return c
		}
		return a.Outpoint.Compare(b.Outpoint)
	})
	return out
}
