package types

import (
	"cmp"
	"fmt"
)

// Outpoint references a specific output of a previous transaction.
type Outpoint struct {
	TxID  Hash   `json:"txid"`
	Index uint32 `json:"index"`
}

// String returns "txid:index".
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID, o.Index)
}

// Compare orders outpoints by transaction hash, then output index.
func (o Outpoint) Compare(other Outpoint) int {
	if c := o.TxID.Compare(other.TxID); c != 0 {
		return c
	}
	return cmp.Compare(o.Index, other.Index)
}
