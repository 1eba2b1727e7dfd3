package tx

// FeeParams is the ledger's linear fee model and output rules as reported by
// the node, with the slot they were read at.
type FeeParams struct {
	// Constant is the fixed part of every fee, in minor units.
	Constant uint64 `json:"constant"`
	// Coefficient is the per-byte part of the fee.
	Coefficient uint64 `json:"coefficient"`
	// MaxTxSize is the largest accepted transaction in bytes. Zero disables
	// the check.
	MaxTxSize int `json:"max_tx_size"`
	// MinUTXOValue is the smallest value any output may carry.
	MinUTXOValue uint64 `json:"min_utxo_value"`
	// Slot is the chain tip slot when the parameters were read.
	Slot uint64 `json:"slot"`
}

// Padded returns a copy with padding added to the constant term. The
// coefficient is left untouched.
func (p FeeParams) Padded(padding uint64) FeeParams {
	p.Constant += padding
	return p
}

// Fee returns the fee for a transaction of size bytes.
func (p FeeParams) Fee(size int) uint64 {
	return p.Constant + p.Coefficient*uint64(size)
}

// MinFee returns the fee the model demands for a fully built transaction.
func (p FeeParams) MinFee(transaction *Transaction) uint64 {
	return p.Fee(transaction.Size())
}
