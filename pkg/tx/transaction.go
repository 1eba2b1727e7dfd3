// Package tx defines the ledger transaction body, its size and fee model.
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingpay/pkg/crypto"
	"github.com/Klingon-tech/klingpay/pkg/types"
)

// Transaction is an unsigned or signed ledger transaction.
type Transaction struct {
	Version uint32   `json:"version"`
	Inputs  []Input  `json:"inputs"`
	Outputs []Output `json:"outputs"`
	// TTL is the last slot at which the transaction may be included.
	// Zero means no expiry.
	TTL uint64 `json:"ttl"`
}

// Input spends a previous output. Address is the owner of the spent output
// and selects the signing key; it is not part of the signed body.
type Input struct {
	PrevOut   types.Outpoint `json:"prevout"`
	Address   types.Address  `json:"address"`
	Signature []byte         `json:"-"`
	PubKey    []byte         `json:"-"`
}

type inputJSON struct {
	PrevOut   types.Outpoint `json:"prevout"`
	Address   types.Address  `json:"address"`
	Signature string         `json:"signature,omitempty"`
	PubKey    string         `json:"pubkey,omitempty"`
}

// MarshalJSON encodes the witness fields as hex.
func (in Input) MarshalJSON() ([]byte, error) {
	return json.Marshal(inputJSON{
		PrevOut:   in.PrevOut,
		Address:   in.Address,
		Signature: hex.EncodeToString(in.Signature),
		PubKey:    hex.EncodeToString(in.PubKey),
	})
}

// UnmarshalJSON decodes hex witness fields.
func (in *Input) UnmarshalJSON(data []byte) error {
	var j inputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	sig, err := hex.DecodeString(j.Signature)
	if err != nil {
		return fmt.Errorf("signature: %w", err)
	}
	pub, err := hex.DecodeString(j.PubKey)
	if err != nil {
		return fmt.Errorf("pubkey: %w", err)
	}
	*in = Input{PrevOut: j.PrevOut, Address: j.Address}
	if len(sig) > 0 {
		in.Signature = sig
	}
	if len(pub) > 0 {
		in.PubKey = pub
	}
	return nil
}

// Output pays Value to Address. Assets marks an output that also carries
// auxiliary (non-coin) assets forwarded from the inputs.
type Output struct {
	Value   uint64        `json:"value"`
	Address types.Address `json:"address"`
	Assets  bool          `json:"assets,omitempty"`
}

// Serialized sizes of the body pieces.
const (
	headerSize  = 4 + 4 + 4 + 8 // version + input count + output count + ttl
	inputSize   = types.HashSize + 4
	outputSize  = 8 + types.AddressSize + 1
	witnessSize = crypto.SignatureSize + crypto.PubKeySize
)

// Hash computes the transaction ID (BLAKE3 of the signing bytes).
func (tx *Transaction) Hash() types.Hash {
	return crypto.Hash(tx.SigningBytes())
}

// SigningBytes returns the canonical body encoding that inputs sign:
// version(4) | n_in(4) | [txid(32) index(4)]... | n_out(4) | [value(8) addr(20) assets(1)]... | ttl(8)
func (tx *Transaction) SigningBytes() []byte {
	buf := make([]byte, 0, headerSize+inputSize*len(tx.Inputs)+outputSize*len(tx.Outputs))

	buf = binary.LittleEndian.AppendUint32(buf, tx.Version)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Inputs)))
	for _, in := range tx.Inputs {
		buf = append(buf, in.PrevOut.TxID[:]...)
		buf = binary.LittleEndian.AppendUint32(buf, in.PrevOut.Index)
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(tx.Outputs)))
	for _, out := range tx.Outputs {
		buf = binary.LittleEndian.AppendUint64(buf, out.Value)
		buf = append(buf, out.Address[:]...)
		if out.Assets {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	}

	return binary.LittleEndian.AppendUint64(buf, tx.TTL)
}

// Size returns the serialized size including one witness per input, whether
// or not the inputs are signed yet. Fees are computed from this size.
func (tx *Transaction) Size() int {
	return EstimateSize(len(tx.Inputs), len(tx.Outputs))
}

// EstimateSize returns the signed size of a transaction with the given
// number of inputs and outputs.
func EstimateSize(numInputs, numOutputs int) int {
	return headerSize + (inputSize+witnessSize)*numInputs + outputSize*numOutputs
}

// TotalOutputValue returns the sum of all output values.
func (tx *Transaction) TotalOutputValue() (uint64, error) {
	var total uint64
	for _, out := range tx.Outputs {
		if total > math.MaxUint64-out.Value {
			return 0, fmt.Errorf("output value overflow")
		}
		total += out.Value
	}
	return total, nil
}
