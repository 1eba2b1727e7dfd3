package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingpay/pkg/crypto"
	"github.com/Klingon-tech/klingpay/pkg/types"
)

// Validation errors.
var (
	ErrNoInputs       = errors.New("transaction has no inputs")
	ErrNoOutputs      = errors.New("transaction has no outputs")
	ErrDuplicateInput = errors.New("duplicate input")
	ErrOutputOverflow = errors.New("output values overflow")
	ErrZeroOutput     = errors.New("output value is zero")
	ErrMissingSig     = errors.New("input missing signature")
	ErrInvalidSig     = errors.New("invalid signature")
	ErrWrongSigner    = errors.New("public key does not own input address")
)

// Validate checks body structure: inputs and outputs present, no duplicate
// inputs, non-zero outputs, no overflow. Signatures are not required.
func (tx *Transaction) Validate() error {
	if len(tx.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(tx.Outputs) == 0 {
		return ErrNoOutputs
	}

	seen := make(map[types.Outpoint]struct{}, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if _, dup := seen[in.PrevOut]; dup {
			return fmt.Errorf("input %d: %w", i, ErrDuplicateInput)
		}
		seen[in.PrevOut] = struct{}{}
	}

	var total uint64
	for i, out := range tx.Outputs {
		if out.Value == 0 {
			return fmt.Errorf("output %d: %w", i, ErrZeroOutput)
		}
		if total > math.MaxUint64-out.Value {
			return fmt.Errorf("output %d: %w", i, ErrOutputOverflow)
		}
		total += out.Value
	}
	return nil
}

// VerifySignatures checks every input carries a valid signature from the key
// owning its address.
func (tx *Transaction) VerifySignatures() error {
	hash := tx.Hash()
	for i, in := range tx.Inputs {
		if len(in.Signature) == 0 || len(in.PubKey) == 0 {
			return fmt.Errorf("input %d: %w", i, ErrMissingSig)
		}
		if crypto.AddressFromPubKey(in.PubKey) != in.Address {
			return fmt.Errorf("input %d: %w", i, ErrWrongSigner)
		}
		if !crypto.VerifySignature(hash[:], in.Signature, in.PubKey) {
			return fmt.Errorf("input %d: %w", i, ErrInvalidSig)
		}
	}
	return nil
}
