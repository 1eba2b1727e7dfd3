package tx

import (
	"fmt"

	"github.com/Klingon-tech/klingpay/pkg/crypto"
	"github.com/Klingon-tech/klingpay/pkg/types"
)

// Builder constructs transactions incrementally.
type Builder struct {
	tx *Transaction
}

// NewBuilder creates a new transaction builder.
func NewBuilder() *Builder {
	return &Builder{tx: &Transaction{Version: 1}}
}

// AddInput spends prevOut, owned by addr.
func (b *Builder) AddInput(prevOut types.Outpoint, addr types.Address) *Builder {
	b.tx.Inputs = append(b.tx.Inputs, Input{PrevOut: prevOut, Address: addr})
	return b
}

// AddOutput pays value to addr.
func (b *Builder) AddOutput(value uint64, addr types.Address) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, Output{Value: value, Address: addr})
	return b
}

// AddAssetOutput pays value to addr and carries the inputs' auxiliary assets.
func (b *Builder) AddAssetOutput(value uint64, addr types.Address) *Builder {
	b.tx.Outputs = append(b.tx.Outputs, Output{Value: value, Address: addr, Assets: true})
	return b
}

// SetTTL sets the expiry slot.
func (b *Builder) SetTTL(slot uint64) *Builder {
	b.tx.TTL = slot
	return b
}

// Build returns the constructed transaction. It does not validate.
func (b *Builder) Build() *Transaction {
	return b.tx
}

// SignMulti signs every input of transaction with the key of the address that
// owns it. A key signs the body once; inputs sharing an owner share the
// signature.
func SignMulti(transaction *Transaction, signers map[types.Address]*crypto.PrivateKey) error {
	hash := transaction.Hash()

	type sigPub struct {
		sig    []byte
		pubKey []byte
	}
	cache := make(map[types.Address]*sigPub, len(signers))

	for i := range transaction.Inputs {
		addr := transaction.Inputs[i].Address
		sp, ok := cache[addr]
		if !ok {
			key, found := signers[addr]
			if !found {
				return fmt.Errorf("no signer for address %s (input %d)", addr, i)
			}
			sig, err := key.Sign(hash[:])
			if err != nil {
				return fmt.Errorf("sign input %d: %w", i, err)
			}
			sp = &sigPub{sig: sig, pubKey: key.PublicKey()}
			cache[addr] = sp
		}
		transaction.Inputs[i].Signature = sp.sig
		transaction.Inputs[i].PubKey = sp.pubKey
	}
	return nil
}
