package tx

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingpay/pkg/crypto"
	"github.com/Klingon-tech/klingpay/pkg/types"
)

func TestValidate(t *testing.T) {
	op := types.Outpoint{TxID: types.Hash{0x01}}
	tests := []struct {
		name    string
		tx      *Transaction
		wantErr error
	}{
		{"valid", sampleTx(), nil},
		{"no inputs", &Transaction{Outputs: []Output{{Value: 1}}}, ErrNoInputs},
		{"no outputs", &Transaction{Inputs: []Input{{PrevOut: op}}}, ErrNoOutputs},
		{"duplicate input", &Transaction{
			Inputs:  []Input{{PrevOut: op}, {PrevOut: op}},
			Outputs: []Output{{Value: 1}},
		}, ErrDuplicateInput},
		{"zero output", &Transaction{
			Inputs:  []Input{{PrevOut: op}},
			Outputs: []Output{{Value: 0}},
		}, ErrZeroOutput},
		{"overflow", &Transaction{
			Inputs:  []Input{{PrevOut: op}},
			Outputs: []Output{{Value: ^uint64(0)}, {Value: 1}},
		}, ErrOutputOverflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tx.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSignMulti_PerAddressKeys(t *testing.T) {
	k1, _ := crypto.GenerateKey()
	k2, _ := crypto.GenerateKey()

	transaction := NewBuilder().
		AddInput(types.Outpoint{TxID: types.Hash{0x01}}, k1.Address()).
		AddInput(types.Outpoint{TxID: types.Hash{0x02}}, k2.Address()).
		AddInput(types.Outpoint{TxID: types.Hash{0x03}}, k1.Address()).
		AddOutput(100, types.Address{0xff}).
		Build()

	signers := map[types.Address]*crypto.PrivateKey{k1.Address(): k1, k2.Address(): k2}
	if err := SignMulti(transaction, signers); err != nil {
		t.Fatalf("SignMulti: %v", err)
	}
	if err := transaction.VerifySignatures(); err != nil {
		t.Fatalf("VerifySignatures: %v", err)
	}
	if string(transaction.Inputs[0].Signature) != string(transaction.Inputs[2].Signature) {
		t.Error("inputs owned by the same address should share one signature")
	}
}

func TestSignMulti_MissingSigner(t *testing.T) {
	k1, _ := crypto.GenerateKey()
	transaction := NewBuilder().
		AddInput(types.Outpoint{TxID: types.Hash{0x01}}, types.Address{0xde, 0xad}).
		AddOutput(100, types.Address{0xff}).
		Build()

	if err := SignMulti(transaction, map[types.Address]*crypto.PrivateKey{k1.Address(): k1}); err == nil {
		t.Error("input without a matching key should fail")
	}
}

func TestVerifySignatures_WrongSigner(t *testing.T) {
	k1, _ := crypto.GenerateKey()
	k2, _ := crypto.GenerateKey()
	transaction := NewBuilder().
		AddInput(types.Outpoint{TxID: types.Hash{0x01}}, k1.Address()).
		AddOutput(100, types.Address{0xff}).
		Build()

	// Sign with k2 under k1's address.
	if err := SignMulti(transaction, map[types.Address]*crypto.PrivateKey{k1.Address(): k2}); err != nil {
		t.Fatalf("SignMulti: %v", err)
	}
	if err := transaction.VerifySignatures(); !errors.Is(err, ErrWrongSigner) {
		t.Errorf("VerifySignatures() = %v, want ErrWrongSigner", err)
	}

	unsigned := sampleTx()
	if err := unsigned.VerifySignatures(); !errors.Is(err, ErrMissingSig) {
		t.Errorf("VerifySignatures() = %v, want ErrMissingSig", err)
	}
}
