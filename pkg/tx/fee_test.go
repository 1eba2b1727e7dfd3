package tx

import "testing"

func TestFeeParams_Fee(t *testing.T) {
	p := FeeParams{Constant: 155_381, Coefficient: 44}
	tests := []struct {
		name string
		size int
		want uint64
	}{
		{"empty", 0, 155_381},
		{"one byte", 1, 155_425},
		{"typical", 300, 155_381 + 44*300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Fee(tt.size); got != tt.want {
				t.Errorf("Fee(%d) = %d, want %d", tt.size, got, tt.want)
			}
		})
	}
}

func TestFeeParams_PaddedOnlyTouchesConstant(t *testing.T) {
	p := FeeParams{Constant: 1000, Coefficient: 10, MaxTxSize: 16384, MinUTXOValue: 1_000_000}
	padded := p.Padded(500)

	if padded.Constant != 1500 {
		t.Errorf("Constant = %d, want 1500", padded.Constant)
	}
	if padded.Coefficient != p.Coefficient || padded.MaxTxSize != p.MaxTxSize || padded.MinUTXOValue != p.MinUTXOValue {
		t.Errorf("padding changed other fields: %+v", padded)
	}
	if p.Constant != 1000 {
		t.Error("Padded must not mutate the receiver")
	}
	for _, size := range []int{0, 100, 4000} {
		if padded.Fee(size)-p.Fee(size) != 500 {
			t.Errorf("size %d: padding delta = %d, want 500", size, padded.Fee(size)-p.Fee(size))
		}
	}
}

func TestFeeParams_MinFee(t *testing.T) {
	transaction := sampleTx()
	p := FeeParams{Constant: 10, Coefficient: 2}
	if got, want := p.MinFee(transaction), 10+2*uint64(transaction.Size()); got != want {
		t.Errorf("MinFee = %d, want %d", got, want)
	}
}
