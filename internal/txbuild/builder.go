// Package txbuild assembles balanced candidate transactions from a UTXO
// snapshot: payment, commission, tip and change outputs under a padded
// linear fee.
package txbuild

import (
	"fmt"

	"github.com/Klingon-tech/klingpay/internal/commission"
	klog "github.com/Klingon-tech/klingpay/internal/log"
	"github.com/Klingon-tech/klingpay/internal/wallet"
	"github.com/Klingon-tech/klingpay/pkg/tx"
	"github.com/Klingon-tech/klingpay/pkg/types"
	"github.com/rs/zerolog"
)

// DefaultTipFloor is the smallest tip that gets its own output.
const DefaultTipFloor = types.Coin

// Builder turns a UTXO set and a payment request into a Candidate. It holds
// no mutable state; one Builder may serve concurrent callers.
type Builder struct {
	Fee        tx.FeeParams
	FeePadding uint64
	Commission commission.Policy
	FeeAddress types.Address
	TipAddress types.Address
	TipFloor   uint64
	// TTLWindow, when nonzero, sets the body's expiry to Fee.Slot+TTLWindow.
	TTLWindow uint64

	logger zerolog.Logger
}

// New returns a Builder with the default tip floor.
func New(fee tx.FeeParams, padding uint64, policy commission.Policy, feeAddr, tipAddr types.Address) *Builder {
	return &Builder{
		Fee:        fee,
		FeePadding: padding,
		Commission: policy,
		FeeAddress: feeAddr,
		TipAddress: tipAddr,
		TipFloor:   DefaultTipFloor,
		logger:     klog.Builder,
	}
}

// Candidate is a balanced, unsigned transaction with its accounting.
type Candidate struct {
	Tx     *tx.Transaction
	Inputs []wallet.UTXO
	// Fee is the network fee: inputs minus outputs.
	Fee        uint64
	Commission uint64
	// Tip is the tip actually paid; zero when it fell below the floor.
	Tip uint64
	// Change is the value of the change output, zero when there is none.
	Change uint64
	// Required is the input value the payment consumes, change excluded.
	Required uint64
}

// InputTotal sums the selected inputs.
func (c *Candidate) InputTotal() uint64 {
	return wallet.TotalValue(c.Inputs)
}

// Signers returns the distinct owners of the selected inputs in first-use
// order. Only these keys are needed to sign.
func (c *Candidate) Signers() []types.Address {
	seen := make(map[types.Address]struct{}, len(c.Inputs))
	var out []types.Address
	for _, u := range c.Inputs {
		if _, ok := seen[u.Address]; ok {
			continue
		}
		seen[u.Address] = struct{}{}
		out = append(out, u.Address)
	}
	return out
}

// Build pays send to payTo with the commission and tip on top. Required is
// send + commission + tip + fee.
func (b *Builder) Build(utxos []wallet.UTXO, change types.Address, payTo string, send, tip uint64) (*Candidate, error) {
	dest, err := b.parse(payTo, change)
	if err != nil {
		return nil, err
	}

	fee := b.Policy().Commission(toSigned(send))
	paidTip := b.honoredTip(tip)

	outputs := []tx.Output{{Value: send, Address: dest}}
	if fee > 0 {
		outputs = append(outputs, tx.Output{Value: fee, Address: b.FeeAddress})
	}
	if paidTip > 0 {
		outputs = append(outputs, tx.Output{Value: paidTip, Address: b.TipAddress})
	}

	c, err := b.balance(utxos, outputs, change)
	if err != nil {
		return nil, err
	}
	c.Commission = fee
	c.Tip = paidTip
	c.Required = send + fee + paidTip + c.Fee
	b.logger.Debug().
		Uint64("send", send).
		Uint64("commission", fee).
		Uint64("tip", paidTip).
		Uint64("fee", c.Fee).
		Int("inputs", len(c.Inputs)).
		Msg("Candidate built")
	return c, nil
}

// BuildMerchant pays a store. The commission comes out of the merchant's
// proceeds and the tip is added to them; the payer covers outputs plus fee.
func (b *Builder) BuildMerchant(utxos []wallet.UTXO, change types.Address, merchant string, base, tip uint64) (*Candidate, error) {
	dest, err := b.parse(merchant, change)
	if err != nil {
		return nil, err
	}

	fee := b.Policy().Commission(toSigned(base))
	var net uint64
	if base > fee {
		net = base - fee
	}
	if net+tip < net {
		return nil, &Error{Reason: ReasonInsufficientInputs, Available: wallet.TotalValue(utxos), Required: ^uint64(0)}
	}

	outputs := []tx.Output{{Value: net + tip, Address: dest}}
	if fee > 0 {
		outputs = append(outputs, tx.Output{Value: fee, Address: b.FeeAddress})
	}

	c, err := b.balance(utxos, outputs, change)
	if err != nil {
		return nil, err
	}
	c.Commission = fee
	c.Tip = tip
	c.Required = sumOutputs(outputs) + c.Fee
	b.logger.Debug().
		Uint64("base", base).
		Uint64("merchant_out", net+tip).
		Uint64("commission", fee).
		Uint64("fee", c.Fee).
		Msg("Merchant candidate built")
	return c, nil
}

// Policy is the commission policy builds charge: the configured one with its
// floor raised to the chain's minimum output value.
func (b *Builder) Policy() commission.Policy {
	return b.Commission.WithFloor(b.Fee.MinUTXOValue)
}

// EffectiveTipFloor is the smallest tip honored: the configured floor or the
// chain's minimum output value, whichever is larger.
func (b *Builder) EffectiveTipFloor() uint64 {
	return max(b.TipFloor, b.Fee.MinUTXOValue)
}

// EstimateFee returns the padded fee of a body with the given shape.
func (b *Builder) EstimateFee(inputs, outputs int) uint64 {
	return b.Fee.Padded(b.FeePadding).Fee(tx.EstimateSize(inputs, outputs))
}

func (b *Builder) parse(addr string, change types.Address) (types.Address, error) {
	dest, err := types.ParseAddress(addr)
	if err != nil {
		return types.Address{}, &Error{Reason: ReasonInvalidAddress, Err: err}
	}
	if change.IsZero() {
		return types.Address{}, &Error{Reason: ReasonInvalidAddress, Err: fmt.Errorf("no change address")}
	}
	return dest, nil
}

func (b *Builder) honoredTip(tip uint64) uint64 {
	if tip == 0 || tip < b.EffectiveTipFloor() {
		return 0
	}
	return tip
}

// balance selects inputs largest-first until the outputs and the padded fee
// are covered, then adds change. Change below the chain minimum pulls in
// more inputs; when none are left it goes to the fee instead.
func (b *Builder) balance(utxos []wallet.UTXO, outputs []tx.Output, change types.Address) (*Candidate, error) {
	for i, out := range outputs {
		if out.Value == 0 || out.Value < b.Fee.MinUTXOValue {
			return nil, &Error{
				Reason: ReasonOutputBelowMinimum,
				Err:    fmt.Errorf("output %d: %d < %d", i, out.Value, b.Fee.MinUTXOValue),
			}
		}
	}

	sorted := wallet.SortLargestFirst(utxos)
	if len(sorted) == 0 {
		return nil, &Error{Reason: ReasonNoInputs}
	}

	params := b.Fee.Padded(b.FeePadding)
	outSum := sumOutputs(outputs)

	var (
		inSum    uint64
		assets   bool
		fallback *Candidate
	)
	for n := 1; n <= len(sorted); n++ {
		u := sorted[n-1]
		inSum += u.Value
		assets = assets || u.Assets
		selected := sorted[:n]

		sizeNoChange := tx.EstimateSize(n, len(outputs))
		if b.Fee.MaxTxSize > 0 && sizeNoChange > b.Fee.MaxTxSize {
			break
		}

		feeNoChange := params.Fee(sizeNoChange)
		if inSum < outSum || inSum-outSum < feeNoChange {
			continue
		}
		left := inSum - outSum - feeNoChange
		if left == 0 && !assets {
			return b.candidate(selected, outputs, nil, feeNoChange), nil
		}

		sizeChange := tx.EstimateSize(n, len(outputs)+1)
		feeChange := params.Fee(sizeChange)
		fits := b.Fee.MaxTxSize == 0 || sizeChange <= b.Fee.MaxTxSize
		if fits && inSum-outSum >= feeChange {
			value := inSum - outSum - feeChange
			if value > 0 && value >= b.Fee.MinUTXOValue {
				out := &tx.Output{Value: value, Address: change, Assets: assets}
				return b.candidate(selected, outputs, out, feeChange), nil
			}
		}

		// Remember the smallest selection whose remainder can be burned.
		if fallback == nil && !assets {
			fallback = b.candidate(selected, outputs, nil, inSum-outSum)
		}
	}

	if fallback != nil {
		b.logger.Debug().Uint64("fee", fallback.Fee).Msg("Sub-minimum change absorbed into fee")
		return fallback, nil
	}
	return nil, b.infeasible(sorted, outputs, params)
}

func (b *Builder) infeasible(sorted []wallet.UTXO, outputs []tx.Output, params tx.FeeParams) error {
	size := tx.EstimateSize(len(sorted), len(outputs))
	have := wallet.TotalValue(sorted)
	need := sumOutputs(outputs)
	if fee := params.Fee(size); need+fee >= need {
		need += fee
	}
	switch {
	case have < need:
		return &Error{Reason: ReasonInsufficientInputs, Available: have, Required: need}
	case b.Fee.MaxTxSize > 0 && size > b.Fee.MaxTxSize:
		return &Error{Reason: ReasonTxTooLarge, Available: have, Required: need,
			Err: fmt.Errorf("%d inputs need %d bytes, limit %d", len(sorted), size, b.Fee.MaxTxSize)}
	default:
		return &Error{Reason: ReasonOutputBelowMinimum, Err: fmt.Errorf("asset-carrying change below minimum")}
	}
}

func (b *Builder) candidate(inputs []wallet.UTXO, outputs []tx.Output, change *tx.Output, fee uint64) *Candidate {
	tb := tx.NewBuilder()
	for _, u := range inputs {
		tb.AddInput(u.Outpoint, u.Address)
	}
	for _, out := range outputs {
		tb.AddOutput(out.Value, out.Address)
	}
	c := &Candidate{Inputs: append([]wallet.UTXO(nil), inputs...), Fee: fee}
	if change != nil {
		if change.Assets {
			tb.AddAssetOutput(change.Value, change.Address)
		} else {
			tb.AddOutput(change.Value, change.Address)
		}
		c.Change = change.Value
	}
	if b.TTLWindow > 0 && b.Fee.Slot > 0 {
		tb.SetTTL(b.Fee.Slot + b.TTLWindow)
	}
	c.Tx = tb.Build()
	return c
}

func sumOutputs(outputs []tx.Output) uint64 {
	var total uint64
	for _, out := range outputs {
		if total+out.Value < total {
			return ^uint64(0)
		}
		total += out.Value
	}
	return total
}

func toSigned(v uint64) int64 {
	if v > 1<<63-1 {
		return 1<<63 - 1
	}
	return int64(v)
}
