package txbuild

import (
	"math/rand/v2"
	"testing"

	"github.com/Klingon-tech/klingpay/internal/commission"
	"github.com/Klingon-tech/klingpay/internal/wallet"
	"github.com/Klingon-tech/klingpay/pkg/tx"
	"github.com/Klingon-tech/klingpay/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	addrA      = types.Address{0xa}
	addrB      = types.Address{0xb}
	changeAddr = types.Address{0xc}
	payee      = types.Address{0xd}
	feeAddr    = types.Address{0xe}
	tipAddr    = types.Address{0xf}
)

// Size of a body is 20 + 133 per input + 29 per output; with these
// parameters the padded fee is 1500 + 10 per byte.
func testParams() tx.FeeParams {
	return tx.FeeParams{Constant: 1000, Coefficient: 10, MinUTXOValue: 1000}
}

func testBuilder(rateBps uint64) *Builder {
	return New(testParams(), 500, commission.Policy{RateBps: rateBps, Floor: 1000}, feeAddr, tipAddr)
}

func utxo(id byte, owner types.Address, value uint64) wallet.UTXO {
	var h types.Hash
	h[0] = id
	return wallet.UTXO{Outpoint: types.Outpoint{TxID: h, Index: 0}, Address: owner, Value: value}
}

func requireBalanced(t *testing.T, c *Candidate) {
	t.Helper()
	outs, err := c.Tx.TotalOutputValue()
	require.NoError(t, err)
	require.Equal(t, c.InputTotal(), outs+c.Fee, "sum(outputs)+fee != sum(inputs)")
	require.Len(t, c.Tx.Inputs, len(c.Inputs))
	require.NoError(t, c.Tx.Validate())
}

func TestBuild_PaymentCommissionChange(t *testing.T) {
	b := testBuilder(100)
	utxos := []wallet.UTXO{utxo(1, addrA, 5_000_000), utxo(2, addrB, 5_000_000)}

	c, err := b.Build(utxos, changeAddr, payee.String(), 1_000_000, 0)
	require.NoError(t, err)
	requireBalanced(t, c)

	assert.Equal(t, uint64(10_000), c.Commission)
	assert.Equal(t, uint64(3900), c.Fee)
	assert.Equal(t, uint64(1_013_900), c.Required)
	assert.Len(t, c.Inputs, 1)

	outs := c.Tx.Outputs
	require.Len(t, outs, 3)
	assert.Equal(t, tx.Output{Value: 1_000_000, Address: payee}, outs[0])
	assert.Equal(t, tx.Output{Value: 10_000, Address: feeAddr}, outs[1])
	assert.Equal(t, changeAddr, outs[2].Address)
	assert.Equal(t, uint64(3_986_100), outs[2].Value)
	assert.Equal(t, c.Change, outs[2].Value)
}

func TestBuild_CommissionWaivedBelowFloor(t *testing.T) {
	b := testBuilder(100)
	c, err := b.Build([]wallet.UTXO{utxo(1, addrA, 1_000_000)}, changeAddr, payee.String(), 50_000, 0)
	require.NoError(t, err)
	requireBalanced(t, c)
	assert.Zero(t, c.Commission)
	for _, out := range c.Tx.Outputs {
		assert.NotEqual(t, feeAddr, out.Address)
	}
}

// chainMinBuilder has a chain minimum output of 2 coins, above the
// configured 1 coin commission and tip floors.
func chainMinBuilder() *Builder {
	params := tx.FeeParams{Constant: 1000, Coefficient: 10, MinUTXOValue: 2 * types.Coin}
	return New(params, 500, commission.Policy{RateBps: 100, Floor: types.Coin}, feeAddr, tipAddr)
}

func TestBuild_ChainMinimumRaisesFloors(t *testing.T) {
	b := chainMinBuilder()
	assert.Equal(t, 2*types.Coin, b.Policy().Floor)
	assert.Equal(t, 2*types.Coin, b.EffectiveTipFloor())

	utxos := []wallet.UTXO{utxo(1, addrA, 1000*types.Coin)}
	tests := []struct {
		name       string
		send       uint64
		commission uint64
	}{
		{"well below minimum", 50 * types.Coin, 0},
		{"between floors", 150 * types.Coin, 0},
		{"just under minimum", 199 * types.Coin, 0},
		{"at minimum", 200 * types.Coin, 2 * types.Coin},
		{"above minimum", 250 * types.Coin, 2_500_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := b.Build(utxos, changeAddr, payee.String(), tt.send, 0)
			require.NoError(t, err)
			requireBalanced(t, c)
			assert.Equal(t, tt.commission, c.Commission)
			for i, out := range c.Tx.Outputs {
				assert.GreaterOrEqual(t, out.Value, 2*types.Coin, "output %d", i)
			}
		})
	}
}

func TestBuild_ChainMinimumWholeBalance(t *testing.T) {
	b := chainMinBuilder()
	utxos := []wallet.UTXO{utxo(1, addrA, 200*types.Coin)}

	c, err := b.Build(utxos, changeAddr, payee.String(), 197*types.Coin, 0)
	require.NoError(t, err)
	requireBalanced(t, c)
	assert.Zero(t, c.Commission)
}

func TestBuild_ChainMinimumDropsSmallTip(t *testing.T) {
	b := chainMinBuilder()
	utxos := []wallet.UTXO{utxo(1, addrA, 1000*types.Coin)}

	c, err := b.Build(utxos, changeAddr, payee.String(), 10*types.Coin, 1_500_000)
	require.NoError(t, err)
	assert.Zero(t, c.Tip)

	c, err = b.Build(utxos, changeAddr, payee.String(), 10*types.Coin, 2*types.Coin)
	require.NoError(t, err)
	assert.Equal(t, 2*types.Coin, c.Tip)
	requireBalanced(t, c)
}

func TestBuildMerchant_ChainMinimumWaivesCommission(t *testing.T) {
	b := chainMinBuilder()
	utxos := []wallet.UTXO{utxo(1, addrA, 1000*types.Coin)}

	c, err := b.BuildMerchant(utxos, changeAddr, payee.String(), 150*types.Coin, 0)
	require.NoError(t, err)
	requireBalanced(t, c)
	assert.Zero(t, c.Commission)
	assert.Equal(t, 150*types.Coin, c.Tx.Outputs[0].Value)
}

func TestBuild_TipFloor(t *testing.T) {
	b := testBuilder(0)
	utxos := []wallet.UTXO{utxo(1, addrA, 10_000_000)}

	c, err := b.Build(utxos, changeAddr, payee.String(), 100_000, types.Coin-1)
	require.NoError(t, err)
	assert.Zero(t, c.Tip)
	assert.Len(t, c.Tx.Outputs, 2)

	c, err = b.Build(utxos, changeAddr, payee.String(), 100_000, types.Coin)
	require.NoError(t, err)
	requireBalanced(t, c)
	assert.Equal(t, types.Coin, c.Tip)
	require.Len(t, c.Tx.Outputs, 3)
	assert.Equal(t, tx.Output{Value: types.Coin, Address: tipAddr}, c.Tx.Outputs[1])
	assert.Equal(t, 100_000+types.Coin+c.Fee, c.Required)
}

func TestBuild_ExactNoChange(t *testing.T) {
	b := testBuilder(0)
	c, err := b.Build([]wallet.UTXO{utxo(1, addrA, 103_320)}, changeAddr, payee.String(), 100_000, 0)
	require.NoError(t, err)
	requireBalanced(t, c)
	assert.Len(t, c.Tx.Outputs, 1)
	assert.Equal(t, uint64(3320), c.Fee)
	assert.Zero(t, c.Change)
}

func TestBuild_SubMinimumChangeAbsorbed(t *testing.T) {
	b := testBuilder(0)
	// Change would be 500, under the 1000 minimum, and nothing else is left.
	c, err := b.Build([]wallet.UTXO{utxo(1, addrA, 104_110)}, changeAddr, payee.String(), 100_000, 0)
	require.NoError(t, err)
	requireBalanced(t, c)
	assert.Len(t, c.Tx.Outputs, 1)
	assert.Equal(t, uint64(4110), c.Fee)
	assert.Equal(t, uint64(104_110), c.Required)
}

func TestBuild_SubMinimumChangePullsMoreInputs(t *testing.T) {
	b := testBuilder(0)
	utxos := []wallet.UTXO{utxo(2, addrB, 50_000), utxo(1, addrA, 104_110)}
	c, err := b.Build(utxos, changeAddr, payee.String(), 100_000, 0)
	require.NoError(t, err)
	requireBalanced(t, c)
	require.Len(t, c.Inputs, 2)
	assert.Equal(t, uint64(104_110), c.Inputs[0].Value, "largest input first")
	assert.Equal(t, uint64(4940), c.Fee)
	assert.Equal(t, uint64(49_170), c.Change)
}

func TestBuild_Errors(t *testing.T) {
	b := testBuilder(0)
	rich := []wallet.UTXO{utxo(1, addrA, 1_000_000)}

	tests := []struct {
		name   string
		utxos  []wallet.UTXO
		change types.Address
		payTo  string
		send   uint64
		reason Reason
	}{
		{"handle is not an address", rich, changeAddr, "alice@example.com", 10_000, ReasonInvalidAddress},
		{"garbage address", rich, changeAddr, "kpay1notvalid", 10_000, ReasonInvalidAddress},
		{"missing change address", rich, types.Address{}, payee.String(), 10_000, ReasonInvalidAddress},
		{"payment below minimum", rich, changeAddr, payee.String(), 999, ReasonOutputBelowMinimum},
		{"zero payment", rich, changeAddr, payee.String(), 0, ReasonOutputBelowMinimum},
		{"no inputs", nil, changeAddr, payee.String(), 10_000, ReasonNoInputs},
		{"only zero-value inputs", []wallet.UTXO{utxo(1, addrA, 0)}, changeAddr, payee.String(), 10_000, ReasonNoInputs},
		{"insufficient", rich, changeAddr, payee.String(), 999_000, ReasonInsufficientInputs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(tt.utxos, tt.change, tt.payTo, tt.send, 0)
			require.Error(t, err)
			assert.True(t, IsReason(err, tt.reason), "got %v, want %s", err, tt.reason)
		})
	}
}

func TestBuild_InsufficientReportsTotals(t *testing.T) {
	b := testBuilder(0)
	_, err := b.Build([]wallet.UTXO{utxo(1, addrA, 50_000)}, changeAddr, payee.String(), 100_000, 0)

	var be *Error
	require.ErrorAs(t, err, &be)
	assert.Equal(t, ReasonInsufficientInputs, be.Reason)
	assert.Equal(t, uint64(50_000), be.Available)
	assert.Equal(t, uint64(103_320), be.Required)
}

func TestBuild_TxTooLarge(t *testing.T) {
	params := testParams()
	params.MaxTxSize = 300
	b := New(params, 500, commission.Policy{}, feeAddr, tipAddr)

	var utxos []wallet.UTXO
	for i := range 10 {
		utxos = append(utxos, utxo(byte(i+1), addrA, 10_000))
	}
	_, err := b.Build(utxos, changeAddr, payee.String(), 50_000, 0)
	assert.True(t, IsReason(err, ReasonTxTooLarge), "got %v", err)
}

func TestBuild_ChangeInheritsAssets(t *testing.T) {
	b := testBuilder(0)
	u := utxo(1, addrA, 2_000_000)
	u.Assets = true

	c, err := b.Build([]wallet.UTXO{u}, changeAddr, payee.String(), 100_000, 0)
	require.NoError(t, err)
	last := c.Tx.Outputs[len(c.Tx.Outputs)-1]
	assert.Equal(t, changeAddr, last.Address)
	assert.True(t, last.Assets)
	assert.False(t, c.Tx.Outputs[0].Assets)
}

func TestBuild_TTL(t *testing.T) {
	params := testParams()
	params.Slot = 5000
	b := New(params, 0, commission.Policy{}, feeAddr, tipAddr)
	b.TTLWindow = 100

	c, err := b.Build([]wallet.UTXO{utxo(1, addrA, 1_000_000)}, changeAddr, payee.String(), 10_000, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(5100), c.Tx.TTL)
}

func TestBuild_PaddingOnlyRaisesConstant(t *testing.T) {
	utxos := []wallet.UTXO{utxo(1, addrA, 1_000_000)}
	plain := New(testParams(), 0, commission.Policy{}, feeAddr, tipAddr)
	padded := New(testParams(), 777, commission.Policy{}, feeAddr, tipAddr)

	c1, err := plain.Build(utxos, changeAddr, payee.String(), 10_000, 0)
	require.NoError(t, err)
	c2, err := padded.Build(utxos, changeAddr, payee.String(), 10_000, 0)
	require.NoError(t, err)
	assert.Equal(t, c1.Fee+777, c2.Fee)
}

func TestCandidate_Signers(t *testing.T) {
	b := testBuilder(0)
	utxos := []wallet.UTXO{
		utxo(1, addrA, 40_000),
		utxo(2, addrB, 30_000),
		utxo(3, addrA, 20_000),
		utxo(4, addrB, 1_000),
	}
	c, err := b.Build(utxos, changeAddr, payee.String(), 80_000, 0)
	require.NoError(t, err)
	require.Len(t, c.Inputs, 3)
	assert.Equal(t, []types.Address{addrA, addrB}, c.Signers())
}

func TestBuildMerchant(t *testing.T) {
	b := testBuilder(100)
	utxos := []wallet.UTXO{utxo(1, addrA, 5_000_000)}

	c, err := b.BuildMerchant(utxos, changeAddr, payee.String(), 1_000_000, 2_000)
	require.NoError(t, err)
	requireBalanced(t, c)

	assert.Equal(t, uint64(10_000), c.Commission)
	assert.Equal(t, tx.Output{Value: 992_000, Address: payee}, c.Tx.Outputs[0])
	assert.Equal(t, tx.Output{Value: 10_000, Address: feeAddr}, c.Tx.Outputs[1])
	assert.Equal(t, 992_000+10_000+c.Fee, c.Required)
}

func TestBuildMerchant_CommissionSwallowsBase(t *testing.T) {
	b := New(testParams(), 500, commission.Policy{RateBps: commission.BasisPoints}, feeAddr, tipAddr)
	utxos := []wallet.UTXO{utxo(1, addrA, 5_000_000)}

	_, err := b.BuildMerchant(utxos, changeAddr, payee.String(), 100_000, 0)
	assert.True(t, IsReason(err, ReasonOutputBelowMinimum), "got %v", err)

	c, err := b.BuildMerchant(utxos, changeAddr, payee.String(), 100_000, 5_000)
	require.NoError(t, err)
	requireBalanced(t, c)
	assert.Equal(t, uint64(5_000), c.Tx.Outputs[0].Value)
}

func TestBuild_RandomizedBalance(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	b := testBuilder(150)

	for round := range 300 {
		n := 1 + rng.IntN(12)
		utxos := make([]wallet.UTXO, n)
		for i := range utxos {
			utxos[i] = utxo(byte(i+1), []types.Address{addrA, addrB}[i%2], 1000+rng.Uint64N(3_000_000))
		}
		send := 1000 + rng.Uint64N(wallet.TotalValue(utxos))
		tip := rng.Uint64N(2 * types.Coin)

		c, err := b.Build(utxos, changeAddr, payee.String(), send, tip)
		if err != nil {
			var be *Error
			require.ErrorAs(t, err, &be, "round %d", round)
			continue
		}
		requireBalanced(t, c)
		require.Equal(t, send+c.Commission+c.Tip+c.Fee, c.Required, "round %d", round)
		require.GreaterOrEqual(t, c.Fee, b.EstimateFee(len(c.Inputs), len(c.Tx.Outputs)), "round %d", round)
		for _, out := range c.Tx.Outputs {
			require.GreaterOrEqual(t, out.Value, testParams().MinUTXOValue, "round %d", round)
		}
	}
}
