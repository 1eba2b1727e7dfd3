// Package payment assembles, signs and submits payments for the active
// wallet session, and answers fee and max-sendable quotes.
package payment

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Klingon-tech/klingpay/internal/commission"
	"github.com/Klingon-tech/klingpay/internal/handle"
	klog "github.com/Klingon-tech/klingpay/internal/log"
	"github.com/Klingon-tech/klingpay/internal/metrics"
	"github.com/Klingon-tech/klingpay/internal/spendable"
	"github.com/Klingon-tech/klingpay/internal/txbuild"
	"github.com/Klingon-tech/klingpay/internal/wallet"
	"github.com/Klingon-tech/klingpay/pkg/tx"
	"github.com/Klingon-tech/klingpay/pkg/types"
	"github.com/rs/zerolog"
)

// Chain is the part of the node the orchestrator needs.
type Chain interface {
	FeeParameters(ctx context.Context) (tx.FeeParams, error)
	SignAndSubmit(ctx context.Context, body *tx.Transaction, signers []types.Address) (types.Hash, error)
}

// Config carries the payment policy.
type Config struct {
	Commission commission.Policy
	FeePadding uint64
	FeeAddress types.Address
	TipAddress types.Address
	TipFloor   uint64
	// TTLWindow is how many slots a submitted body stays valid. Zero sets
	// no expiry.
	TTLWindow uint64
	// RefreshTimeout bounds the background balance refresh after a send.
	RefreshTimeout time.Duration
}

// Orchestrator runs payments against one wallet session. Sends are
// serialized; quotes may run concurrently with each other.
type Orchestrator struct {
	session  *wallet.Session
	chain    Chain
	resolver handle.Resolver
	cfg      Config
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	// chainMin is the minimum output value from the last fee parameters
	// fetched.
	chainMin atomic.Uint64

	sendMu    sync.Mutex
	feeQuotes spendable.Latest[uint64]
	maxQuotes spendable.Latest[uint64]
}

// New returns an Orchestrator. resolver may be nil, in which case only raw
// addresses are accepted as destinations. m may be nil.
func New(session *wallet.Session, chain Chain, resolver handle.Resolver, cfg Config, m *metrics.Metrics) *Orchestrator {
	if cfg.TipFloor == 0 {
		cfg.TipFloor = txbuild.DefaultTipFloor
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 30 * time.Second
	}
	return &Orchestrator{
		session:  session,
		chain:    chain,
		resolver: resolver,
		cfg:      cfg,
		metrics:  m,
		logger:   klog.Payment,
	}
}

// EstimateCommission previews the commission on amount with the same policy
// Send charges. The floor includes the chain minimum from the last fee
// parameters fetched; call FeeParameters first for an exact preview.
func (o *Orchestrator) EstimateCommission(amount int64) uint64 {
	return o.cfg.Commission.WithFloor(o.chainMin.Load()).Commission(amount)
}

// FeeParameters fetches the chain's current fee parameters and remembers its
// minimum output value for EstimateCommission.
func (o *Orchestrator) FeeParameters(ctx context.Context) (tx.FeeParams, error) {
	params, err := o.chain.FeeParameters(ctx)
	if err != nil {
		return tx.FeeParams{}, err
	}
	o.chainMin.Store(params.MinUTXOValue)
	return params, nil
}

// Send pays amount (plus commission and tip) to a handle or address and
// returns the transaction hash. Nothing is retried.
func (o *Orchestrator) Send(ctx context.Context, destination string, amount, tip int64) (types.Hash, error) {
	return o.submit(ctx, "standard", func(q *quote) (*txbuild.Candidate, error) {
		dest, err := o.resolveDestination(ctx, destination)
		if err != nil {
			return nil, err
		}
		return q.builder.Build(q.snap.UTXOs, q.change, dest.String(), uint64(amount), uint64(tip))
	}, amount, tip)
}

// SendStorePayment pays a merchant base amount net of commission, plus tip.
// The payer is charged base plus the network fee.
func (o *Orchestrator) SendStorePayment(ctx context.Context, merchantAddress string, base, tip int64) (types.Hash, error) {
	return o.submit(ctx, "merchant", func(q *quote) (*txbuild.Candidate, error) {
		return q.builder.BuildMerchant(q.snap.UTXOs, q.change, merchantAddress, uint64(base), uint64(tip))
	}, base, tip)
}

// EstimateNetworkFee returns the fee Send would pay right now. A newer
// estimate supersedes one in flight, which then fails with
// spendable.ErrSuperseded.
func (o *Orchestrator) EstimateNetworkFee(ctx context.Context, destination string, amount, tip int64) (uint64, error) {
	if err := validate(amount, tip); err != nil {
		return 0, err
	}
	return o.feeQuotes.Do(ctx, func(ctx context.Context) (uint64, error) {
		q, err := o.prepare(ctx)
		if err != nil {
			return 0, err
		}
		dest, err := o.resolveDestination(ctx, destination)
		if err != nil {
			return 0, err
		}
		c, err := q.builder.Build(q.snap.UTXOs, q.change, dest.String(), uint64(amount), uint64(tip))
		if err != nil {
			return 0, buildError(err, q.snap.Total)
		}
		return c.Fee, nil
	})
}

// MaxSendable returns the largest amount Send could pay to destination with
// tip. Superseded calls fail with spendable.ErrSuperseded.
func (o *Orchestrator) MaxSendable(ctx context.Context, destination string, tip int64) (uint64, error) {
	if tip < 0 {
		return 0, fail(InvalidTip, nil)
	}
	return o.maxQuotes.Do(ctx, func(ctx context.Context) (uint64, error) {
		q, err := o.prepare(ctx)
		if err != nil {
			return 0, err
		}
		dest, err := o.resolveDestination(ctx, destination)
		if err != nil {
			return 0, err
		}
		return spendable.New(q.builder, o.metrics).MaxSendable(ctx, q.snap.UTXOs, q.change, dest.String(), uint64(tip))
	})
}

// MaxStorePayment returns the largest merchant base amount payable with tip.
func (o *Orchestrator) MaxStorePayment(ctx context.Context, merchantAddress string, tip int64) (uint64, error) {
	if tip < 0 {
		return 0, fail(InvalidTip, nil)
	}
	return o.maxQuotes.Do(ctx, func(ctx context.Context) (uint64, error) {
		q, err := o.prepare(ctx)
		if err != nil {
			return 0, err
		}
		return spendable.New(q.builder, o.metrics).MaxMerchant(ctx, q.snap.UTXOs, q.change, merchantAddress, uint64(tip))
	})
}

// quote is the state one orchestration call works from.
type quote struct {
	snap    *wallet.Snapshot
	change  types.Address
	builder *txbuild.Builder
}

func validate(amount, tip int64) error {
	if amount <= 0 {
		return fail(InvalidAmount, nil)
	}
	if tip < 0 {
		return fail(InvalidTip, nil)
	}
	return nil
}

// prepare checks the session and captures the snapshot and fee model.
func (o *Orchestrator) prepare(ctx context.Context) (*quote, error) {
	if o.session == nil {
		return nil, fail(WalletNotInitialized, nil)
	}
	if len(o.session.Accounts()) == 0 {
		return nil, fail(NoAccountLoaded, nil)
	}
	change, ok := o.session.ChangeAddress()
	if !ok {
		return nil, fail(NoPaymentAddressAvailable, nil)
	}

	params, err := o.FeeParameters(ctx)
	if err != nil {
		return nil, fail(Library, err)
	}
	snap, err := o.session.Snapshot(ctx)
	if errors.Is(err, wallet.ErrNoAccounts) {
		return nil, fail(NoAccountLoaded, err)
	}
	if err != nil {
		return nil, fail(Library, err)
	}

	b := txbuild.New(params, o.cfg.FeePadding, o.cfg.Commission, o.cfg.FeeAddress, o.cfg.TipAddress)
	b.TipFloor = o.cfg.TipFloor
	b.TTLWindow = o.cfg.TTLWindow
	return &quote{snap: snap, change: change, builder: b}, nil
}

func (o *Orchestrator) resolveDestination(ctx context.Context, destination string) (types.Address, error) {
	addr, err := types.ParseAddress(destination)
	switch {
	case err == nil:
		return addr, nil
	case errors.Is(err, types.ErrWrongNetwork):
		return types.Address{}, fail(UnknownRecipient, err)
	}
	if o.resolver == nil {
		return types.Address{}, fail(UnknownRecipient, nil)
	}
	p, err := o.resolver.Resolve(ctx, destination)
	if errors.Is(err, handle.ErrNotFound) {
		return types.Address{}, fail(UnknownRecipient, err)
	}
	if err != nil {
		return types.Address{}, fail(Library, err)
	}
	return p.Address, nil
}

func (o *Orchestrator) submit(ctx context.Context, variant string, build func(*quote) (*txbuild.Candidate, error), amount, tip int64) (hash types.Hash, err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = KindOf(err).Label()
		}
		o.metrics.RecordSend(variant, outcome, time.Since(start))
	}()

	if err := validate(amount, tip); err != nil {
		return types.Hash{}, err
	}

	o.sendMu.Lock()
	defer o.sendMu.Unlock()

	q, err := o.prepare(ctx)
	if err != nil {
		return types.Hash{}, err
	}
	c, err := build(q)
	o.metrics.RecordBuild(variant, err)
	if err != nil {
		return types.Hash{}, buildError(err, q.snap.Total)
	}
	if c.Required > q.snap.Total {
		return types.Hash{}, insufficient(q.snap.Total, c.Required)
	}

	signers := c.Signers()
	hash, err = o.chain.SignAndSubmit(ctx, c.Tx, signers)
	if err != nil {
		o.logger.Warn().Err(err).Str("variant", variant).Msg("Submission failed")
		return types.Hash{}, fail(SubmissionFailed, err)
	}

	o.session.Invalidate()
	o.session.RefreshBalanceAsync(o.cfg.RefreshTimeout)

	o.logger.Info().
		Str("variant", variant).
		Str("hash", hash.String()).
		Uint64("required", c.Required).
		Uint64("fee", c.Fee).
		Uint64("commission", c.Commission).
		Int("signers", len(signers)).
		Msg("Payment submitted")
	return hash, nil
}

func buildError(err error, have uint64) error {
	if pe := (*Error)(nil); errors.As(err, &pe) {
		return pe
	}
	var be *txbuild.Error
	if !errors.As(err, &be) {
		return fail(Library, err)
	}
	switch be.Reason {
	case txbuild.ReasonInsufficientInputs, txbuild.ReasonNoInputs:
		need := be.Required
		if need == 0 {
			need = have + 1
		}
		e := insufficient(have, need)
		e.Err = err
		return e
	case txbuild.ReasonInvalidAddress:
		return fail(UnknownRecipient, err)
	default:
		return fail(BuildInfeasible, err)
	}
}

func insufficient(have, need uint64) *Error {
	return &Error{Kind: InsufficientFunds, Have: types.Coins(have), Need: types.Coins(need)}
}
