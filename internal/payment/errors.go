package payment

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingpay/internal/rpcclient"
	"github.com/shopspring/decimal"
)

// Kind is the closed set of payment failures.
type Kind int

const (
	// InvalidAmount: the amount is not positive.
	InvalidAmount Kind = iota + 1
	// InvalidTip: the tip is negative.
	InvalidTip
	// WalletNotInitialized: there is no wallet session.
	WalletNotInitialized
	// NoAccountLoaded: the session has no derived account.
	NoAccountLoaded
	// NoPaymentAddressAvailable: the session has no change address.
	NoPaymentAddressAvailable
	// InsufficientFunds: the wallet cannot cover the payment; see Have and Need.
	InsufficientFunds
	// BuildInfeasible: fee or change computation failed.
	BuildInfeasible
	// SubmissionFailed: the node rejected the body or could not be reached.
	SubmissionFailed
	// UnknownRecipient: the destination is neither an address nor a known
	// handle.
	UnknownRecipient
	// Library: anything else.
	Library
)

func (k Kind) String() string {
	switch k {
	case InvalidAmount:
		return "invalid amount"
	case InvalidTip:
		return "invalid tip"
	case WalletNotInitialized:
		return "wallet not initialized"
	case NoAccountLoaded:
		return "no account loaded"
	case NoPaymentAddressAvailable:
		return "no payment address available"
	case InsufficientFunds:
		return "insufficient funds"
	case BuildInfeasible:
		return "transaction cannot be built"
	case SubmissionFailed:
		return "submission failed"
	case UnknownRecipient:
		return "unknown recipient"
	case Library:
		return "internal error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Label is the metrics label of k.
func (k Kind) Label() string {
	switch k {
	case InvalidAmount:
		return "invalid_amount"
	case InvalidTip:
		return "invalid_tip"
	case WalletNotInitialized:
		return "wallet_not_initialized"
	case NoAccountLoaded:
		return "no_account_loaded"
	case NoPaymentAddressAvailable:
		return "no_payment_address"
	case InsufficientFunds:
		return "insufficient_funds"
	case BuildInfeasible:
		return "build_infeasible"
	case SubmissionFailed:
		return "submission_failed"
	case UnknownRecipient:
		return "unknown_recipient"
	default:
		return "library"
	}
}

// Retryable reports whether the same request may succeed if repeated.
// Amount and fee failures need a different request instead.
func (k Kind) Retryable() bool {
	return k == SubmissionFailed
}

// Error is returned by every failed orchestrator call.
type Error struct {
	Kind Kind
	// Have and Need are set for InsufficientFunds, in whole coins.
	Have decimal.Decimal
	Need decimal.Decimal
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Kind == InsufficientFunds {
		msg += fmt.Sprintf(": have %s, need %s", e.Have.String(), e.Need.String())
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the call may succeed: submission
// failures, and any failure caused by an unreachable service.
func (e *Error) Retryable() bool {
	return e.Kind.Retryable() || errors.Is(e.Err, rpcclient.ErrTransport)
}

// KindOf returns the Kind of err, or Library for foreign errors.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return Library
}

func fail(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}
