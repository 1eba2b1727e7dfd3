package txbuild

import (
	"errors"
	"fmt"
)

// Reason classifies why a candidate could not be built.
type Reason int

const (
	// ReasonInsufficientInputs means the UTXOs cannot cover outputs plus fee.
	ReasonInsufficientInputs Reason = iota + 1
	// ReasonOutputBelowMinimum means an output is under the chain minimum.
	ReasonOutputBelowMinimum
	// ReasonInvalidAddress means an output address did not parse.
	ReasonInvalidAddress
	// ReasonTxTooLarge means the body exceeds the chain size limit.
	ReasonTxTooLarge
	// ReasonNoInputs means no spendable UTXO was given.
	ReasonNoInputs
)

func (r Reason) String() string {
	switch r {
	case ReasonInsufficientInputs:
		return "insufficient inputs"
	case ReasonOutputBelowMinimum:
		return "output below minimum"
	case ReasonInvalidAddress:
		return "invalid address"
	case ReasonTxTooLarge:
		return "transaction too large"
	case ReasonNoInputs:
		return "no inputs"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Error is returned by every failed build.
type Error struct {
	Reason Reason
	// Available and Required are set for ReasonInsufficientInputs.
	Available uint64
	Required  uint64
	Err       error
}

func (e *Error) Error() string {
	msg := "build: " + e.Reason.String()
	if e.Reason == ReasonInsufficientInputs {
		msg += fmt.Sprintf(" (have %d, need %d)", e.Available, e.Required)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsReason reports whether err is a build Error with reason r.
func IsReason(err error, r Reason) bool {
	var be *Error
	return errors.As(err, &be) && be.Reason == r
}
