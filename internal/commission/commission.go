// Package commission computes the service commission folded into payments.
package commission

import (
	"fmt"
	"math/bits"
)

// BasisPoints is the denominator of a commission rate.
const BasisPoints = 10_000

// Policy is a commission rate with a minimum-output floor.
type Policy struct {
	// RateBps is the rate in basis points (1/100 of a percent).
	RateBps uint64
	// Floor is the smallest commission worth an output. Smaller
	// commissions are waived.
	Floor uint64
}

// Validate rejects rates above 100%.
func (p Policy) Validate() error {
	if p.RateBps > BasisPoints {
		return fmt.Errorf("commission rate %d bps exceeds %d", p.RateBps, BasisPoints)
	}
	return nil
}

// WithFloor returns p with its floor raised to at least minimum. A chain's
// minimum output value is applied this way.
func (p Policy) WithFloor(minimum uint64) Policy {
	p.Floor = max(p.Floor, minimum)
	return p
}

// Commission returns the commission owed on amount minor units. Non-positive
// amounts owe nothing. The raw value rounds toward zero and is waived when
// below the floor.
func (p Policy) Commission(amount int64) uint64 {
	if amount <= 0 || p.RateBps == 0 {
		return 0
	}
	hi, lo := bits.Mul64(uint64(amount), p.RateBps)
	raw, _ := bits.Div64(hi, lo, BasisPoints)
	if raw < p.Floor {
		return 0
	}
	return raw
}
