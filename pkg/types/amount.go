package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimals is the number of minor-unit digits in one whole coin.
const Decimals = 6

// Coin is one whole coin in minor units.
const Coin uint64 = 1_000_000

// Coins converts minor units to a whole-coin decimal.
func Coins(units uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -Decimals)
}

// FormatAmount renders minor units as a fixed-point coin string ("1.500000").
func FormatAmount(units uint64) string {
	return Coins(units).StringFixed(Decimals)
}

// ParseAmount parses a whole-coin decimal string ("1.5") into minor units.
// More than Decimals fractional digits, negative values and values that do
// not fit in uint64 are rejected.
func ParseAmount(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %q is negative", s)
	}
	units := d.Shift(Decimals)
	if !units.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", s, Decimals)
	}
	bi := units.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %q is too large", s)
	}
	return bi.Uint64(), nil
}
