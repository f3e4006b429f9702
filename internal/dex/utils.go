// =============================
// File: internal/dex/utils.go
// =============================
package dex

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SOLDecimals is the lamport precision of SOL.
const SOLDecimals = 9

// ToBaseUnits converts a human amount into raw token units, truncating extra precision.
func ToBaseUnits(amount decimal.Decimal, decimals uint8) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("amount %s is negative", amount)
	}
	raw := amount.Shift(int32(decimals)).Truncate(0)
	if !raw.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount %s overflows %d-decimal units", amount, decimals)
	}
	return raw.BigInt().Uint64(), nil
}

// FromBaseUnits converts raw token units into a human amount.
func FromBaseUnits(raw uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromUint64(raw).Shift(-int32(decimals))
}

// LamportsFromSOL converts a SOL amount such as 0.25 into lamports.
func LamportsFromSOL(sol float64) (uint64, error) {
	return ToBaseUnits(decimal.NewFromFloat(sol), SOLDecimals)
}

// PercentOf returns pct percent of amount, rounded down. pct is clamped to [0, 100].
func PercentOf(amount uint64, pct float64) uint64 {
	if pct <= 0 {
		return 0
	}
	if pct >= 100 {
		return amount
	}
	p := decimal.NewFromUint64(amount).Mul(decimal.NewFromFloat(pct)).Div(decimal.NewFromInt(100)).Truncate(0)
	return p.BigInt().Uint64()
}
