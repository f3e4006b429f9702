// ==============================================
// File: internal/dex/pumpfun/curve.go
// ==============================================
package pumpfun

import (
	"lukechampine.com/uint128"
)

// BasisPoints is the denominator for fee and slippage rates.
const BasisPoints = 10_000

// Reserves is the constant-product state of a bonding curve.
// Only the virtual reserves enter the price; the real reserves bound what can leave the curve.
type Reserves struct {
	VirtualSol   uint64
	VirtualToken uint64
	RealToken    uint64
	RealSol      uint64
}

// Valid reports whether the virtual reserves define a price.
func (r Reserves) Valid() bool {
	return r.VirtualSol > 0 && r.VirtualToken > 0
}

func (r Reserves) product() uint128.Uint128 {
	return uint128.From64(r.VirtualSol).Mul64(r.VirtualToken)
}

// divFloor and divCeil return k/d as uint64, saturating when the quotient does not fit.
func divFloor(k uint128.Uint128, d uint64) uint64 {
	q, _ := k.QuoRem64(d)
	if q.Hi != 0 {
		return ^uint64(0)
	}
	return q.Lo
}

func divCeil(k uint128.Uint128, d uint64) uint64 {
	q, rem := k.QuoRem64(d)
	if q.Hi != 0 {
		return ^uint64(0)
	}
	if rem != 0 {
		return q.Lo + 1
	}
	return q.Lo
}

// CalculateBuyPrice returns how many tokens solAmount lamports buy and the reserves after the trade.
//
// The token side is rounded up (fewer tokens out) so the product never shrinks. When the
// output would exceed RealToken it is clamped, and the SOL actually consumed is recomputed
// from the clamped token reserve; callers read it as updated.VirtualSol - r.VirtualSol.
func CalculateBuyPrice(solAmount uint64, r Reserves) (uint64, Reserves) {
	if solAmount == 0 || !r.Valid() {
		return 0, r
	}
	k := r.product()

	newVSol := r.VirtualSol + solAmount
	if newVSol < r.VirtualSol {
		newVSol = ^uint64(0)
	}
	newVToken := divFloor(k, newVSol) + 1
	if newVToken >= r.VirtualToken {
		return 0, r
	}
	out := r.VirtualToken - newVToken

	if out > r.RealToken {
		out = r.RealToken
		if out == 0 {
			return 0, r
		}
		newVToken = r.VirtualToken - out
		newVSol = divCeil(k, newVToken)
	}

	spent := newVSol - r.VirtualSol
	return out, Reserves{
		VirtualSol:   newVSol,
		VirtualToken: newVToken,
		RealToken:    r.RealToken - out,
		RealSol:      r.RealSol + spent,
	}
}

// CalculateSellPrice returns how many lamports tokenAmount tokens sell for and the reserves after the trade.
//
// The SOL side is rounded up (less SOL out). Output is clamped to RealSol; when clamped the
// tokens actually consumed are updated.VirtualToken - r.VirtualToken.
func CalculateSellPrice(tokenAmount uint64, r Reserves) (uint64, Reserves) {
	if tokenAmount == 0 || !r.Valid() {
		return 0, r
	}
	k := r.product()

	newVToken := r.VirtualToken + tokenAmount
	if newVToken < r.VirtualToken {
		newVToken = ^uint64(0)
	}
	newVSol := divCeil(k, newVToken)
	if newVSol >= r.VirtualSol {
		return 0, r
	}
	out := r.VirtualSol - newVSol

	if out > r.RealSol {
		out = r.RealSol
		if out == 0 {
			return 0, r
		}
		newVSol = r.VirtualSol - out
		newVToken = divCeil(k, newVSol)
	}

	sold := newVToken - r.VirtualToken
	return out, Reserves{
		VirtualSol:   newVSol,
		VirtualToken: newVToken,
		RealToken:    r.RealToken + sold,
		RealSol:      r.RealSol - out,
	}
}

// SpotPrice returns the marginal price in lamports per whole token for a token with the given decimals.
func SpotPrice(r Reserves, decimals uint8) float64 {
	if !r.Valid() {
		return 0
	}
	scale := 1.0
	for i := uint8(0); i < decimals; i++ {
		scale *= 10
	}
	return float64(r.VirtualSol) / float64(r.VirtualToken) * scale
}

// FeeAmount returns ceil(amount * bps / 10000).
func FeeAmount(amount, bps uint64) uint64 {
	if amount == 0 || bps == 0 {
		return 0
	}
	return divCeil(uint128.From64(amount).Mul64(bps), BasisPoints)
}

// SolForCurve splits a gross SOL budget into the part that reaches the curve,
// leaving room for the protocol fee charged on top of it.
func SolForCurve(gross, feeBps uint64) uint64 {
	if gross == 0 {
		return 0
	}
	return divFloor(uint128.From64(gross).Mul64(BasisPoints), BasisPoints+feeBps)
}

// ApplySlippage widens amount by bps: up for a maximum cost, down for a minimum output.
func ApplySlippage(amount, bps uint64, up bool) uint64 {
	if up {
		return divFloor(uint128.From64(amount).Mul64(BasisPoints+bps), BasisPoints)
	}
	if bps >= BasisPoints {
		return 0
	}
	return divFloor(uint128.From64(amount).Mul64(BasisPoints-bps), BasisPoints)
}
