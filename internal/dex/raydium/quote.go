// internal/dex/raydium/quote.go
package raydium

import (
	"math/big"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/solana-bundler/internal/layout"
)

const bpsDenominator = 10_000

// Quote is a priced swapBaseIn against a snapshot of pool reserves.
type Quote struct {
	Pool         solana.PublicKey
	InputMint    solana.PublicKey
	OutputMint   solana.PublicKey
	AmountIn     uint64
	Fee          uint64
	AmountOut    uint64
	MinAmountOut uint64
	ReserveIn    uint64
	ReserveOut   uint64
	// PriceImpact is the fraction of output lost versus the spot price, e.g. 0.012 for 1.2%.
	PriceImpact decimal.Decimal
}

// Reserves returns the tradable base and quote reserves: vault balances minus PnL owed to the pool owner.
func Reserves(amm *layout.LiquidityStateV4, baseVault, quoteVault uint64) (base, quote uint64) {
	return saturatingSub(baseVault, amm.BaseNeedTakePnl), saturatingSub(quoteVault, amm.QuoteNeedTakePnl)
}

// SwapFee returns the pool's swap fee as numerator and denominator.
func SwapFee(amm *layout.LiquidityStateV4) (num, den uint64) {
	if amm.SwapFeeDenominator != 0 {
		return amm.SwapFeeNumerator, amm.SwapFeeDenominator
	}
	if amm.TradeFeeDenominator != 0 {
		return amm.TradeFeeNumerator, amm.TradeFeeDenominator
	}
	return swapFeeDefault[0], swapFeeDefault[1]
}

// ComputeAmountOut is the constant product output for amountIn after the fee
// (rounded up) is taken from the input.
func ComputeAmountOut(reserveIn, reserveOut, amountIn, feeNum, feeDen uint64) (out, fee uint64) {
	if amountIn == 0 || reserveIn == 0 || reserveOut == 0 || feeDen == 0 {
		return 0, 0
	}
	in := cosmath.NewIntFromUint64(amountIn)
	den := cosmath.NewIntFromUint64(feeDen)
	feeInt := in.Mul(cosmath.NewIntFromUint64(feeNum)).Add(den).SubRaw(1).Quo(den)
	if feeInt.GTE(in) {
		return 0, amountIn
	}
	net := in.Sub(feeInt)

	rIn := cosmath.NewIntFromUint64(reserveIn)
	rOut := cosmath.NewIntFromUint64(reserveOut)
	outInt := rOut.Mul(net).Quo(rIn.Add(net))
	return outInt.Uint64(), feeInt.Uint64()
}

// MinAmountOut lowers amount by slippageBps.
func MinAmountOut(amount, slippageBps uint64) uint64 {
	if slippageBps >= bpsDenominator {
		return 0
	}
	v := cosmath.NewIntFromUint64(amount).
		Mul(cosmath.NewIntFromUint64(bpsDenominator - slippageBps)).
		QuoRaw(bpsDenominator)
	return v.Uint64()
}

// PriceImpact compares out with the spot output amountIn*reserveOut/reserveIn.
func PriceImpact(reserveIn, reserveOut, amountIn, out uint64) decimal.Decimal {
	if reserveIn == 0 || amountIn == 0 || reserveOut == 0 {
		return decimal.Zero
	}
	spot := decimalFromUint64(amountIn).Mul(decimalFromUint64(reserveOut)).Div(decimalFromUint64(reserveIn))
	if spot.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Sub(decimalFromUint64(out).Div(spot))
}

func decimalFromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

// QuoteFromState prices a swap of amountIn inputMint against the given state and vault balances.
func QuoteFromState(keys *PoolKeys, amm *layout.LiquidityStateV4, baseVault, quoteVault uint64, inputMint solana.PublicKey, amountIn, slippageBps uint64) (*Quote, error) {
	if !keys.Has(inputMint) {
		return nil, ErrPoolNotFound
	}
	if !Tradable(amm.Status) {
		return nil, ErrPoolDisabled
	}
	base, quote := Reserves(amm, baseVault, quoteVault)
	reserveIn, reserveOut := base, quote
	if inputMint.Equals(keys.QuoteMint) {
		reserveIn, reserveOut = quote, base
	}

	num, den := SwapFee(amm)
	out, fee := ComputeAmountOut(reserveIn, reserveOut, amountIn, num, den)
	return &Quote{
		Pool:         keys.ID,
		InputMint:    inputMint,
		OutputMint:   keys.Other(inputMint),
		AmountIn:     amountIn,
		Fee:          fee,
		AmountOut:    out,
		MinAmountOut: MinAmountOut(out, slippageBps),
		ReserveIn:    reserveIn,
		ReserveOut:   reserveOut,
		PriceImpact:  PriceImpact(reserveIn, reserveOut, amountIn, out),
	}, nil
}

func saturatingSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}
