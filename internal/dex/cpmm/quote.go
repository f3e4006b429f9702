// internal/dex/cpmm/quote.go
package cpmm

import (
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-bundler/internal/dex/raydium"
)

// Quote shares its shape with AMM v4 quotes.
type Quote = raydium.Quote

// Reserves returns the tradable balances: vault amounts minus accrued protocol and fund fees.
func Reserves(ps *PoolState, vault0, vault1 uint64) (r0, r1 uint64) {
	return saturatingSub(vault0, ps.ProtocolFeesToken0+ps.FundFeesToken0),
		saturatingSub(vault1, ps.ProtocolFeesToken1+ps.FundFeesToken1)
}

// QuoteFromState prices swap_base_input of amountIn inputMint against the given snapshot.
func QuoteFromState(pool *Pool, cfg *AmmConfig, vault0, vault1 uint64, inputMint solana.PublicKey, amountIn, slippageBps uint64) (*Quote, error) {
	if !pool.Has(inputMint) {
		return nil, ErrPoolNotFound
	}
	if !pool.State.SwapEnabled() {
		return nil, ErrSwapDisabled
	}
	r0, r1 := Reserves(pool.State, vault0, vault1)
	reserveIn, reserveOut := r0, r1
	in, out := pool.sides(inputMint)
	if in.Mint.Equals(pool.State.Token1Mint) {
		reserveIn, reserveOut = r1, r0
	}

	amountOut, fee := raydium.ComputeAmountOut(reserveIn, reserveOut, amountIn, cfg.TradeFeeRate, FeeRateDenominator)
	return &Quote{
		Pool:         pool.ID,
		InputMint:    in.Mint,
		OutputMint:   out.Mint,
		AmountIn:     amountIn,
		Fee:          fee,
		AmountOut:    amountOut,
		MinAmountOut: raydium.MinAmountOut(amountOut, slippageBps),
		ReserveIn:    reserveIn,
		ReserveOut:   reserveOut,
		PriceImpact:  raydium.PriceImpact(reserveIn, reserveOut, amountIn, amountOut),
	}, nil
}

func saturatingSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}
