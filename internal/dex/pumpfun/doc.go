// Package pumpfun implements the Pump.fun bonding curve program on Solana.
//
// This package provides:
// - Constant-product curve math over virtual reserves (curve.go).
// - Decoding of the Global and BondingCurve accounts and of CreateEvent logs.
// - Builders for the create, buy and sell instructions.
//
// Key Types and Functions:
//
// - DEX: reads curve state through an AccountReader and returns unsigned instructions.
// - CalculateBuyPrice / CalculateSellPrice: pure quoting, rounding in the curve's favour.
// - DeriveAccounts: every PDA a buy or sell touches.
//
// Usage example:
//
//	d := pumpfun.NewDEX(client, pumpfun.GetDefaultConfig(), logger)
//	ixs, quote, err := d.BuildBuy(ctx, wallet, mint, 100_000_000, 500)
//	if err != nil {
//	    return err
//	}
//	logger.Info("tokens out", zap.Uint64("amount", quote.TokensOut))
package pumpfun
