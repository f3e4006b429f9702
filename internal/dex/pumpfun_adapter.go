// internal/dex/pumpfun_adapter.go
package dex

import (
	"context"

	"github.com/rovshanmuradov/solana-bundler/internal/dex/model"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-bundler/internal/txbuilder"
)

// pumpfunAdapter adapts the bonding curve to the DEX interface.
type pumpfunAdapter struct {
	baseAdapter
	inner *pumpfun.DEX
}

// Curve exposes the underlying venue for bundle buys, which price every wallet against one state.
func (d *pumpfunAdapter) Curve() *pumpfun.DEX { return d.inner }

func (d *pumpfunAdapter) Plan(ctx context.Context, req *Request) (*Plan, error) {
	if _, _, err := req.Legs(); err != nil {
		return nil, err
	}

	var plan *Plan
	switch req.Operation {
	case OperationBuy:
		ixs, q, err := d.inner.BuildBuy(ctx, req.User, req.Mint, req.Amount, req.SlippageBps)
		if err != nil {
			return nil, err
		}
		plan = &Plan{Protocol: d.protocol, Instructions: ixs, Estimate: model.Estimate{
			InputMint:   txbuilder.WSOLMint,
			OutputMint:  req.Mint,
			AmountIn:    q.SolIn,
			ExpectedOut: q.TokensOut,
			MinOut:      q.TokensOut,
		}}
	case OperationSell:
		ixs, q, err := d.inner.BuildSell(ctx, req.User, req.Mint, req.Amount, req.SlippageBps, req.CloseAccount)
		if err != nil {
			return nil, err
		}
		plan = &Plan{Protocol: d.protocol, Instructions: ixs, Estimate: model.Estimate{
			InputMint:   req.Mint,
			OutputMint:  txbuilder.WSOLMint,
			AmountIn:    q.TokensIn,
			ExpectedOut: q.NetSol,
			MinOut:      q.MinSolOutput,
		}}
	default:
		return nil, d.unsupported(req.Operation)
	}
	d.logPlan(req, plan.Estimate)
	return plan, nil
}
