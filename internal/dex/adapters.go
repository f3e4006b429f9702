// =============================
// File: internal/dex/adapters.go
// =============================
package dex

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-bundler/internal/dex/cpmm"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/daosfun"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/jupiter"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/model"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/raydium"
)

// raydiumAdapter trades on AMM v4 pools.
type raydiumAdapter struct {
	baseAdapter
	inner *raydium.DEX
}

func (d *raydiumAdapter) Plan(ctx context.Context, req *Request) (*Plan, error) {
	in, out, err := req.Legs()
	if err != nil {
		return nil, err
	}

	var quote *raydium.Quote
	plan := &Plan{Protocol: d.protocol}
	if req.Pool.IsZero() {
		plan.Instructions, quote, err = d.inner.Swap(ctx, req.User, in, out, req.Amount, req.SlippageBps)
		if err != nil {
			return nil, err
		}
	} else {
		keys, err := d.inner.LoadPool(ctx, req.Pool)
		if err != nil {
			return nil, err
		}
		if !keys.Has(out) {
			return nil, fmt.Errorf("pool %s does not trade %s: %w", req.Pool, out, raydium.ErrPoolNotFound)
		}
		if quote, err = d.inner.Quote(ctx, keys, in, req.Amount, req.SlippageBps); err != nil {
			return nil, err
		}
		if plan.Instructions, err = raydium.SwapInstructions(keys, req.User, quote); err != nil {
			return nil, err
		}
	}
	plan.Estimate = estimateFromAMM(quote)
	d.logPlan(req, plan.Estimate)
	return plan, nil
}

// cpmmAdapter trades on Raydium CPMM pools.
type cpmmAdapter struct {
	baseAdapter
	inner *cpmm.DEX
}

func (d *cpmmAdapter) Plan(ctx context.Context, req *Request) (*Plan, error) {
	in, out, err := req.Legs()
	if err != nil {
		return nil, err
	}

	var quote *cpmm.Quote
	plan := &Plan{Protocol: d.protocol}
	if req.Pool.IsZero() {
		plan.Instructions, quote, err = d.inner.Swap(ctx, req.User, in, out, req.Amount, req.SlippageBps)
		if err != nil {
			return nil, err
		}
	} else {
		pool, err := d.inner.LoadPool(ctx, req.Pool)
		if err != nil {
			return nil, err
		}
		if !pool.Has(out) {
			return nil, fmt.Errorf("pool %s does not trade %s: %w", req.Pool, out, cpmm.ErrPoolNotFound)
		}
		if quote, err = d.inner.Quote(ctx, pool, in, req.Amount, req.SlippageBps); err != nil {
			return nil, err
		}
		if plan.Instructions, err = cpmm.SwapInstructions(pool, req.User, quote); err != nil {
			return nil, err
		}
	}
	plan.Estimate = estimateFromAMM(quote)
	d.logPlan(req, plan.Estimate)
	return plan, nil
}

// daosfunAdapter trades DAO tokens on their funding curve.
type daosfunAdapter struct {
	baseAdapter
	inner *daosfun.DEX
}

func (d *daosfunAdapter) Plan(ctx context.Context, req *Request) (*Plan, error) {
	in, out, err := req.Legs()
	if err != nil {
		return nil, err
	}

	var (
		ixs   []solana.Instruction
		quote *daosfun.Quote
	)
	switch req.Operation {
	case OperationBuy:
		ixs, quote, err = d.inner.BuildBuy(ctx, req.User, req.Mint, req.Amount, req.SlippageBps)
	case OperationSell:
		ixs, quote, err = d.inner.BuildSell(ctx, req.User, req.Mint, req.Amount, req.SlippageBps)
	default:
		return nil, d.unsupported(req.Operation)
	}
	if err != nil {
		return nil, err
	}
	plan := &Plan{Protocol: d.protocol, Instructions: ixs, Estimate: model.Estimate{
		InputMint:   in,
		OutputMint:  out,
		AmountIn:    quote.AmountIn,
		ExpectedOut: quote.AmountOut,
		MinOut:      quote.MinAmountOut,
	}}
	d.logPlan(req, plan.Estimate)
	return plan, nil
}

// jupiterAdapter delegates routing to the Jupiter API, which returns a whole transaction.
type jupiterAdapter struct {
	baseAdapter
	inner *jupiter.Client
}

func (d *jupiterAdapter) Plan(ctx context.Context, req *Request) (*Plan, error) {
	in, out, err := req.Legs()
	if err != nil {
		return nil, err
	}
	quote, err := d.inner.Quote(ctx, in, out, req.Amount, req.SlippageBps)
	if err != nil {
		return nil, err
	}
	tx, err := d.inner.SwapTransaction(ctx, quote, req.User, jupiter.SwapOptions{
		PrioritizationFeeLamports: req.PriorityFeeLamports,
		DynamicComputeUnitLimit:   true,
	})
	if err != nil {
		return nil, err
	}
	plan := &Plan{Protocol: d.protocol, Transaction: tx, Estimate: model.Estimate{
		InputMint:   quote.InputMint,
		OutputMint:  quote.OutputMint,
		AmountIn:    quote.AmountIn,
		ExpectedOut: quote.AmountOut,
		MinOut:      quote.MinAmountOut,
		PriceImpact: quote.PriceImpact,
		Route:       quote.Route,
	}}
	d.logPlan(req, plan.Estimate)
	return plan, nil
}
