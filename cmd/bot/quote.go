package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/solana-bundler/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-bundler/internal/bot"
	"github.com/rovshanmuradov/solana-bundler/internal/dex"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/raydium"
	"github.com/rovshanmuradov/solana-bundler/internal/txbuilder"
	"github.com/rovshanmuradov/solana-bundler/internal/ui"
)

type quoteArgs struct {
	protocol dex.Protocol
	mint     solana.PublicKey
	pool     solana.PublicKey
	sell     bool
	// amount is SOL for a buy and UI token units for a sell.
	amount   decimal.Decimal
	slippage uint64
}

func parseQuoteArgs(args []string, defaultSlippage uint64) (*quoteArgs, error) {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	protocol := fs.String("protocol", "pumpfun", "pumpfun or raydium")
	mint := fs.String("mint", "", "Token mint")
	pool := fs.String("pool", "", "Raydium pool id (optional)")
	side := fs.String("side", "buy", "buy or sell")
	amount := fs.String("amount", "0.1", "SOL to spend, or tokens to sell")
	slippage := fs.Uint64("slippage", defaultSlippage, "Slippage in basis points")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	p, err := dex.ParseProtocol(*protocol)
	if err != nil {
		return nil, err
	}
	if p != dex.ProtocolPumpFun && p != dex.ProtocolRaydium {
		return nil, fmt.Errorf("quote supports pumpfun and raydium, got %s", p)
	}
	q := &quoteArgs{protocol: p, slippage: *slippage}
	if q.mint, err = solana.PublicKeyFromBase58(strings.TrimSpace(*mint)); err != nil {
		return nil, fmt.Errorf("invalid mint: %w", err)
	}
	if *pool != "" {
		if q.pool, err = solana.PublicKeyFromBase58(*pool); err != nil {
			return nil, fmt.Errorf("invalid pool: %w", err)
		}
	}
	switch strings.ToLower(*side) {
	case "buy":
	case "sell":
		q.sell = true
	default:
		return nil, fmt.Errorf("side must be buy or sell")
	}
	if q.amount, err = decimal.NewFromString(*amount); err != nil || !q.amount.IsPositive() {
		return nil, fmt.Errorf("amount must be a positive number")
	}
	if q.slippage > 10_000 {
		return nil, fmt.Errorf("slippage must not exceed 10000 bps")
	}
	return q, nil
}

func (a *app) quote(ctx context.Context, args []string) error {
	q, err := parseQuoteArgs(args, a.cfg.SlippageBps)
	if err != nil {
		return err
	}
	client, err := bot.NewClient(a.cfg, a.logger)
	if err != nil {
		return err
	}
	factory, err := bot.NewFactory(a.cfg, client, a.logger)
	if err != nil {
		return err
	}

	var panel string
	if q.protocol == dex.ProtocolPumpFun {
		panel, err = a.quotePumpFun(ctx, factory, q)
	} else {
		panel, err = a.quoteRaydium(ctx, factory, client, q)
	}
	if err != nil {
		return err
	}
	a.print(panel)
	return nil
}

func (a *app) quotePumpFun(ctx context.Context, factory *dex.Factory, q *quoteArgs) (string, error) {
	curve, err := factory.PumpFun()
	if err != nil {
		return "", err
	}
	state, err := curve.FetchState(ctx, q.mint)
	if err != nil {
		return "", err
	}
	return a.renderCurveQuote(state, q)
}

func (a *app) renderCurveQuote(state *pumpfun.CurveState, q *quoteArgs) (string, error) {
	reserves := state.Curve.Reserves()
	fields := []ui.Field{
		ui.F("mint", q.mint.String()),
		ui.F("progress", fmt.Sprintf("%.2f%%", state.Curve.Progress(state.Global.InitialRealTokenReserves))),
		ui.F("spot price", fmt.Sprintf("%.10f SOL", pumpfun.SpotPrice(reserves, pumpfun.TokenDecimals))),
	}

	if !q.sell {
		lamports, err := dex.ToBaseUnits(q.amount, 9)
		if err != nil {
			return "", err
		}
		quote, err := pumpfun.QuoteBuy(state, lamports, q.slippage)
		if err != nil {
			return "", err
		}
		fields = append(fields,
			ui.F("spend", sol(quote.SolIn)),
			ui.F("fee", sol(quote.Fee)),
			ui.F("tokens out", tokens(quote.TokensOut, pumpfun.TokenDecimals)),
			ui.F("max cost", sol(quote.MaxSolCost)),
		)
		return a.out.Panel("Pump.fun buy", fields...), nil
	}

	raw, err := dex.ToBaseUnits(q.amount, pumpfun.TokenDecimals)
	if err != nil {
		return "", err
	}
	quote, err := pumpfun.QuoteSell(state, raw, q.slippage)
	if err != nil {
		return "", err
	}
	fields = append(fields,
		ui.F("sell", tokens(quote.TokensIn, pumpfun.TokenDecimals)),
		ui.F("fee", sol(quote.Fee)),
		ui.F("receive", sol(quote.NetSol)),
		ui.F("min receive", sol(quote.MinSolOutput)),
	)
	return a.out.Panel("Pump.fun sell", fields...), nil
}

func (a *app) quoteRaydium(ctx context.Context, factory *dex.Factory, client *solbc.Client, q *quoteArgs) (string, error) {
	amm, err := factory.Raydium()
	if err != nil {
		return "", err
	}
	var keys *raydium.PoolKeys
	if q.pool.IsZero() {
		keys, err = amm.FindPool(ctx, q.mint, txbuilder.WSOLMint)
	} else {
		keys, err = amm.LoadPool(ctx, q.pool)
	}
	if err != nil {
		return "", err
	}

	token, err := solbc.NewTokenInfoCache(client, a.logger).Get(ctx, q.mint)
	if err != nil {
		return "", fmt.Errorf("failed to resolve mint: %w", err)
	}

	input, inDecimals, outDecimals := txbuilder.WSOLMint, uint8(9), token.Decimals
	inLabel, outLabel := "SOL", token.Label()
	if q.sell {
		input, inDecimals, outDecimals = q.mint, token.Decimals, 9
		inLabel, outLabel = outLabel, inLabel
	}
	amountIn, err := dex.ToBaseUnits(q.amount, inDecimals)
	if err != nil {
		return "", err
	}
	quote, err := amm.Quote(ctx, keys, input, amountIn, q.slippage)
	if err != nil {
		return "", err
	}

	title := "Raydium buy"
	if q.sell {
		title = "Raydium sell"
	}
	return a.out.Panel(title,
		ui.F("pool", keys.ID.String()),
		ui.F("token", token.Label()+" "+token.Name),
		ui.F("amount in", tokens(quote.AmountIn, inDecimals)+" "+inLabel),
		ui.F("fee", tokens(quote.Fee, inDecimals)+" "+inLabel),
		ui.F("amount out", tokens(quote.AmountOut, outDecimals)+" "+outLabel),
		ui.F("min out", tokens(quote.MinAmountOut, outDecimals)+" "+outLabel),
		ui.F("price impact", quote.PriceImpact.Mul(decimal.NewFromInt(100)).StringFixed(2)+"%"),
	), nil
}

func sol(lamports uint64) string {
	return dex.FromBaseUnits(lamports, 9).String() + " SOL"
}

func tokens(raw uint64, decimals uint8) string {
	return dex.FromBaseUnits(raw, decimals).String()
}
