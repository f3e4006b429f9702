// internal/monitor/position.go
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
)

// Position is a token holding and what was paid for it.
type Position struct {
	Mint         solana.PublicKey
	Symbol       string
	Tokens       uint64 // raw units
	Decimals     uint8
	CostLamports uint64
}

// Valuation is the position marked against the current pool state.
type Valuation struct {
	// SpotPrice is lamports per whole token at the marginal price.
	SpotPrice float64
	// SellValue is what selling the whole position would return after fees.
	SellValue uint64
	Progress  float64
}

// Valuer marks a position to market.
type Valuer interface {
	Value(ctx context.Context, pos *Position) (*Valuation, error)
}

// CurveFetcher loads bonding curve state.
type CurveFetcher interface {
	FetchState(ctx context.Context, mint solana.PublicKey) (*pumpfun.CurveState, error)
}

// CurveValuer values positions on a Pump.fun bonding curve.
type CurveValuer struct {
	curves CurveFetcher
}

func NewCurveValuer(curves CurveFetcher) *CurveValuer {
	return &CurveValuer{curves: curves}
}

func (v *CurveValuer) Value(ctx context.Context, pos *Position) (*Valuation, error) {
	state, err := v.curves.FetchState(ctx, pos.Mint)
	if err != nil {
		return nil, err
	}
	out := &Valuation{
		SpotPrice: pumpfun.SpotPrice(state.Curve.Reserves(), pos.Decimals),
		Progress:  state.Curve.Progress(state.Global.InitialRealTokenReserves),
	}
	if pos.Tokens == 0 {
		return out, nil
	}
	quote, err := pumpfun.QuoteSell(state, pos.Tokens, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to price position: %w", err)
	}
	out.SellValue = quote.NetSol
	return out, nil
}

// PriceUpdate is one marked-to-market snapshot of a position.
type PriceUpdate struct {
	Mint       solana.PublicKey
	Symbol     string
	SpotPrice  float64
	SellValue  uint64
	Cost       uint64
	PnL        int64 // lamports
	PnLPercent float64
	Progress   float64
	At         time.Time
}

func newPriceUpdate(pos *Position, v *Valuation, at time.Time) PriceUpdate {
	u := PriceUpdate{
		Mint:      pos.Mint,
		Symbol:    pos.Symbol,
		SpotPrice: v.SpotPrice,
		SellValue: v.SellValue,
		Cost:      pos.CostLamports,
		PnL:       int64(v.SellValue) - int64(pos.CostLamports),
		Progress:  v.Progress,
		At:        at,
	}
	if pos.CostLamports > 0 {
		u.PnLPercent = float64(u.PnL) / float64(pos.CostLamports) * 100
	}
	return u
}
