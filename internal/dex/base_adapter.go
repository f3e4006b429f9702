package dex

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/dex/model"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/raydium"
)

// baseAdapter holds what every venue adapter shares.
type baseAdapter struct {
	name     string
	protocol Protocol
	logger   *zap.Logger
}

func (b *baseAdapter) GetName() string {
	return b.name
}

func (b *baseAdapter) unsupported(op Operation) error {
	return fmt.Errorf("operation %s is not supported on %s", op, b.name)
}

func (b *baseAdapter) logPlan(req *Request, est model.Estimate) {
	b.logger.Info("Trade planned",
		zap.String("dex", b.name),
		zap.String("operation", string(req.Operation)),
		zap.String("user", req.User.String()),
		zap.String("input", est.InputMint.String()),
		zap.String("output", est.OutputMint.String()),
		zap.Uint64("amount_in", est.AmountIn),
		zap.Uint64("expected_out", est.ExpectedOut),
		zap.Uint64("min_out", est.MinOut))
}

// estimateFromAMM converts an AMM v4 or CPMM quote.
func estimateFromAMM(q *raydium.Quote) model.Estimate {
	return model.Estimate{
		InputMint:   q.InputMint,
		OutputMint:  q.OutputMint,
		AmountIn:    q.AmountIn,
		ExpectedOut: q.AmountOut,
		MinOut:      q.MinAmountOut,
		PriceImpact: q.PriceImpact,
		Route:       []string{q.Pool.String()},
	}
}
