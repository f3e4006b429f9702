// =============================================
// File: internal/dex/smart_adapter.go
// =============================================
package dex

import (
	"context"
	"errors"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
)

// smartAdapter trades on the bonding curve while it is live and on the
// fallback venue once the curve reports completion. Migrated mints are remembered.
type smartAdapter struct {
	baseAdapter
	primary  DEX
	fallback DEX

	mu       sync.Mutex
	migrated map[solana.PublicKey]bool
}

func newSmartAdapter(primary, fallback DEX, logger *zap.Logger) *smartAdapter {
	return &smartAdapter{
		baseAdapter: baseAdapter{name: "Smart", protocol: ProtocolSmart, logger: logger},
		primary:     primary,
		fallback:    fallback,
		migrated:    make(map[solana.PublicKey]bool),
	}
}

func (d *smartAdapter) isMigrated(mint solana.PublicKey) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.migrated[mint]
}

func (d *smartAdapter) Plan(ctx context.Context, req *Request) (*Plan, error) {
	if req.Operation == OperationSwap || d.isMigrated(req.Mint) {
		return d.fallback.Plan(ctx, req)
	}

	plan, err := d.primary.Plan(ctx, req)
	if !errors.Is(err, pumpfun.ErrCurveComplete) {
		return plan, err
	}

	d.logger.Info("Bonding curve complete, falling back",
		zap.String("mint", req.Mint.String()),
		zap.String("fallback", d.fallback.GetName()))
	d.mu.Lock()
	d.migrated[req.Mint] = true
	d.mu.Unlock()
	return d.fallback.Plan(ctx, req)
}
