// internal/dex/raydium/raydium.go
package raydium

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-bundler/internal/layout"
	"github.com/rovshanmuradov/solana-bundler/internal/txbuilder"
)

// Client is the RPC surface the Raydium DEX reads pools through.
type Client interface {
	solbc.AccountReader
	GetProgramAccounts(ctx context.Context, program solana.PublicKey, filters ...rpc.RPCFilter) (rpc.GetProgramAccountsResult, error)
}

// DEX trades against Raydium AMM v4 pools.
type DEX struct {
	client  Client
	program solana.PublicKey
	cache   *PoolCache
	logger  *zap.Logger
}

// NewDEX creates a new instance of DEX. Resolved pools are cached for cacheTTL.
func NewDEX(client Client, cacheTTL time.Duration, logger *zap.Logger) *DEX {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &DEX{
		client:  client,
		program: AmmV4ProgramID,
		cache:   NewPoolCache(256, cacheTTL),
		logger:  logger.Named("raydium"),
	}
}

func (d *DEX) GetName() string { return "Raydium" }

// LoadPool resolves the keys of the pool at id.
func (d *DEX) LoadPool(ctx context.Context, id solana.PublicKey) (*PoolKeys, error) {
	info, err := d.client.GetAccountInfo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool %s: %w", id, err)
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("pool %s: %w", id, ErrPoolNotFound)
	}
	amm, err := layout.DecodeLiquidityStateV4(info.Value.Data.GetBinary())
	if err != nil {
		return nil, err
	}
	keys, err := d.keysFor(ctx, id, info.Value.Owner, amm)
	if err != nil {
		return nil, err
	}
	d.cache.Add(keys)
	return keys, nil
}

// FindPool returns the deepest tradable pool for the pair, searching both orientations.
func (d *DEX) FindPool(ctx context.Context, mintA, mintB solana.PublicKey) (*PoolKeys, error) {
	if keys, ok := d.cache.Get(mintA, mintB); ok {
		return keys, nil
	}

	var candidates []*rpc.KeyedAccount
	for _, pair := range [][2]solana.PublicKey{{mintA, mintB}, {mintB, mintA}} {
		found, err := d.client.GetProgramAccounts(ctx, d.program, pairFilters(pair[0], pair[1])...)
		if err != nil {
			d.logger.Warn("Pool search failed",
				zap.String("base", pair[0].String()),
				zap.String("quote", pair[1].String()),
				zap.Error(err))
			continue
		}
		candidates = append(candidates, found...)
	}

	var (
		bestID  solana.PublicKey
		bestAmm *layout.LiquidityStateV4
	)
	for _, acc := range candidates {
		if acc == nil || acc.Account == nil {
			continue
		}
		amm, err := layout.DecodeLiquidityStateV4(acc.Account.Data.GetBinary())
		if err != nil {
			d.logger.Debug("Skipping undecodable pool", zap.String("pool", acc.Pubkey.String()), zap.Error(err))
			continue
		}
		if !Tradable(amm.Status) {
			continue
		}
		if bestAmm == nil || amm.LpReserve > bestAmm.LpReserve {
			bestID, bestAmm = acc.Pubkey, amm
		}
	}
	if bestAmm == nil {
		return nil, fmt.Errorf("%w for %s/%s", ErrPoolNotFound, mintA, mintB)
	}

	keys, err := d.keysFor(ctx, bestID, d.program, bestAmm)
	if err != nil {
		return nil, err
	}
	d.cache.Add(keys)
	d.logger.Info("Pool resolved",
		zap.String("pool", keys.ID.String()),
		zap.String("base", keys.BaseMint.String()),
		zap.String("quote", keys.QuoteMint.String()),
		zap.Int("candidates", len(candidates)))
	return keys, nil
}

func pairFilters(base, quote solana.PublicKey) []rpc.RPCFilter {
	return []rpc.RPCFilter{
		{DataSize: layout.LiquidityStateV4Size},
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: layout.LiquidityV4BaseMintOffset, Bytes: base.Bytes()}},
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: layout.LiquidityV4QuoteMintOffset, Bytes: quote.Bytes()}},
	}
}

func (d *DEX) keysFor(ctx context.Context, id, program solana.PublicKey, amm *layout.LiquidityStateV4) (*PoolKeys, error) {
	info, err := d.client.GetAccountInfo(ctx, amm.MarketID)
	if err != nil {
		return nil, fmt.Errorf("failed to get market %s: %w", amm.MarketID, err)
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("market %s: %w", amm.MarketID, solbc.ErrAccountNotFound)
	}
	market, err := layout.DecodeMarketStateV3(info.Value.Data.GetBinary())
	if err != nil {
		return nil, err
	}
	return NewPoolKeys(id, program, amm, market)
}

// Quote prices swapping amountIn of inputMint using fresh pool and vault state.
func (d *DEX) Quote(ctx context.Context, keys *PoolKeys, inputMint solana.PublicKey, amountIn, slippageBps uint64) (*Quote, error) {
	res, err := d.client.GetMultipleAccounts(ctx, []solana.PublicKey{keys.ID, keys.BaseVault, keys.QuoteVault})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pool reserves: %w", err)
	}
	if res == nil || len(res.Value) != 3 {
		return nil, fmt.Errorf("unexpected account count for pool %s", keys.ID)
	}
	for i, acc := range res.Value {
		if acc == nil {
			return nil, fmt.Errorf("pool %s account %d: %w", keys.ID, i, solbc.ErrAccountNotFound)
		}
	}

	amm, err := layout.DecodeLiquidityStateV4(res.Value[0].Data.GetBinary())
	if err != nil {
		return nil, err
	}
	baseVault, err := layout.DecodeTokenAccount(res.Value[1].Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("base vault: %w", err)
	}
	quoteVault, err := layout.DecodeTokenAccount(res.Value[2].Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("quote vault: %w", err)
	}

	q, err := QuoteFromState(keys, amm, baseVault.Amount, quoteVault.Amount, inputMint, amountIn, slippageBps)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("Quote",
		zap.String("pool", keys.ID.String()),
		zap.Uint64("amount_in", q.AmountIn),
		zap.Uint64("amount_out", q.AmountOut),
		zap.Uint64("min_amount_out", q.MinAmountOut),
		zap.String("price_impact", q.PriceImpact.StringFixed(4)))
	return q, nil
}

// Swap returns the instructions that swap amountIn of inputMint into outputMint for owner.
// SOL legs are wrapped into a WSOL account that is closed again at the end.
func (d *DEX) Swap(ctx context.Context, owner, inputMint, outputMint solana.PublicKey, amountIn, slippageBps uint64) ([]solana.Instruction, *Quote, error) {
	keys, err := d.FindPool(ctx, inputMint, outputMint)
	if err != nil {
		return nil, nil, err
	}
	quote, err := d.Quote(ctx, keys, inputMint, amountIn, slippageBps)
	if err != nil {
		return nil, nil, err
	}
	if quote.AmountOut == 0 {
		return nil, nil, fmt.Errorf("swap of %d yields nothing on pool %s", amountIn, keys.ID)
	}
	ixs, err := SwapInstructions(keys, owner, quote)
	if err != nil {
		return nil, nil, err
	}
	return ixs, quote, nil
}

// SwapInstructions turns a quote into the full instruction list for owner.
func SwapInstructions(keys *PoolKeys, owner solana.PublicKey, quote *Quote) ([]solana.Instruction, error) {
	var ixs []solana.Instruction
	inputIsSOL := quote.InputMint.Equals(txbuilder.WSOLMint)
	outputIsSOL := quote.OutputMint.Equals(txbuilder.WSOLMint)

	var source solana.PublicKey
	if inputIsSOL {
		wrap, wsol, err := txbuilder.WrapSOLInstructions(owner, quote.AmountIn)
		if err != nil {
			return nil, err
		}
		ixs = append(ixs, wrap...)
		source = wsol
	} else {
		ata, _, err := solana.FindAssociatedTokenAddress(owner, quote.InputMint)
		if err != nil {
			return nil, fmt.Errorf("failed to derive source token account: %w", err)
		}
		source = ata
	}

	createDest, dest, err := txbuilder.CreateATAIdempotent(owner, owner, quote.OutputMint)
	if err != nil {
		return nil, err
	}
	ixs = append(ixs, createDest)

	swapIx, err := BuildSwapBaseInInstruction(keys, SwapAccounts{
		Owner:       owner,
		SourceToken: source,
		DestToken:   dest,
	}, quote.AmountIn, quote.MinAmountOut)
	if err != nil {
		return nil, err
	}
	ixs = append(ixs, swapIx)

	if inputIsSOL || outputIsSOL {
		unwrap, err := txbuilder.UnwrapSOLInstruction(owner)
		if err != nil {
			return nil, err
		}
		ixs = append(ixs, unwrap)
	}
	return ixs, nil
}
