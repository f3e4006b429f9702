// internal/dex/cpmm/cpmm.go
package cpmm

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-bundler/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-bundler/internal/layout"
	"github.com/rovshanmuradov/solana-bundler/internal/txbuilder"
)

// Client is the RPC surface the CPMM DEX reads pools through.
type Client interface {
	solbc.AccountReader
	GetProgramAccounts(ctx context.Context, program solana.PublicKey, filters ...rpc.RPCFilter) (rpc.GetProgramAccountsResult, error)
}

// DEX trades against Raydium CPMM pools.
type DEX struct {
	client  Client
	program solana.PublicKey
	pools   *expirable.LRU[string, *Pool]
	logger  *zap.Logger
}

func NewDEX(client Client, cacheTTL time.Duration, logger *zap.Logger) *DEX {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &DEX{
		client:  client,
		program: ProgramID,
		pools:   expirable.NewLRU[string, *Pool](256, nil, cacheTTL),
		logger:  logger.Named("cpmm"),
	}
}

func (d *DEX) GetName() string { return "Raydium CPMM" }

func pairKey(a, b solana.PublicKey) string {
	if a.String() > b.String() {
		a, b = b, a
	}
	return a.String() + "-" + b.String()
}

// LoadPool decodes the pool at id.
func (d *DEX) LoadPool(ctx context.Context, id solana.PublicKey) (*Pool, error) {
	info, err := d.client.GetAccountInfo(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool %s: %w", id, err)
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("pool %s: %w", id, ErrPoolNotFound)
	}
	state, err := DecodePoolState(info.Value.Data.GetBinary())
	if err != nil {
		return nil, err
	}
	pool, err := NewPool(id, info.Value.Owner, state)
	if err != nil {
		return nil, err
	}
	d.pools.Add(pairKey(state.Token0Mint, state.Token1Mint), pool)
	return pool, nil
}

// FindPool searches both mint orderings concurrently and keeps the swappable pool with the largest LP supply.
func (d *DEX) FindPool(ctx context.Context, mintA, mintB solana.PublicKey) (*Pool, error) {
	key := pairKey(mintA, mintB)
	if pool, ok := d.pools.Get(key); ok {
		return pool, nil
	}

	var results [2]rpc.GetProgramAccountsResult
	g, gctx := errgroup.WithContext(ctx)
	for i, pair := range [2][2]solana.PublicKey{{mintA, mintB}, {mintB, mintA}} {
		g.Go(func() error {
			found, err := d.client.GetProgramAccounts(gctx, d.program, pairFilters(pair[0], pair[1])...)
			if err != nil {
				d.logger.Warn("Pool search failed",
					zap.String("token0", pair[0].String()),
					zap.String("token1", pair[1].String()),
					zap.Error(err))
				return nil
			}
			results[i] = found
			return nil
		})
	}
	_ = g.Wait()

	var (
		bestID    solana.PublicKey
		bestState *PoolState
	)
	for _, found := range results {
		for _, acc := range found {
			if acc == nil || acc.Account == nil {
				continue
			}
			state, err := DecodePoolState(acc.Account.Data.GetBinary())
			if err != nil {
				d.logger.Debug("Skipping undecodable pool", zap.String("pool", acc.Pubkey.String()), zap.Error(err))
				continue
			}
			if !state.SwapEnabled() {
				continue
			}
			if bestState == nil || state.LpSupply > bestState.LpSupply {
				bestID, bestState = acc.Pubkey, state
			}
		}
	}
	if bestState == nil {
		return nil, fmt.Errorf("%w for %s/%s", ErrPoolNotFound, mintA, mintB)
	}

	pool, err := NewPool(bestID, d.program, bestState)
	if err != nil {
		return nil, err
	}
	d.pools.Add(key, pool)
	d.logger.Info("Pool resolved",
		zap.String("pool", bestID.String()),
		zap.String("token0", bestState.Token0Mint.String()),
		zap.String("token1", bestState.Token1Mint.String()))
	return pool, nil
}

func pairFilters(token0, token1 solana.PublicKey) []rpc.RPCFilter {
	disc := layout.AccountDiscriminator("PoolState")
	return []rpc.RPCFilter{
		{DataSize: PoolStateSize},
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: disc[:]}},
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: Token0MintOffset, Bytes: token0.Bytes()}},
		{Memcmp: &rpc.RPCFilterMemcmp{Offset: Token1MintOffset, Bytes: token1.Bytes()}},
	}
}

// Quote refreshes pool, config and vaults in one call and prices the swap.
func (d *DEX) Quote(ctx context.Context, pool *Pool, inputMint solana.PublicKey, amountIn, slippageBps uint64) (*Quote, error) {
	keys := []solana.PublicKey{pool.ID, pool.State.AmmConfig, pool.State.Token0Vault, pool.State.Token1Vault}
	res, err := d.client.GetMultipleAccounts(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pool state: %w", err)
	}
	if res == nil || len(res.Value) != len(keys) {
		return nil, fmt.Errorf("unexpected account count for pool %s", pool.ID)
	}
	for i, acc := range res.Value {
		if acc == nil {
			return nil, fmt.Errorf("account %s: %w", keys[i], solbc.ErrAccountNotFound)
		}
	}

	state, err := DecodePoolState(res.Value[0].Data.GetBinary())
	if err != nil {
		return nil, err
	}
	cfg, err := DecodeAmmConfig(res.Value[1].Data.GetBinary())
	if err != nil {
		return nil, err
	}
	vault0, err := layout.DecodeTokenAccount(res.Value[2].Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("token0 vault: %w", err)
	}
	vault1, err := layout.DecodeTokenAccount(res.Value[3].Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("token1 vault: %w", err)
	}

	fresh := &Pool{ID: pool.ID, ProgramID: pool.ProgramID, Authority: pool.Authority, State: state}
	q, err := QuoteFromState(fresh, cfg, vault0.Amount, vault1.Amount, inputMint, amountIn, slippageBps)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("Quote",
		zap.String("pool", pool.ID.String()),
		zap.Uint64("trade_fee_rate", cfg.TradeFeeRate),
		zap.Uint64("amount_in", q.AmountIn),
		zap.Uint64("amount_out", q.AmountOut),
		zap.String("price_impact", q.PriceImpact.StringFixed(4)))
	return q, nil
}

// Swap returns the instructions that swap amountIn of inputMint into outputMint for owner.
func (d *DEX) Swap(ctx context.Context, owner, inputMint, outputMint solana.PublicKey, amountIn, slippageBps uint64) ([]solana.Instruction, *Quote, error) {
	pool, err := d.FindPool(ctx, inputMint, outputMint)
	if err != nil {
		return nil, nil, err
	}
	quote, err := d.Quote(ctx, pool, inputMint, amountIn, slippageBps)
	if err != nil {
		return nil, nil, err
	}
	if quote.AmountOut == 0 {
		return nil, nil, fmt.Errorf("swap of %d yields nothing on pool %s", amountIn, pool.ID)
	}
	ixs, err := SwapInstructions(pool, owner, quote)
	if err != nil {
		return nil, nil, err
	}
	return ixs, quote, nil
}

// SwapInstructions turns a quote into the full instruction list for owner.
// Token-2022 legs use ATAs of their own token program.
func SwapInstructions(pool *Pool, owner solana.PublicKey, quote *Quote) ([]solana.Instruction, error) {
	var ixs []solana.Instruction
	in, out := pool.sides(quote.InputMint)
	inputIsSOL := in.Mint.Equals(txbuilder.WSOLMint)
	outputIsSOL := out.Mint.Equals(txbuilder.WSOLMint)

	var source solana.PublicKey
	if inputIsSOL {
		wrap, wsol, err := txbuilder.WrapSOLInstructions(owner, quote.AmountIn)
		if err != nil {
			return nil, err
		}
		ixs = append(ixs, wrap...)
		source = wsol
	} else {
		ata, err := txbuilder.FindATA(owner, in.Mint, in.Program)
		if err != nil {
			return nil, err
		}
		source = ata
	}

	createDest, dest, err := txbuilder.CreateATAIdempotentForProgram(owner, owner, out.Mint, out.Program)
	if err != nil {
		return nil, err
	}
	ixs = append(ixs, createDest)

	swapIx, err := BuildSwapBaseInputInstruction(pool, SwapAccounts{
		Payer:       owner,
		InputToken:  source,
		OutputToken: dest,
	}, in.Mint, quote.AmountIn, quote.MinAmountOut)
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
