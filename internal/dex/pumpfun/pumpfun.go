// ==============================================
// File: internal/dex/pumpfun/pumpfun.go
// ==============================================

package pumpfun

import (
	"context"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-bundler/internal/txbuilder"
)

// DEX builds Pump.fun buy/sell instructions from live bonding curve state.
type DEX struct {
	client solbc.AccountReader
	config Config
	logger *zap.Logger

	mu     sync.Mutex
	global *GlobalAccount
}

// NewDEX creates a new instance of DEX.
func NewDEX(client solbc.AccountReader, cfg Config, logger *zap.Logger) *DEX {
	if cfg.Program.IsZero() {
		cfg.Program = PumpFunProgramID
	}
	if cfg.EventAuthority.IsZero() {
		cfg.EventAuthority = PumpFunEventAuth
	}
	return &DEX{
		client: client,
		config: cfg,
		logger: logger.Named("pumpfun"),
	}
}

func (d *DEX) GetName() string { return "Pump.fun" }

// CurveState is everything needed to price and trade one mint.
type CurveState struct {
	Global   *GlobalAccount
	Curve    *BondingCurve
	Accounts InstructionAccounts
}

// FetchState loads the global and bonding curve accounts of mint in one round trip.
func (d *DEX) FetchState(ctx context.Context, mint solana.PublicKey) (*CurveState, error) {
	globalAddr, err := GlobalPDA(d.config.Program)
	if err != nil {
		return nil, err
	}
	curveAddr, err := BondingCurvePDA(d.config.Program, mint)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	global := d.global
	d.mu.Unlock()

	keys := []solana.PublicKey{curveAddr}
	if global == nil {
		keys = append(keys, globalAddr)
	}
	res, err := d.client.GetMultipleAccounts(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bonding curve accounts: %w", err)
	}
	if res == nil || len(res.Value) != len(keys) {
		return nil, fmt.Errorf("unexpected account count for mint %s", mint)
	}

	if res.Value[0] == nil {
		return nil, fmt.Errorf("bonding curve %s for mint %s: %w", curveAddr, mint, solbc.ErrAccountNotFound)
	}
	curve, err := DecodeBondingCurve(res.Value[0].Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("failed to decode bonding curve: %w", err)
	}

	if global == nil {
		if res.Value[1] == nil {
			return nil, fmt.Errorf("global account %s: %w", globalAddr, solbc.ErrAccountNotFound)
		}
		global, err = DecodeGlobal(res.Value[1].Data.GetBinary())
		if err != nil {
			return nil, fmt.Errorf("failed to decode global account: %w", err)
		}
		d.mu.Lock()
		d.global = global
		d.mu.Unlock()
	}

	feeRecipient := global.FeeRecipient
	if !d.config.FeeRecipient.IsZero() {
		feeRecipient = d.config.FeeRecipient
	}
	accounts, err := DeriveAccounts(d.config, mint, feeRecipient, curve.Creator)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("Bonding curve loaded",
		zap.String("mint", mint.String()),
		zap.String("curve", curve.String()))

	return &CurveState{Global: global, Curve: curve, Accounts: accounts}, nil
}

// BuyQuote describes a buy priced against a specific curve state.
type BuyQuote struct {
	SolIn      uint64 // gross lamports budgeted by the caller
	SolToCurve uint64
	Fee        uint64
	TokensOut  uint64
	MaxSolCost uint64
	After      Reserves
}

// SellQuote describes a sell priced against a specific curve state.
type SellQuote struct {
	TokensIn     uint64
	SolOut       uint64 // before fee
	Fee          uint64
	NetSol       uint64
	MinSolOutput uint64
	After        Reserves
}

// QuoteBuy prices spending solAmount lamports (fee included) on the curve.
func QuoteBuy(state *CurveState, solAmount, slippageBps uint64) (*BuyQuote, error) {
	if state.Curve.Complete {
		return nil, ErrCurveComplete
	}
	toCurve := SolForCurve(solAmount, state.Global.FeeBasisPoints)
	tokens, after := CalculateBuyPrice(toCurve, state.Curve.Reserves())
	if tokens == 0 {
		return nil, fmt.Errorf("buy of %d lamports yields no tokens", solAmount)
	}
	return &BuyQuote{
		SolIn:      solAmount,
		SolToCurve: toCurve,
		Fee:        solAmount - toCurve,
		TokensOut:  tokens,
		MaxSolCost: ApplySlippage(solAmount, slippageBps, true),
		After:      after,
	}, nil
}

// QuoteSell prices selling tokenAmount raw tokens on the curve.
func QuoteSell(state *CurveState, tokenAmount, slippageBps uint64) (*SellQuote, error) {
	if state.Curve.Complete {
		return nil, ErrCurveComplete
	}
	solOut, after := CalculateSellPrice(tokenAmount, state.Curve.Reserves())
	fee := FeeAmount(solOut, state.Global.FeeBasisPoints)
	if fee > solOut {
		fee = solOut
	}
	net := solOut - fee
	return &SellQuote{
		TokensIn:     tokenAmount,
		SolOut:       solOut,
		Fee:          fee,
		NetSol:       net,
		MinSolOutput: ApplySlippage(net, slippageBps, false),
		After:        after,
	}, nil
}

// BuildBuy returns the instructions that create user's token account if needed and buy with solAmount lamports.
func (d *DEX) BuildBuy(ctx context.Context, user, mint solana.PublicKey, solAmount, slippageBps uint64) ([]solana.Instruction, *BuyQuote, error) {
	state, err := d.FetchState(ctx, mint)
	if err != nil {
		return nil, nil, err
	}
	return BuildBuyFromState(state, user, solAmount, slippageBps)
}

// BuildBuyFromState is BuildBuy against an already fetched state, used when several
// wallets buy the same mint in one bundle.
func BuildBuyFromState(state *CurveState, user solana.PublicKey, solAmount, slippageBps uint64) ([]solana.Instruction, *BuyQuote, error) {
	quote, err := QuoteBuy(state, solAmount, slippageBps)
	if err != nil {
		return nil, nil, err
	}
	ataIx, _, err := txbuilder.CreateATAIdempotent(user, user, state.Accounts.Mint)
	if err != nil {
		return nil, nil, err
	}
	buyIx, err := BuildBuyInstruction(state.Accounts, user, quote.TokensOut, quote.MaxSolCost)
	if err != nil {
		return nil, nil, err
	}
	return []solana.Instruction{ataIx, buyIx}, quote, nil
}

// BuildSell returns the sell instruction for tokenAmount raw tokens. When closeAccount is set
// the emptied token account is closed to reclaim rent.
func (d *DEX) BuildSell(ctx context.Context, user, mint solana.PublicKey, tokenAmount, slippageBps uint64, closeAccount bool) ([]solana.Instruction, *SellQuote, error) {
	state, err := d.FetchState(ctx, mint)
	if err != nil {
		return nil, nil, err
	}
	quote, err := QuoteSell(state, tokenAmount, slippageBps)
	if err != nil {
		return nil, nil, err
	}
	sellIx, err := BuildSellInstruction(state.Accounts, user, tokenAmount, quote.MinSolOutput)
	if err != nil {
		return nil, nil, err
	}
	ixs := []solana.Instruction{sellIx}
	if closeAccount {
		ata, _, err := solana.FindAssociatedTokenAddress(user, mint)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to derive token account: %w", err)
		}
		ixs = append(ixs, txbuilder.CloseAccountInstruction(ata, user))
	}
	return ixs, quote, nil
}
