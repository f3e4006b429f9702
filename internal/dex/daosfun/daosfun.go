// internal/dex/daosfun/daosfun.go
package daosfun

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-bundler/internal/txbuilder"
)

// DEX trades DAO tokens on their DAOS.fun funding curve.
type DEX struct {
	client  solbc.AccountReader
	program solana.PublicKey
	logger  *zap.Logger
}

// NewDEX requires the program id; there is no built-in default.
func NewDEX(client solbc.AccountReader, program solana.PublicKey, logger *zap.Logger) (*DEX, error) {
	if program.IsZero() {
		return nil, ErrNoProgramID
	}
	return &DEX{client: client, program: program, logger: logger.Named("daosfun")}, nil
}

func (d *DEX) GetName() string { return "DAOS.fun" }

// FetchCurve loads the curve state for mint.
func (d *DEX) FetchCurve(ctx context.Context, mint solana.PublicKey) (*Curve, error) {
	addr, err := CurvePDA(d.program, mint)
	if err != nil {
		return nil, err
	}
	info, err := d.client.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to get curve %s: %w", addr, err)
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("curve %s: %w", addr, solbc.ErrAccountNotFound)
	}
	state, err := DecodeCurveState(info.Value.Data.GetBinary())
	if err != nil {
		return nil, err
	}
	if !state.TokenMint.Equals(mint) {
		return nil, fmt.Errorf("curve %s belongs to mint %s", addr, state.TokenMint)
	}
	d.logger.Debug("Curve loaded",
		zap.String("mint", mint.String()),
		zap.Uint64("virtual_token", state.VirtualTokenReserves),
		zap.Uint64("virtual_funding", state.VirtualFundingReserves),
		zap.Bool("finalized", state.Finalized))
	return NewCurve(d.program, addr, state)
}

// Quote is a curve trade priced against one state snapshot.
type Quote struct {
	AmountIn     uint64
	AmountOut    uint64
	MinAmountOut uint64
	After        pumpfun.Reserves
}

func QuoteBuy(curve *Curve, fundingAmount, slippageBps uint64) (*Quote, error) {
	if curve.State.Finalized {
		return nil, ErrCurveFinalized
	}
	out, after := pumpfun.CalculateBuyPrice(fundingAmount, curve.State.Reserves())
	if out == 0 {
		return nil, fmt.Errorf("buy of %d yields no tokens", fundingAmount)
	}
	return &Quote{
		AmountIn:     fundingAmount,
		AmountOut:    out,
		MinAmountOut: pumpfun.ApplySlippage(out, slippageBps, false),
		After:        after,
	}, nil
}

func QuoteSell(curve *Curve, tokenAmount, slippageBps uint64) (*Quote, error) {
	if curve.State.Finalized {
		return nil, ErrCurveFinalized
	}
	out, after := pumpfun.CalculateSellPrice(tokenAmount, curve.State.Reserves())
	return &Quote{
		AmountIn:     tokenAmount,
		AmountOut:    out,
		MinAmountOut: pumpfun.ApplySlippage(out, slippageBps, false),
		After:        after,
	}, nil
}

// BuildBuy spends fundingAmount on mint. A WSOL funding mint is wrapped from SOL and closed afterwards.
func (d *DEX) BuildBuy(ctx context.Context, user, mint solana.PublicKey, fundingAmount, slippageBps uint64) ([]solana.Instruction, *Quote, error) {
	curve, err := d.FetchCurve(ctx, mint)
	if err != nil {
		return nil, nil, err
	}
	quote, err := QuoteBuy(curve, fundingAmount, slippageBps)
	if err != nil {
		return nil, nil, err
	}

	ixs, funding, err := fundingAccount(curve, user, fundingAmount)
	if err != nil {
		return nil, nil, err
	}
	ataIx, tokenAcc, err := txbuilder.CreateATAIdempotent(user, user, mint)
	if err != nil {
		return nil, nil, err
	}
	ixs = append(ixs, ataIx)

	buyIx, err := BuildBuyTokenInstruction(curve, UserAccounts{
		Signer:         user,
		TokenAccount:   tokenAcc,
		FundingAccount: funding,
	}, fundingAmount, quote.MinAmountOut)
	if err != nil {
		return nil, nil, err
	}
	ixs = append(ixs, buyIx)
	ixs, err = appendUnwrap(ixs, curve, user)
	if err != nil {
		return nil, nil, err
	}
	return ixs, quote, nil
}

// BuildSell sells tokenAmount of mint for the funding mint.
func (d *DEX) BuildSell(ctx context.Context, user, mint solana.PublicKey, tokenAmount, slippageBps uint64) ([]solana.Instruction, *Quote, error) {
	curve, err := d.FetchCurve(ctx, mint)
	if err != nil {
		return nil, nil, err
	}
	quote, err := QuoteSell(curve, tokenAmount, slippageBps)
	if err != nil {
		return nil, nil, err
	}

	tokenAcc, _, err := solana.FindAssociatedTokenAddress(user, mint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to derive token account: %w", err)
	}
	createFunding, funding, err := txbuilder.CreateATAIdempotent(user, user, curve.State.FundingMint)
	if err != nil {
		return nil, nil, err
	}
	sellIx, err := BuildSellTokenInstruction(curve, UserAccounts{
		Signer:         user,
		TokenAccount:   tokenAcc,
		FundingAccount: funding,
	}, tokenAmount, quote.MinAmountOut)
	if err != nil {
		return nil, nil, err
	}
	ixs, err := appendUnwrap([]solana.Instruction{createFunding, sellIx}, curve, user)
	if err != nil {
		return nil, nil, err
	}
	return ixs, quote, nil
}

func fundingAccount(curve *Curve, user solana.PublicKey, amount uint64) ([]solana.Instruction, solana.PublicKey, error) {
	if curve.State.FundingMint.Equals(txbuilder.WSOLMint) {
		return txbuilder.WrapSOLInstructions(user, amount)
	}
	ata, _, err := solana.FindAssociatedTokenAddress(user, curve.State.FundingMint)
	if err != nil {
		return nil, solana.PublicKey{}, fmt.Errorf("failed to derive funding account: %w", err)
	}
	return nil, ata, nil
}

func appendUnwrap(ixs []solana.Instruction, curve *Curve, user solana.PublicKey) ([]solana.Instruction, error) {
	if !curve.State.FundingMint.Equals(txbuilder.WSOLMint) {
		return ixs, nil
	}
	unwrap, err := txbuilder.UnwrapSOLInstruction(user)
	if err != nil {
		return nil, err
	}
	return append(ixs, unwrap), nil
}
