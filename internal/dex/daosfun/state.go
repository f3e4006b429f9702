// internal/dex/daosfun/state.go
package daosfun

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-bundler/internal/layout"
)

var (
	ErrNoProgramID    = errors.New("daos.fun program id is not configured")
	ErrCurveFinalized = errors.New("daos.fun curve is finalized")
)

// curveSeed prefixes the per-mint curve state PDA.
const curveSeed = "curve"

// CurveState is the Anchor "CurveState" account of a DAO token.
type CurveState struct {
	TokenMint              solana.PublicKey
	FundingMint            solana.PublicKey
	VirtualTokenReserves   uint64
	VirtualFundingReserves uint64
	RealTokenReserves      uint64
	RealFundingReserves    uint64
	FundingGoal            uint64
	Finalized              bool
	Bump                   uint8
}

func DecodeCurveState(data []byte) (*CurveState, error) {
	var cs CurveState
	if err := layout.DecodeAnchor(data, "CurveState", &cs); err != nil {
		return nil, err
	}
	return &cs, nil
}

// Reserves maps the funding side onto the shared bonding-curve math.
func (cs *CurveState) Reserves() pumpfun.Reserves {
	return pumpfun.Reserves{
		VirtualSol:   cs.VirtualFundingReserves,
		VirtualToken: cs.VirtualTokenReserves,
		RealToken:    cs.RealTokenReserves,
		RealSol:      cs.RealFundingReserves,
	}
}

// CurvePDA returns the state account for mint.
func CurvePDA(program, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(curveSeed), mint[:]}, program)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive curve state: %w", err)
	}
	return addr, nil
}

// Curve is a fetched curve with the addresses its instructions need.
type Curve struct {
	Program      solana.PublicKey
	Address      solana.PublicKey
	TokenVault   solana.PublicKey
	FundingVault solana.PublicKey
	State        *CurveState
}

// NewCurve derives the vaults, which are associated token accounts of the curve PDA.
func NewCurve(program, address solana.PublicKey, state *CurveState) (*Curve, error) {
	tokenVault, _, err := solana.FindAssociatedTokenAddress(address, state.TokenMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive token vault: %w", err)
	}
	fundingVault, _, err := solana.FindAssociatedTokenAddress(address, state.FundingMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive funding vault: %w", err)
	}
	return &Curve{
		Program:      program,
		Address:      address,
		TokenVault:   tokenVault,
		FundingVault: fundingVault,
		State:        state,
	}, nil
}
