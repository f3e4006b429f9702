// internal/dex/cpmm/state.go
package cpmm

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-bundler/internal/layout"
)

var (
	ErrPoolNotFound = errors.New("cpmm pool not found")
	ErrSwapDisabled = errors.New("cpmm pool swaps are disabled")
)

// PoolState is the on-chain "PoolState" account, padding dropped.
type PoolState struct {
	AmmConfig          solana.PublicKey
	PoolCreator        solana.PublicKey
	Token0Vault        solana.PublicKey
	Token1Vault        solana.PublicKey
	LpMint             solana.PublicKey
	Token0Mint         solana.PublicKey
	Token1Mint         solana.PublicKey
	Token0Program      solana.PublicKey
	Token1Program      solana.PublicKey
	ObservationKey     solana.PublicKey
	AuthBump           uint8
	Status             uint8
	LpMintDecimals     uint8
	Mint0Decimals      uint8
	Mint1Decimals      uint8
	LpSupply           uint64
	ProtocolFeesToken0 uint64
	ProtocolFeesToken1 uint64
	FundFeesToken0     uint64
	FundFeesToken1     uint64
	OpenTime           uint64
	RecentEpoch        uint64
}

func DecodePoolState(data []byte) (*PoolState, error) {
	var ps PoolState
	if err := layout.DecodeAnchor(data, "PoolState", &ps); err != nil {
		return nil, err
	}
	return &ps, nil
}

// SwapEnabled reports whether the status bitmask allows swaps.
func (ps *PoolState) SwapEnabled() bool { return ps.Status&statusSwapDisabled == 0 }

// AmmConfig holds the fee schedule shared by every pool created under it.
type AmmConfig struct {
	Bump              uint8
	DisableCreatePool bool
	Index             uint16
	TradeFeeRate      uint64
	ProtocolFeeRate   uint64
	FundFeeRate       uint64
	CreatePoolFee     uint64
	ProtocolOwner     solana.PublicKey
	FundOwner         solana.PublicKey
}

func DecodeAmmConfig(data []byte) (*AmmConfig, error) {
	var cfg AmmConfig
	if err := layout.DecodeAnchor(data, "AmmConfig", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AuthorityPDA returns the vault and LP mint authority for program.
func AuthorityPDA(program solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(AuthoritySeed)}, program)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive cpmm authority: %w", err)
	}
	return addr, nil
}

// Pool is a decoded pool with its address and authority.
type Pool struct {
	ID        solana.PublicKey
	ProgramID solana.PublicKey
	Authority solana.PublicKey
	State     *PoolState
}

// NewPool derives the authority for a decoded state.
func NewPool(id, program solana.PublicKey, state *PoolState) (*Pool, error) {
	auth, err := AuthorityPDA(program)
	if err != nil {
		return nil, err
	}
	return &Pool{ID: id, ProgramID: program, Authority: auth, State: state}, nil
}

// Has reports whether mint is one side of the pool.
func (p *Pool) Has(mint solana.PublicKey) bool {
	return mint.Equals(p.State.Token0Mint) || mint.Equals(p.State.Token1Mint)
}

// side is one leg of the pool as seen from the swap direction.
type side struct {
	Mint    solana.PublicKey
	Vault   solana.PublicKey
	Program solana.PublicKey
}

// sides returns the input and output legs for a swap starting from inputMint.
func (p *Pool) sides(inputMint solana.PublicKey) (in, out side) {
	s := p.State
	zero := side{Mint: s.Token0Mint, Vault: s.Token0Vault, Program: s.Token0Program}
	one := side{Mint: s.Token1Mint, Vault: s.Token1Vault, Program: s.Token1Program}
	if inputMint.Equals(s.Token1Mint) {
		return one, zero
	}
	return zero, one
}
