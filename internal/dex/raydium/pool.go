// internal/dex/raydium/pool.go
package raydium

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-bundler/internal/layout"
)

var (
	ErrPoolNotFound = errors.New("raydium pool not found")
	ErrPoolDisabled = errors.New("raydium pool is not tradable")
)

// PoolKeys is every account a swapBaseIn touches, assembled from the AMM and market states.
type PoolKeys struct {
	ID               solana.PublicKey
	ProgramID        solana.PublicKey
	Authority        solana.PublicKey
	OpenOrders       solana.PublicKey
	TargetOrders     solana.PublicKey
	BaseMint         solana.PublicKey
	QuoteMint        solana.PublicKey
	BaseVault        solana.PublicKey
	QuoteVault       solana.PublicKey
	BaseDecimals     uint8
	QuoteDecimals    uint8
	LpMint           solana.PublicKey
	MarketProgramID  solana.PublicKey
	MarketID         solana.PublicKey
	MarketAuthority  solana.PublicKey
	MarketBaseVault  solana.PublicKey
	MarketQuoteVault solana.PublicKey
	MarketBids       solana.PublicKey
	MarketAsks       solana.PublicKey
	MarketEventQueue solana.PublicKey
}

// AuthorityPDA derives the AMM authority of program.
func AuthorityPDA(program solana.PublicKey) (solana.PublicKey, error) {
	if program.Equals(AmmV4ProgramID) {
		return AmmAuthority, nil
	}
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(AmmAuthoritySeed)}, program)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive amm authority: %w", err)
	}
	return addr, nil
}

// VaultSigner derives the market's vault signer from its nonce.
func VaultSigner(market solana.PublicKey, nonce uint64, marketProgram solana.PublicKey) (solana.PublicKey, error) {
	nonceLE := make([]byte, 8)
	binary.LittleEndian.PutUint64(nonceLE, nonce)
	addr, err := solana.CreateProgramAddress([][]byte{market.Bytes(), nonceLE}, marketProgram)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive vault signer of market %s: %w", market, err)
	}
	return addr, nil
}

// NewPoolKeys builds PoolKeys for the pool at id from its decoded states.
func NewPoolKeys(id, program solana.PublicKey, amm *layout.LiquidityStateV4, market *layout.MarketStateV3) (*PoolKeys, error) {
	if !market.OwnAddress.Equals(amm.MarketID) {
		return nil, fmt.Errorf("market %s does not belong to pool %s", market.OwnAddress, id)
	}
	authority, err := AuthorityPDA(program)
	if err != nil {
		return nil, err
	}
	signer, err := VaultSigner(amm.MarketID, market.VaultSignerNonce, amm.MarketProgramID)
	if err != nil {
		return nil, err
	}
	return &PoolKeys{
		ID:               id,
		ProgramID:        program,
		Authority:        authority,
		OpenOrders:       amm.OpenOrders,
		TargetOrders:     amm.TargetOrders,
		BaseMint:         amm.BaseMint,
		QuoteMint:        amm.QuoteMint,
		BaseVault:        amm.BaseVault,
		QuoteVault:       amm.QuoteVault,
		BaseDecimals:     uint8(amm.BaseDecimal),
		QuoteDecimals:    uint8(amm.QuoteDecimal),
		LpMint:           amm.LpMint,
		MarketProgramID:  amm.MarketProgramID,
		MarketID:         amm.MarketID,
		MarketAuthority:  signer,
		MarketBaseVault:  market.BaseVault,
		MarketQuoteVault: market.QuoteVault,
		MarketBids:       market.Bids,
		MarketAsks:       market.Asks,
		MarketEventQueue: market.EventQueue,
	}, nil
}

// Tradable reports whether a pool in status accepts swaps.
func Tradable(status uint64) bool {
	switch status {
	case PoolStatusUninitialized, PoolStatusDisabled:
		return false
	default:
		return true
	}
}

// Has reports whether mint is one side of the pool.
func (k *PoolKeys) Has(mint solana.PublicKey) bool {
	return k.BaseMint.Equals(mint) || k.QuoteMint.Equals(mint)
}

// Other returns the opposite mint of the pair.
func (k *PoolKeys) Other(mint solana.PublicKey) solana.PublicKey {
	if k.BaseMint.Equals(mint) {
		return k.QuoteMint
	}
	return k.BaseMint
}
