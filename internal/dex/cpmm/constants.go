// internal/dex/cpmm/constants.go
package cpmm

import "github.com/gagliardetto/solana-go"

var (
	// ProgramID is the Raydium constant-product (CPMM) program.
	ProgramID = solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")
)

const (
	// AuthoritySeed derives the PDA that owns every pool vault and LP mint.
	AuthoritySeed = "vault_and_lp_mint_auth_seed"

	// FeeRateDenominator is the unit of AmmConfig fee rates.
	FeeRateDenominator = 1_000_000

	// PoolStateSize is the full account length including padding.
	PoolStateSize = 637

	Token0MintOffset = 8 + 5*32
	Token1MintOffset = Token0MintOffset + 32

	// statusSwapDisabled is bit 2 of PoolState.Status.
	statusSwapDisabled = 1 << 2
)
