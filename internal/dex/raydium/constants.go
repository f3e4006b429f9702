// internal/dex/raydium/constants.go
package raydium

import (
	"github.com/gagliardetto/solana-go"
)

// Program IDs
var (
	AmmV4ProgramID    = solana.MPK("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")
	OpenBookProgramID = solana.MPK("srmqPvymJeFKQ4zGQed1GFppgkRHL9kaELCbyksJtPX")
	// AmmAuthority is the mainnet authority PDA of AmmV4ProgramID.
	AmmAuthority = solana.MPK("5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")
)

// PDA seeds
const (
	AmmAuthoritySeed = "amm authority"
)

// Instruction tags
const (
	InstructionSwapBaseIn uint8 = 9
	// SwapInstructionSize is 1 (tag) + 8 (amountIn) + 8 (minAmountOut).
	SwapInstructionSize = 17
)

// Pool status values of LiquidityStateV4.Status.
const (
	PoolStatusUninitialized uint64 = 0
	PoolStatusInitialized   uint64 = 1
	PoolStatusDisabled      uint64 = 2
	PoolStatusSwapOnly      uint64 = 6
)

// swapFeeDefault is 0.25%, used when a pool reports a zero fee denominator.
var swapFeeDefault = [2]uint64{25, 10_000}
