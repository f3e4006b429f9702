// =============================
// File: internal/dex/pumpfun/config.go
// =============================
package pumpfun

import (
	"github.com/gagliardetto/solana-go"
)

// Known Pump.fun protocol addresses
var (
	PumpFunProgramID       = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	PumpFunEventAuth       = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")
	PumpFunMintAuthority   = solana.MustPublicKeyFromBase58("TSLvdd1pWpHVjahSpsvCXUbgwsL3JAcvokwaKt1eokM")
	MetaplexMetadataProgID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
	SysvarRentPubkey       = solana.SysVarRentPubkey
)

// Seeds used for program-derived addresses.
const (
	seedGlobal       = "global"
	seedBondingCurve = "bonding-curve"
	seedCreatorVault = "creator-vault"
	seedMetadata     = "metadata"
)

// TokenDecimals is the fixed decimals of every Pump.fun mint.
const TokenDecimals = 6

// Config holds the addresses a DEX instance talks to.
type Config struct {
	Program        solana.PublicKey
	EventAuthority solana.PublicKey
	// FeeRecipient overrides the recipient read from the global account when set.
	FeeRecipient solana.PublicKey
}

// GetDefaultConfig returns the mainnet configuration.
func GetDefaultConfig() Config {
	return Config{
		Program:        PumpFunProgramID,
		EventAuthority: PumpFunEventAuth,
	}
}
