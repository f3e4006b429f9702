// internal/dex/pumpfun/pda.go
package pumpfun

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// GlobalPDA derives the singleton global account.
func GlobalPDA(program solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seedGlobal)}, program)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive global account: %w", err)
	}
	return addr, nil
}

// BondingCurvePDA derives the bonding curve account of mint.
func BondingCurvePDA(program, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seedBondingCurve), mint.Bytes()}, program)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive bonding curve: %w", err)
	}
	return addr, nil
}

// AssociatedBondingCurve is the bonding curve's token account for mint.
func AssociatedBondingCurve(bondingCurve, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(bondingCurve, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated bonding curve: %w", err)
	}
	return addr, nil
}

// CreatorVaultPDA derives the fee vault of a token creator.
func CreatorVaultPDA(program, creator solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(seedCreatorVault), creator.Bytes()}, program)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive creator vault: %w", err)
	}
	return addr, nil
}

// MetadataPDA derives the Metaplex metadata account of mint.
func MetadataPDA(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(seedMetadata), MetaplexMetadataProgID.Bytes(), mint.Bytes()},
		MetaplexMetadataProgID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive metadata account: %w", err)
	}
	return addr, nil
}

// InstructionAccounts are the per-mint accounts shared by buy and sell.
type InstructionAccounts struct {
	Program                solana.PublicKey
	Global                 solana.PublicKey
	FeeRecipient           solana.PublicKey
	Mint                   solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	CreatorVault           solana.PublicKey
	EventAuthority         solana.PublicKey
}

// DeriveAccounts fills every PDA for mint given the fee recipient and curve creator.
func DeriveAccounts(cfg Config, mint, feeRecipient, creator solana.PublicKey) (InstructionAccounts, error) {
	global, err := GlobalPDA(cfg.Program)
	if err != nil {
		return InstructionAccounts{}, err
	}
	curve, err := BondingCurvePDA(cfg.Program, mint)
	if err != nil {
		return InstructionAccounts{}, err
	}
	assoc, err := AssociatedBondingCurve(curve, mint)
	if err != nil {
		return InstructionAccounts{}, err
	}
	vault, err := CreatorVaultPDA(cfg.Program, creator)
	if err != nil {
		return InstructionAccounts{}, err
	}
	return InstructionAccounts{
		Program:                cfg.Program,
		Global:                 global,
		FeeRecipient:           feeRecipient,
		Mint:                   mint,
		BondingCurve:           curve,
		AssociatedBondingCurve: assoc,
		CreatorVault:           vault,
		EventAuthority:         cfg.EventAuthority,
	}, nil
}
