// ==============================================
// File: internal/dex/pumpfun/instructions.go
// ==============================================
package pumpfun

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-bundler/internal/layout"
)

var (
	buyDiscriminator    = layout.InstructionDiscriminator("buy")
	sellDiscriminator   = layout.InstructionDiscriminator("sell")
	createDiscriminator = layout.InstructionDiscriminator("create")
)

func amountData(d layout.Discriminator, amount, limit uint64) []byte {
	data := d.Bytes()
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = binary.LittleEndian.AppendUint64(data, limit)
	return data
}

// BuildBuyInstruction buys exactly amount tokens, spending at most maxSolCost lamports.
func BuildBuyInstruction(accounts InstructionAccounts, user solana.PublicKey, amount, maxSolCost uint64) (solana.Instruction, error) {
	associatedUser, _, err := solana.FindAssociatedTokenAddress(user, accounts.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to get associated token account: %w", err)
	}

	// Account order is fixed by the program
	metas := solana.AccountMetaSlice{
		solana.Meta(accounts.Global),
		solana.Meta(accounts.FeeRecipient).WRITE(),
		solana.Meta(accounts.Mint),
		solana.Meta(accounts.BondingCurve).WRITE(),
		solana.Meta(accounts.AssociatedBondingCurve).WRITE(),
		solana.Meta(associatedUser).WRITE(),
		solana.Meta(user).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(accounts.CreatorVault).WRITE(),
		solana.Meta(accounts.EventAuthority),
		solana.Meta(accounts.Program),
	}
	return solana.NewInstruction(accounts.Program, metas, amountData(buyDiscriminator, amount, maxSolCost)), nil
}

// BuildSellInstruction sells amount tokens for at least minSolOutput lamports.
func BuildSellInstruction(accounts InstructionAccounts, user solana.PublicKey, amount, minSolOutput uint64) (solana.Instruction, error) {
	associatedUser, _, err := solana.FindAssociatedTokenAddress(user, accounts.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to get associated token account: %w", err)
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(accounts.Global),
		solana.Meta(accounts.FeeRecipient).WRITE(),
		solana.Meta(accounts.Mint),
		solana.Meta(accounts.BondingCurve).WRITE(),
		solana.Meta(accounts.AssociatedBondingCurve).WRITE(),
		solana.Meta(associatedUser).WRITE(),
		solana.Meta(user).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(accounts.CreatorVault).WRITE(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(accounts.EventAuthority),
		solana.Meta(accounts.Program),
	}
	return solana.NewInstruction(accounts.Program, metas, amountData(sellDiscriminator, amount, minSolOutput)), nil
}

// CreateArgs are the Borsh arguments of the create instruction.
type CreateArgs struct {
	Name    string
	Symbol  string
	URI     string
	Creator solana.PublicKey
}

// BuildCreateInstruction launches a new mint on a fresh bonding curve. The metadata
// URI must already be hosted; the mint keypair signs alongside the user.
func BuildCreateInstruction(cfg Config, mint, user solana.PublicKey, args CreateArgs) (solana.Instruction, error) {
	if args.Name == "" || args.Symbol == "" {
		return nil, fmt.Errorf("token name and symbol are required")
	}
	if args.Creator.IsZero() {
		args.Creator = user
	}

	global, err := GlobalPDA(cfg.Program)
	if err != nil {
		return nil, err
	}
	curve, err := BondingCurvePDA(cfg.Program, mint)
	if err != nil {
		return nil, err
	}
	assoc, err := AssociatedBondingCurve(curve, mint)
	if err != nil {
		return nil, err
	}
	metadata, err := MetadataPDA(mint)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	buf.Write(createDiscriminator[:])
	if err := bin.NewBorshEncoder(buf).Encode(args); err != nil {
		return nil, fmt.Errorf("failed to encode create args: %w", err)
	}

	metas := solana.AccountMetaSlice{
		solana.Meta(mint).WRITE().SIGNER(),
		solana.Meta(PumpFunMintAuthority),
		solana.Meta(curve).WRITE(),
		solana.Meta(assoc).WRITE(),
		solana.Meta(global),
		solana.Meta(MetaplexMetadataProgID),
		solana.Meta(metadata).WRITE(),
		solana.Meta(user).WRITE().SIGNER(),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SPLAssociatedTokenAccountProgramID),
		solana.Meta(SysvarRentPubkey),
		solana.Meta(cfg.EventAuthority),
		solana.Meta(cfg.Program),
	}
	return solana.NewInstruction(cfg.Program, metas, buf.Bytes()), nil
}
