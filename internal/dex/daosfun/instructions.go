// internal/dex/daosfun/instructions.go
package daosfun

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-bundler/internal/layout"
)

var (
	buyTokenDiscriminator  = layout.InstructionDiscriminator("buy_token")
	sellTokenDiscriminator = layout.InstructionDiscriminator("sell_token")
)

// UserAccounts are the signer and its token accounts for both mints.
type UserAccounts struct {
	Signer         solana.PublicKey
	TokenAccount   solana.PublicKey
	FundingAccount solana.PublicKey
}

// BuildBuyTokenInstruction spends fundingAmount of the funding mint for at least minTokens.
func BuildBuyTokenInstruction(curve *Curve, user UserAccounts, fundingAmount, minTokens uint64) (solana.Instruction, error) {
	return buildTrade(curve, user, buyTokenDiscriminator, fundingAmount, minTokens)
}

// BuildSellTokenInstruction sells tokenAmount for at least minFunding.
func BuildSellTokenInstruction(curve *Curve, user UserAccounts, tokenAmount, minFunding uint64) (solana.Instruction, error) {
	return buildTrade(curve, user, sellTokenDiscriminator, tokenAmount, minFunding)
}

func buildTrade(curve *Curve, user UserAccounts, disc layout.Discriminator, amount, minOut uint64) (solana.Instruction, error) {
	if user.Signer.IsZero() || user.TokenAccount.IsZero() || user.FundingAccount.IsZero() {
		return nil, fmt.Errorf("user token accounts are required")
	}
	data := disc.Bytes()
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = binary.LittleEndian.AppendUint64(data, minOut)

	metas := solana.AccountMetaSlice{
		solana.Meta(user.Signer).WRITE().SIGNER(),
		solana.Meta(curve.Address).WRITE(),
		solana.Meta(curve.State.TokenMint),
		solana.Meta(curve.State.FundingMint),
		solana.Meta(curve.TokenVault).WRITE(),
		solana.Meta(curve.FundingVault).WRITE(),
		solana.Meta(user.TokenAccount).WRITE(),
		solana.Meta(user.FundingAccount).WRITE(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SPLAssociatedTokenAccountProgramID),
		solana.Meta(solana.SystemProgramID),
	}
	return solana.NewInstruction(curve.Program, metas, data), nil
}
