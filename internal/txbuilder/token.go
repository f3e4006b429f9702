// internal/txbuilder/token.go
package txbuilder

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

var (
	// WSOLMint is the native mint used to wrap SOL into an SPL token account.
	WSOLMint = solana.SolMint
	// Token2022ProgramID owns mints created with the token extensions program.
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
)

// createIdempotent is the associated-token-account instruction tag that tolerates an existing account.
const createIdempotent = 1

// FindATA derives owner's associated token account for a mint owned by tokenProgram.
func FindATA(owner, mint, tokenProgram solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindProgramAddress([][]byte{
		owner[:],
		tokenProgram[:],
		mint[:],
	}, solana.SPLAssociatedTokenAccountProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token account: %w", err)
	}
	return ata, nil
}

// CreateATAIdempotent creates owner's associated token account for mint unless it already exists.
func CreateATAIdempotent(payer, owner, mint solana.PublicKey) (solana.Instruction, solana.PublicKey, error) {
	return CreateATAIdempotentForProgram(payer, owner, mint, solana.TokenProgramID)
}

// CreateATAIdempotentForProgram is CreateATAIdempotent for mints of any token program, e.g. Token-2022.
func CreateATAIdempotentForProgram(payer, owner, mint, tokenProgram solana.PublicKey) (solana.Instruction, solana.PublicKey, error) {
	ata, err := FindATA(owner, mint, tokenProgram)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(ata).WRITE(),
		solana.Meta(owner),
		solana.Meta(mint),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(tokenProgram),
	}
	return solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, metas, []byte{createIdempotent}), ata, nil
}

// WrapSOLInstructions funds owner's WSOL account with lamports and syncs its token balance.
func WrapSOLInstructions(owner solana.PublicKey, lamports uint64) ([]solana.Instruction, solana.PublicKey, error) {
	createIx, wsolATA, err := CreateATAIdempotent(owner, owner, WSOLMint)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}
	transferIx := system.NewTransferInstruction(lamports, owner, wsolATA).Build()
	syncIx := token.NewSyncNativeInstruction(wsolATA).Build()
	return []solana.Instruction{createIx, transferIx, syncIx}, wsolATA, nil
}

// CloseAccountInstruction closes a token account, returning its rent (and any WSOL) to owner.
func CloseAccountInstruction(account, owner solana.PublicKey) solana.Instruction {
	return token.NewCloseAccountInstruction(account, owner, owner, nil).Build()
}

// UnwrapSOLInstruction closes owner's WSOL account.
func UnwrapSOLInstruction(owner solana.PublicKey) (solana.Instruction, error) {
	wsolATA, _, err := solana.FindAssociatedTokenAddress(owner, WSOLMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive WSOL account: %w", err)
	}
	return CloseAccountInstruction(wsolATA, owner), nil
}

// TransferInstruction moves lamports between system accounts.
func TransferInstruction(from, to solana.PublicKey, lamports uint64) solana.Instruction {
	return system.NewTransferInstruction(lamports, from, to).Build()
}
