// internal/dex/cpmm/instructions.go
package cpmm

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-bundler/internal/layout"
)

var swapBaseInputDiscriminator = layout.InstructionDiscriminator("swap_base_input")

// SwapAccounts are the user side of a swap.
type SwapAccounts struct {
	Payer       solana.PublicKey
	InputToken  solana.PublicKey
	OutputToken solana.PublicKey
}

// BuildSwapBaseInputInstruction swaps exactly amountIn of inputMint for at least minAmountOut.
func BuildSwapBaseInputInstruction(pool *Pool, user SwapAccounts, inputMint solana.PublicKey, amountIn, minAmountOut uint64) (solana.Instruction, error) {
	if user.Payer.IsZero() || user.InputToken.IsZero() || user.OutputToken.IsZero() {
		return nil, fmt.Errorf("user token accounts are required")
	}
	if !pool.Has(inputMint) {
		return nil, fmt.Errorf("mint %s: %w", inputMint, ErrPoolNotFound)
	}
	in, out := pool.sides(inputMint)

	data := swapBaseInputDiscriminator.Bytes()
	data = binary.LittleEndian.AppendUint64(data, amountIn)
	data = binary.LittleEndian.AppendUint64(data, minAmountOut)

	metas := solana.AccountMetaSlice{
		solana.Meta(user.Payer).SIGNER(),
		solana.Meta(pool.Authority),
		solana.Meta(pool.State.AmmConfig),
		solana.Meta(pool.ID).WRITE(),
		solana.Meta(user.InputToken).WRITE(),
		solana.Meta(user.OutputToken).WRITE(),
		solana.Meta(in.Vault).WRITE(),
		solana.Meta(out.Vault).WRITE(),
		solana.Meta(in.Program),
		solana.Meta(out.Program),
		solana.Meta(in.Mint),
		solana.Meta(out.Mint),
		solana.Meta(pool.State.ObservationKey).WRITE(),
	}
	return solana.NewInstruction(pool.ProgramID, metas, data), nil
}
