// internal/dex/raydium/instructions.go
package raydium

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// SwapAccounts are the user side of a swap.
type SwapAccounts struct {
	Owner       solana.PublicKey
	SourceToken solana.PublicKey
	DestToken   solana.PublicKey
}

// BuildSwapBaseInInstruction swaps exactly amountIn of the source token for at least minAmountOut.
// Direction is implied by which user token accounts are passed as source and destination.
func BuildSwapBaseInInstruction(keys *PoolKeys, user SwapAccounts, amountIn, minAmountOut uint64) (solana.Instruction, error) {
	if user.Owner.IsZero() || user.SourceToken.IsZero() || user.DestToken.IsZero() {
		return nil, fmt.Errorf("user token accounts are required")
	}

	data := make([]byte, SwapInstructionSize)
	data[0] = InstructionSwapBaseIn
	binary.LittleEndian.PutUint64(data[1:9], amountIn)
	binary.LittleEndian.PutUint64(data[9:17], minAmountOut)

	// Account order is fixed by the program
	metas := solana.AccountMetaSlice{
		solana.Meta(solana.TokenProgramID),
		solana.Meta(keys.ID).WRITE(),
		solana.Meta(keys.Authority),
		solana.Meta(keys.OpenOrders).WRITE(),
		solana.Meta(keys.TargetOrders).WRITE(),
		solana.Meta(keys.BaseVault).WRITE(),
		solana.Meta(keys.QuoteVault).WRITE(),
		solana.Meta(keys.MarketProgramID),
		solana.Meta(keys.MarketID).WRITE(),
		solana.Meta(keys.MarketBids).WRITE(),
		solana.Meta(keys.MarketAsks).WRITE(),
		solana.Meta(keys.MarketEventQueue).WRITE(),
		solana.Meta(keys.MarketBaseVault).WRITE(),
		solana.Meta(keys.MarketQuoteVault).WRITE(),
		solana.Meta(keys.MarketAuthority),
		solana.Meta(user.SourceToken).WRITE(),
		solana.Meta(user.DestToken).WRITE(),
		solana.Meta(user.Owner).SIGNER(),
	}
	return solana.NewInstruction(keys.ProgramID, metas, data), nil
}
