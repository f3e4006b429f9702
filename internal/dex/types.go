// =============================
// File: internal/dex/types.go
// =============================
package dex

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-bundler/internal/dex/model"
	"github.com/rovshanmuradov/solana-bundler/internal/txbuilder"
)

// Protocol names a supported venue.
type Protocol string

const (
	ProtocolPumpFun Protocol = "pumpfun"
	ProtocolRaydium Protocol = "raydium"
	ProtocolCPMM    Protocol = "cpmm"
	ProtocolDaosFun Protocol = "daosfun"
	ProtocolJupiter Protocol = "jupiter"
	// ProtocolSmart trades on Pump.fun and moves to Jupiter once the curve has migrated.
	ProtocolSmart Protocol = "smart"
)

// ParseProtocol accepts the canonical names and a few common spellings.
func ParseProtocol(name string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pumpfun", "pump.fun", "pump":
		return ProtocolPumpFun, nil
	case "raydium", "raydium-v4", "amm":
		return ProtocolRaydium, nil
	case "cpmm", "raydium-cpmm":
		return ProtocolCPMM, nil
	case "daosfun", "daos.fun", "daos":
		return ProtocolDaosFun, nil
	case "jupiter", "jup":
		return ProtocolJupiter, nil
	case "smart", "auto":
		return ProtocolSmart, nil
	default:
		return "", fmt.Errorf("exchange %s is not supported", name)
	}
}

// Operation defines a DEX operation type.
type Operation string

const (
	OperationBuy  Operation = "buy"
	OperationSell Operation = "sell"
	OperationSwap Operation = "swap"
)

// Request describes one trade for one wallet.
type Request struct {
	Operation Operation
	User      solana.PublicKey
	// Mint is the token bought with or sold for SOL.
	Mint solana.PublicKey
	// InputMint and OutputMint are used by OperationSwap.
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	// Pool pins an AMM pool instead of searching for one.
	Pool solana.PublicKey
	// Amount is lamports for a buy and raw input units otherwise.
	Amount       uint64
	SlippageBps  uint64
	CloseAccount bool
	// PriorityFeeLamports is passed to venues that build the whole transaction.
	PriorityFeeLamports uint64
}

// Legs returns the input and output mint of the trade.
func (r *Request) Legs() (in, out solana.PublicKey, err error) {
	switch r.Operation {
	case OperationBuy:
		in, out = txbuilder.WSOLMint, r.Mint
	case OperationSell:
		in, out = r.Mint, txbuilder.WSOLMint
	case OperationSwap:
		in, out = r.InputMint, r.OutputMint
	default:
		return in, out, fmt.Errorf("unsupported operation %q", r.Operation)
	}
	if in.IsZero() || out.IsZero() {
		return in, out, fmt.Errorf("%s requires both mints", r.Operation)
	}
	if in.Equals(out) {
		return in, out, fmt.Errorf("%s: input and output mint are the same", r.Operation)
	}
	return in, out, nil
}

// Plan is an unsigned trade. Exactly one of Instructions and Transaction is set:
// venues that return a complete transaction (Jupiter) fill Transaction.
type Plan struct {
	Protocol     Protocol
	Instructions []solana.Instruction
	Transaction  *solana.Transaction
	Estimate     model.Estimate
}
