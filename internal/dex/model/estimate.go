// internal/dex/model/estimate.go
package model

import (
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// Estimate is the venue-independent outcome of a priced trade, in raw units.
type Estimate struct {
	InputMint   solana.PublicKey
	OutputMint  solana.PublicKey
	AmountIn    uint64
	ExpectedOut uint64
	MinOut      uint64
	// PriceImpact is a fraction; zero when the venue does not report it.
	PriceImpact decimal.Decimal
	// Route names the pools or venues crossed, when known.
	Route []string
}
