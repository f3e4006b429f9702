// =============================
// File: internal/layout/liquidity_v4.go
// =============================
package layout

import (
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// LiquidityStateV4Size is the account size of a Raydium AMM v4 pool.
const LiquidityStateV4Size = 752

// Offsets used by getProgramAccounts memcmp filters.
const (
	LiquidityV4BaseVaultOffset  = 336
	LiquidityV4QuoteVaultOffset = 368
	LiquidityV4BaseMintOffset   = 400
	LiquidityV4QuoteMintOffset  = 432
	LiquidityV4MarketIDOffset   = 528
)

// LiquidityStateV4 mirrors LIQUIDITY_STATE_LAYOUT_V4.
type LiquidityStateV4 struct {
	Status                 uint64
	Nonce                  uint64
	MaxOrder               uint64
	Depth                  uint64
	BaseDecimal            uint64
	QuoteDecimal           uint64
	State                  uint64
	ResetFlag              uint64
	MinSize                uint64
	VolMaxCutRatio         uint64
	AmountWaveRatio        uint64
	BaseLotSize            uint64
	QuoteLotSize           uint64
	MinPriceMultiplier     uint64
	MaxPriceMultiplier     uint64
	SystemDecimalValue     uint64
	MinSeparateNumerator   uint64
	MinSeparateDenominator uint64
	TradeFeeNumerator      uint64
	TradeFeeDenominator    uint64
	PnlNumerator           uint64
	PnlDenominator         uint64
	SwapFeeNumerator       uint64
	SwapFeeDenominator     uint64
	BaseNeedTakePnl        uint64
	QuoteNeedTakePnl       uint64
	QuoteTotalPnl          uint64
	BaseTotalPnl           uint64
	PoolOpenTime           uint64
	PunishPcAmount         uint64
	PunishCoinAmount       uint64
	OrderbookToInitTime    uint64

	SwapBaseInAmount   uint128.Uint128
	SwapQuoteOutAmount uint128.Uint128
	SwapBase2QuoteFee  uint64
	SwapQuoteInAmount  uint128.Uint128
	SwapBaseOutAmount  uint128.Uint128
	SwapQuote2BaseFee  uint64

	BaseVault       solana.PublicKey
	QuoteVault      solana.PublicKey
	BaseMint        solana.PublicKey
	QuoteMint       solana.PublicKey
	LpMint          solana.PublicKey
	OpenOrders      solana.PublicKey
	MarketID        solana.PublicKey
	MarketProgramID solana.PublicKey
	TargetOrders    solana.PublicKey
	WithdrawQueue   solana.PublicKey
	LpVault         solana.PublicKey
	Owner           solana.PublicKey

	LpReserve uint64
}

// DecodeLiquidityStateV4 decodes a 752-byte Raydium AMM v4 pool account.
func DecodeLiquidityStateV4(data []byte) (*LiquidityStateV4, error) {
	r := NewReader("liquidity_state_v4", data).Expect(LiquidityStateV4Size)
	s := &LiquidityStateV4{}

	s.Status = r.U64()
	s.Nonce = r.U64()
	s.MaxOrder = r.U64()
	s.Depth = r.U64()
	s.BaseDecimal = r.U64()
	s.QuoteDecimal = r.U64()
	s.State = r.U64()
	s.ResetFlag = r.U64()
	s.MinSize = r.U64()
	s.VolMaxCutRatio = r.U64()
	s.AmountWaveRatio = r.U64()
	s.BaseLotSize = r.U64()
	s.QuoteLotSize = r.U64()
	s.MinPriceMultiplier = r.U64()
	s.MaxPriceMultiplier = r.U64()
	s.SystemDecimalValue = r.U64()
	s.MinSeparateNumerator = r.U64()
	s.MinSeparateDenominator = r.U64()
	s.TradeFeeNumerator = r.U64()
	s.TradeFeeDenominator = r.U64()
	s.PnlNumerator = r.U64()
	s.PnlDenominator = r.U64()
	s.SwapFeeNumerator = r.U64()
	s.SwapFeeDenominator = r.U64()
	s.BaseNeedTakePnl = r.U64()
	s.QuoteNeedTakePnl = r.U64()
	s.QuoteTotalPnl = r.U64()
	s.BaseTotalPnl = r.U64()
	s.PoolOpenTime = r.U64()
	s.PunishPcAmount = r.U64()
	s.PunishCoinAmount = r.U64()
	s.OrderbookToInitTime = r.U64()

	s.SwapBaseInAmount = r.U128()
	s.SwapQuoteOutAmount = r.U128()
	s.SwapBase2QuoteFee = r.U64()
	s.SwapQuoteInAmount = r.U128()
	s.SwapBaseOutAmount = r.U128()
	s.SwapQuote2BaseFee = r.U64()

	s.BaseVault = r.PublicKey()
	s.QuoteVault = r.PublicKey()
	s.BaseMint = r.PublicKey()
	s.QuoteMint = r.PublicKey()
	s.LpMint = r.PublicKey()
	s.OpenOrders = r.PublicKey()
	s.MarketID = r.PublicKey()
	s.MarketProgramID = r.PublicKey()
	s.TargetOrders = r.PublicKey()
	s.WithdrawQueue = r.PublicKey()
	s.LpVault = r.PublicKey()
	s.Owner = r.PublicKey()

	s.LpReserve = r.U64()
	r.Skip(3 * 8) // padding

	if err := r.Err(); err != nil {
		return nil, err
	}
	return s, nil
}
