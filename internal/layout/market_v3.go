// internal/layout/market_v3.go
package layout

import (
	"github.com/gagliardetto/solana-go"
)

// MarketStateV3Size is the account size of an OpenBook/Serum v3 market.
const MarketStateV3Size = 388

// MarketStateV3 mirrors MARKET_STATE_LAYOUT_V3.
type MarketStateV3 struct {
	AccountFlags           uint64
	OwnAddress             solana.PublicKey
	VaultSignerNonce       uint64
	BaseMint               solana.PublicKey
	QuoteMint              solana.PublicKey
	BaseVault              solana.PublicKey
	BaseDepositsTotal      uint64
	BaseFeesAccrued        uint64
	QuoteVault             solana.PublicKey
	QuoteDepositsTotal     uint64
	QuoteFeesAccrued       uint64
	QuoteDustThreshold     uint64
	RequestQueue           solana.PublicKey
	EventQueue             solana.PublicKey
	Bids                   solana.PublicKey
	Asks                   solana.PublicKey
	BaseLotSize            uint64
	QuoteLotSize           uint64
	FeeRateBps             uint64
	ReferrerRebatesAccrued uint64
}

// DecodeMarketStateV3 decodes a 388-byte market account including the
// 5-byte "serum" head and 7-byte "padding" tail.
func DecodeMarketStateV3(data []byte) (*MarketStateV3, error) {
	r := NewReader("market_state_v3", data).Expect(MarketStateV3Size)
	m := &MarketStateV3{}

	r.Skip(5)
	m.AccountFlags = r.U64()
	m.OwnAddress = r.PublicKey()
	m.VaultSignerNonce = r.U64()
	m.BaseMint = r.PublicKey()
	m.QuoteMint = r.PublicKey()
	m.BaseVault = r.PublicKey()
	m.BaseDepositsTotal = r.U64()
	m.BaseFeesAccrued = r.U64()
	m.QuoteVault = r.PublicKey()
	m.QuoteDepositsTotal = r.U64()
	m.QuoteFeesAccrued = r.U64()
	m.QuoteDustThreshold = r.U64()
	m.RequestQueue = r.PublicKey()
	m.EventQueue = r.PublicKey()
	m.Bids = r.PublicKey()
	m.Asks = r.PublicKey()
	m.BaseLotSize = r.U64()
	m.QuoteLotSize = r.U64()
	m.FeeRateBps = r.U64()
	m.ReferrerRebatesAccrued = r.U64()
	r.Skip(7)

	if err := r.Err(); err != nil {
		return nil, err
	}
	return m, nil
}
