// =============================
// File: internal/dex/pumpfun/accounts.go
// =============================
package pumpfun

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-bundler/internal/layout"
)

// ErrCurveComplete is returned when trading a mint whose curve has migrated to an AMM.
var ErrCurveComplete = errors.New("bonding curve is complete")

// GlobalAccount is the protocol-wide Pump.fun configuration.
type GlobalAccount struct {
	Initialized                 bool
	Authority                   solana.PublicKey
	FeeRecipient                solana.PublicKey
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
}

// DecodeGlobal decodes the Anchor "Global" account.
func DecodeGlobal(data []byte) (*GlobalAccount, error) {
	var g GlobalAccount
	if err := layout.DecodeAnchor(data, "Global", &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// InitialReserves returns the reserves a freshly created curve starts from.
func (g *GlobalAccount) InitialReserves() Reserves {
	return Reserves{
		VirtualSol:   g.InitialVirtualSolReserves,
		VirtualToken: g.InitialVirtualTokenReserves,
		RealToken:    g.InitialRealTokenReserves,
	}
}

// BondingCurve is the per-mint curve state.
type BondingCurve struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
	// Creator is zero on curves created before creator fees existed.
	Creator solana.PublicKey
}

// bondingCurveMinSize covers the discriminator and every field before Creator.
const bondingCurveMinSize = layout.DiscriminatorSize + 5*8 + 1

var bondingCurveDiscriminator = layout.AccountDiscriminator("BondingCurve")

// DecodeBondingCurve decodes the Anchor "BondingCurve" account.
func DecodeBondingCurve(data []byte) (*BondingCurve, error) {
	if err := layout.CheckDiscriminator("BondingCurve", data, bondingCurveDiscriminator); err != nil {
		return nil, err
	}
	r := layout.NewReader("BondingCurve", data).Expect(bondingCurveMinSize)
	r.Skip(layout.DiscriminatorSize)

	bc := &BondingCurve{
		VirtualTokenReserves: r.U64(),
		VirtualSolReserves:   r.U64(),
		RealTokenReserves:    r.U64(),
		RealSolReserves:      r.U64(),
		TokenTotalSupply:     r.U64(),
		Complete:             r.Bool(),
	}
	if r.Remaining() >= solana.PublicKeyLength {
		bc.Creator = r.PublicKey()
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return bc, nil
}

// Reserves projects the account onto the curve math inputs.
func (bc *BondingCurve) Reserves() Reserves {
	return Reserves{
		VirtualSol:   bc.VirtualSolReserves,
		VirtualToken: bc.VirtualTokenReserves,
		RealToken:    bc.RealTokenReserves,
		RealSol:      bc.RealSolReserves,
	}
}

// Progress is the share of sellable tokens already bought, in percent.
func (bc *BondingCurve) Progress(initialRealToken uint64) float64 {
	if initialRealToken == 0 || bc.RealTokenReserves >= initialRealToken {
		return 0
	}
	return float64(initialRealToken-bc.RealTokenReserves) / float64(initialRealToken) * 100
}

func (bc *BondingCurve) String() string {
	return fmt.Sprintf("vsol=%d vtoken=%d rtoken=%d rsol=%d complete=%t",
		bc.VirtualSolReserves, bc.VirtualTokenReserves, bc.RealTokenReserves, bc.RealSolReserves, bc.Complete)
}
