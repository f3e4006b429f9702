// internal/layout/spl.go
package layout

import (
	"github.com/gagliardetto/solana-go"
)

const (
	SPLMintSize         = 82
	SPLTokenAccountSize = 165
)

// SPLMint mirrors SPL_MINT_LAYOUT.
type SPLMint struct {
	MintAuthorityOption   uint32
	MintAuthority         solana.PublicKey
	Supply                uint64
	Decimals              uint8
	IsInitialized         bool
	FreezeAuthorityOption uint32
	FreezeAuthority       solana.PublicKey
}

// HasMintAuthority reports whether the COption tag is set.
func (m *SPLMint) HasMintAuthority() bool { return m.MintAuthorityOption != 0 }

func (m *SPLMint) HasFreezeAuthority() bool { return m.FreezeAuthorityOption != 0 }

// DecodeSPLMint decodes an 82-byte SPL token mint.
func DecodeSPLMint(data []byte) (*SPLMint, error) {
	r := NewReader("spl_mint", data).Expect(SPLMintSize)
	m := &SPLMint{
		MintAuthorityOption: r.U32(),
		MintAuthority:       r.PublicKey(),
		Supply:              r.U64(),
		Decimals:            r.U8(),
		IsInitialized:       r.Bool(),
	}
	m.FreezeAuthorityOption = r.U32()
	m.FreezeAuthority = r.PublicKey()
	if err := r.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// TokenAccount mirrors the SPL token account layout.
type TokenAccount struct {
	Mint                 solana.PublicKey
	Owner                solana.PublicKey
	Amount               uint64
	DelegateOption       uint32
	Delegate             solana.PublicKey
	State                uint8
	IsNativeOption       uint32
	IsNative             uint64
	DelegatedAmount      uint64
	CloseAuthorityOption uint32
	CloseAuthority       solana.PublicKey
}

// DecodeTokenAccount decodes a 165-byte SPL token account. Token-2022 accounts
// carry extensions after the base layout and decode the same way.
func DecodeTokenAccount(data []byte) (*TokenAccount, error) {
	r := NewReader("spl_token_account", data).Expect(SPLTokenAccountSize)
	a := &TokenAccount{}
	a.Mint = r.PublicKey()
	a.Owner = r.PublicKey()
	a.Amount = r.U64()
	a.DelegateOption = r.U32()
	a.Delegate = r.PublicKey()
	a.State = r.U8()
	a.IsNativeOption = r.U32()
	a.IsNative = r.U64()
	a.DelegatedAmount = r.U64()
	a.CloseAuthorityOption = r.U32()
	a.CloseAuthority = r.PublicKey()
	if err := r.Err(); err != nil {
		return nil, err
	}
	return a, nil
}
