package layout

import "github.com/gagliardetto/solana-go"

const (
	// MetaplexKeyMetadataV1 is the account key byte of a token metadata account.
	MetaplexKeyMetadataV1 = 4

	metaplexMaxName   = 32
	metaplexMaxSymbol = 10
	metaplexMaxURI    = 200
)

// MetaplexMetadata is the leading part of a Metaplex token metadata account.
type MetaplexMetadata struct {
	Key                  uint8
	UpdateAuthority      solana.PublicKey
	Mint                 solana.PublicKey
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
}

// DecodeMetaplexMetadata decodes the fields up to the seller fee; creators and
// later optional fields are not read.
func DecodeMetaplexMetadata(data []byte) (*MetaplexMetadata, error) {
	r := NewReader("metaplex_metadata", data)
	m := &MetaplexMetadata{
		Key:             r.U8(),
		UpdateAuthority: r.PublicKey(),
		Mint:            r.PublicKey(),
		Name:            r.BorshString(metaplexMaxName),
		Symbol:          r.BorshString(metaplexMaxSymbol),
		URI:             r.BorshString(metaplexMaxURI),
	}
	m.SellerFeeBasisPoints = r.U16()
	if err := r.Err(); err != nil {
		return nil, err
	}
	return m, nil
}
