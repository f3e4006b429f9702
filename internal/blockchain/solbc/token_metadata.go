// internal/blockchain/solbc/token_metadata.go
package solbc

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/layout"
)

const metadataTTL = 5 * time.Minute

var MetaplexMetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// TokenInfo is what the bot shows about a mint.
type TokenInfo struct {
	Mint     solana.PublicKey
	Decimals uint8
	Symbol   string
	Name     string
	URI      string
	// Source is "chain" when names come from Metaplex metadata and "known" for built-in tokens.
	Source string
}

// Label returns the symbol, or a shortened mint when the token has none.
func (t *TokenInfo) Label() string {
	if t.Symbol != "" {
		return t.Symbol
	}
	s := t.Mint.String()
	return s[:4] + ".." + s[len(s)-4:]
}

// MetadataPDA derives the Metaplex metadata account of mint.
func MetadataPDA(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("metadata"), MetaplexMetadataProgramID.Bytes(), mint.Bytes()},
		MetaplexMetadataProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive metadata account: %w", err)
	}
	return addr, nil
}

// TokenInfoCache resolves mint decimals and names, keeping results for a few minutes.
type TokenInfoCache struct {
	client AccountReader
	cache  *expirable.LRU[solana.PublicKey, *TokenInfo]
	logger *zap.Logger
}

func NewTokenInfoCache(client AccountReader, logger *zap.Logger) *TokenInfoCache {
	return &TokenInfoCache{
		client: client,
		cache:  expirable.NewLRU[solana.PublicKey, *TokenInfo](1024, nil, metadataTTL),
		logger: logger.Named("token_info"),
	}
}

// Get returns the token info of mint. Missing metadata is not an error; a missing mint is.
func (c *TokenInfoCache) Get(ctx context.Context, mint solana.PublicKey) (*TokenInfo, error) {
	if info, ok := c.cache.Get(mint); ok {
		return info, nil
	}

	metaAddr, err := MetadataPDA(mint)
	if err != nil {
		return nil, err
	}
	res, err := c.client.GetMultipleAccounts(ctx, []solana.PublicKey{mint, metaAddr})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token accounts: %w", err)
	}
	if res == nil || len(res.Value) != 2 || res.Value[0] == nil {
		return nil, fmt.Errorf("mint %s: %w", mint, ErrAccountNotFound)
	}

	splMint, err := layout.DecodeSPLMint(res.Value[0].Data.GetBinary())
	if err != nil {
		return nil, err
	}
	info := &TokenInfo{Mint: mint, Decimals: splMint.Decimals}

	if acc := res.Value[1]; acc != nil {
		meta, err := layout.DecodeMetaplexMetadata(acc.Data.GetBinary())
		if err != nil {
			c.logger.Debug("Undecodable token metadata", zap.String("mint", mint.String()), zap.Error(err))
		} else {
			info.Name, info.Symbol, info.URI, info.Source = meta.Name, meta.Symbol, meta.URI, "chain"
		}
	}
	if info.Symbol == "" {
		applyKnownToken(info)
	}

	c.cache.Add(mint, info)
	c.logger.Debug("Token info resolved",
		zap.String("mint", mint.String()),
		zap.Uint8("decimals", info.Decimals),
		zap.String("symbol", info.Symbol),
		zap.String("source", info.Source))
	return info, nil
}

func applyKnownToken(info *TokenInfo) {
	switch info.Mint.String() {
	case "So11111111111111111111111111111111111111112":
		info.Symbol, info.Name = "SOL", "Wrapped SOL"
	case "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v":
		info.Symbol, info.Name = "USDC", "USD Coin"
	case "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB":
		info.Symbol, info.Name = "USDT", "USDT"
	default:
		return
	}
	info.Source = "known"
}
