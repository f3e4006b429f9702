// internal/blockchain/solbc/lookup_table.go
package solbc

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// LookupTableCache resolves address lookup tables and keeps them for a short TTL.
// Tables are append-only on chain so a cached copy only ever misses new entries.
type LookupTableCache struct {
	client *Client
	cache  *expirable.LRU[solana.PublicKey, solana.PublicKeySlice]
	logger *zap.Logger
}

func NewLookupTableCache(client *Client, ttl time.Duration, logger *zap.Logger) *LookupTableCache {
	return &LookupTableCache{
		client: client,
		cache:  expirable.NewLRU[solana.PublicKey, solana.PublicKeySlice](64, nil, ttl),
		logger: logger.Named("lut-cache"),
	}
}

// Get returns the addresses stored in the lookup table at addr.
func (l *LookupTableCache) Get(ctx context.Context, addr solana.PublicKey) (solana.PublicKeySlice, error) {
	if addrs, ok := l.cache.Get(addr); ok {
		return addrs, nil
	}
	data, err := l.client.GetAccountData(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lookup table %s: %w", addr, err)
	}
	addrs, err := DecodeLookupTable(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode lookup table %s: %w", addr, err)
	}
	l.cache.Add(addr, addrs)
	l.logger.Debug("Lookup table loaded", zap.String("address", addr.String()), zap.Int("entries", len(addrs)))
	return addrs, nil
}

// Tables resolves a set of tables into the map expected by solana.TransactionAddressTables.
func (l *LookupTableCache) Tables(ctx context.Context, addrs ...solana.PublicKey) (map[solana.PublicKey]solana.PublicKeySlice, error) {
	out := make(map[solana.PublicKey]solana.PublicKeySlice, len(addrs))
	for _, addr := range addrs {
		entries, err := l.Get(ctx, addr)
		if err != nil {
			return nil, err
		}
		out[addr] = entries
	}
	return out, nil
}

// DecodeLookupTable extracts the address list from raw lookup table account data.
func DecodeLookupTable(data []byte) (solana.PublicKeySlice, error) {
	state, err := addresslookuptable.DecodeAddressLookupTableState(data)
	if err != nil {
		return nil, err
	}
	return state.Addresses, nil
}
