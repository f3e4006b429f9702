// internal/dex/raydium/pool_cache.go
package raydium

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// PoolCache remembers resolved pools by mint pair, in either orientation.
type PoolCache struct {
	pools *expirable.LRU[string, *PoolKeys]
}

func NewPoolCache(size int, ttl time.Duration) *PoolCache {
	return &PoolCache{pools: expirable.NewLRU[string, *PoolKeys](size, nil, ttl)}
}

func pairKey(a, b solana.PublicKey) string {
	if a.String() > b.String() {
		a, b = b, a
	}
	return a.String() + "-" + b.String()
}

// Get returns the cached pool for the pair, if any.
func (pc *PoolCache) Get(mintA, mintB solana.PublicKey) (*PoolKeys, bool) {
	return pc.pools.Get(pairKey(mintA, mintB))
}

// Add caches keys under its own pair.
func (pc *PoolCache) Add(keys *PoolKeys) {
	pc.pools.Add(pairKey(keys.BaseMint, keys.QuoteMint), keys)
}

// Len returns the number of live entries.
func (pc *PoolCache) Len() int { return pc.pools.Len() }
