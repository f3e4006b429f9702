// =============================
// File: internal/dex/dex.go
// =============================
package dex

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-bundler/internal/dex/cpmm"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/daosfun"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/jupiter"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/pumpfun"
	"github.com/rovshanmuradov/solana-bundler/internal/dex/raydium"
)

// DEX is the common interface of every venue.
type DEX interface {
	// GetName returns the venue name.
	GetName() string
	// Plan prices req and returns the unsigned instructions or transaction for it.
	Plan(ctx context.Context, req *Request) (*Plan, error)
}

// Deps are shared by every venue the factory builds.
type Deps struct {
	Client         raydium.Client
	Jupiter        *jupiter.Client
	PumpFun        pumpfun.Config
	DaosFunProgram solana.PublicKey
	PoolCacheTTL   time.Duration
	Logger         *zap.Logger
}

// Factory builds venues on first use and reuses them afterwards,
// so pool caches and the Pump.fun global account live across tasks.
type Factory struct {
	deps Deps

	mu    sync.Mutex
	dexes map[Protocol]DEX
}

func NewFactory(deps Deps) (*Factory, error) {
	if deps.Client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if deps.Jupiter == nil {
		deps.Jupiter = jupiter.NewClient(jupiter.DefaultOptions(), deps.Logger)
	}
	return &Factory{deps: deps, dexes: make(map[Protocol]DEX)}, nil
}

// GetDEXByName returns the venue for name.
func (f *Factory) GetDEXByName(name string) (DEX, error) {
	p, err := ParseProtocol(name)
	if err != nil {
		return nil, err
	}
	return f.Get(p)
}

// Get returns the venue for p, creating it on first use.
func (f *Factory) Get(p Protocol) (DEX, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.getLocked(p)
}

func (f *Factory) getLocked(p Protocol) (DEX, error) {
	if d, ok := f.dexes[p]; ok {
		return d, nil
	}
	d, err := f.build(p)
	if err != nil {
		return nil, err
	}
	f.dexes[p] = d
	return d, nil
}

func (f *Factory) build(p Protocol) (DEX, error) {
	log := f.deps.Logger
	switch p {
	case ProtocolPumpFun:
		return &pumpfunAdapter{
			baseAdapter: baseAdapter{name: "Pump.fun", protocol: p, logger: log},
			inner:       pumpfun.NewDEX(f.deps.Client, f.deps.PumpFun, log),
		}, nil
	case ProtocolRaydium:
		return &raydiumAdapter{
			baseAdapter: baseAdapter{name: "Raydium", protocol: p, logger: log},
			inner:       raydium.NewDEX(f.deps.Client, f.deps.PoolCacheTTL, log),
		}, nil
	case ProtocolCPMM:
		return &cpmmAdapter{
			baseAdapter: baseAdapter{name: "Raydium CPMM", protocol: p, logger: log},
			inner:       cpmm.NewDEX(f.deps.Client, f.deps.PoolCacheTTL, log),
		}, nil
	case ProtocolDaosFun:
		inner, err := daosfun.NewDEX(f.deps.Client, f.deps.DaosFunProgram, log)
		if err != nil {
			return nil, fmt.Errorf("could not create DEX for DAOS.fun: %w", err)
		}
		return &daosfunAdapter{
			baseAdapter: baseAdapter{name: "DAOS.fun", protocol: p, logger: log},
			inner:       inner,
		}, nil
	case ProtocolJupiter:
		return &jupiterAdapter{
			baseAdapter: baseAdapter{name: "Jupiter", protocol: p, logger: log},
			inner:       f.deps.Jupiter,
		}, nil
	case ProtocolSmart:
		primary, err := f.getLocked(ProtocolPumpFun)
		if err != nil {
			return nil, err
		}
		fallback, err := f.getLocked(ProtocolJupiter)
		if err != nil {
			return nil, err
		}
		return newSmartAdapter(primary, fallback, log), nil
	default:
		return nil, fmt.Errorf("exchange %s is not supported", p)
	}
}

// PumpFun returns the bonding curve venue. Bundle buys use it to price every
// wallet against a single fetched curve state.
func (f *Factory) PumpFun() (*pumpfun.DEX, error) {
	d, err := f.Get(ProtocolPumpFun)
	if err != nil {
		return nil, err
	}
	adapter, ok := d.(*pumpfunAdapter)
	if !ok {
		return nil, fmt.Errorf("unexpected Pump.fun venue %T", d)
	}
	return adapter.Curve(), nil
}

// Raydium returns the AMM v4 venue.
func (f *Factory) Raydium() (*raydium.DEX, error) {
	d, err := f.Get(ProtocolRaydium)
	if err != nil {
		return nil, err
	}
	adapter, ok := d.(*raydiumAdapter)
	if !ok {
		return nil, fmt.Errorf("unexpected Raydium venue %T", d)
	}
	return adapter.inner, nil
}
