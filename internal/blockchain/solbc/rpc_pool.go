// internal/blockchain/solbc/rpc_pool.go
package solbc

import (
	"errors"
	"sync/atomic"

	"github.com/gagliardetto/solana-go/rpc"
)

// RPCPool distributes requests across several endpoints in round-robin order.
type RPCPool struct {
	endpoints []string
	clients   []*rpc.Client
	index     uint64
}

// NewRPCPool creates one rpc.Client per endpoint.
func NewRPCPool(endpoints []string) (*RPCPool, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("rpc pool requires at least one endpoint")
	}
	pool := &RPCPool{
		endpoints: endpoints,
		clients:   make([]*rpc.Client, 0, len(endpoints)),
	}
	for _, endpoint := range endpoints {
		pool.clients = append(pool.clients, rpc.New(endpoint))
	}
	return pool, nil
}

// Next returns the next client.
func (p *RPCPool) Next() *rpc.Client {
	if len(p.clients) == 1 {
		return p.clients[0]
	}
	idx := atomic.AddUint64(&p.index, 1) % uint64(len(p.clients))
	return p.clients[idx]
}

func (p *RPCPool) Size() int { return len(p.clients) }

func (p *RPCPool) Endpoints() []string { return p.endpoints }
