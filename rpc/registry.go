package rpc

import (
	"context"
	"fmt"
	"sync"
)

const (
	GnosisChainID = uint64(100)
	ChiadoChainID = uint64(10200)
)

// DefaultEndpoints are used for chains without an explicit RPC_URL_<chainID>.
var DefaultEndpoints = map[uint64]string{
	GnosisChainID: "https://erpc.gnosis.shutter.network",
	ChiadoChainID: "https://erpc.chiado.staging.shutter.network",
}

// ProviderFactory builds a read-only provider bound to one chain.
type ProviderFactory interface {
	Provider(ctx context.Context, chainID uint64) (Provider, error)
}

// DialFn opens a provider for an endpoint URL.
type DialFn func(ctx context.Context, url string) (Provider, error)

// Registry maps chain ids to endpoint URLs. Every call to Provider dials a
// fresh connection; callers close it when done.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[uint64]string
	dial      DialFn
}

func NewRegistry(endpoints map[uint64]string) *Registry {
	r := &Registry{
		endpoints: make(map[uint64]string, len(endpoints)),
		dial: func(ctx context.Context, url string) (Provider, error) {
			return Dial(ctx, url)
		},
	}
	for id, url := range endpoints {
		r.endpoints[id] = url
	}
	return r
}

// WithDial replaces the function used to open connections.
func (r *Registry) WithDial(dial DialFn) *Registry {
	r.dial = dial
	return r
}

func (r *Registry) Set(chainID uint64, url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[chainID] = url
}

func (r *Registry) Endpoint(chainID uint64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	url, ok := r.endpoints[chainID]
	if !ok || url == "" {
		return "", false
	}
	return url, true
}

func (r *Registry) Provider(ctx context.Context, chainID uint64) (Provider, error) {
	url, ok := r.Endpoint(chainID)
	if !ok {
		return nil, fmt.Errorf("%w %d", ErrNoEndpoint, chainID)
	}
	return r.dial(ctx, url)
}
