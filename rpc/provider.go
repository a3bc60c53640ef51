// Package rpc holds the narrow request capability both receipt sources are
// built on, plus a registry of JSON-RPC endpoints per chain.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	ethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/shutter-network/receipt-watcher/utils"
)

var (
	// ErrNoEndpoint is returned by the registry when no URL is known for a chain.
	ErrNoEndpoint = errors.New("no rpc endpoint for chain")
	// ErrNullResult is returned by helpers that need a non-null answer.
	ErrNullResult = errors.New("rpc returned null")
)

// Provider is the EIP-1193 style request capability: anything that can answer
// a JSON-RPC method call. A nil result with a nil error means the node
// answered null.
type Provider interface {
	Request(ctx context.Context, method string, params ...any) (any, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context, method string, params ...any) (any, error)

func (f ProviderFunc) Request(ctx context.Context, method string, params ...any) (any, error) {
	return f(ctx, method, params...)
}

// JSONRPCProvider implements Provider on top of a go-ethereum rpc client.
// Numbers in results are kept as json.Number, hex quantities stay strings.
type JSONRPCProvider struct {
	url    string
	client *ethrpc.Client
}

// Dial connects to an HTTP or websocket JSON-RPC endpoint.
func Dial(ctx context.Context, url string) (*JSONRPCProvider, error) {
	client, err := ethrpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	return &JSONRPCProvider{url: url, client: client}, nil
}

// NewJSONRPCProvider wraps an existing client, e.g. an in-process one.
func NewJSONRPCProvider(client *ethrpc.Client) *JSONRPCProvider {
	return &JSONRPCProvider{client: client}
}

func (p *JSONRPCProvider) Request(ctx context.Context, method string, params ...any) (any, error) {
	var raw json.RawMessage
	if err := p.client.CallContext(ctx, &raw, method, params...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return decodeResult(raw)
}

func (p *JSONRPCProvider) URL() string {
	return p.url
}

func (p *JSONRPCProvider) Close() {
	p.client.Close()
}

func decodeResult(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("could not decode result: %w", err)
	}
	return v, nil
}

// ChainID asks p for its chain id.
func ChainID(ctx context.Context, p Provider) (uint64, error) {
	v, err := p.Request(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, fmt.Errorf("eth_chainId: %w", ErrNullResult)
	}
	id, ok := utils.ParseUint64(v)
	if !ok {
		return 0, fmt.Errorf("eth_chainId: invalid chain id %v", v)
	}
	return id, nil
}
