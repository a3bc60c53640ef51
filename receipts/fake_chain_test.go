package receipts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/shutter-network/receipt-watcher/rpc"
	"github.com/shutter-network/receipt-watcher/utils"
)

var (
	hashA   = "0x" + strings.Repeat("ab", 32)
	hashB   = "0x" + strings.Repeat("cd", 32)
	hashC   = "0x" + strings.Repeat("ef", 32)
	sender  = "0x" + strings.Repeat("11", 20)
	target  = "0x" + strings.Repeat("22", 20)
	payload = "0xa9059cbb"
)

// fakeChain is an in-memory node answering the handful of methods the
// waiter needs.
type fakeChain struct {
	mu           sync.Mutex
	chainID      uint64
	head         uint64
	receipts     map[string]Receipt
	receiptAfter map[string]int
	receiptCalls map[string]int
	txs          map[string]map[string]any
	nonces       map[string]uint64
	blocks       map[uint64][]any
	failures     map[string]int
	calls        map[string]int
}

func newFakeChain(chainID uint64) *fakeChain {
	return &fakeChain{
		chainID:      chainID,
		receipts:     make(map[string]Receipt),
		receiptAfter: make(map[string]int),
		receiptCalls: make(map[string]int),
		txs:          make(map[string]map[string]any),
		nonces:       make(map[string]uint64),
		blocks:       make(map[uint64][]any),
		failures:     make(map[string]int),
		calls:        make(map[string]int),
	}
}

func txObject(hash, from string, nonce uint64, to, data string) map[string]any {
	tx := map[string]any{
		"hash":  hash,
		"from":  from,
		"nonce": hexutil.EncodeUint64(nonce),
		"input": data,
	}
	if to != "" {
		tx["to"] = to
	}
	return tx
}

func (c *fakeChain) addReceipt(hash string, status any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.receipts[strings.ToLower(hash)] = Receipt{
		"transactionHash": hash,
		"blockNumber":     "0x9",
		"status":          status,
	}
}

func (c *fakeChain) addTx(tx map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.txs[strings.ToLower(tx["hash"].(string))] = tx
}

func (c *fakeChain) mine(number uint64, txs ...map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, tx := range txs {
		c.blocks[number] = append(c.blocks[number], tx)
	}
	c.head = max(c.head, number)
}

func (c *fakeChain) callCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

func (c *fakeChain) totalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

func (c *fakeChain) Request(ctx context.Context, method string, params ...any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
	if n := c.failures[method]; n > 0 {
		c.failures[method] = n - 1
		return nil, errors.New("flaky node")
	}
	switch method {
	case "eth_chainId":
		return hexutil.EncodeUint64(c.chainID), nil
	case "eth_getTransactionReceipt":
		h := strings.ToLower(params[0].(string))
		c.receiptCalls[h]++
		if c.receiptCalls[h] <= c.receiptAfter[h] {
			return nil, nil
		}
		r, ok := c.receipts[h]
		if !ok {
			return nil, nil
		}
		return map[string]any(r), nil
	case "eth_getTransactionByHash":
		tx, ok := c.txs[strings.ToLower(params[0].(string))]
		if !ok {
			return nil, nil
		}
		return tx, nil
	case "eth_getTransactionCount":
		return hexutil.EncodeUint64(c.nonces[strings.ToLower(params[0].(string))]), nil
	case "eth_blockNumber":
		return hexutil.EncodeUint64(c.head), nil
	case "eth_getBlockByNumber":
		n, ok := utils.ParseUint64(params[0])
		if !ok || n > c.head {
			return nil, nil
		}
		return map[string]any{"number": params[0], "transactions": c.blocks[n]}, nil
	}
	return nil, fmt.Errorf("method %s not supported", method)
}

// staticFactory hands out the same provider for every chain.
type staticFactory struct {
	mu       sync.Mutex
	provider rpc.Provider
	err      error
	dials    int
}

func (f *staticFactory) Provider(ctx context.Context, chainID uint64) (rpc.Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dials++
	if f.err != nil {
		return nil, f.err
	}
	return f.provider, nil
}

func (f *staticFactory) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dials
}
