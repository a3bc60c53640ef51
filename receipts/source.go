package receipts

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/shutter-network/receipt-watcher/rpc"
	"github.com/shutter-network/receipt-watcher/utils"
)

// Source answers the questions the poll loop asks about one chain. Methods
// return a nil value and a nil error when the node does not know the object.
type Source interface {
	Name() string
	ChainMatches(ctx context.Context, chainID uint64) bool
	Receipt(ctx context.Context, hash string) (Receipt, error)
	Transaction(ctx context.Context, hash string) (*TransactionMeta, error)
	Nonce(ctx context.Context, address string) (uint64, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BlockTransactions(ctx context.Context, number uint64) ([]BlockTransaction, error)
}

type providerSource struct {
	name     string
	provider rpc.Provider
	// bound sources were created for the expected chain and skip eth_chainId
	bound bool
}

// NewWalletSource wraps a wallet-injected provider. It is only usable while
// the wallet reports the expected chain.
func NewWalletSource(p rpc.Provider) Source {
	return &providerSource{name: "wallet", provider: p}
}

// NewRPCSource wraps a read-only provider that was opened for the expected chain.
func NewRPCSource(p rpc.Provider) Source {
	return &providerSource{name: "rpc", provider: p, bound: true}
}

func (s *providerSource) Name() string {
	return s.name
}

func (s *providerSource) ChainMatches(ctx context.Context, chainID uint64) bool {
	if s.bound {
		return true
	}
	id, err := rpc.ChainID(ctx, s.provider)
	return err == nil && id == chainID
}

func (s *providerSource) Receipt(ctx context.Context, hash string) (Receipt, error) {
	v, err := s.provider.Request(ctx, "eth_getTransactionReceipt", hash)
	if err != nil || v == nil {
		return nil, err
	}
	switch r := v.(type) {
	case map[string]any:
		return Receipt(r), nil
	case Receipt:
		return r, nil
	default:
		return nil, fmt.Errorf("unexpected receipt type %T", v)
	}
}

func (s *providerSource) Transaction(ctx context.Context, hash string) (*TransactionMeta, error) {
	v, err := s.provider.Request(ctx, "eth_getTransactionByHash", hash)
	if err != nil || v == nil {
		return nil, err
	}
	fields, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected transaction type %T", v)
	}
	tx, err := parseTransaction(fields)
	if err != nil {
		return nil, err
	}
	return &tx.TransactionMeta, nil
}

func (s *providerSource) Nonce(ctx context.Context, address string) (uint64, error) {
	v, err := s.provider.Request(ctx, "eth_getTransactionCount", address, "latest")
	if err != nil {
		return 0, err
	}
	nonce, ok := utils.ParseUint64(v)
	if !ok {
		return 0, fmt.Errorf("invalid nonce %v", v)
	}
	return nonce, nil
}

func (s *providerSource) BlockNumber(ctx context.Context) (uint64, error) {
	v, err := s.provider.Request(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}
	number, ok := utils.ParseUint64(v)
	if !ok {
		return 0, fmt.Errorf("invalid block number %v", v)
	}
	return number, nil
}

func (s *providerSource) BlockTransactions(ctx context.Context, number uint64) ([]BlockTransaction, error) {
	v, err := s.provider.Request(ctx, "eth_getBlockByNumber", hexutil.EncodeUint64(number), true)
	if err != nil || v == nil {
		return nil, err
	}
	block, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected block type %T", v)
	}
	raw, _ := block["transactions"].([]any)
	txs := make([]BlockTransaction, 0, len(raw))
	for _, entry := range raw {
		// hash-only entries carry nothing to compare against
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		tx, err := parseTransaction(fields)
		if err != nil {
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func parseTransaction(fields map[string]any) (BlockTransaction, error) {
	var tx BlockTransaction
	hash, ok := utils.NormalizeTxHash(fields["hash"])
	if !ok {
		return tx, fmt.Errorf("transaction without valid hash")
	}
	from, ok := utils.NormalizeAddress(fields["from"])
	if !ok {
		return tx, fmt.Errorf("transaction %s without valid sender", hash)
	}
	nonce, ok := utils.ParseUint64(fields["nonce"])
	if !ok {
		return tx, fmt.Errorf("transaction %s without valid nonce", hash)
	}
	tx.Hash = hash
	tx.From = from
	tx.Nonce = nonce
	if to, ok := utils.NormalizeAddress(fields["to"]); ok {
		tx.To = to
	}
	input, present := fields["input"]
	if !present {
		input = fields["data"]
	}
	if data, ok := utils.NormalizeHexData(input); ok {
		tx.Data = data
	}
	return tx, nil
}
