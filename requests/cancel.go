package requests

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog/log"
)

// ReplaceMode selects what a same-nonce replacement does.
type ReplaceMode int

const (
	ReplaceSpeedUp ReplaceMode = iota + 1 // same call, higher gas price
	ReplaceCancel                         // zero value transfer to the sender itself
)

func (m ReplaceMode) String() string {
	switch m {
	case ReplaceSpeedUp:
		return "speed-up"
	case ReplaceCancel:
		return "cancel"
	default:
		return fmt.Sprintf("ReplaceMode(%d)", int(m))
	}
}

// nodes reject replacements that do not raise the price by at least 10%
const minBumpPercent = 10

// BumpGasPrice returns the price a replacement of a transaction priced at
// original has to pay: at least 10% more than original, or suggested if that
// is higher.
func BumpGasPrice(original, suggested *big.Int) *big.Int {
	if original == nil {
		original = new(big.Int)
	}
	bumped := new(big.Int).Mul(original, big.NewInt(100+minBumpPercent))
	bumped.Add(bumped, big.NewInt(99))
	bumped.Div(bumped, big.NewInt(100))
	if bumped.Cmp(original) <= 0 {
		bumped.Add(original, big.NewInt(1))
	}
	if suggested != nil && suggested.Cmp(bumped) > 0 {
		return new(big.Int).Set(suggested)
	}
	return bumped
}

func replacementTx(original *types.Transaction, from common.Address, gasPrice *big.Int, mode ReplaceMode) (*types.LegacyTx, error) {
	switch mode {
	case ReplaceSpeedUp:
		return &types.LegacyTx{
			Nonce:    original.Nonce(),
			To:       original.To(),
			Value:    original.Value(),
			Gas:      original.Gas(),
			GasPrice: gasPrice,
			Data:     original.Data(),
		}, nil
	case ReplaceCancel:
		self := from
		return &types.LegacyTx{
			Nonce:    original.Nonce(),
			To:       &self,
			Value:    big.NewInt(0),
			Gas:      transferGas,
			GasPrice: gasPrice,
			Data:     make([]byte, 0),
		}, nil
	default:
		return nil, fmt.Errorf("unknown replace mode %v", mode)
	}
}

// ReplaceTx sends a transaction with the nonce of original that supersedes it
// once mined.
func ReplaceTx(ctx context.Context, clientURL string, pKey string, original *types.Transaction, mode ReplaceMode) (*types.Transaction, error) {
	log.Info().
		Str("txHash", original.Hash().Hex()).
		Uint64("nonce", original.Nonce()).
		Stringer("mode", mode).
		Msg("replacing transaction")

	s, err := dialSender(ctx, clientURL, pKey)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	suggested, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get suggested gas price: %w", err)
	}

	legacy, err := replacementTx(original, s.from, BumpGasPrice(original.GasPrice(), suggested), mode)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, legacy)
}
