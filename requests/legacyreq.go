package requests

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog/log"
)

const transferGas = uint64(21000)

// txSender is a connected client together with the key transactions are
// signed with.
type txSender struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
}

func dialSender(ctx context.Context, clientURL string, pKey string) (*txSender, error) {
	client, err := ethclient.DialContext(ctx, clientURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the Ethereum client: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(pKey, "0x"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	return &txSender{
		client:  client,
		key:     privateKey,
		from:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID: chainID,
	}, nil
}

func (s *txSender) Close() {
	s.client.Close()
}

func (s *txSender) send(ctx context.Context, legacy *types.LegacyTx) (*types.Transaction, error) {
	signer := types.NewLondonSigner(s.chainID)
	signedTx, err := types.SignTx(types.NewTx(legacy), signer, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	rawTxBytes, err := signedTx.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal transaction: %w", err)
	}
	log.Debug().RawJSON("tx", rawTxBytes).Msg("signed transaction")

	if err := s.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	log.Info().
		Str("txHash", signedTx.Hash().Hex()).
		Str("from", s.from.Hex()).
		Uint64("nonce", signedTx.Nonce()).
		Stringer("gasPrice", signedTx.GasPrice()).
		Msg("transaction sent")
	return signedTx, nil
}

// SendLegacyTx sends 1 wei from the key's account to itself at the pending
// nonce and the suggested gas price.
func SendLegacyTx(ctx context.Context, clientURL string, pKey string) (*types.Transaction, error) {
	s, err := dialSender(ctx, clientURL, pKey)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get suggested gas price: %w", err)
	}

	toAddress := s.from
	return s.send(ctx, &types.LegacyTx{
		Nonce:    nonce,
		To:       &toAddress,
		Value:    big.NewInt(1),
		Gas:      transferGas,
		GasPrice: gasPrice,
		Data:     make([]byte, 0),
	})
}
