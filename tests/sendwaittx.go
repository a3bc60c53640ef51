package tests

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog/log"

	"github.com/shutter-network/receipt-watcher/config"
	"github.com/shutter-network/receipt-watcher/receipts"
	"github.com/shutter-network/receipt-watcher/requests"
	"github.com/shutter-network/receipt-watcher/utils"
)

func waitRequest(cfg config.Config, tx *types.Transaction) receipts.Request {
	req := receipts.Request{
		ChainID:      tx.ChainId().Uint64(),
		TxHash:       tx.Hash().Hex(),
		Timeout:      cfg.Timeout,
		PollInterval: cfg.PollInterval,
	}
	if from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
		req.Tracking.From = from.Hex()
	}
	if to := tx.To(); to != nil {
		req.Tracking.To = to.Hex()
	}
	return req
}

// SendAndCheckTransaction sends a transaction and reports whether it was
// confirmed within cfg.Timeout. A transaction that times out is cancelled by a
// same-nonce replacement, and the wait is repeated so that whichever of the two
// gets mined is reported.
func SendAndCheckTransaction(ctx context.Context, cfg config.Config, waiter *receipts.Waiter) bool {
	signedTx, err := requests.SendLegacyTx(ctx, cfg.NodeURL, cfg.PrivateKey)
	if err != nil {
		log.Error().Err(err).Msg("failed to send transaction")
		return false
	}

	req := waitRequest(cfg, signedTx)
	result := waiter.Wait(ctx, req)
	switch result.Outcome {
	case receipts.OutcomeConfirmed:
		if result.Replaced() {
			log.Warn().Str("txHash", req.TxHash).Str("replacement", result.ReplacementTxHash).Msg("transaction was replaced")
			return false
		}
		return true
	case receipts.OutcomeReverted, receipts.OutcomeCancelled:
		return false
	}

	log.Warn().Str("txHash", req.TxHash).Dur("timeout", cfg.Timeout).Msg("transaction not received within timeout, cancelling transaction")
	cancelTx, err := requests.ReplaceTx(ctx, cfg.NodeURL, cfg.PrivateKey, signedTx, requests.ReplaceCancel)
	if err != nil {
		log.Warn().Err(err).Msg("cancelling transaction failed, checking if transaction got confirmed in the meantime")
	}

	again := waiter.Wait(ctx, req)
	logger := log.With().Str("txHash", req.TxHash).Stringer("outcome", again.Outcome).Logger()
	switch {
	case again.Outcome == receipts.OutcomeConfirmed && !again.Replaced():
		logger.Info().Msg("transaction confirmed in the meantime")
	case again.Replaced() && cancelTx != nil && utils.SameHash(again.TxHash, cancelTx.Hash().Hex()):
		logger.Info().Str("replacement", again.TxHash).Msg("cancel transaction mined in place of the original")
	case again.Replaced():
		logger.Warn().Str("replacement", again.TxHash).Msg("transaction replaced by an unknown transaction")
	default:
		logger.Error().Msg("neither transaction nor its cancellation resolved")
	}
	return false
}

// RunSendAndWaitTest sends transactions one after the other for
// cfg.TestDuration and logs the success ratio.
func RunSendAndWaitTest(ctx context.Context, cfg config.Config, waiter *receipts.Waiter) (successCount, failCount int) {
	endTime := time.Now().Add(cfg.TestDuration)

	log.Info().
		Dur("testDuration", cfg.TestDuration).
		Dur("waitTimeout", cfg.Timeout).
		Str("nodeURL", cfg.NodeURL).
		Msg("running send and wait transactions")

	for time.Now().Before(endTime) && ctx.Err() == nil {
		if SendAndCheckTransaction(ctx, cfg, waiter) {
			successCount++
		} else {
			failCount++
		}
	}

	totalAttempts := successCount + failCount
	if totalAttempts == 0 {
		log.Warn().Msg("no transaction was sent")
		return
	}
	successPercentage := float64(successCount) / float64(totalAttempts) * 100
	log.Info().
		Dur("testDuration", cfg.TestDuration).
		Dur("waitTimeout", cfg.Timeout).
		Int("successes", successCount).
		Int("failures", failCount).
		Str("successPercentage", fmt.Sprintf("%.2f%%", successPercentage)).
		Str("failurePercentage", fmt.Sprintf("%.2f%%", 100-successPercentage)).
		Msg("send and wait test finished")
	return
}
