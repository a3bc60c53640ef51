package tests

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/shutter-network/receipt-watcher/config"
	"github.com/shutter-network/receipt-watcher/requests"
)

func RunChiadoTransactions(ctx context.Context, cfg config.Config) {
	runTransactions(ctx, "chiado", cfg.ChiadoURL, cfg.PrivateKey, cfg.ChiadoSendInterval)
}

func RunGnosisTransactions(ctx context.Context, cfg config.Config) {
	runTransactions(ctx, "gnosis", cfg.GnosisURL, cfg.PrivateKey, cfg.GnosisSendInterval)
}

// runTransactions sends one transaction per interval until ctx is done.
func runTransactions(ctx context.Context, network, url, pKey string, interval time.Duration) {
	logger := log.With().Str("network", network).Logger()
	logger.Info().Dur("interval", interval).Msg("running transactions")
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
		if _, err := requests.SendLegacyTx(ctx, url, pKey); err != nil {
			logger.Error().Err(err).Msg("failed to send transaction")
		}
	}
}
