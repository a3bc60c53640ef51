package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shutter-network/receipt-watcher/receipts"
	"github.com/shutter-network/receipt-watcher/rpc"
	"github.com/shutter-network/receipt-watcher/tests"
)

func newSendWaitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sendwait",
		Short: "Send transactions one by one and wait for each of them",
		Long: `Send a transaction to NODE_URL, wait for it and cancel it with a
same-nonce replacement when it is not mined within WAIT_TX_TIMEOUT. Repeats for
TEST_DURATION and logs the success ratio.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.NodeURL == "" || cfg.PrivateKey == "" {
				return fmt.Errorf("NODE_URL and PRIVATE_KEY are required")
			}
			registry, err := loadRegistry(cmd.Context())
			if err != nil {
				return err
			}
			successes, failures := tests.RunSendAndWaitTest(cmd.Context(), cfg, receipts.NewWaiter(registry))
			if failures > 0 && successes == 0 {
				return exitCodeError{code: 2}
			}
			return nil
		},
	}
}

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send",
		Short: "Send a transaction periodically on every network in MODE",
		Long: `Send a transaction periodically on every network listed in MODE
(comma separated, "chiado" and/or "gnosis") until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.PrivateKey == "" {
				return fmt.Errorf("PRIVATE_KEY is required")
			}
			if cfg.ChiadoURL == "" {
				cfg.ChiadoURL = rpc.DefaultEndpoints[rpc.ChiadoChainID]
			}
			if cfg.GnosisURL == "" {
				cfg.GnosisURL = rpc.DefaultEndpoints[rpc.GnosisChainID]
			}

			ctx := cmd.Context()
			var wg sync.WaitGroup
			for _, m := range strings.Split(cfg.Mode, ",") {
				switch strings.TrimSpace(m) {
				case "chiado":
					wg.Add(1)
					go func() {
						defer wg.Done()
						tests.RunChiadoTransactions(ctx, cfg)
					}()
				case "gnosis":
					wg.Add(1)
					go func() {
						defer wg.Done()
						tests.RunGnosisTransactions(ctx, cfg)
					}()
				default:
					log.Warn().Str("mode", m).Msg("unknown mode")
				}
			}
			wg.Wait()
			return nil
		},
	}
}
