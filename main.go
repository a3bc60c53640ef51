package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shutter-network/receipt-watcher/config"
	"github.com/shutter-network/receipt-watcher/rpc"
	"github.com/shutter-network/receipt-watcher/utils"
)

var (
	cfg       config.Config
	logLevel  string
	logCloser io.Closer
)

// exitCodeError ends the process with code without printing anything.
type exitCodeError struct {
	code int
}

func (e exitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt-watcher",
		Short: "Resolve submitted transactions to their final outcome",
		Long: `receipt-watcher polls a wallet provider and a JSON-RPC endpoint for the
receipt of a submitted transaction and follows same-nonce replacements
(speed-ups and cancellations) until it is confirmed, reverted, cancelled or
timed out.

Examples:
  # Wait for a transaction on Gnosis Chain
  receipt-watcher wait --chain 100 --tx 0x...

  # Resolve every hash in a file and store the results
  receipt-watcher watch --file hashes.txt`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.LoadConfig()
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			closer, err := utils.SetupLogging(cfg.LogLevel, cfg.LogDir)
			if err != nil {
				return err
			}
			logCloser = closer
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logCloser != nil {
				logCloser.Close()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	cmd.AddCommand(
		newWaitCmd(),
		newWatchCmd(),
		newSendWaitCmd(),
		newSendCmd(),
	)
	return cmd
}

// loadRegistry returns the endpoints from RPC_URL_<chainID> plus NODE_URL for
// the chain it serves. The chain of NODE_URL is asked from the node when
// CHAIN_ID is not set.
func loadRegistry(ctx context.Context) (*rpc.Registry, error) {
	registry := rpc.LoadRegistry()
	if cfg.NodeURL == "" {
		return registry, nil
	}
	if cfg.ChainID == 0 {
		provider, err := rpc.Dial(ctx, cfg.NodeURL)
		if err != nil {
			return nil, err
		}
		defer provider.Close()
		chainID, err := rpc.ChainID(ctx, provider)
		if err != nil {
			return nil, fmt.Errorf("failed to query chain id of %s: %w", provider.URL(), err)
		}
		cfg.ChainID = chainID
	}
	registry.Set(cfg.ChainID, cfg.NodeURL)
	return registry, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	var exit exitCodeError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	log.Error().Err(err).Msg("command failed")
	os.Exit(10)
}
