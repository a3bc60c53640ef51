package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shutter-network/receipt-watcher/receipts"
	"github.com/shutter-network/receipt-watcher/rpc"
)

type waitFlags struct {
	chainID   uint64
	txHash    string
	from      string
	to        string
	data      string
	walletURL string
	timeout   time.Duration
	poll      time.Duration
	jsonOut   bool
}

func newWaitCmd() *cobra.Command {
	var f waitFlags
	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait for one transaction to be resolved",
		Long: `Wait for a transaction, or a same-nonce replacement of it, to be mined.

The exit code reflects the outcome: 0 confirmed, 1 reverted, 2 timeout,
3 cancelled (e.g. by Ctrl-C).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWait(cmd, f)
		},
	}
	cmd.Flags().Uint64Var(&f.chainID, "chain", 0, "chain id (defaults to CHAIN_ID)")
	cmd.Flags().StringVar(&f.txHash, "tx", "", "transaction hash")
	cmd.Flags().StringVar(&f.from, "from", "", "sender address, used to find replacements of unknown transactions")
	cmd.Flags().StringVar(&f.to, "to", "", "recipient address hint")
	cmd.Flags().StringVar(&f.data, "data", "", "call data hint")
	cmd.Flags().StringVar(&f.walletURL, "wallet", "", "wallet provider endpoint (defaults to WALLET_RPC_URL)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "give up after this long (defaults to WAIT_TX_TIMEOUT)")
	cmd.Flags().DurationVar(&f.poll, "poll", 0, "poll interval (defaults to POLL_INTERVAL_MS)")
	cmd.Flags().BoolVar(&f.jsonOut, "json", false, "print the result as JSON")
	_ = cmd.MarkFlagRequired("tx")
	return cmd
}

func runWait(cmd *cobra.Command, f waitFlags) error {
	ctx := cmd.Context()
	registry, err := loadRegistry(ctx)
	if err != nil {
		return err
	}

	req := receipts.Request{
		ChainID:      firstNonZero(f.chainID, cfg.ChainID),
		TxHash:       f.txHash,
		Timeout:      firstNonZero(f.timeout, cfg.Timeout),
		PollInterval: firstNonZero(f.poll, cfg.PollInterval),
		Tracking:     receipts.Tracking{From: f.from, To: f.to, Data: f.data},
	}
	if req.ChainID == 0 {
		return fmt.Errorf("no chain id, use --chain or CHAIN_ID")
	}
	if walletURL := firstNonZero(f.walletURL, cfg.WalletURL); walletURL != "" {
		wallet, err := rpc.Dial(ctx, walletURL)
		if err != nil {
			return err
		}
		defer wallet.Close()
		req.Wallet = wallet
	}

	result := receipts.NewWaiter(registry).Wait(ctx, req)
	if f.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printResult(req.TxHash, result)
	}
	if code := exitCode(result.Outcome); code != 0 {
		return exitCodeError{code: code}
	}
	return nil
}

func exitCode(o receipts.Outcome) int {
	switch o {
	case receipts.OutcomeConfirmed:
		return 0
	case receipts.OutcomeReverted:
		return 1
	case receipts.OutcomeCancelled:
		return 3
	default:
		return 2
	}
}

func outcomeString(o receipts.Outcome) string {
	switch o {
	case receipts.OutcomeConfirmed:
		return color.GreenString(o.String())
	case receipts.OutcomeReverted:
		return color.RedString(o.String())
	default:
		return color.YellowString(o.String())
	}
}

func printResult(requested string, result receipts.Result) {
	fmt.Printf("Transaction: %s\n", requested)
	fmt.Printf("  Outcome:     %s\n", outcomeString(result.Outcome))
	if result.Replaced() {
		fmt.Printf("  Replaced by: %s\n", color.CyanString(result.ReplacementTxHash))
	}
	if n, ok := result.Receipt.BlockNumber(); ok {
		fmt.Printf("  Block:       %d\n", n)
	}
}

func firstNonZero[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
