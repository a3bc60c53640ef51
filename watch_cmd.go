package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shutter-network/receipt-watcher/continuous"
	"github.com/shutter-network/receipt-watcher/receipts"
)

func newWatchCmd() *cobra.Command {
	var (
		file        string
		chainID     uint64
		concurrency int
		timeout     time.Duration
		poll        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Resolve a list of transactions concurrently",
		Long: `Resolve every transaction listed in a file and print a summary.

Each line holds a bare hash (on --chain) or "chainID,hash[,from[,to[,data]]]".
Results are written to Postgres when DB_ADDRESS and DB_NAME are set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var in io.Reader = os.Stdin
			if file != "-" {
				fd, err := os.Open(file)
				if err != nil {
					return err
				}
				defer fd.Close()
				in = fd
			}
			targets, err := continuous.ReadTargets(in, firstNonZero(chainID, cfg.ChainID))
			if err != nil {
				return fmt.Errorf("invalid target list: %w", err)
			}

			registry, err := loadRegistry(ctx)
			if err != nil {
				return err
			}
			tracker := &continuous.Tracker{
				Resolver:     receipts.NewWaiter(registry),
				Concurrency:  firstNonZero(concurrency, cfg.Concurrency),
				Timeout:      firstNonZero(timeout, cfg.Timeout),
				PollInterval: firstNonZero(poll, cfg.PollInterval),
			}
			var recorder *continuous.PgRecorder
			if cfg.DB.Enabled() {
				recorder, err = continuous.NewPgRecorder(ctx, cfg.DB)
				if err != nil {
					return err
				}
				defer recorder.Close()
				tracker.Recorder = recorder
			}

			log.Info().Int("targets", len(targets)).Int("concurrency", tracker.Concurrency).Msg("tracking transactions")
			tracked, trackErr := tracker.Track(ctx, targets)
			if err := continuous.Summarize(tracked).Write(os.Stdout); err != nil {
				return err
			}
			if recorder != nil {
				if err := writeRecordedCounts(ctx, recorder, targets); err != nil {
					log.Warn().Err(err).Msg("failed to read recorded results")
				}
			}
			return trackErr
		},
	}
	cmd.Flags().StringVar(&file, "file", "-", "file with one target per line, - for stdin")
	cmd.Flags().Uint64Var(&chainID, "chain", 0, "chain id of bare hashes (defaults to CHAIN_ID)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel waits (defaults to CONCURRENCY)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per transaction timeout (defaults to WAIT_TX_TIMEOUT)")
	cmd.Flags().DurationVar(&poll, "poll", 0, "poll interval (defaults to POLL_INTERVAL_MS)")
	return cmd
}

// writeRecordedCounts prints the totals stored so far for every watched chain.
func writeRecordedCounts(ctx context.Context, recorder *continuous.PgRecorder, targets []continuous.Target) error {
	var chains []uint64
	for _, target := range targets {
		if !slices.Contains(chains, target.ChainID) {
			chains = append(chains, target.ChainID)
		}
	}
	slices.Sort(chains)
	// totals are still wanted after an interrupt
	ctx = context.WithoutCancel(ctx)
	for _, chainID := range chains {
		counts, err := recorder.CountByOutcome(ctx, chainID)
		if err != nil {
			return err
		}
		if err := continuous.WriteCounts(os.Stdout, chainID, counts); err != nil {
			return err
		}
	}
	return nil
}
