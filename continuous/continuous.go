// Package continuous resolves many submitted transactions side by side,
// records every terminal result and reports how long resolution took.
package continuous

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/shutter-network/receipt-watcher/receipts"
)

const DefaultConcurrency = 8

// Resolver is what Track needs from receipts.Waiter.
type Resolver interface {
	Wait(ctx context.Context, req receipts.Request) receipts.Result
}

// Target is a transaction to resolve.
type Target struct {
	ChainID  uint64
	TxHash   string
	Tracking receipts.Tracking
}

// Tracked is a target together with its terminal result.
type Tracked struct {
	Target
	Result   receipts.Result
	Started  time.Time
	Finished time.Time
}

func (t *Tracked) Latency() time.Duration {
	return t.Finished.Sub(t.Started)
}

type Status struct {
	statusModMutex sync.Mutex
	txInFlight     []*Tracked
	txDone         []*Tracked
}

func (s *Status) TxCount() int {
	s.statusModMutex.Lock()
	defer s.statusModMutex.Unlock()
	return len(s.txInFlight) + len(s.txDone)
}

func (s *Status) InFlight() int {
	s.statusModMutex.Lock()
	defer s.statusModMutex.Unlock()
	return len(s.txInFlight)
}

func (s *Status) AddTxInFlight(t *Tracked) {
	s.statusModMutex.Lock()
	s.txInFlight = append(s.txInFlight, t)
	s.statusModMutex.Unlock()
}

// MarkDone moves t from the in-flight list to the done list.
func (s *Status) MarkDone(t *Tracked) {
	s.statusModMutex.Lock()
	defer s.statusModMutex.Unlock()
	for i, inFlight := range s.txInFlight {
		if inFlight == t {
			s.txInFlight = append(s.txInFlight[:i], s.txInFlight[i+1:]...)
			break
		}
	}
	s.txDone = append(s.txDone, t)
}

// Done returns the finished transactions in completion order.
func (s *Status) Done() []*Tracked {
	s.statusModMutex.Lock()
	defer s.statusModMutex.Unlock()
	return append([]*Tracked(nil), s.txDone...)
}

type Tracker struct {
	Resolver     Resolver
	Recorder     Recorder
	Concurrency  int
	Timeout      time.Duration
	PollInterval time.Duration
	Status       Status
}

// Track resolves targets with at most concurrency waits at a time and records
// each result. Results are returned in the order of targets, also when a
// recorder error is returned.
func Track(ctx context.Context, resolver Resolver, targets []Target, recorder Recorder, concurrency int) ([]*Tracked, error) {
	t := &Tracker{Resolver: resolver, Recorder: recorder, Concurrency: concurrency}
	return t.Track(ctx, targets)
}

func (t *Tracker) Track(ctx context.Context, targets []Target) ([]*Tracked, error) {
	recorder := t.Recorder
	if recorder == nil {
		recorder = NopRecorder{}
	}
	limit := t.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	// a failing recorder must not cancel the other waits, so no WithContext
	var group errgroup.Group
	group.SetLimit(limit)
	tracked := make([]*Tracked, len(targets))
	for i, target := range targets {
		tx := &Tracked{Target: target}
		tracked[i] = tx
		group.Go(func() error {
			tx.Started = time.Now()
			t.Status.AddTxInFlight(tx)
			tx.Result = t.Resolver.Wait(ctx, receipts.Request{
				ChainID:      target.ChainID,
				TxHash:       target.TxHash,
				Timeout:      t.Timeout,
				PollInterval: t.PollInterval,
				Tracking:     target.Tracking,
			})
			tx.Finished = time.Now()
			t.Status.MarkDone(tx)

			logger := log.With().Uint64("chainID", target.ChainID).Str("txHash", target.TxHash).Logger()
			logger.Info().
				Stringer("outcome", tx.Result.Outcome).
				Str("replacement", tx.Result.ReplacementTxHash).
				Dur("latency", tx.Latency()).
				Int("inFlight", t.Status.InFlight()).
				Msg("transaction resolved")

			// the result is final even if the caller is gone
			if err := recorder.Record(context.WithoutCancel(ctx), tx); err != nil {
				logger.Error().Err(err).Msg("failed to record result")
				return err
			}
			return nil
		})
	}
	return tracked, group.Wait()
}
