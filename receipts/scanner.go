package receipts

import (
	"context"
	"errors"
	"time"

	"github.com/shutter-network/receipt-watcher/utils"
)

const (
	DefaultScanDepth        = uint64(120)
	DefaultMaxScanDepth     = uint64(720)
	DefaultReplacementGrace = 90 * time.Second
	minScanInterval         = 20 * time.Second
	scanIntervalPolls       = 8
)

// ScanInterval is the throttle between two replacement scans for a given
// poll interval: eight polls, but never less than 20s.
func ScanInterval(pollInterval time.Duration) time.Duration {
	return max(scanIntervalPolls*pollInterval, minScanInterval)
}

// errScanStopped is returned when a scan is abandoned between two block fetches.
var errScanStopped = errors.New("replacement scan stopped")

// fingerprint describes what a replacement must look like. A nil nonce means
// the fingerprint was built from caller hints rather than fetched metadata.
// Blocks below minBlock are not searched.
type fingerprint struct {
	from     string
	nonce    *uint64
	to       string
	data     string
	minBlock uint64
}

func fingerprintFromMeta(meta *TransactionMeta) fingerprint {
	nonce := meta.Nonce
	return fingerprint{
		from:  meta.From,
		nonce: &nonce,
		to:    meta.To,
		data:  meta.Data,
	}
}

// fingerprintFromHints returns false when the hints are too loose to scan on:
// a sender plus at least one of recipient or call data is required.
func fingerprintFromHints(hints Tracking) (fingerprint, bool) {
	if hints.From == "" || (hints.To == "" && hints.Data == "") {
		return fingerprint{}, false
	}
	return fingerprint{from: hints.From, to: hints.To, data: hints.Data}, true
}

func (f fingerprint) matches(tx BlockTransaction, tracked string) bool {
	if utils.SameHash(tx.Hash, tracked) || tx.From != f.from {
		return false
	}
	if f.nonce != nil && tx.Nonce != *f.nonce {
		return false
	}
	if f.to != "" && tx.To != f.to {
		return false
	}
	if f.data != "" && tx.Data != f.data {
		return false
	}
	return true
}

// scanner walks recent blocks backwards looking for a transaction that
// matches a fingerprint. The depth widens while the sender's nonce has moved
// on but nothing was found.
type scanner struct {
	depth    uint64
	maxDepth uint64
	lastScan time.Time
	every    time.Duration
}

func newScanner(depth, maxDepth uint64, every time.Duration) *scanner {
	return &scanner{depth: depth, maxDepth: max(depth, maxDepth), every: every}
}

func (s *scanner) due(now time.Time) bool {
	return s.lastScan.IsZero() || now.Sub(s.lastScan) >= s.every
}

func (s *scanner) mark(now time.Time) {
	s.lastScan = now
}

func (s *scanner) widen() {
	s.depth = min(s.depth*2, s.maxDepth)
}

// scan returns the newest matching transaction within depth blocks of the
// head, or nil. Any source error aborts the scan; the next one starts over.
// stop is consulted before every block fetch and may be nil.
func (s *scanner) scan(ctx context.Context, src Source, fp fingerprint, tracked string, stop func() bool) (*BlockTransaction, error) {
	head, err := src.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < s.depth && i <= head && head-i >= fp.minBlock; i++ {
		if stop != nil && stop() {
			return nil, errScanStopped
		}
		txs, err := src.BlockTransactions(ctx, head-i)
		if err != nil {
			return nil, err
		}
		for _, tx := range txs {
			if fp.matches(tx, tracked) {
				found := tx
				return &found, nil
			}
		}
	}
	return nil, nil
}
