// Package receipts decides the final outcome of a submitted transaction. It
// polls two independent read paths for a receipt and follows same-nonce
// replacements (speed-up / cancel) that a wallet may have sent in its place.
package receipts

import (
	"fmt"
	"time"

	"github.com/shutter-network/receipt-watcher/rpc"
	"github.com/shutter-network/receipt-watcher/utils"
)

const (
	DefaultTimeout      = 10 * time.Minute
	DefaultPollInterval = 2 * time.Second
)

type Outcome int

const (
	OutcomeConfirmed Outcome = iota + 1 // receipt found with a successful status
	OutcomeReverted                     // receipt found with a failed status
	OutcomeTimeout                      // no receipt within the waiting window, or nothing to poll
	OutcomeCancelled                    // the caller stopped the wait
)

func (o Outcome) String() string {
	if o < OutcomeConfirmed || o > OutcomeCancelled {
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
	return [...]string{"confirmed", "reverted", "timeout", "cancelled"}[o-1]
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Receipt is the record returned by eth_getTransactionReceipt, kept as
// decoded by the provider.
type Receipt map[string]any

// Status returns the raw status field and whether it was present.
func (r Receipt) Status() (any, bool) {
	v, ok := r["status"]
	return v, ok
}

func (r Receipt) BlockNumber() (uint64, bool) {
	return utils.ParseUint64(r["blockNumber"])
}

func (r Receipt) TxHash() string {
	h, _ := r["transactionHash"].(string)
	return h
}

// TransactionMeta is the fingerprint of a transaction used to recognise a
// replacement. To and Data are empty when unknown; a known empty payload is "0x".
type TransactionMeta struct {
	From  string
	Nonce uint64
	To    string
	Data  string
}

// BlockTransaction is a transaction object as listed in a full block.
type BlockTransaction struct {
	Hash string
	TransactionMeta
}

// Tracking carries optional hints about the submitted transaction. They are
// only used when no fingerprint could be fetched for the hash.
type Tracking struct {
	From string
	To   string
	Data string
}

func (t Tracking) normalize() Tracking {
	var out Tracking
	if from, ok := utils.NormalizeAddress(t.From); ok {
		out.From = from
	}
	if to, ok := utils.NormalizeAddress(t.To); ok {
		out.To = to
	}
	if data, ok := utils.NormalizeHexData(t.Data); ok {
		out.Data = data
	}
	return out
}

// Request describes one resolution.
type Request struct {
	ChainID      uint64
	TxHash       string
	Timeout      time.Duration
	PollInterval time.Duration
	// ShouldContinue is polled once per tick; returning false ends the wait
	// with OutcomeCancelled. Nil means always continue.
	ShouldContinue func() bool
	Tracking       Tracking
	// Wallet is the user's injected provider. It is only consulted while it
	// reports ChainID.
	Wallet rpc.Provider
}

func (r Request) withDefaults() Request {
	if r.Timeout <= 0 {
		r.Timeout = DefaultTimeout
	}
	if r.PollInterval <= 0 {
		r.PollInterval = DefaultPollInterval
	}
	if r.ShouldContinue == nil {
		r.ShouldContinue = func() bool { return true }
	}
	r.Tracking = r.Tracking.normalize()
	return r
}

// Result is the terminal answer of a wait. TxHash is the hash that produced
// the result; ReplacementTxHash is set only when it differs from the hash the
// caller asked about.
type Result struct {
	Outcome           Outcome `json:"outcome"`
	Receipt           Receipt `json:"receipt,omitempty"`
	TxHash            string  `json:"txHash"`
	ReplacementTxHash string  `json:"replacementTxHash,omitempty"`
}

func (r Result) Replaced() bool {
	return r.ReplacementTxHash != ""
}
