package receipts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shutter-network/receipt-watcher/rpc"
	"github.com/shutter-network/receipt-watcher/utils"
)

const DefaultCallTimeout = 15 * time.Second

// Waiter resolves submitted transactions. It holds configuration only; every
// Wait call owns its own state, so one Waiter can serve concurrent waits.
type Waiter struct {
	rpcs        rpc.ProviderFactory
	logger      zerolog.Logger
	scanEvery   time.Duration
	grace       time.Duration
	depth       uint64
	maxDepth    uint64
	callTimeout time.Duration
}

type Option func(*Waiter)

// WithLogger sets the logger; the global zerolog logger is used otherwise.
func WithLogger(logger zerolog.Logger) Option {
	return func(w *Waiter) { w.logger = logger }
}

// WithScanInterval overrides the throttle between replacement scans. Zero
// derives it from the poll interval, see ScanInterval.
func WithScanInterval(d time.Duration) Option {
	return func(w *Waiter) { w.scanEvery = d }
}

// WithReplacementGrace sets after how long a scan runs even though the
// sender's nonce has not moved.
func WithReplacementGrace(d time.Duration) Option {
	return func(w *Waiter) { w.grace = d }
}

func WithScanDepth(depth, maxDepth uint64) Option {
	return func(w *Waiter) {
		w.depth = max(depth, 1)
		w.maxDepth = max(maxDepth, w.depth)
	}
}

// WithCallTimeout bounds every single request to a source.
func WithCallTimeout(d time.Duration) Option {
	return func(w *Waiter) { w.callTimeout = d }
}

// NewWaiter creates a Waiter that opens its read-only source through rpcs.
// rpcs may be nil, then only the wallet passed with each request is used.
func NewWaiter(rpcs rpc.ProviderFactory, opts ...Option) *Waiter {
	w := &Waiter{
		rpcs:        rpcs,
		logger:      log.Logger,
		grace:       DefaultReplacementGrace,
		depth:       DefaultScanDepth,
		maxDepth:    DefaultMaxScanDepth,
		callTimeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Wait polls until the transaction, or a same-nonce replacement of it, has a
// receipt, the caller cancels, or req.Timeout elapses. It never returns an
// error: failures of individual calls only delay the answer.
func (w *Waiter) Wait(ctx context.Context, req Request) Result {
	req = req.withDefaults()
	logger := w.logger.With().
		Str("waitID", uuid.NewString()).
		Uint64("chainID", req.ChainID).
		Str("txHash", req.TxHash).
		Logger()

	hash, ok := utils.NormalizeTxHash(req.TxHash)
	if !ok {
		logger.Warn().Msg("invalid transaction hash, not polling")
		return Result{Outcome: OutcomeTimeout, TxHash: req.TxHash}
	}

	// in-flight calls finish even when the caller cancels; cancellation is
	// only observed between ticks
	callCtx := context.WithoutCancel(ctx)

	var wallet, chain Source
	if req.Wallet != nil {
		wallet = &timeoutSource{Source: NewWalletSource(req.Wallet), timeout: w.callTimeout}
	}
	if w.rpcs != nil {
		dialCtx, cancel := context.WithTimeout(callCtx, w.callTimeout)
		provider, err := w.rpcs.Provider(dialCtx, req.ChainID)
		cancel()
		if err != nil {
			logger.Debug().Err(err).Msg("no rpc source")
		} else {
			if closer, ok := provider.(interface{ Close() }); ok {
				defer closer.Close()
			}
			chain = &timeoutSource{Source: NewRPCSource(provider), timeout: w.callTimeout}
		}
	}
	if wallet == nil && chain == nil {
		logger.Warn().Msg("neither wallet nor rpc source available")
		return Result{Outcome: OutcomeTimeout, TxHash: hash}
	}

	scanEvery := w.scanEvery
	if scanEvery <= 0 {
		scanEvery = ScanInterval(req.PollInterval)
	}
	p := &poll{
		req:      req,
		original: hash,
		tracked:  hash,
		wallet:   wallet,
		chain:    chain,
		callCtx:  callCtx,
		logger:   logger,
		grace:    w.grace,
		scanner:  newScanner(w.depth, w.maxDepth, scanEvery),
		start:    time.Now(),
		state:    statePolling,
	}
	return p.run(ctx)
}

type state int

const (
	statePolling state = iota
	stateConfirmed
	stateReverted
	stateCancelled
	stateTimeout
)

func (s state) outcome() Outcome {
	switch s {
	case stateConfirmed:
		return OutcomeConfirmed
	case stateReverted:
		return OutcomeReverted
	case stateCancelled:
		return OutcomeCancelled
	default:
		return OutcomeTimeout
	}
}

// poll is the state of a single Wait call.
type poll struct {
	req       Request
	original  string
	tracked   string
	meta      *TransactionMeta
	wallet    Source
	chain     Source
	callCtx   context.Context
	logger    zerolog.Logger
	grace     time.Duration
	scanner   *scanner
	start     time.Time
	state     state
	receipt   Receipt
	// head block when hint based scanning started; nil until known
	startHead *uint64
}

func (p *poll) run(ctx context.Context) Result {
	for p.state == statePolling {
		p.tick(ctx)
		if p.state != statePolling {
			break
		}
		if time.Since(p.start) >= p.req.Timeout {
			p.logger.Info().Dur("elapsed", time.Since(p.start)).Msg("timeout waiting for transaction receipt")
			p.state = stateTimeout
			break
		}
		timer := time.NewTimer(p.req.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
	return p.result()
}

func (p *poll) result() Result {
	res := Result{
		Outcome: p.state.outcome(),
		Receipt: p.receipt,
		TxHash:  p.tracked,
	}
	if !utils.SameHash(p.tracked, p.original) {
		res.ReplacementTxHash = p.tracked
	}
	return res
}

func (p *poll) tick(ctx context.Context) {
	if ctx.Err() != nil || !p.req.ShouldContinue() {
		p.logger.Info().Str("tracked", p.tracked).Msg("wait cancelled")
		p.state = stateCancelled
		return
	}

	walletUsable := p.wallet != nil && p.wallet.ChainMatches(p.callCtx, p.req.ChainID)
	if walletUsable && p.checkReceipt(p.wallet) {
		return
	}
	if p.chain != nil && p.checkReceipt(p.chain) {
		return
	}

	scanSource := p.chain
	if walletUsable {
		scanSource = p.wallet
	}
	if scanSource == nil {
		return
	}
	if p.meta == nil {
		p.captureMeta(scanSource, p.tracked)
	}
	now := time.Now()
	if p.scanner.due(now) {
		p.scanner.mark(now)
		p.scanForReplacement(ctx, scanSource, now)
	}
}

// checkReceipt reports whether the wait reached a terminal state.
func (p *poll) checkReceipt(src Source) bool {
	receipt, err := src.Receipt(p.callCtx, p.tracked)
	if err != nil {
		p.logger.Debug().Err(err).Str("source", src.Name()).Msg("receipt lookup failed")
		return false
	}
	if receipt == nil {
		return false
	}
	p.receipt = receipt
	if OutcomeForReceipt(receipt, p.logger) == OutcomeReverted {
		p.state = stateReverted
	} else {
		p.state = stateConfirmed
	}
	p.logger.Info().
		Str("source", src.Name()).
		Str("tracked", p.tracked).
		Stringer("outcome", p.state.outcome()).
		Dur("elapsed", time.Since(p.start)).
		Msg("receipt found")
	return true
}

func (p *poll) captureMeta(src Source, hash string) {
	meta, err := src.Transaction(p.callCtx, hash)
	if err != nil {
		p.logger.Debug().Err(err).Str("source", src.Name()).Msg("transaction lookup failed")
		return
	}
	if meta == nil {
		return
	}
	p.meta = meta
	p.logger.Debug().
		Str("from", meta.From).
		Uint64("nonce", meta.Nonce).
		Str("to", meta.To).
		Msg("captured transaction fingerprint")
}

// stopped reports whether the wait has to end regardless of the current tick.
func (p *poll) stopped(ctx context.Context) bool {
	return ctx.Err() != nil || time.Since(p.start) >= p.req.Timeout
}

func (p *poll) scanForReplacement(ctx context.Context, src Source, now time.Time) {
	var fp fingerprint
	nonceAdvanced := false
	if p.meta != nil {
		nonce, err := src.Nonce(p.callCtx, p.meta.From)
		if err != nil {
			p.logger.Debug().Err(err).Str("source", src.Name()).Msg("nonce lookup failed")
		}
		nonceAdvanced = err == nil && nonce > p.meta.Nonce
		if !nonceAdvanced && now.Sub(p.start) < p.grace {
			return
		}
		fp = fingerprintFromMeta(p.meta)
	} else {
		hinted, ok := fingerprintFromHints(p.req.Tracking)
		if !ok {
			return
		}
		// a replacement is mined after the wait began; older transactions
		// from the same sender are unrelated
		if p.startHead == nil {
			head, err := src.BlockNumber(p.callCtx)
			if err != nil {
				p.logger.Debug().Err(err).Str("source", src.Name()).Msg("block number lookup failed")
				return
			}
			p.startHead = &head
		}
		hinted.minBlock = *p.startHead
		fp = hinted
	}

	found, err := p.scanner.scan(p.callCtx, src, fp, p.tracked, func() bool { return p.stopped(ctx) })
	if err != nil {
		p.logger.Debug().Err(err).Str("source", src.Name()).Msg("replacement scan aborted")
		return
	}
	if found == nil {
		if nonceAdvanced {
			p.scanner.widen()
			p.logger.Debug().Uint64("depth", p.scanner.depth).Msg("nonce advanced without a match, widening scan")
		}
		return
	}

	p.logger.Info().
		Str("previous", p.tracked).
		Str("replacement", found.Hash).
		Uint64("nonce", found.Nonce).
		Msg("replacement transaction detected")
	p.tracked = found.Hash
	p.meta = nil
	p.captureMeta(src, found.Hash)
	if p.meta == nil {
		meta := found.TransactionMeta
		p.meta = &meta
	}
}

// timeoutSource bounds every call of the wrapped source.
type timeoutSource struct {
	Source
	timeout time.Duration
}

func (s *timeoutSource) ChainMatches(ctx context.Context, chainID uint64) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.Source.ChainMatches(ctx, chainID)
}

func (s *timeoutSource) Receipt(ctx context.Context, hash string) (Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.Source.Receipt(ctx, hash)
}

func (s *timeoutSource) Transaction(ctx context.Context, hash string) (*TransactionMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.Source.Transaction(ctx, hash)
}

func (s *timeoutSource) Nonce(ctx context.Context, address string) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.Source.Nonce(ctx, address)
}

func (s *timeoutSource) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.Source.BlockNumber(ctx)
}

func (s *timeoutSource) BlockTransactions(ctx context.Context, number uint64) ([]BlockTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.Source.BlockTransactions(ctx, number)
}
