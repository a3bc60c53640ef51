package receipts

import (
	"context"
	"errors"
	"testing"
	"time"

	"gotest.tools/assert"
)

func TestScanInterval(t *testing.T) {
	assert.Equal(t, ScanInterval(2*time.Second), 20*time.Second)
	assert.Equal(t, ScanInterval(5*time.Second), 40*time.Second)
	assert.Equal(t, ScanInterval(time.Millisecond), 20*time.Second)
}

func TestScannerWidenCaps(t *testing.T) {
	s := newScanner(DefaultScanDepth, DefaultMaxScanDepth, time.Second)
	var depths []uint64
	for i := 0; i < 4; i++ {
		s.widen()
		depths = append(depths, s.depth)
	}
	assert.DeepEqual(t, depths, []uint64{240, 480, 720, 720})
}

func TestScannerDue(t *testing.T) {
	s := newScanner(1, 1, 10*time.Second)
	now := time.Now()
	assert.Assert(t, s.due(now), "first scan is always due")
	s.mark(now)
	assert.Assert(t, !s.due(now.Add(9*time.Second)))
	assert.Assert(t, s.due(now.Add(10*time.Second)))
}

func TestScannerRespectsDepth(t *testing.T) {
	chain := newFakeChain(testChain)
	chain.mine(1, txObject(hashB, sender, 5, target, payload))
	chain.mine(10)
	src := NewRPCSource(chain)
	meta := &TransactionMeta{From: sender, Nonce: 5, To: target, Data: payload}

	s := newScanner(5, 720, time.Second)
	found, err := s.scan(context.Background(), src, fingerprintFromMeta(meta), hashA, nil)
	assert.NilError(t, err)
	assert.Assert(t, found == nil)
	assert.Equal(t, chain.callCount("eth_getBlockByNumber"), 5)

	s.widen()
	found, err = s.scan(context.Background(), src, fingerprintFromMeta(meta), hashA, nil)
	assert.NilError(t, err)
	assert.Assert(t, found != nil)
	assert.Equal(t, found.Hash, hashB)
}

func TestScannerStopsAtGenesis(t *testing.T) {
	chain := newFakeChain(testChain)
	chain.mine(2)
	src := NewRPCSource(chain)

	s := newScanner(120, 720, time.Second)
	fp := fingerprint{from: sender, to: target}
	found, err := s.scan(context.Background(), src, fp, hashA, nil)
	assert.NilError(t, err)
	assert.Assert(t, found == nil)
	assert.Equal(t, chain.callCount("eth_getBlockByNumber"), 3)
}

func TestScannerAbortsOnError(t *testing.T) {
	chain := newFakeChain(testChain)
	chain.mine(3, txObject(hashB, sender, 5, target, payload))
	chain.failures["eth_getBlockByNumber"] = 1
	src := NewRPCSource(chain)

	s := newScanner(120, 720, time.Second)
	_, err := s.scan(context.Background(), src, fingerprint{from: sender, to: target}, hashA, nil)
	assert.ErrorContains(t, err, "flaky")
}

func TestScannerStopsBetweenBlocks(t *testing.T) {
	chain := newFakeChain(testChain)
	chain.mine(1, txObject(hashB, sender, 5, target, payload))
	chain.mine(50)
	src := NewRPCSource(chain)

	s := newScanner(120, 720, time.Second)
	checks := 0
	stop := func() bool {
		checks++
		return checks > 3
	}
	found, err := s.scan(context.Background(), src, fingerprint{from: sender, to: target}, hashA, stop)
	assert.Assert(t, errors.Is(err, errScanStopped))
	assert.Assert(t, found == nil)
	assert.Equal(t, chain.callCount("eth_getBlockByNumber"), 3)
	assert.Equal(t, s.depth, uint64(120))
}

func TestScannerHonoursMinBlock(t *testing.T) {
	chain := newFakeChain(testChain)
	chain.mine(7, txObject(hashB, sender, 9, target, payload))
	chain.mine(10)
	src := NewRPCSource(chain)

	s := newScanner(120, 720, time.Second)
	fp := fingerprint{from: sender, to: target, minBlock: 8}
	found, err := s.scan(context.Background(), src, fp, hashA, nil)
	assert.NilError(t, err)
	assert.Assert(t, found == nil)
	assert.Equal(t, chain.callCount("eth_getBlockByNumber"), 3)

	fp.minBlock = 7
	found, err = s.scan(context.Background(), src, fp, hashA, nil)
	assert.NilError(t, err)
	assert.Assert(t, found != nil)
	assert.Equal(t, found.Hash, hashB)
}

func TestFingerprintMatches(t *testing.T) {
	nonce := uint64(5)
	fp := fingerprint{from: sender, nonce: &nonce, to: target, data: payload}
	tx := BlockTransaction{Hash: hashB, TransactionMeta: TransactionMeta{From: sender, Nonce: 5, To: target, Data: payload}}

	assert.Assert(t, fp.matches(tx, hashA))
	assert.Assert(t, !fp.matches(tx, hashB), "the tracked hash itself is not a replacement")

	other := tx
	other.Nonce = 6
	assert.Assert(t, !fp.matches(other, hashA))

	other = tx
	other.To = sender
	assert.Assert(t, !fp.matches(other, hashA))

	other = tx
	other.Data = "0x"
	assert.Assert(t, !fp.matches(other, hashA))

	loose := fingerprint{from: sender, nonce: &nonce}
	assert.Assert(t, loose.matches(other, hashA), "recipient and data only count when known")
}

func TestFingerprintFromHints(t *testing.T) {
	_, ok := fingerprintFromHints(Tracking{From: sender})
	assert.Assert(t, !ok)
	_, ok = fingerprintFromHints(Tracking{To: target, Data: payload})
	assert.Assert(t, !ok)
	fp, ok := fingerprintFromHints(Tracking{From: sender, Data: payload})
	assert.Assert(t, ok)
	assert.Assert(t, fp.nonce == nil)
	assert.Equal(t, fp.data, payload)
}
