package receipts

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/rs/zerolog"
	"gotest.tools/assert"
)

func TestClassifyStatusShapes(t *testing.T) {
	for _, v := range []any{"0x1", 1, big.NewInt(1), json.Number("1"), float64(1), uint64(1), "1", true} {
		assert.Equal(t, ClassifyStatus(v), StatusConfirmed, "%#v", v)
	}
	for _, v := range []any{"0x0", 0, big.NewInt(0), json.Number("0"), float64(0), "0x00", false} {
		assert.Equal(t, ClassifyStatus(v), StatusReverted, "%#v", v)
	}
	for _, v := range []any{nil, "0x2", 2, "success", "", -1, []byte{1}} {
		assert.Equal(t, ClassifyStatus(v), StatusUnknown, "%#v", v)
	}
}

func TestOutcomeForReceiptDefaultsToConfirmed(t *testing.T) {
	logger := zerolog.Nop()
	assert.Equal(t, OutcomeForReceipt(Receipt{"status": "0x1"}, logger), OutcomeConfirmed)
	assert.Equal(t, OutcomeForReceipt(Receipt{"status": "0x0"}, logger), OutcomeReverted)
	assert.Equal(t, OutcomeForReceipt(Receipt{"status": "weird"}, logger), OutcomeConfirmed)
	assert.Equal(t, OutcomeForReceipt(Receipt{"root": "0xabc"}, logger), OutcomeConfirmed)
}

func TestReceiptAccessors(t *testing.T) {
	r := Receipt{"status": "0x1", "blockNumber": "0x10", "transactionHash": hashA}
	status, ok := r.Status()
	assert.Assert(t, ok)
	assert.Equal(t, status, "0x1")
	n, ok := r.BlockNumber()
	assert.Assert(t, ok)
	assert.Equal(t, n, uint64(16))
	assert.Equal(t, r.TxHash(), hashA)

	_, ok = Receipt{}.BlockNumber()
	assert.Assert(t, !ok)
}

func TestReceiptStatusString(t *testing.T) {
	assert.Equal(t, StatusUnknown.String(), "unknown")
	assert.Equal(t, StatusConfirmed.String(), "confirmed")
	assert.Equal(t, StatusReverted.String(), "reverted")
	assert.Equal(t, ReceiptStatus(7).String(), "ReceiptStatus(7)")
	assert.Equal(t, ReceiptStatus(-1).String(), "ReceiptStatus(-1)")
}
