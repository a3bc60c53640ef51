package receipts

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/shutter-network/receipt-watcher/utils"
)

type ReceiptStatus int

const (
	StatusUnknown ReceiptStatus = iota
	StatusConfirmed
	StatusReverted
)

func (s ReceiptStatus) String() string {
	if s < StatusUnknown || s > StatusReverted {
		return fmt.Sprintf("ReceiptStatus(%d)", int(s))
	}
	return [...]string{"unknown", "confirmed", "reverted"}[s]
}

// ClassifyStatus normalises a receipt status given as hex string, decimal
// string, native integer or big integer. Booleans are accepted as well since
// some in-process providers report success that way.
func ClassifyStatus(v any) ReceiptStatus {
	if b, ok := v.(bool); ok {
		if b {
			return StatusConfirmed
		}
		return StatusReverted
	}
	q, ok := utils.ParseQuantity(v)
	if !ok || !q.IsUint64() {
		return StatusUnknown
	}
	switch q.Uint64() {
	case 0:
		return StatusReverted
	case 1:
		return StatusConfirmed
	default:
		return StatusUnknown
	}
}

// OutcomeForReceipt maps a found receipt to a terminal outcome. A status that
// is missing or not recognised counts as confirmed and is logged.
func OutcomeForReceipt(r Receipt, logger zerolog.Logger) Outcome {
	raw, present := r.Status()
	switch ClassifyStatus(raw) {
	case StatusReverted:
		return OutcomeReverted
	case StatusConfirmed:
		return OutcomeConfirmed
	default:
		logger.Warn().
			Bool("present", present).
			Interface("status", raw).
			Msg("unrecognised receipt status, assuming confirmed")
		return OutcomeConfirmed
	}
}
