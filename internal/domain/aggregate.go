package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Aggregate is one (settlement date, MCC) bucket of settlement totals.
// Buckets are derived data: they are fully recomputed from the records,
// never patched in place, and a stale bucket is one whose underlying
// records changed since it was last computed.
type Aggregate struct {
	SettlementDate time.Time       `json:"settlement_date"`
	MCC            string          `json:"mcc"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalFee       decimal.Decimal `json:"total_fee"`
	TotalAcqShare  decimal.Decimal `json:"total_acq_share"`
	RecordCount    int             `json:"record_count"`
	Stale          bool            `json:"stale"`
	ComputedAt     time.Time       `json:"computed_at"`
}
