package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Verdict string

const (
	VerdictMatched         Verdict = "MATCHED"
	VerdictMismatched      Verdict = "MISMATCHED"
	VerdictMissingComputed Verdict = "MISSING_COMPUTED"
	VerdictMissingReported Verdict = "MISSING_REPORTED"
)

// ReconciliationResult is one computed-vs-reported comparison for a period.
// Results are produced fresh on every match request and are not persisted.
type ReconciliationResult struct {
	Period      time.Time       `json:"period"`
	Computed    decimal.Decimal `json:"computed"`
	Reported    decimal.Decimal `json:"reported"`
	Delta       decimal.Decimal `json:"delta"`
	Tolerance   decimal.Decimal `json:"tolerance"`
	Verdict     Verdict         `json:"verdict"`
	CtReference string          `json:"ct_reference,omitempty"`
}
