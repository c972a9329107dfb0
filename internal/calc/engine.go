package calc

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/rtgs-engine/internal/config"
	"github.com/meridianpay/rtgs-engine/internal/domain"
)

// Derived holds the computed fields for one row.
type Derived struct {
	SignedAmount decimal.Decimal
	Fee          decimal.Decimal
	AcqShare     decimal.Decimal
}

// Engine evaluates rows against a fixed CalculationConfig through two
// interchangeable strategies: EvaluateRow for procedural per-record work
// (imports, audits) and EvaluateAll for bulk passes over a record set.
// Both reduce to the same derivation core; their numeric equivalence is
// pinned by a regression test so a future re-split cannot drift silently.
type Engine struct {
	cfg config.CalculationConfig
}

func NewEngine(cfg config.CalculationConfig) *Engine {
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() config.CalculationConfig {
	return e.cfg
}

// derive is the single decision tree behind both strategies. An unparsable
// settlement date degrades to the zero time, which lands special-MCC rows in
// the before-cutover tier; the row is still computed, never rejected.
func derive(row domain.RawRow, cfg config.CalculationConfig) Derived {
	signed := ResolveAmount(row, cfg)
	date, _ := time.Parse(domain.DateLayout, row.SettlementDate)
	fee := ComputeFee(signed, row.MCC, date, cfg)
	return Derived{
		SignedAmount: signed,
		Fee:          fee,
		AcqShare:     ComputeAcquirerShare(fee, row.TerminalType, cfg),
	}
}

// EvaluateRow is the procedural strategy.
func (e *Engine) EvaluateRow(row domain.RawRow) Derived {
	return derive(row, e.cfg)
}

// EvaluateAll is the bulk strategy: sign resolution in one sweep, rows
// bucketed by tier, each tier's rate applied over its whole bucket, then
// acquirer shares grouped by terminal class.
func (e *Engine) EvaluateAll(rows []domain.RawRow) []Derived {
	out := make([]Derived, len(rows))
	buckets := make(map[tierKind][]int, 4)

	for i, row := range rows {
		out[i].SignedAmount = ResolveAmount(row, e.cfg)
		date, _ := time.Parse(domain.DateLayout, row.SettlementDate)
		kind := classifyTier(out[i].SignedAmount.Abs(), row.MCC, date, e.cfg)
		buckets[kind] = append(buckets[kind], i)
	}

	for kind, idxs := range buckets {
		if kind == tierExempt {
			for _, i := range idxs {
				out[i].Fee = decimal.Zero
			}
			continue
		}
		tier := tierRates(kind, e.cfg.Fees)
		for _, i := range idxs {
			out[i].Fee = applyTier(out[i].SignedAmount.Abs(), tier, e.cfg.Fees.Precision)
		}
	}

	posIdx := make([]int, 0, len(rows))
	nonPosIdx := make([]int, 0, len(rows))
	for i, row := range rows {
		if isPOS(row.TerminalType) {
			posIdx = append(posIdx, i)
		} else {
			nonPosIdx = append(nonPosIdx, i)
		}
	}
	for _, i := range posIdx {
		out[i].AcqShare = out[i].Fee.Mul(e.cfg.Acq.PosRate).Round(e.cfg.Fees.Precision)
	}
	for _, i := range nonPosIdx {
		out[i].AcqShare = out[i].Fee.Mul(e.cfg.Acq.NonPosRate).Round(e.cfg.Fees.Precision)
	}

	return out
}
