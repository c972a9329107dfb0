package calc

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/rtgs-engine/internal/config"
)

type tierKind int

const (
	tierExempt tierKind = iota
	tierSpecialAfter
	tierSpecialBefore
	tierDefault
)

// classifyTier evaluates the fee decision list in order, first match wins.
// All comparisons use the unsigned magnitude, so the fee is sign-independent.
func classifyTier(mag decimal.Decimal, mcc string, settlementDate time.Time, cfg config.CalculationConfig) tierKind {
	fees := cfg.Fees

	if mag.LessThan(fees.MinAmount) {
		return tierExempt
	}
	if mcc == fees.MCCSpecial {
		if cutover, ok := cfg.CutoverDate(); ok && !settlementDate.Before(cutover) {
			return tierSpecialAfter
		}
		return tierSpecialBefore
	}
	return tierDefault
}

func tierRates(kind tierKind, fees config.FeeRules) config.FeeTier {
	switch kind {
	case tierSpecialAfter:
		return fees.SpecialAfter
	case tierSpecialBefore:
		return fees.SpecialBefore
	default:
		return fees.Default
	}
}

// applyTier computes one tier's fee. The cap test is strictly greater-than:
// an amount exactly at the breakpoint still pays the proportional rate.
// Rounding happens exactly once, at the end of the selected branch.
func applyTier(mag decimal.Decimal, tier config.FeeTier, precision int32) decimal.Decimal {
	if mag.GreaterThan(tier.MaxAmount) {
		return tier.MaxFee.Round(precision)
	}
	return mag.Mul(tier.Rate).Round(precision)
}

// ComputeFee derives the settlement fee for a signed amount from the tiered,
// date-gated rate table.
func ComputeFee(signedAmount decimal.Decimal, mcc string, settlementDate time.Time, cfg config.CalculationConfig) decimal.Decimal {
	mag := signedAmount.Abs()
	kind := classifyTier(mag, mcc, settlementDate, cfg)
	if kind == tierExempt {
		return decimal.Zero
	}
	return applyTier(mag, tierRates(kind, cfg.Fees), cfg.Fees.Precision)
}
