package config

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/rtgs-engine/internal/domain"
)

// Key is the fixed identifier the calculation config is stored under.
const Key = "rtgs_calculation"

// AmountRules drives sign resolution. A row whose message type equals the
// negative marker is negated; otherwise a row whose transaction type equals
// the positive marker keeps its sign; every other row is negated.
type AmountRules struct {
	NegativeMessageType string `json:"negativeMessageType"`
	PositiveTranType    string `json:"positiveTranType"`
}

// FeeTier holds the proportional rate, the capped fee, and the amount
// breakpoint above which the cap applies.
type FeeTier struct {
	Rate      decimal.Decimal `json:"rate"`
	MaxFee    decimal.Decimal `json:"maxFee"`
	MaxAmount decimal.Decimal `json:"maxAmount"`
}

// FeeRules is the tiered, date-gated rate table. SpecialAfter applies to the
// special MCC on or after the cutover date, SpecialBefore to the special MCC
// before it, Default to everything else. Amounts below MinAmount are exempt.
type FeeRules struct {
	MinAmount          decimal.Decimal `json:"minAmount"`
	MCCSpecial         string          `json:"mccSpecial"`
	MCCSpecialDateFrom string          `json:"mccSpecialDateFrom"`
	SpecialAfter       FeeTier         `json:"specialAfter"`
	SpecialBefore      FeeTier         `json:"specialBefore"`
	Default            FeeTier         `json:"default"`
	Precision          int32           `json:"precision"`
}

// AcqRules holds the acquirer's share of a computed fee by terminal type.
type AcqRules struct {
	PosRate    decimal.Decimal `json:"posRate"`
	NonPosRate decimal.Decimal `json:"nonPosRate"`
}

// CalculationConfig is the versioned calculation configuration. It is read
// once at the start of an import, aggregation, or match pass and passed
// explicitly into every computation, never mutated mid-pass.
type CalculationConfig struct {
	Amount         AmountRules     `json:"amount"`
	Fees           FeeRules        `json:"fees"`
	Acq            AcqRules        `json:"acq"`
	MatchTolerance decimal.Decimal `json:"matchTolerance"`
}

// Defaults returns the hard-coded configuration the resolver merges stored
// values over. Resolution degrades to these on any read or parse failure.
func Defaults() CalculationConfig {
	return CalculationConfig{
		Amount: AmountRules{
			NegativeMessageType: "1442",
			PositiveTranType:    "200",
		},
		Fees: FeeRules{
			MinAmount:          decimal.NewFromInt(5000),
			MCCSpecial:         "5542",
			MCCSpecialDateFrom: "2026-01-01",
			SpecialAfter: FeeTier{
				Rate:      decimal.RequireFromString("0.005"),
				MaxFee:    decimal.NewFromInt(250000),
				MaxAmount: decimal.NewFromInt(50000000),
			},
			SpecialBefore: FeeTier{
				Rate:      decimal.RequireFromString("0.007"),
				MaxFee:    decimal.NewFromInt(350000),
				MaxAmount: decimal.NewFromInt(50000000),
			},
			Default: FeeTier{
				Rate:      decimal.RequireFromString("0.01"),
				MaxFee:    decimal.NewFromInt(500000),
				MaxAmount: decimal.NewFromInt(50000000),
			},
			Precision: 6,
		},
		Acq: AcqRules{
			PosRate:    decimal.RequireFromString("0.7"),
			NonPosRate: decimal.RequireFromString("0.65"),
		},
		MatchTolerance: decimal.RequireFromString("0.01"),
	}
}

// CutoverDate parses the special-tier cutover. Validate guarantees the field
// parses, so callers can ignore the ok result after resolution.
func (c CalculationConfig) CutoverDate() (time.Time, bool) {
	t, err := time.Parse(domain.DateLayout, c.Fees.MCCSpecialDateFrom)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Validate normalizes a resolved config in place. Acquirer rates outside
// [0,1] are clamped so a share can never exceed its fee, a non-positive
// precision falls back to the default, and an unparsable cutover date is
// replaced with the default one.
func (c *CalculationConfig) Validate() {
	c.Acq.PosRate = clampRate(c.Acq.PosRate)
	c.Acq.NonPosRate = clampRate(c.Acq.NonPosRate)

	if c.Fees.Precision < 0 {
		c.Fees.Precision = Defaults().Fees.Precision
	}
	if _, ok := c.CutoverDate(); !ok {
		c.Fees.MCCSpecialDateFrom = Defaults().Fees.MCCSpecialDateFrom
	}
}

var one = decimal.NewFromInt(1)

func clampRate(r decimal.Decimal) decimal.Decimal {
	if r.IsNegative() {
		return decimal.Zero
	}
	if r.GreaterThan(one) {
		return one
	}
	return r
}
