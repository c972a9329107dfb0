package calc

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/rtgs-engine/internal/config"
	"github.com/meridianpay/rtgs-engine/internal/domain"
)

// parseMagnitude reads a raw extract amount as a non-negative decimal.
// Spaces and apostrophes are stripped; a comma next to a dot is a thousands
// separator, a lone comma is the decimal separator. Unparsable input is 0.
func parseMagnitude(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "'", "")

	switch {
	case strings.Contains(s, ",") && strings.Contains(s, "."):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ",") == 1:
		s = strings.Replace(s, ",", ".", 1)
	default:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d.Abs()
}

// ResolveAmount applies the three-way sign rule: the negative message-type
// marker negates, otherwise the positive transaction-type marker keeps the
// parsed magnitude, and every other row negates. The final branch is the
// business rule for unmapped transaction types, which settle as debits.
func ResolveAmount(row domain.RawRow, cfg config.CalculationConfig) decimal.Decimal {
	mag := parseMagnitude(row.RawAmount)

	switch {
	case row.MessageType == cfg.Amount.NegativeMessageType:
		return mag.Neg()
	case row.TranType == cfg.Amount.PositiveTranType:
		return mag
	default:
		return mag.Neg()
	}
}
