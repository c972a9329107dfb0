package calc

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/rtgs-engine/internal/config"
)

// isPOS compares the terminal type case- and whitespace-insensitively.
func isPOS(terminalType string) bool {
	return strings.EqualFold(strings.TrimSpace(terminalType), "POS")
}

// ComputeAcquirerShare derives the acquirer's portion of a computed fee from
// the terminal type. Config validation clamps both rates into [0,1], so the
// share can never exceed the fee.
func ComputeAcquirerShare(fee decimal.Decimal, terminalType string, cfg config.CalculationConfig) decimal.Decimal {
	rate := cfg.Acq.NonPosRate
	if isPOS(terminalType) {
		rate = cfg.Acq.PosRate
	}
	return fee.Mul(rate).Round(cfg.Fees.Precision)
}
