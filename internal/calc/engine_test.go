package calc

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/rtgs-engine/internal/config"
	"github.com/meridianpay/rtgs-engine/internal/domain"
)

// TestBulkAndRowStrategiesAgree generates a corpus spanning every tier, both
// sides of the cutover date, both terminal classes, all three sign branches,
// and degraded inputs, and requires the bulk and procedural strategies to
// produce identical results for every row. This property stays in place even
// though both strategies share a derivation core: a future optimization that
// re-splits them must not drift.
func TestBulkAndRowStrategiesAgree(t *testing.T) {
	cfg := feeConfig()
	cfg.Amount.NegativeMessageType = "1442"
	cfg.Amount.PositiveTranType = "200"
	engine := NewEngine(cfg)

	amounts := []string{"0", "100", "4999", "5000", "10000", "99999.99", "100000", "100000.01", "1,234.56", "garbage"}
	mccs := []string{"5542", "1234"}
	dates := []string{"2025-06-01", "2025-12-31", "2026-01-01", "2026-02-01", "not-a-date"}
	terminals := []string{"POS", "pos", "ATM", ""}
	messageTypes := []string{"1442", "OTHER"}
	tranTypes := []string{"200", "999"}

	var rows []domain.RawRow
	for _, amount := range amounts {
		for _, mcc := range mccs {
			for _, d := range dates {
				for _, term := range terminals {
					for _, mt := range messageTypes {
						for _, tt := range tranTypes {
							rows = append(rows, domain.RawRow{
								MessageType:    mt,
								TranType:       tt,
								MCC:            mcc,
								TerminalType:   term,
								RawAmount:      amount,
								SettlementDate: d,
							})
						}
					}
				}
			}
		}
	}

	bulk := engine.EvaluateAll(rows)
	if len(bulk) != len(rows) {
		t.Fatalf("EvaluateAll returned %d results for %d rows", len(bulk), len(rows))
	}

	for i, row := range rows {
		single := engine.EvaluateRow(row)
		if !bulk[i].SignedAmount.Equal(single.SignedAmount) {
			t.Errorf("row %d %+v: signed amount bulk=%s row=%s", i, row, bulk[i].SignedAmount, single.SignedAmount)
		}
		if !bulk[i].Fee.Equal(single.Fee) {
			t.Errorf("row %d %+v: fee bulk=%s row=%s", i, row, bulk[i].Fee, single.Fee)
		}
		if !bulk[i].AcqShare.Equal(single.AcqShare) {
			t.Errorf("row %d %+v: acq share bulk=%s row=%s", i, row, bulk[i].AcqShare, single.AcqShare)
		}
	}
}

// TestEndToEndScenario pins the full derivation of a single row: a 10000
// special-MCC transaction before the cutover, on an unmapped transaction
// type, settles as a -10000 debit with a 70.00 fee and a 45.50 non-POS
// acquirer share.
func TestEndToEndScenario(t *testing.T) {
	cfg := config.Defaults()
	cfg.Amount.PositiveTranType = "200"
	cfg.Fees.MinAmount = decimal.NewFromInt(5000)
	cfg.Fees.MCCSpecial = "5542"
	cfg.Fees.MCCSpecialDateFrom = "2026-01-01"
	cfg.Fees.SpecialAfter.Rate = decimal.RequireFromString("0.005")
	cfg.Fees.SpecialBefore.Rate = decimal.RequireFromString("0.007")
	cfg.Fees.Default.Rate = decimal.RequireFromString("0.01")
	cfg.Fees.Precision = 2
	cfg.Acq.NonPosRate = decimal.RequireFromString("0.65")

	engine := NewEngine(cfg)
	row := domain.RawRow{
		MessageType:    "OTHER",
		TranType:       "999",
		MCC:            "5542",
		TerminalType:   "ATM",
		RawAmount:      "10000",
		SettlementDate: "2025-06-01",
	}

	d := engine.EvaluateRow(row)

	if want := decimal.NewFromInt(-10000); !d.SignedAmount.Equal(want) {
		t.Errorf("signed amount = %s, want %s", d.SignedAmount, want)
	}
	if want := decimal.RequireFromString("70"); !d.Fee.Equal(want) {
		t.Errorf("fee = %s, want %s", d.Fee, want)
	}
	if want := decimal.RequireFromString("45.5"); !d.AcqShare.Equal(want) {
		t.Errorf("acq share = %s, want %s", d.AcqShare, want)
	}
}
