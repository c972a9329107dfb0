package calc

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/rtgs-engine/internal/config"
	"github.com/meridianpay/rtgs-engine/internal/domain"
)

func signConfig() config.CalculationConfig {
	cfg := config.Defaults()
	cfg.Amount.NegativeMessageType = "1442"
	cfg.Amount.PositiveTranType = "200"
	return cfg
}

func TestResolveAmountNegativeMessageType(t *testing.T) {
	cfg := signConfig()
	// The negative marker wins even when the transaction type carries the
	// positive marker.
	row := domain.RawRow{MessageType: "1442", TranType: "200", RawAmount: "1500.25"}

	got := ResolveAmount(row, cfg)
	if want := decimal.RequireFromString("-1500.25"); !got.Equal(want) {
		t.Errorf("ResolveAmount = %s, want %s", got, want)
	}
}

func TestResolveAmountPositiveTranType(t *testing.T) {
	cfg := signConfig()
	row := domain.RawRow{MessageType: "OTHER", TranType: "200", RawAmount: "1500.25"}

	got := ResolveAmount(row, cfg)
	if want := decimal.RequireFromString("1500.25"); !got.Equal(want) {
		t.Errorf("ResolveAmount = %s, want %s", got, want)
	}
}

func TestResolveAmountDefaultBranchNegates(t *testing.T) {
	cfg := signConfig()
	// Neither marker matches: the default branch negates.
	row := domain.RawRow{MessageType: "OTHER", TranType: "999", RawAmount: "1500.25"}

	got := ResolveAmount(row, cfg)
	if want := decimal.RequireFromString("-1500.25"); !got.Equal(want) {
		t.Errorf("ResolveAmount = %s, want %s", got, want)
	}
}

func TestParseMagnitude(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"1234.56", "1234.56"},
		{"1,234.56", "1234.56"},
		{"1234,56", "1234.56"},
		{"1 234,56", "1234.56"},
		{"12'345.67", "12345.67"},
		{"1,234,567", "1234567"},
		{"-500", "500"},
		{"  250  ", "250"},
		{"abc", "0"},
		{"", "0"},
	}

	for _, tt := range tests {
		got := parseMagnitude(tt.raw)
		if want := decimal.RequireFromString(tt.want); !got.Equal(want) {
			t.Errorf("parseMagnitude(%q) = %s, want %s", tt.raw, got, want)
		}
	}
}
