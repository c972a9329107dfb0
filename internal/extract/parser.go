package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/meridianpay/rtgs-engine/internal/domain"
)

// ParseClearingCSV parses a clearing-source settlement extract.
//
// Expected header:
//
//	message_type,tran_type,mcc,terminal_type,amount,settlement_date
//
// A malformed row degrades instead of aborting the batch: short rows are
// padded with empty fields and field-level problems are left for derivation
// to default (amount to 0, unmapped codes to the negate branch).
func ParseClearingCSV(data []byte) ([]domain.RawRow, error) {
	reader := csv.NewReader(strings.NewReader(string(data)))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 6 {
		return nil, fmt.Errorf("expected 6 columns, got %d", len(header))
	}

	var rows []domain.RawRow
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}
		for len(row) < 6 {
			row = append(row, "")
		}

		rows = append(rows, domain.RawRow{
			MessageType:    strings.TrimSpace(row[0]),
			TranType:       strings.TrimSpace(row[1]),
			MCC:            strings.TrimSpace(row[2]),
			TerminalType:   strings.TrimSpace(row[3]),
			RawAmount:      strings.TrimSpace(row[4]),
			SettlementDate: strings.TrimSpace(row[5]),
		})
	}

	return rows, nil
}
