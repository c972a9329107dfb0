package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is one line of a clearing extract after format parsing. All fields
// are kept as the source supplied them; derivation happens at import time.
type RawRow struct {
	MessageType    string `json:"message_type"`
	TranType       string `json:"tran_type"`
	MCC            string `json:"mcc"`
	TerminalType   string `json:"terminal_type"`
	RawAmount      string `json:"raw_amount"`
	SettlementDate string `json:"settlement_date"`
}

// SettlementRecord is one cleared transaction. The derived fields are pure
// functions of the raw fields and the calculation config in force at import
// time; they are only ever rewritten by a re-import or backfill.
type SettlementRecord struct {
	ID             string          `json:"id"`
	SourceKey      string          `json:"source_key"`
	BatchID        string          `json:"batch_id"`
	MessageType    string          `json:"message_type"`
	TranType       string          `json:"tran_type"`
	MCC            string          `json:"mcc"`
	TerminalType   string          `json:"terminal_type"`
	RawAmount      string          `json:"raw_amount"`
	SettlementDate time.Time       `json:"settlement_date"`
	SignedAmount   decimal.Decimal `json:"signed_amount"`
	Fee            decimal.Decimal `json:"fee"`
	AcqShare       decimal.Decimal `json:"acq_share"`
	ImportedAt     time.Time       `json:"imported_at"`
}

// DateLayout is the wire and storage layout for settlement dates.
const DateLayout = "2006-01-02"
