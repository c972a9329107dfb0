package aggregate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/rtgs-engine/internal/config"
	"github.com/meridianpay/rtgs-engine/internal/domain"
	"github.com/meridianpay/rtgs-engine/internal/importer"
	"github.com/meridianpay/rtgs-engine/internal/repository"
)

type fixture struct {
	svc      *Service
	importer *importer.Service
	resolver *config.Resolver
	records  *repository.RecordRepo
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.InitDB(":memory:")
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	records := repository.NewRecordRepo(db)
	batches := repository.NewBatchRepo(db)
	aggs := repository.NewAggregateRepo(db)
	resolver := config.NewResolver(repository.NewConfigRepo(db))

	return &fixture{
		svc:      NewService(records, aggs, resolver),
		importer: importer.NewService(records, batches, resolver),
		resolver: resolver,
		records:  records,
	}
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

// seedRows covers two dates and two MCCs. All rows take the default-negate
// sign branch and the default fee tier (rate 0.01).
func seedRows() []domain.RawRow {
	return []domain.RawRow{
		{MessageType: "1442", TranType: "999", MCC: "1234", TerminalType: "ATM", RawAmount: "10000", SettlementDate: "2025-03-10"},
		{MessageType: "1442", TranType: "999", MCC: "1234", TerminalType: "ATM", RawAmount: "20000", SettlementDate: "2025-03-10"},
		{MessageType: "1442", TranType: "999", MCC: "9999", TerminalType: "ATM", RawAmount: "5000", SettlementDate: "2025-03-10"},
		{MessageType: "1442", TranType: "999", MCC: "1234", TerminalType: "ATM", RawAmount: "40000", SettlementDate: "2025-03-11"},
	}
}

func TestAggregateBucketsByDateAndMCC(t *testing.T) {
	f := setup(t)
	if _, err := f.importer.ImportBatch("extract.csv", seedRows()); err != nil {
		t.Fatalf("import: %v", err)
	}

	from, to := day(t, "2025-03-10"), day(t, "2025-03-11")
	buckets, err := f.svc.Aggregate(from, to)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(buckets) != 3 {
		t.Fatalf("bucket count = %d, want 3", len(buckets))
	}

	first := buckets[0]
	if first.MCC != "1234" || !first.SettlementDate.Equal(from) {
		t.Fatalf("unexpected first bucket: %s %s", first.SettlementDate, first.MCC)
	}
	if want := decimal.NewFromInt(-30000); !first.TotalAmount.Equal(want) {
		t.Errorf("total amount = %s, want %s", first.TotalAmount, want)
	}
	if want := decimal.NewFromInt(300); !first.TotalFee.Equal(want) {
		t.Errorf("total fee = %s, want %s", first.TotalFee, want)
	}
	if first.RecordCount != 2 {
		t.Errorf("record count = %d, want 2", first.RecordCount)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	f := setup(t)
	if _, err := f.importer.ImportBatch("extract.csv", seedRows()); err != nil {
		t.Fatalf("import: %v", err)
	}

	from, to := day(t, "2025-03-10"), day(t, "2025-03-11")
	first, err := f.svc.Aggregate(from, to)
	if err != nil {
		t.Fatalf("first aggregate: %v", err)
	}
	second, err := f.svc.Aggregate(from, to)
	if err != nil {
		t.Fatalf("second aggregate: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("bucket counts differ: %d vs %d", len(first), len(second))
	}
	stored, err := f.svc.ListStored(from, to)
	if err != nil {
		t.Fatalf("list stored: %v", err)
	}
	if len(stored) != len(first) {
		t.Fatalf("stored buckets = %d, want %d", len(stored), len(first))
	}
	for i := range first {
		if !stored[i].TotalFee.Equal(first[i].TotalFee) {
			t.Errorf("bucket %d fee drifted: %s vs %s", i, stored[i].TotalFee, first[i].TotalFee)
		}
	}
}

func TestBackfillAppliesCurrentConfig(t *testing.T) {
	f := setup(t)
	if _, err := f.importer.ImportBatch("extract.csv", seedRows()); err != nil {
		t.Fatalf("import: %v", err)
	}

	// Double the default tier rate after the records were imported.
	if err := f.resolver.Update([]byte(`{"fees": {"default": {"rate": "0.02"}}}`)); err != nil {
		t.Fatalf("update config: %v", err)
	}

	from, to := day(t, "2025-03-10"), day(t, "2025-03-11")
	if _, err := f.svc.Backfill(from, to); err != nil {
		t.Fatalf("backfill: %v", err)
	}

	records, err := f.records.GetByDateRange(from, from)
	if err != nil {
		t.Fatalf("load records: %v", err)
	}
	for _, rec := range records {
		want := rec.SignedAmount.Abs().Mul(decimal.RequireFromString("0.02"))
		if !rec.Fee.Equal(want) {
			t.Errorf("record %s fee = %s, want %s after backfill", rec.ID, rec.Fee, want)
		}
	}

	stored, err := f.svc.ListStored(from, from)
	if err != nil {
		t.Fatalf("list stored: %v", err)
	}
	if want := decimal.NewFromInt(600); !stored[0].TotalFee.Equal(want) {
		t.Errorf("bucket fee = %s, want %s after backfill", stored[0].TotalFee, want)
	}
}

func TestBackfillIsIdempotent(t *testing.T) {
	f := setup(t)
	if _, err := f.importer.ImportBatch("extract.csv", seedRows()); err != nil {
		t.Fatalf("import: %v", err)
	}

	from, to := day(t, "2025-03-10"), day(t, "2025-03-11")
	if _, err := f.svc.Backfill(from, to); err != nil {
		t.Fatalf("first backfill: %v", err)
	}
	firstStored, err := f.svc.ListStored(from, to)
	if err != nil {
		t.Fatalf("list stored: %v", err)
	}

	if _, err := f.svc.Backfill(from, to); err != nil {
		t.Fatalf("second backfill: %v", err)
	}
	secondStored, err := f.svc.ListStored(from, to)
	if err != nil {
		t.Fatalf("list stored: %v", err)
	}

	if len(firstStored) != len(secondStored) {
		t.Fatalf("bucket counts differ: %d vs %d", len(firstStored), len(secondStored))
	}
	for i := range firstStored {
		if !firstStored[i].TotalAmount.Equal(secondStored[i].TotalAmount) ||
			!firstStored[i].TotalFee.Equal(secondStored[i].TotalFee) ||
			firstStored[i].RecordCount != secondStored[i].RecordCount {
			t.Errorf("bucket %d changed across backfills", i)
		}
	}
}

func TestAggregateEmptyAfterDeleteAll(t *testing.T) {
	f := setup(t)
	if _, err := f.importer.ImportBatch("extract.csv", seedRows()); err != nil {
		t.Fatalf("import: %v", err)
	}

	from, to := day(t, "2025-03-10"), day(t, "2025-03-11")
	if _, err := f.svc.Aggregate(from, to); err != nil {
		t.Fatalf("aggregate: %v", err)
	}

	if err := f.importer.DeleteAll(); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	buckets, err := f.svc.Aggregate(from, to)
	if err != nil {
		t.Fatalf("aggregate after delete: %v", err)
	}
	if len(buckets) != 0 {
		t.Errorf("buckets after delete all = %d, want 0", len(buckets))
	}
	stored, err := f.svc.ListStored(from, to)
	if err != nil {
		t.Fatalf("list stored: %v", err)
	}
	if len(stored) != 0 {
		t.Errorf("stored buckets after delete all = %d, want 0", len(stored))
	}
}
