package importer

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridianpay/rtgs-engine/internal/config"
	"github.com/meridianpay/rtgs-engine/internal/domain"
	"github.com/meridianpay/rtgs-engine/internal/repository"
)

type fixture struct {
	svc     *Service
	records *repository.RecordRepo
	batches *repository.BatchRepo
	aggs    *repository.AggregateRepo
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
	resolver := config.NewResolver(repository.NewConfigRepo(db))

	return &fixture{
		svc:     NewService(records, batches, resolver),
		records: records,
		batches: batches,
		aggs:    repository.NewAggregateRepo(db),
	}
}

func sampleRows(n int) []domain.RawRow {
	rows := make([]domain.RawRow, n)
	for i := range rows {
		rows[i] = domain.RawRow{
			MessageType:    "1442",
			TranType:       "999",
			MCC:            "1234",
			TerminalType:   "POS",
			RawAmount:      fmt.Sprintf("%d", 10000+i),
			SettlementDate: "2025-03-10",
		}
	}
	return rows
}

func TestImportIsIdempotent(t *testing.T) {
	f := setup(t)
	rows := sampleRows(5)

	first, err := f.svc.ImportBatch("extract-a.csv", rows)
	if err != nil {
		t.Fatalf("first import: %v", err)
	}
	if first.Inserted != 5 || first.Skipped != 0 {
		t.Fatalf("first import: inserted=%d skipped=%d, want 5/0", first.Inserted, first.Skipped)
	}

	second, err := f.svc.ImportBatch("extract-a.csv", rows)
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if second.Inserted != 0 || second.Skipped != 5 {
		t.Errorf("second import: inserted=%d skipped=%d, want 0/5", second.Inserted, second.Skipped)
	}

	count, err := f.records.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Errorf("record count after re-import = %d, want 5", count)
	}

	// An all-duplicate attempt still leaves a batch log entry.
	batches, err := f.batches.List()
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(batches) != 2 {
		t.Fatalf("batch count = %d, want 2", len(batches))
	}
}

func TestImportDeduplicatesWithinOneBatch(t *testing.T) {
	f := setup(t)
	rows := sampleRows(1)
	rows = append(rows, rows[0])

	result, err := f.svc.ImportBatch("extract-dup.csv", rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Inserted != 1 || result.Skipped != 1 {
		t.Errorf("inserted=%d skipped=%d, want 1/1", result.Inserted, result.Skipped)
	}
}

func TestImportPersistsDerivedFields(t *testing.T) {
	f := setup(t)
	// Defaults: negative message type 1442, default tier rate 0.01,
	// non-POS acquirer rate 0.65.
	rows := []domain.RawRow{{
		MessageType:    "1442",
		TranType:       "999",
		MCC:            "1234",
		TerminalType:   "ATM",
		RawAmount:      "10000",
		SettlementDate: "2025-03-10",
	}}

	result, err := f.svc.ImportBatch("extract-b.csv", rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	records, err := f.records.GetByBatch(result.BatchID)
	if err != nil {
		t.Fatalf("get records: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("record count = %d, want 1", len(records))
	}

	rec := records[0]
	if want := decimal.NewFromInt(-10000); !rec.SignedAmount.Equal(want) {
		t.Errorf("signed amount = %s, want %s", rec.SignedAmount, want)
	}
	if want := decimal.NewFromInt(100); !rec.Fee.Equal(want) {
		t.Errorf("fee = %s, want %s", rec.Fee, want)
	}
	if want := decimal.NewFromInt(65); !rec.AcqShare.Equal(want) {
		t.Errorf("acq share = %s, want %s", rec.AcqShare, want)
	}
}

func TestImportChunksLargeBatches(t *testing.T) {
	f := setup(t)
	rows := sampleRows(chunkSize*2 + 50)

	result, err := f.svc.ImportBatch("extract-large.csv", rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Inserted != len(rows) || result.Skipped != 0 {
		t.Errorf("inserted=%d skipped=%d, want %d/0", result.Inserted, result.Skipped, len(rows))
	}

	batch, err := f.batches.GetByID(result.BatchID)
	if err != nil {
		t.Fatalf("get batch: %v", err)
	}
	if batch.RowsInserted != len(rows) || batch.RowsSkipped != 0 {
		t.Errorf("batch counts inserted=%d skipped=%d, want %d/0",
			batch.RowsInserted, batch.RowsSkipped, len(rows))
	}
}

func TestDeleteBatchRemovesExactlyItsRecords(t *testing.T) {
	f := setup(t)

	a, err := f.svc.ImportBatch("extract-a.csv", sampleRows(3))
	if err != nil {
		t.Fatalf("import a: %v", err)
	}
	otherRows := sampleRows(2)
	for i := range otherRows {
		otherRows[i].RawAmount = fmt.Sprintf("%d", 20000+i)
	}
	b, err := f.svc.ImportBatch("extract-b.csv", otherRows)
	if err != nil {
		t.Fatalf("import b: %v", err)
	}

	deleted, err := f.svc.DeleteBatch(a.BatchID)
	if err != nil {
		t.Fatalf("delete batch: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	count, _ := f.records.Count()
	if count != 2 {
		t.Errorf("remaining records = %d, want 2", count)
	}
	remaining, err := f.records.GetByBatch(b.BatchID)
	if err != nil {
		t.Fatalf("get batch b records: %v", err)
	}
	if len(remaining) != 2 {
		t.Errorf("batch b records = %d, want 2", len(remaining))
	}
}

func TestDeleteBatchMarksAggregatesStale(t *testing.T) {
	f := setup(t)

	result, err := f.svc.ImportBatch("extract-a.csv", sampleRows(3))
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	day, _ := time.Parse(domain.DateLayout, "2025-03-10")
	err = f.aggs.ReplaceRange(day, day, []domain.Aggregate{{
		SettlementDate: day,
		MCC:            "1234",
		TotalAmount:    decimal.NewFromInt(-30003),
		TotalFee:       decimal.NewFromInt(300),
		TotalAcqShare:  decimal.NewFromInt(210),
		RecordCount:    3,
		ComputedAt:     time.Now().UTC(),
	}})
	if err != nil {
		t.Fatalf("store aggregate: %v", err)
	}

	if _, err := f.svc.DeleteBatch(result.BatchID); err != nil {
		t.Fatalf("delete batch: %v", err)
	}

	stale, err := f.aggs.StaleDates(day, day)
	if err != nil {
		t.Fatalf("stale dates: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("stale dates = %d, want 1", len(stale))
	}
}

func TestDeleteAll(t *testing.T) {
	f := setup(t)

	if _, err := f.svc.ImportBatch("extract-a.csv", sampleRows(4)); err != nil {
		t.Fatalf("import: %v", err)
	}

	if err := f.svc.DeleteAll(); err != nil {
		t.Fatalf("delete all: %v", err)
	}

	count, _ := f.records.Count()
	if count != 0 {
		t.Errorf("records after delete all = %d, want 0", count)
	}
	batchCount, _ := f.batches.Count()
	if batchCount != 0 {
		t.Errorf("batches after delete all = %d, want 0", batchCount)
	}
}

func TestSourceKeyStable(t *testing.T) {
	row := domain.RawRow{
		MessageType:    "1442",
		TranType:       "999",
		MCC:            "1234",
		TerminalType:   "POS",
		RawAmount:      "10000",
		SettlementDate: "2025-03-10",
	}
	padded := row
	padded.MessageType = " 1442 "
	padded.RawAmount = "10000 "

	if SourceKey(row) != SourceKey(padded) {
		t.Error("source key changed under whitespace-only differences")
	}

	other := row
	other.RawAmount = "10001"
	if SourceKey(row) == SourceKey(other) {
		t.Error("distinct rows share a source key")
	}
}
