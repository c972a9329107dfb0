package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/meridianpay/rtgs-engine/internal/calc"
	"github.com/meridianpay/rtgs-engine/internal/config"
	"github.com/meridianpay/rtgs-engine/internal/domain"
	"github.com/meridianpay/rtgs-engine/internal/repository"
)

// chunkSize bounds the rows committed per sub-transaction on large imports,
// so a crash mid-import leaves a consistent prefix rather than a half batch.
const chunkSize = 500

// Result is returned from an import attempt. On a storage failure the counts
// reflect what actually committed (zero for a rolled-back single-transaction
// batch, the committed prefix for a chunked one).
type Result struct {
	BatchID  string `json:"batch_id"`
	RowsSeen int    `json:"rows_seen"`
	Inserted int    `json:"inserted"`
	Skipped  int    `json:"skipped"`
}

// Service ingests clearing-extract rows as settlement records.
type Service struct {
	records  *repository.RecordRepo
	batches  *repository.BatchRepo
	resolver *config.Resolver
	log      *logrus.Entry
}

func NewService(records *repository.RecordRepo, batches *repository.BatchRepo, resolver *config.Resolver) *Service {
	return &Service{
		records:  records,
		batches:  batches,
		resolver: resolver,
		log:      logrus.WithField("component", "importer"),
	}
}

// SourceKey derives the natural dedup key for a row from its stable raw
// fields only, never from a generated id, so the same source row always
// hashes to the same key across re-imports.
func SourceKey(row domain.RawRow) string {
	h := sha256.Sum256([]byte(strings.Join([]string{
		strings.TrimSpace(row.MessageType),
		strings.TrimSpace(row.TranType),
		strings.TrimSpace(row.MCC),
		strings.TrimSpace(row.TerminalType),
		strings.TrimSpace(row.RawAmount),
		strings.TrimSpace(row.SettlementDate),
	}, "|")))
	return hex.EncodeToString(h[:])
}

// ImportBatch derives every row under the config in force, persists the new
// records append-only (duplicates are skipped, never updated), and records
// one ImportBatch entry even when every row was a duplicate.
func (s *Service) ImportBatch(source string, rows []domain.RawRow) (*Result, error) {
	cfg := s.resolver.Resolve()
	engine := calc.NewEngine(cfg)
	now := time.Now().UTC()

	batch := &domain.ImportBatch{
		ID:         uuid.NewString(),
		Source:     source,
		RowsSeen:   len(rows),
		ImportedAt: now,
	}

	records := make([]domain.SettlementRecord, len(rows))
	for i, row := range rows {
		d := engine.EvaluateRow(row)
		date, _ := time.Parse(domain.DateLayout, strings.TrimSpace(row.SettlementDate))
		records[i] = domain.SettlementRecord{
			ID:             uuid.NewString(),
			SourceKey:      SourceKey(row),
			BatchID:        batch.ID,
			MessageType:    row.MessageType,
			TranType:       row.TranType,
			MCC:            row.MCC,
			TerminalType:   row.TerminalType,
			RawAmount:      row.RawAmount,
			SettlementDate: date,
			SignedAmount:   d.SignedAmount,
			Fee:            d.Fee,
			AcqShare:       d.AcqShare,
			ImportedAt:     now,
		}
	}

	result := &Result{BatchID: batch.ID, RowsSeen: len(rows)}

	if len(records) <= chunkSize {
		inserted, err := s.records.InsertImport(batch, records)
		if err != nil {
			return result, fmt.Errorf("import batch %s: %w", batch.ID, err)
		}
		result.Inserted = inserted
		result.Skipped = len(records) - inserted
	} else {
		if err := s.records.CreateBatch(batch); err != nil {
			return result, fmt.Errorf("create batch %s: %w", batch.ID, err)
		}
		for start := 0; start < len(records); start += chunkSize {
			end := start + chunkSize
			if end > len(records) {
				end = len(records)
			}
			inserted, err := s.records.AppendChunk(batch.ID, records[start:end])
			if err != nil {
				// The failed chunk rolled back; counts hold the committed prefix.
				return result, fmt.Errorf("import batch %s chunk at %d: %w", batch.ID, start, err)
			}
			result.Inserted += inserted
			result.Skipped += (end - start) - inserted
		}
	}

	s.log.WithFields(logrus.Fields{
		"batch":    batch.ID,
		"source":   source,
		"seen":     result.RowsSeen,
		"inserted": result.Inserted,
		"skipped":  result.Skipped,
	}).Info("batch imported")

	return result, nil
}

// DeleteBatch removes one batch and its records, leaving dependent aggregate
// buckets marked stale for recomputation.
func (s *Service) DeleteBatch(batchID string) (int, error) {
	deleted, err := s.batches.DeleteBatch(batchID)
	if err != nil {
		return 0, err
	}
	s.log.WithFields(logrus.Fields{"batch": batchID, "records": deleted}).Info("batch deleted")
	return deleted, nil
}

// DeleteAll removes every batch and record transactionally.
func (s *Service) DeleteAll() error {
	if err := s.batches.DeleteAll(); err != nil {
		return err
	}
	s.log.Info("all batches deleted")
	return nil
}
