package aggregate

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/meridianpay/rtgs-engine/internal/calc"
	"github.com/meridianpay/rtgs-engine/internal/config"
	"github.com/meridianpay/rtgs-engine/internal/domain"
	"github.com/meridianpay/rtgs-engine/internal/repository"
)

// Service derives per-date, per-MCC settlement totals. Buckets are always
// recomputed in full from the persisted records, never incrementally
// patched, so they reflect the current record set exactly.
type Service struct {
	records  *repository.RecordRepo
	aggs     *repository.AggregateRepo
	resolver *config.Resolver
	log      *logrus.Entry
}

func NewService(records *repository.RecordRepo, aggs *repository.AggregateRepo, resolver *config.Resolver) *Service {
	return &Service{
		records:  records,
		aggs:     aggs,
		resolver: resolver,
		log:      logrus.WithField("component", "aggregator"),
	}
}

// Aggregate recomputes and stores every bucket in [from, to] from the
// persisted records, replacing whatever was stored for that range. Running
// it twice over the same range yields identical buckets.
func (s *Service) Aggregate(from, to time.Time) ([]domain.Aggregate, error) {
	records, err := s.records.GetByDateRange(from, to)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	buckets := bucketize(records, time.Now().UTC())
	if err := s.aggs.ReplaceRange(from, to, buckets); err != nil {
		return nil, fmt.Errorf("store aggregates: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"from":    from.Format(domain.DateLayout),
		"to":      to.Format(domain.DateLayout),
		"records": len(records),
		"buckets": len(buckets),
	}).Info("aggregates recomputed")

	return buckets, nil
}

// Backfill re-derives every record in [from, to] under the config currently
// in force using the bulk evaluation strategy, then recomputes the affected
// buckets. It is the one path besides import allowed to rewrite derived
// fields, and it is idempotent over a fixed config and record set.
func (s *Service) Backfill(from, to time.Time) (int, error) {
	records, err := s.records.GetByDateRange(from, to)
	if err != nil {
		return 0, fmt.Errorf("load records: %w", err)
	}

	if len(records) > 0 {
		engine := calc.NewEngine(s.resolver.Resolve())

		rows := make([]domain.RawRow, len(records))
		for i, rec := range records {
			rows[i] = domain.RawRow{
				MessageType:    rec.MessageType,
				TranType:       rec.TranType,
				MCC:            rec.MCC,
				TerminalType:   rec.TerminalType,
				RawAmount:      rec.RawAmount,
				SettlementDate: rec.SettlementDate.Format(domain.DateLayout),
			}
		}

		derived := engine.EvaluateAll(rows)
		for i := range records {
			records[i].SignedAmount = derived[i].SignedAmount
			records[i].Fee = derived[i].Fee
			records[i].AcqShare = derived[i].AcqShare
		}

		if err := s.records.UpdateDerived(records); err != nil {
			return 0, fmt.Errorf("rewrite derived fields: %w", err)
		}
	}

	buckets := bucketize(records, time.Now().UTC())
	if err := s.aggs.ReplaceRange(from, to, buckets); err != nil {
		return 0, fmt.Errorf("store aggregates: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"from":    from.Format(domain.DateLayout),
		"to":      to.Format(domain.DateLayout),
		"records": len(records),
		"buckets": len(buckets),
	}).Info("backfill complete")

	return len(buckets), nil
}

// ListStored returns the stored buckets for a range without recomputing.
func (s *Service) ListStored(from, to time.Time) ([]domain.Aggregate, error) {
	return s.aggs.ListRange(from, to)
}

// bucketize folds records into (date, MCC) buckets. Records arrive ordered
// by date then MCC, so buckets come out in the same order.
func bucketize(records []domain.SettlementRecord, computedAt time.Time) []domain.Aggregate {
	var buckets []domain.Aggregate
	for _, rec := range records {
		n := len(buckets)
		if n == 0 || !buckets[n-1].SettlementDate.Equal(rec.SettlementDate) || buckets[n-1].MCC != rec.MCC {
			buckets = append(buckets, domain.Aggregate{
				SettlementDate: rec.SettlementDate,
				MCC:            rec.MCC,
				ComputedAt:     computedAt,
			})
			n++
		}
		b := &buckets[n-1]
		b.TotalAmount = b.TotalAmount.Add(rec.SignedAmount)
		b.TotalFee = b.TotalFee.Add(rec.Fee)
		b.TotalAcqShare = b.TotalAcqShare.Add(rec.AcqShare)
		b.RecordCount++
	}
	return buckets
}
