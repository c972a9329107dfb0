package reconcile

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/meridianpay/rtgs-engine/internal/aggregate"
	"github.com/meridianpay/rtgs-engine/internal/config"
	"github.com/meridianpay/rtgs-engine/internal/domain"
	"github.com/meridianpay/rtgs-engine/internal/repository"
)

// Service matches computed settlement totals against operator-entered
// commission-tracking records. The comparison unit is the settlement date;
// the computed side is the per-date fee total across all MCC buckets.
type Service struct {
	agg      *aggregate.Service
	cts      *repository.CtRepo
	resolver *config.Resolver
	log      *logrus.Entry
}

func NewService(agg *aggregate.Service, cts *repository.CtRepo, resolver *config.Resolver) *Service {
	return &Service{
		agg:      agg,
		cts:      cts,
		resolver: resolver,
		log:      logrus.WithField("component", "reconciler"),
	}
}

type reportedSide struct {
	total     decimal.Decimal
	parseable bool
	reference string
}

// Match produces one fresh result per period in [from, to]. The tolerance is
// read from the calculation config on every call, so a tolerance change
// takes effect on the next match without touching stored data.
func (s *Service) Match(from, to time.Time) ([]domain.ReconciliationResult, error) {
	tolerance := s.resolver.Resolve().MatchTolerance

	buckets, err := s.agg.Aggregate(from, to)
	if err != nil {
		return nil, fmt.Errorf("compute totals: %w", err)
	}

	computed := make(map[string]decimal.Decimal)
	for _, b := range buckets {
		key := b.SettlementDate.Format(domain.DateLayout)
		computed[key] = computed[key].Add(b.TotalFee)
	}

	ctRecords, err := s.cts.ListRange(from, to)
	if err != nil {
		return nil, fmt.Errorf("load ct records: %w", err)
	}

	reported := make(map[string]*reportedSide)
	for _, ct := range ctRecords {
		key := ct.Period.Format(domain.DateLayout)
		side := reported[key]
		if side == nil {
			side = &reportedSide{}
			reported[key] = side
		}
		if side.reference == "" {
			side.reference = ct.Reference
		}
		// A non-numeric reported amount is a MissingReported verdict, not
		// an error.
		amt, err := decimal.NewFromString(ct.Amount)
		if err != nil {
			continue
		}
		side.total = side.total.Add(amt)
		side.parseable = true
	}

	keys := make([]string, 0, len(computed)+len(reported))
	seen := make(map[string]bool)
	for k := range computed {
		keys = append(keys, k)
		seen[k] = true
	}
	for k := range reported {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	results := make([]domain.ReconciliationResult, 0, len(keys))
	for _, key := range keys {
		period, _ := time.Parse(domain.DateLayout, key)
		res := domain.ReconciliationResult{
			Period:    period,
			Tolerance: tolerance,
		}

		comp, hasComputed := computed[key]
		side, hasCt := reported[key]
		if hasCt {
			res.CtReference = side.reference
		}

		switch {
		case hasComputed && hasCt && side.parseable:
			res.Computed = comp
			res.Reported = side.total
			res.Delta = comp.Sub(side.total).Abs()
			if res.Delta.LessThanOrEqual(tolerance) {
				res.Verdict = domain.VerdictMatched
			} else {
				res.Verdict = domain.VerdictMismatched
			}
		case hasComputed:
			res.Computed = comp
			res.Verdict = domain.VerdictMissingReported
		default:
			if side.parseable {
				res.Reported = side.total
			}
			res.Verdict = domain.VerdictMissingComputed
		}

		results = append(results, res)
	}

	s.log.WithFields(logrus.Fields{
		"from":    from.Format(domain.DateLayout),
		"to":      to.Format(domain.DateLayout),
		"periods": len(results),
	}).Info("reconciliation matched")

	return results, nil
}
