package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/meridianpay/rtgs-engine/internal/aggregate"
	"github.com/meridianpay/rtgs-engine/internal/config"
	"github.com/meridianpay/rtgs-engine/internal/domain"
	"github.com/meridianpay/rtgs-engine/internal/extract"
	"github.com/meridianpay/rtgs-engine/internal/importer"
	"github.com/meridianpay/rtgs-engine/internal/reconcile"
	"github.com/meridianpay/rtgs-engine/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	importerSvc *importer.Service
	aggSvc      *aggregate.Service
	reconSvc    *reconcile.Service
	resolver    *config.Resolver
	batchRepo   *repository.BatchRepo
	recordRepo  *repository.RecordRepo
	aggRepo     *repository.AggregateRepo
	ctRepo      *repository.CtRepo
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithField("component", "api").WithError(err).Error("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// dateRange reads the from/to query parameters, both required.
func dateRange(r *http.Request) (time.Time, time.Time, bool) {
	from := parseDate(r.URL.Query().Get("from"))
	to := parseDate(r.URL.Query().Get("to"))
	if from == nil || to == nil {
		return time.Time{}, time.Time{}, false
	}
	return *from, *to, true
}

// --- imports ---

func (h *Handlers) ImportExtract(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required: "+err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read file: "+err.Error())
		return
	}

	source := r.FormValue("source")
	if source == "" {
		source = header.Filename
	}

	rows, err := extract.ParseClearingCSV(data)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := h.importerSvc.ImportBatch(source, rows)
	if err != nil {
		// A storage failure surfaces as a hard error, carrying the counts
		// the import actually committed.
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  err.Error(),
			"result": result,
		})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handlers) ListBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := h.batchRepo.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batches": batches})
}

func (h *Handlers) DeleteBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.batchRepo.GetByID(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "batch not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	deleted, err := h.importerSvc.DeleteBatch(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"batch_id": id, "records_deleted": deleted})
}

func (h *Handlers) DeleteAllBatches(w http.ResponseWriter, r *http.Request) {
	if err := h.importerSvc.DeleteAll(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- records ---

func (h *Handlers) ListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.RecordFilter{
		BatchID: q.Get("batch_id"),
		MCC:     q.Get("mcc"),
		From:    parseDate(q.Get("from")),
		To:      parseDate(q.Get("to")),
		Page:    parseIntDefault(q.Get("page"), 1),
		Limit:   parseIntDefault(q.Get("limit"), 50),
	}

	records, total, err := h.recordRepo.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"total":   total,
		"page":    filter.Page,
		"limit":   filter.Limit,
	})
}

// --- aggregates ---

func (h *Handlers) GetAggregates(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "from and to are required (YYYY-MM-DD)")
		return
	}

	aggs, err := h.aggSvc.Aggregate(from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"aggregates": aggs})
}

func (h *Handlers) Backfill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	from := parseDate(req.From)
	to := parseDate(req.To)
	if from == nil || to == nil {
		writeError(w, http.StatusBadRequest, "from and to are required (YYYY-MM-DD)")
		return
	}

	buckets, err := h.aggSvc.Backfill(*from, *to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"buckets_recomputed": buckets})
}

// --- reconciliation ---

func (h *Handlers) Reconcile(w http.ResponseWriter, r *http.Request) {
	from, to, ok := dateRange(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "from and to are required (YYYY-MM-DD)")
		return
	}

	results, err := h.reconSvc.Match(from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// --- CT records ---

type ctRequest struct {
	Period    string `json:"period"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
}

func (h *Handlers) ListCtRecords(w http.ResponseWriter, r *http.Request) {
	var (
		cts []domain.CtRecord
		err error
	)
	from := parseDate(r.URL.Query().Get("from"))
	to := parseDate(r.URL.Query().Get("to"))
	if from != nil && to != nil {
		cts, err = h.ctRepo.ListRange(*from, *to)
	} else {
		cts, err = h.ctRepo.List()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ct_records": cts})
}

func (h *Handlers) CreateCtRecord(w http.ResponseWriter, r *http.Request) {
	var req ctRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	period := parseDate(req.Period)
	if period == nil {
		writeError(w, http.StatusBadRequest, "period is required (YYYY-MM-DD)")
		return
	}

	now := time.Now().UTC()
	ct := &domain.CtRecord{
		ID:        uuid.NewString(),
		Period:    *period,
		Amount:    req.Amount,
		Reference: req.Reference,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.ctRepo.Insert(ct); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, ct)
}

func (h *Handlers) UpdateCtRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := h.ctRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "ct record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req ctRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	if period := parseDate(req.Period); period != nil {
		existing.Period = *period
	}
	if req.Amount != "" {
		existing.Amount = req.Amount
	}
	existing.Reference = req.Reference
	existing.UpdatedAt = time.Now().UTC()

	if err := h.ctRepo.Update(existing); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, existing)
}

func (h *Handlers) DeleteCtRecord(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.ctRepo.Delete(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "ct record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- calculation config ---

func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.resolver.Resolve())
}

func (h *Handlers) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return
	}
	if err := h.resolver.Update(raw); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.resolver.Resolve())
}

// --- dashboard ---

func (h *Handlers) GetDashboard(w http.ResponseWriter, r *http.Request) {
	recordCount, err := h.recordRepo.Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	batchCount, err := h.batchRepo.Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	bucketCount, err := h.aggRepo.Count()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	cts, err := h.ctRepo.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"records":    recordCount,
		"batches":    batchCount,
		"aggregates": bucketCount,
		"ct_records": len(cts),
	})
}
