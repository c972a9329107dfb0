package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/meridianpay/rtgs-engine/internal/aggregate"
	"github.com/meridianpay/rtgs-engine/internal/config"
	"github.com/meridianpay/rtgs-engine/internal/importer"
	"github.com/meridianpay/rtgs-engine/internal/reconcile"
	"github.com/meridianpay/rtgs-engine/internal/repository"
)

// NewRouter creates the Chi router with all API routes mounted.
func NewRouter(
	importerSvc *importer.Service,
	aggSvc *aggregate.Service,
	reconSvc *reconcile.Service,
	resolver *config.Resolver,
	batchRepo *repository.BatchRepo,
	recordRepo *repository.RecordRepo,
	aggRepo *repository.AggregateRepo,
	ctRepo *repository.CtRepo,
) http.Handler {
	h := &Handlers{
		importerSvc: importerSvc,
		aggSvc:      aggSvc,
		reconSvc:    reconSvc,
		resolver:    resolver,
		batchRepo:   batchRepo,
		recordRepo:  recordRepo,
		aggRepo:     aggRepo,
		ctRepo:      ctRepo,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Route("/api/v1", func(r chi.Router) {
		// Imports.
		r.Post("/imports", h.ImportExtract)
		r.Get("/imports", h.ListBatches)
		r.Delete("/imports", h.DeleteAllBatches)
		r.Delete("/imports/{id}", h.DeleteBatch)

		// Records.
		r.Get("/records", h.ListRecords)

		// Aggregates.
		r.Get("/aggregates", h.GetAggregates)
		r.Post("/aggregates/backfill", h.Backfill)

		// Reconciliation.
		r.Get("/reconciliation", h.Reconcile)

		// CT records.
		r.Get("/ct-records", h.ListCtRecords)
		r.Post("/ct-records", h.CreateCtRecord)
		r.Put("/ct-records/{id}", h.UpdateCtRecord)
		r.Delete("/ct-records/{id}", h.DeleteCtRecord)

		// Calculation config.
		r.Get("/config", h.GetConfig)
		r.Put("/config", h.UpdateConfig)

		// Dashboard.
		r.Get("/dashboard", h.GetDashboard)
	})

	return r
}
