package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	getconsumables "robot-maint/http-server/consumables/get"
	removeconsumables "robot-maint/http-server/consumables/remove"
	saveconsumables "robot-maint/http-server/consumables/save"
	upconsumables "robot-maint/http-server/consumables/update"
	"robot-maint/http-server/costing/calculate"
	generate_excel "robot-maint/http-server/generate-report/generate-excel"
	getintervention "robot-maint/http-server/intervention/get"
	saveintervention "robot-maint/http-server/intervention/save"
	getoffer "robot-maint/http-server/offer/get"
	saveoffer "robot-maint/http-server/offer/save"
	upoffer "robot-maint/http-server/offer/update"
	getpo "robot-maint/http-server/purchase-order/get"
	removepo "robot-maint/http-server/purchase-order/remove"
	savepo "robot-maint/http-server/purchase-order/save"
	uppo "robot-maint/http-server/purchase-order/update"
	getreport "robot-maint/http-server/report/get"
	savereport "robot-maint/http-server/report/save"
	upreport "robot-maint/http-server/report/update"
	getversion "robot-maint/http-server/template-version/get"
	removeversion "robot-maint/http-server/template-version/remove"
	saveversion "robot-maint/http-server/template-version/save"
	upversion "robot-maint/http-server/template-version/update"
	"robot-maint/internal/config"
	"robot-maint/internal/middleware/auth"
	"robot-maint/internal/service/consumables"
	"robot-maint/internal/service/costing"
	generate_excel2 "robot-maint/internal/service/generate-excel"
	"robot-maint/internal/service/offer"
	"robot-maint/internal/service/purchase"
	"robot-maint/internal/service/report"
	"robot-maint/internal/service/template"
	"robot-maint/internal/storage/mysql"
)

const frontendDir = "./frontend-dist"

type services struct {
	templates   *template.Service
	reports     *report.Service
	consumables *consumables.Service
	coster      *costing.Service
	purchases   *purchase.Service
	offers      *offer.Service
	excel       *generate_excel2.GenerateExcelService
}

func routes(cfg config.Config, log *slog.Logger, storage *mysql.Storage, svc services, reg *prometheus.Registry) *chi.Mux {
	router := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	router.Use(corsHandler.Handler)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	if reg != nil {
		router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	router.Get("/healthz", health(log, storage))

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.HTTPServer.RequestTimeout))

		// template versions
		r.Get("/models/{model_id}/versions", getversion.ListVersions(log, svc.templates))
		r.Get("/models/{model_id}/versions/active", getversion.GetActiveVersion(log, svc.templates))
		r.Get("/versions/{id}", getversion.GetVersion(log, svc.templates))
		r.Post("/versions/{id}/preview", getversion.PreviewVersion(log, svc.templates))

		// consumables
		r.Get("/models/{model_id}/consumables", getconsumables.GetByModel(log, svc.consumables))
		r.Get("/manufacturers/{id}/consumables", getconsumables.GetByManufacturer(log, svc.consumables))
		r.Get("/catalog/{kind}", getconsumables.ListCatalog(log, svc.consumables))

		r.Post("/costing/calculate", calculate.CalculateTotals(log, svc.coster))

		r.Post("/interventions", saveintervention.CreateIntervention(log, svc.offers))
		r.Get("/interventions/{id}", getintervention.GetIntervention(log, svc.offers))

		// reports
		r.Post("/reports", savereport.CreateReport(log, svc.reports))
		r.Get("/reports/{id}", getreport.GetReport(log, svc.reports))
		r.Get("/reports/{id}/assembled", getreport.AssembleReport(log, svc.reports))
		r.Get("/report-components/{id}", getreport.GetComponent(log, svc.reports))
		r.Patch("/report-components/{id}/data", upreport.PatchComponentData(log, svc.reports))
		r.Put("/report-components/{id}/data", upreport.PatchComponentData(log, svc.reports))

		// purchase orders
		r.Post("/interventions/{intervention_id}/purchase-order", savepo.GeneratePurchaseOrder(log, svc.purchases))
		r.Get("/interventions/{intervention_id}/purchase-order", getpo.GetByIntervention(log, svc.purchases))
		r.Patch("/purchase-orders/{id}", uppo.UpdatePurchaseOrder(log, svc.purchases))
		r.Delete("/purchase-orders/{id}", removepo.DeletePurchaseOrder(log, svc.purchases))
		r.Get("/purchase-orders/{id}/aggregated", getpo.GetAggregated(log, svc.purchases))
		r.Get("/purchase-orders/{id}/excel", generate_excel.PurchaseOrderExcel(log, svc.excel))

		// offers
		r.Post("/offers", saveoffer.CreateOffer(log, svc.offers))
		r.Get("/offers/{id}", getoffer.GetOffer(log, svc.offers))
		r.Put("/offers/{id}", upoffer.UpdateOffer(log, svc.offers))
		r.Post("/offers/{id}/recalculate", upoffer.RecalculateOffer(log, svc.offers))
		r.Post("/offers/{id}/state", upoffer.SetOfferState(log, svc.offers))
		r.Post("/offers/{id}/intervention", saveoffer.GenerateIntervention(log, svc.offers))

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.BasicAuth(cfg.AdminLogin, cfg.AdminPass))

			r.Post("/models/{model_id}/versions", saveversion.CreateVersion(log, svc.templates))
			r.Put("/versions/{id}", upversion.UpdateVersion(log, svc.templates))
			r.Post("/versions/{id}/state", upversion.SetVersionState(log, svc.templates))
			r.Delete("/versions/{id}", removeversion.DeleteVersion(log, svc.templates))

			r.Put("/consumables", saveconsumables.UpsertBatch(log, svc.consumables))
			r.Put("/models/{model_id}/consumables/{level}", saveconsumables.UpsertLevel(log, svc.consumables))
			r.Put("/models/{model_id}/levels", upconsumables.UpdateModelLevels(log, svc.consumables))

			r.Post("/catalog/{kind}", saveconsumables.CreateCatalogItem(log, svc.consumables))
			r.Delete("/catalog/{kind}/{id}", removeconsumables.DeleteCatalogItem(log, svc.consumables))
		})
	})

	mountFrontend(router, cfg, log)

	return router
}

func health(log *slog.Logger, storage *mysql.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := storage.Ping(ctx); err != nil {
			log.Error("health check failed", slog.String("error", err.Error()))
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "db unavailable"})
			return
		}

		render.JSON(w, r, map[string]string{"status": "ok"})
	}
}

// mountFrontend serves the built SPA when it is present next to the binary.
func mountFrontend(router *chi.Mux, cfg config.Config, log *slog.Logger) {
	if _, err := os.Stat(frontendDir); err != nil {
		log.Warn("frontend not found, serving api only", slog.String("path", frontendDir))
		return
	}

	fileServer := http.FileServer(http.Dir(frontendDir))
	index := func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, filepath.Join(frontendDir, "index.html"))
	}

	router.Handle("/assets/*", fileServer)

	router.With(auth.BasicAuth(cfg.AdminLogin, cfg.AdminPass)).HandleFunc("/admin/*", index)

	router.HandleFunc("/*", func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(frontendDir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}
		index(w, r)
	})
}
